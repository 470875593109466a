package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/auth"
	"github.com/annel0/blockverse/internal/config"
	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/network"
	"github.com/annel0/blockverse/internal/world"
)

type fakeBackend struct {
	w        *world.World
	mu       sync.Mutex
	saves    int
	saveErr  error
	messages []string
}

func (f *fakeBackend) World() *world.World { return f.w }

func (f *fakeBackend) Peers() []network.PeerInfo {
	return []network.PeerInfo{{SessionID: "s1", PlayerID: 7, Name: "alice", Admitted: true}}
}

func (f *fakeBackend) Save(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	return f.saveErr
}

func (f *fakeBackend) BroadcastMessage(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
}

func newTestServer(t *testing.T) (*AdminServer, *fakeBackend) {
	t.Helper()
	s := world.DefaultSettings()
	s.SizeChunksX, s.SizeChunksZ = 1, 1
	w, err := world.New(s, world.RoleServer)
	require.NoError(t, err)
	t.Cleanup(w.Close)

	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	bus := eventbus.NewMemoryBus(16)
	t.Cleanup(func() { _ = bus.Close() })

	backend := &fakeBackend{w: w}
	srv, err := NewAdminServer(backend, Options{
		Admin:  config.AdminConfig{Enabled: true, User: "admin", PasswordHash: hash, TokenTTL: time.Hour},
		Events: bus,
	})
	require.NoError(t, err)
	return srv, backend
}

func do(t *testing.T, srv *AdminServer, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, srv *AdminServer) string {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "admin", Password: "s3cret"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	return resp.Token
}

func TestHealthIsPublic(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "admin", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "root", Password: "s3cret"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	srv, backend := newTestServer(t)
	for _, path := range []string{"/api/stats", "/api/players"} {
		rec := do(t, srv, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	rec := do(t, srv, http.MethodPost, "/api/save", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, backend.saves, "без токена сохранение не запускается")
}

func TestStatsReportsWorld(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/api/stats", login(t, srv), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Players int `json:"players"`
			World   struct {
				SizeX  int    `json:"size_x"`
				Digest string `json:"digest"`
			} `json:"world"`
			Events *struct {
				Published uint64 `json:"published"`
			} `json:"events"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Data.Players)
	assert.Equal(t, 1, resp.Data.World.SizeX)
	assert.Len(t, resp.Data.World.Digest, 16)
	assert.NotNil(t, resp.Data.Events)
}

func TestSaveAndBroadcast(t *testing.T) {
	srv, backend := newTestServer(t)
	token := login(t, srv)

	rec := do(t, srv, http.MethodPost, "/api/save", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, backend.saves)

	backend.saveErr = errors.New("диск полон")
	rec = do(t, srv, http.MethodPost, "/api/save", token, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/broadcast", token, BroadcastRequest{Text: "  рестарт через 5 минут "})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"рестарт через 5 минут"}, backend.messages)

	rec = do(t, srv, http.MethodPost, "/api/broadcast", token, BroadcastRequest{Text: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginDisabledWithoutHash(t *testing.T) {
	s := world.DefaultSettings()
	s.SizeChunksX, s.SizeChunksZ = 1, 1
	w, err := world.New(s, world.RoleServer)
	require.NoError(t, err)
	t.Cleanup(w.Close)

	srv, err := NewAdminServer(&fakeBackend{w: w}, Options{Admin: config.AdminConfig{Enabled: true, User: "admin"}})
	require.NoError(t, err)
	rec := do(t, srv, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "admin", Password: "x"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "5с", formatUptime(5*time.Second))
	assert.Equal(t, "2м 0с", formatUptime(2*time.Minute))
	assert.Equal(t, "1д 1ч 0м 0с", formatUptime(25*time.Hour))
}
