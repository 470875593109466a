package network

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/config"
	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/protocol"
	"github.com/annel0/blockverse/internal/storage"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

type inbox struct {
	mu   sync.Mutex
	msgs []string
}

func (n *inbox) PlaySound(world.Sound, vec.Position) {}

func (n *inbox) Notify(msg string) {
	n.mu.Lock()
	n.msgs = append(n.msgs, msg)
	n.mu.Unlock()
}

func (n *inbox) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

func flatWorld(t *testing.T, role world.Role) *world.World {
	t.Helper()
	s := world.DefaultSettings()
	s.SizeChunksX, s.SizeChunksZ = 1, 1
	s.Creative = true
	w, err := world.New(s, role)
	require.NoError(t, err)
	t.Cleanup(w.Close)
	for _, c := range w.Grid().All() {
		for x := 0; x < vec.ChunkSize; x++ {
			for z := 0; z < vec.ChunkSize; z++ {
				for y := 0; y <= 5; y++ {
					c.SetRaw(x, y, z, block.New(block.Stone))
				}
			}
		}
	}
	require.NoError(t, w.FinalizeLoad(context.Background()))
	return w
}

func startServer(t *testing.T, transport string, tune ...func(*config.ServerConfig)) *Server {
	t.Helper()
	return startServerWith(t, transport, nil, tune...)
}

func startServerWith(t *testing.T, transport string, opts []ServerOption, tune ...func(*config.ServerConfig)) *Server {
	t.Helper()
	cfg := config.ServerConfig{
		Transport:        transport,
		HandshakeTimeout: 2 * time.Second,
		SyncInterval:     time.Hour,
		MaxFrameSize:     1 << 20,
		OutboundQueue:    256,
	}
	for _, f := range tune {
		f(&cfg)
	}
	opts = append(opts, WithAddr("127.0.0.1:0"))
	srv := NewServer(cfg, flatWorld(t, world.RoleServer), opts...)
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(srv.Stop)
	return srv
}

func join(t *testing.T, srv *Server, name string, n *inbox) *Client {
	t.Helper()
	opts := ClientOptions{
		Transport:        srv.cfg.Transport,
		Address:          srv.Addr().String(),
		Name:             name,
		Retries:          1,
		DialTimeout:      time.Second,
		HandshakeTimeout: 2 * time.Second,
		MaxFrameSize:     1 << 20,
		WorldOptions:     []world.Option{world.WithFeedback(n)},
	}
	c, err := Join(context.Background(), opts)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		_ = c.Close()
		<-done
	})
	return c
}

func admitted(srv *Server) int {
	n := 0
	for _, p := range srv.Peers() {
		if p.Admitted {
			n++
		}
	}
	return n
}

func rawFrame(t *testing.T, conn net.Conn, a protocol.Action) {
	t.Helper()
	tag, payload := protocol.Encode(a)
	require.NoError(t, protocol.WriteFrame(conn, tag, payload))
}

func TestEditReachesEveryPeer(t *testing.T) {
	srv := startServer(t, TransportTCP)
	a := join(t, srv, "alice", &inbox{})
	b := join(t, srv, "bob", &inbox{})

	require.Eventually(t, func() bool { return admitted(srv) == 2 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		_, ok := a.World().Player(b.PlayerID())
		return ok
	}, 2*time.Second, 10*time.Millisecond, "alice узнаёт о bob")

	pos := vec.Position{X: 2, Y: 6, Z: 2}
	require.NoError(t, a.Submit(&protocol.AddBlock{Pos: pos, BlockType: block.Planks}))
	assert.Equal(t, block.Planks, a.World().BlockType(pos), "эхо применено до ответа сервера")

	require.Eventually(t, func() bool {
		return srv.World().BlockType(pos) == block.Planks && b.World().BlockType(pos) == block.Planks
	}, 2*time.Second, 10*time.Millisecond)

	hole := vec.Position{X: 3, Y: 5, Z: 3}
	require.NoError(t, b.Submit(&protocol.RemoveBlock{Pos: hole}))
	require.Eventually(t, func() bool {
		d := srv.World().Digest()
		return a.World().Digest() == d && b.World().Digest() == d && a.World().BlockType(hole) == block.Air
	}, 2*time.Second, 10*time.Millisecond, "копии сходятся")
}

func TestMalformedPeerDroppedAlone(t *testing.T) {
	srv := startServer(t, TransportTCP)
	a := join(t, srv, "alice", &inbox{})
	notes := &inbox{}
	b := join(t, srv, "bob", notes)
	require.Eventually(t, func() bool { return admitted(srv) == 2 }, 2*time.Second, 10*time.Millisecond)

	bad, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer bad.Close()
	rawFrame(t, bad, &protocol.Connect{Name: "mallory", Version: world.ProtocolVersion})
	require.Eventually(t, func() bool { return admitted(srv) == 3 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, protocol.WriteFrame(bad, 999, []byte{1, 2, 3}))
	require.Eventually(t, func() bool { return admitted(srv) == 2 }, 2*time.Second, 10*time.Millisecond)

	_ = bad.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := protocol.ReadFrame(bad, 1<<20); err != nil {
			break
		}
	}

	// остальные продолжают играть
	pos := vec.Position{X: 4, Y: 6, Z: 4}
	require.NoError(t, a.Submit(&protocol.AddBlock{Pos: pos, BlockType: block.Glass}))
	require.Eventually(t, func() bool { return b.World().BlockType(pos) == block.Glass }, 2*time.Second, 10*time.Millisecond)
	assert.Positive(t, notes.count(), "bob видел вход и выход mallory")
}

func TestActionBeforeHandshakeDropsPeer(t *testing.T) {
	srv := startServer(t, TransportTCP)
	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	rawFrame(t, conn, &protocol.ChatMsg{Text: "привет"})
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = protocol.ReadFrame(conn, 1<<20)
	assert.Error(t, err, "сервер закрывает соединение")
	assert.Zero(t, admitted(srv))
}

func TestVersionMismatchRefused(t *testing.T) {
	srv := startServer(t, TransportTCP)
	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	rawFrame(t, conn, &protocol.Connect{Name: "old", Version: "blockverse-0.1"})
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	tag, payload, err := protocol.ReadFrame(conn, 1<<20)
	require.NoError(t, err)
	a, err := protocol.Decode(tag, payload, world.RoleClient)
	require.NoError(t, err)
	msg, ok := a.(*protocol.ServerMsg)
	require.True(t, ok, "первым приходит объяснение")
	assert.Contains(t, msg.Text, "blockverse-0.1")

	_, _, err = protocol.ReadFrame(conn, 1<<20)
	assert.Error(t, err)
	assert.Empty(t, srv.World().Players(), "игрок не добавлен")
}

func TestHandshakeTimeout(t *testing.T) {
	srv := startServer(t, TransportTCP, func(c *config.ServerConfig) { c.HandshakeTimeout = 100 * time.Millisecond })
	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = protocol.ReadFrame(conn, 1<<20)
	assert.Error(t, err, "молчащий пир отключается")
}

func TestSyncReachesClients(t *testing.T) {
	srv := startServer(t, TransportTCP)
	c := join(t, srv, "alice", &inbox{})
	require.Eventually(t, func() bool { return admitted(srv) == 1 }, 2*time.Second, 10*time.Millisecond)

	srv.Sync(time.Minute)
	want := int32(60 * TicksPerSecond)
	require.Eventually(t, func() bool { return c.World().Settings().GameTime == want }, 2*time.Second, 10*time.Millisecond)
	assert.InDelta(t, SunDegrees(want), c.World().Settings().SunDegrees, 0.001)
}

func TestServerAssignsItemIDs(t *testing.T) {
	srv := startServer(t, TransportTCP)
	a := join(t, srv, "alice", &inbox{})
	b := join(t, srv, "bob", &inbox{})
	require.Eventually(t, func() bool { return admitted(srv) == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, a.Submit(&protocol.AddBlockItem{BlockType: block.Gravel, Coords: vec.NewCoords(6.5, 8, 6.5)}))
	require.Eventually(t, func() bool {
		return len(a.World().BlockItems()) == 1 && len(b.World().BlockItems()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, srv.World().BlockItems()[0].ID, a.World().BlockItems()[0].ID, "отправитель получает назначенный ID")
}

func TestSettledItemsReachClients(t *testing.T) {
	srv := startServer(t, TransportTCP)
	a := join(t, srv, "alice", &inbox{})
	require.Eventually(t, func() bool { return admitted(srv) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, a.Submit(&protocol.AddBlockItem{BlockType: block.Sand, Coords: vec.NewCoords(6.5, 9, 6.5)}))
	require.Eventually(t, func() bool { return len(a.World().BlockItems()) == 1 }, 2*time.Second, 10*time.Millisecond)

	item := srv.World().BlockItems()[0]
	item.SetFalling(true)
	srv.SettleItems()

	require.Eventually(t, func() bool {
		got := a.World().BlockItems()
		return len(got) == 1 && got[0].Coords().Yf == 6
	}, 2*time.Second, 10*time.Millisecond, "клиент кладёт предмет туда же, где его положил сервер")
	assert.False(t, item.Falling())
}

func TestJoinOverKCP(t *testing.T) {
	srv := startServer(t, TransportKCP)
	c := join(t, srv, "alice", &inbox{})
	assert.Positive(t, c.PlayerID())
	require.Eventually(t, func() bool { return admitted(srv) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestDialGivesUp(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	_, err = Join(context.Background(), ClientOptions{
		Address:     addr,
		Retries:     2,
		Backoff:     10 * time.Millisecond,
		DialTimeout: 100 * time.Millisecond,
	})
	var de *protocol.DisconnectError
	require.ErrorAs(t, err, &de)
	assert.False(t, de.Restart)
}

func TestLocalAppliesInPlace(t *testing.T) {
	w := flatWorld(t, world.RoleSinglePlayer)
	id := w.AddPlayer(world.NewPlayer(0, "solo", w.SpawnPoint(), true))
	l := NewLocal(w, id, nil)

	pos := vec.Position{X: 1, Y: 6, Z: 1}
	require.NoError(t, l.Submit(&protocol.AddBlock{Pos: pos, BlockType: block.Bricks}))
	assert.Equal(t, block.Bricks, w.BlockType(pos))

	err := l.Submit(&protocol.RemoveBlock{Pos: vec.Position{X: 1, Y: 0, Z: 1}})
	assert.ErrorIs(t, err, world.ErrWorldFloor, "нижний слой не снимается")
}

func TestReturningPlayerResumesPosition(t *testing.T) {
	positions := storage.NewMemoryPositionRepo()
	srv := startServerWith(t, TransportTCP, []ServerOption{WithPositions(positions)})

	first := join(t, srv, "alice", &inbox{})
	spawn := srv.World().SpawnPoint()
	self, ok := first.World().Player(first.PlayerID())
	require.True(t, ok)
	assert.Equal(t, spawn, self.Coords(), "первый вход в центре мира")

	moved := vec.NewCoords(3.5, 7, 12.25)
	require.NoError(t, first.Submit(&protocol.PlayerMove{Coords: moved, PlayerID: first.PlayerID()}))
	require.Eventually(t, func() bool {
		p, ok := srv.World().Player(first.PlayerID())
		return ok && p.Coords() == moved
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, first.Close())
	require.Eventually(t, func() bool { return positions.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	again := join(t, srv, "alice", &inbox{})
	self, ok = again.World().Player(again.PlayerID())
	require.True(t, ok)
	assert.Equal(t, moved, self.Coords())
	assert.NotEqual(t, first.PlayerID(), again.PlayerID(), "идентификаторы не переиспользуются")
}

func TestServerPublishesEvents(t *testing.T) {
	bus := eventbus.NewMemoryBus(64)
	t.Cleanup(func() { _ = bus.Close() })
	var mu sync.Mutex
	var seen []string
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{}, func(_ context.Context, ev *eventbus.Envelope) {
		mu.Lock()
		seen = append(seen, ev.EventType)
		mu.Unlock()
	})
	require.NoError(t, err)

	srv := startServerWith(t, TransportTCP, []ServerOption{WithEvents(bus)})
	c := join(t, srv, "alice", &inbox{})
	require.NoError(t, c.Submit(&protocol.ChatMsg{Text: "всем привет"}))
	require.NoError(t, c.Close())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, 2*time.Second, 10*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{eventbus.PlayerJoined, eventbus.Chat, eventbus.PlayerLeft}, seen)
	mu.Unlock()
}
