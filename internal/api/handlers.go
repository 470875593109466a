package api

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/annel0/blockverse/internal/auth"
)

// LoginRequest запрос на вход администратора
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse ответ на вход
type LoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message"`
}

// BroadcastRequest объявление от сервера
type BroadcastRequest struct {
	Text string `json:"text" binding:"required"`
}

const maxBroadcastLen = 256

func (s *AdminServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().Unix()})
}

func (s *AdminServer) handleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, LoginResponse{Message: "Неверный формат запроса"})
		return
	}
	if !s.admin.Enabled || s.admin.PasswordHash == "" {
		c.JSON(http.StatusServiceUnavailable, LoginResponse{Message: "Вход администратора отключён"})
		return
	}
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.admin.User)) == 1
	if !userOK || !auth.CheckPassword(s.admin.PasswordHash, req.Password) {
		s.logger.Warn("неудачный вход администратора %q с %s", req.Username, c.ClientIP())
		c.JSON(http.StatusUnauthorized, LoginResponse{Message: "Неверное имя пользователя или пароль"})
		return
	}
	token, err := s.issuer.Issue(req.Username)
	if err != nil {
		s.logger.Error("выпуск токена: %v", err)
		c.JSON(http.StatusInternalServerError, LoginResponse{Message: "Внутренняя ошибка сервера"})
		return
	}
	s.logger.Info("администратор %s вошёл", req.Username)
	c.JSON(http.StatusOK, LoginResponse{Success: true, Token: token, Message: "Вход выполнен"})
}

func (s *AdminServer) handleStats(c *gin.Context) {
	w := s.backend.World()
	settings := w.Settings()

	data := gin.H{
		"process": s.process.Snapshot(),
		"players": len(s.backend.Peers()),
		"world": gin.H{
			"name":        settings.Name,
			"seed":        settings.Seed,
			"size_x":      settings.SizeChunksX,
			"size_z":      settings.SizeChunksZ,
			"game_time":   settings.GameTime,
			"sun_degrees": settings.SunDegrees,
			"creative":    settings.Creative,
			"version":     settings.Version,
			"digest":      fmt.Sprintf("%016x", w.Digest()),
			"block_items": len(w.BlockItems()),
			"mobs":        w.Mobs(),
		},
	}
	if s.events != nil {
		st := s.events.Metrics()
		data["events"] = gin.H{
			"published": st.Published,
			"consumed":  st.Consumed,
			"dropped":   st.Dropped,
			"inflight":  st.InFlight,
		}
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Статистика сервера", Data: data})
}

func (s *AdminServer) handlePlayers(c *gin.Context) {
	peers := s.backend.Peers()
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: fmt.Sprintf("Подключено: %d", len(peers)),
		Data:    peers,
	})
}

func (s *AdminServer) handleSave(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()
	start := time.Now()
	if err := s.backend.Save(ctx); err != nil {
		s.logger.Error("сохранение по запросу: %v", err)
		c.JSON(http.StatusInternalServerError, GenericResponse{Message: "Ошибка сохранения: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Мир сохранён",
		Data:    gin.H{"duration_ms": time.Since(start).Milliseconds()},
	})
}

func (s *AdminServer) handleBroadcast(c *gin.Context) {
	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Message: "Неверный формат запроса"})
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" || len(text) > maxBroadcastLen {
		c.JSON(http.StatusBadRequest, GenericResponse{Message: fmt.Sprintf("Текст от 1 до %d байт", maxBroadcastLen)})
		return
	}
	s.backend.BroadcastMessage(text)
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Объявление отправлено"})
}
