package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/blockverse/internal/auth"
	"github.com/annel0/blockverse/internal/config"
	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/middleware"
	"github.com/annel0/blockverse/internal/network"
	"github.com/annel0/blockverse/internal/world"
)

// Backend то, чем управляет административный API; реализуется network.Server
type Backend interface {
	World() *world.World
	Peers() []network.PeerInfo
	Save(ctx context.Context) error
	BroadcastMessage(text string)
}

// Options параметры AdminServer
type Options struct {
	Addr   string
	Admin  config.AdminConfig
	Events eventbus.EventBus // может быть nil
}

// AdminServer HTTP API оператора: здоровье, метрики, статистика мира,
// список игроков, принудительное сохранение и объявления в чат
type AdminServer struct {
	router  *gin.Engine
	srv     *http.Server
	addr    string
	backend Backend
	admin   config.AdminConfig
	issuer  *auth.Issuer
	events  eventbus.EventBus
	process *ProcessStats
	logger  *logging.Logger
}

// GenericResponse общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewAdminServer собирает роутер; слушать начинает Start
func NewAdminServer(backend Backend, opts Options) (*AdminServer, error) {
	if opts.Addr == "" {
		opts.Addr = ":8085"
	}
	issuer, err := auth.NewIssuer(opts.Admin.JWTSecret, opts.Admin.TokenTTL)
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("blockverse-admin"))
	router.Use(middleware.NewRequestLogger().Handler())

	promMw := middleware.NewPrometheusMiddleware()
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	s := &AdminServer{
		router:  router,
		addr:    opts.Addr,
		backend: backend,
		admin:   opts.Admin,
		issuer:  issuer,
		events:  opts.Events,
		process: NewProcessStats(),
		logger:  logging.GetComponentLogger("admin"),
	}
	s.setupRoutes()
	return s, nil
}

func (s *AdminServer) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	api.POST("/auth/login", s.handleLogin)

	protected := api.Group("/")
	protected.Use(s.jwtMiddleware())
	{
		protected.GET("/stats", s.handleStats)
		protected.GET("/players", s.handlePlayers)
		protected.POST("/save", s.handleSave)
		protected.POST("/broadcast", s.handleBroadcast)
	}
}

// Handler роутер для встраивания и тестов
func (s *AdminServer) Handler() http.Handler { return s.router }

// Start начинает слушать адрес; ошибка привязки возвращается сразу
func (s *AdminServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("admin API %s: %w", s.addr, err)
	}
	s.srv = &http.Server{Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	s.logger.Info("административный API слушает %s", ln.Addr())
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin API остановлен: %v", err)
		}
	}()
	return nil
}

// Stop дожидается завершения текущих запросов
func (s *AdminServer) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
