package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации приложения.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Client    ClientConfig    `yaml:"client"`
	World     WorldConfig     `yaml:"world"`
	Render    RenderConfig    `yaml:"render"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Admin     AdminConfig     `yaml:"admin"`
	Events    EventsConfig    `yaml:"events"`
	Positions PositionsConfig `yaml:"positions"`
	LogLevel  string          `yaml:"log_level"`
	LogDir    string          `yaml:"log_dir"`
}

type ServerConfig struct {
	TCPPort          int           `yaml:"tcp_port"`
	Transport        string        `yaml:"transport"` // tcp | kcp
	AdminPort        int           `yaml:"admin_port"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	SaveInterval     time.Duration `yaml:"save_interval"`
	SyncInterval     time.Duration `yaml:"sync_interval"`
	MaxFrameSize     int           `yaml:"max_frame_size"`
	OutboundQueue    int           `yaml:"outbound_queue"`
}

type ClientConfig struct {
	ServerAddress  string        `yaml:"server_address"`
	ConnectRetries int           `yaml:"connect_retries"`
	RetryBackoff   time.Duration `yaml:"retry_backoff"`
	PlayerName     string        `yaml:"player_name"`
}

// WorldConfig мир сервера. RequireExisting запрещает генерировать новый
// мир, если сохранённого нет: сервер тогда не стартует.
type WorldConfig struct {
	Path            string `yaml:"path"`
	Storage         string `yaml:"storage"` // file | badger
	SizeChunks      int    `yaml:"size_chunks"`
	Seed            int64  `yaml:"seed"`
	Name            string `yaml:"name"`
	Creative        bool   `yaml:"creative"`
	RequireExisting bool   `yaml:"require_existing"`
}

// RenderConfig внешние флаги клиента: дальность видимости и подавление обновлений
type RenderConfig struct {
	ViewDistance         int  `yaml:"view_distance"`
	SmoothLighting       bool `yaml:"smooth_lighting"`
	ChunkUpdatesDisabled bool `yaml:"chunk_updates_disabled"`
	BuildWorkers         int  `yaml:"build_workers"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
}

// AdminConfig учётная запись административного API. Пустой PasswordHash
// отключает вход: защищённые маршруты недоступны.
type AdminConfig struct {
	Enabled      bool          `yaml:"enabled"`
	User         string        `yaml:"user"`
	PasswordHash string        `yaml:"password_hash"` // bcrypt, см. cmd/tools/hashpw
	JWTSecret    string        `yaml:"jwt_secret"`    // base64, >= 32 байт
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

// EventsConfig шина игровых событий: память процесса или NATS JetStream
type EventsConfig struct {
	NATSURL   string        `yaml:"nats_url"`
	Stream    string        `yaml:"stream"`
	Retention time.Duration `yaml:"retention"`
	Buffer    int           `yaml:"buffer"`
}

// PositionsConfig хранилище последних координат игроков
type PositionsConfig struct {
	Backend   string        `yaml:"backend"` // memory | redis | mysql
	RedisAddr string        `yaml:"redis_addr"`
	MySQLDSN  string        `yaml:"mysql_dsn"`
	TTL       time.Duration `yaml:"ttl"`
}

// Default возвращает конфигурацию со значениями по умолчанию
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Transport:        "tcp",
			HandshakeTimeout: 15 * time.Second,
			SaveInterval:     5 * time.Minute,
			SyncInterval:     10 * time.Second,
			MaxFrameSize:     64 << 20,
			OutboundQueue:    1024,
		},
		Client: ClientConfig{
			ServerAddress:  "localhost:8084",
			ConnectRetries: 3,
			RetryBackoff:   2 * time.Second,
			PlayerName:     "player",
		},
		World: WorldConfig{
			Path:       "data/world.bvw",
			Storage:    "file",
			SizeChunks: 8,
			Seed:       12345,
			Name:       "blockverse",
		},
		Render: RenderConfig{
			ViewDistance:   6,
			SmoothLighting: true,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "blockverse",
		},
		Admin: AdminConfig{
			Enabled:  true,
			User:     "admin",
			TokenTTL: 24 * time.Hour,
		},
		Events: EventsConfig{
			Stream:    "BLOCKVERSE",
			Retention: 72 * time.Hour,
			Buffer:    1024,
		},
		Positions: PositionsConfig{
			Backend:   "memory",
			RedisAddr: "localhost:6379",
			TTL:       30 * 24 * time.Hour,
		},
		LogLevel: "info",
	}
}

// GetTCPPort возвращает TCP порт с поддержкой fallback значений
func (s *ServerConfig) GetTCPPort() int {
	return getPortWithEnvFallback(s.TCPPort, "BLOCKVERSE_TCP_PORT", 8084)
}

// GetAdminPort возвращает порт административного HTTP API
func (s *ServerConfig) GetAdminPort() int {
	return getPortWithEnvFallback(s.AdminPort, "BLOCKVERSE_ADMIN_PORT", 8085)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Validate приводит бессмысленные значения к допустимым
func (c *Config) Validate() error {
	def := Default()

	if c.World.SizeChunks <= 0 {
		c.World.SizeChunks = def.World.SizeChunks
	}
	if c.World.Path == "" {
		c.World.Path = def.World.Path
	}
	switch c.World.Storage {
	case "file", "badger":
	case "":
		c.World.Storage = def.World.Storage
	default:
		return fmt.Errorf("неизвестное хранилище мира %q", c.World.Storage)
	}
	switch c.Server.Transport {
	case "tcp", "kcp":
	case "":
		c.Server.Transport = def.Server.Transport
	default:
		return fmt.Errorf("неизвестный транспорт %q", c.Server.Transport)
	}
	if c.Render.ViewDistance < 1 {
		c.Render.ViewDistance = 1
	}
	if c.Render.BuildWorkers < 0 {
		c.Render.BuildWorkers = 0
	}
	if c.Server.HandshakeTimeout <= 0 {
		c.Server.HandshakeTimeout = def.Server.HandshakeTimeout
	}
	if c.Server.SaveInterval <= 0 {
		c.Server.SaveInterval = def.Server.SaveInterval
	}
	if c.Server.SyncInterval <= 0 {
		c.Server.SyncInterval = def.Server.SyncInterval
	}
	if c.Server.MaxFrameSize <= 0 {
		c.Server.MaxFrameSize = def.Server.MaxFrameSize
	}
	if c.Server.OutboundQueue <= 0 {
		c.Server.OutboundQueue = def.Server.OutboundQueue
	}
	switch c.Positions.Backend {
	case "memory", "redis", "mysql":
	case "":
		c.Positions.Backend = def.Positions.Backend
	default:
		return fmt.Errorf("неизвестное хранилище позиций %q", c.Positions.Backend)
	}
	if c.Positions.Backend == "mysql" && c.Positions.MySQLDSN == "" {
		return errors.New("positions.mysql_dsn обязателен для backend mysql")
	}
	if c.Admin.TokenTTL <= 0 {
		c.Admin.TokenTTL = def.Admin.TokenTTL
	}
	if c.Admin.User == "" {
		c.Admin.User = def.Admin.User
	}
	if c.Events.Buffer <= 0 {
		c.Events.Buffer = def.Events.Buffer
	}
	if c.Events.Stream == "" {
		c.Events.Stream = def.Events.Stream
	}
	if c.Client.ConnectRetries < 1 {
		c.Client.ConnectRetries = 1
	}
	if c.Client.RetryBackoff < 0 {
		c.Client.RetryBackoff = 0
	}
	return nil
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать из ENV BLOCKVERSE_CONFIG; при отсутствии
// файла возвращаются дефолты.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("BLOCKVERSE_CONFIG")
	}
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}
