package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/blockverse/internal/api"
	"github.com/annel0/blockverse/internal/config"
	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/generator"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/network"
	"github.com/annel0/blockverse/internal/observability"
	"github.com/annel0/blockverse/internal/storage"
	"github.com/annel0/blockverse/internal/world"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (или BLOCKVERSE_CONFIG)")
	flag.Parse()

	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	if err := run(*configPath); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.LogDir != "" {
		logging.SetLogDir(cfg.LogDir)
	}
	logging.SetDefaultLevel(logging.ParseLevel(cfg.LogLevel))
	logging.Info("🎮 Запуск сервера blockverse (протокол %s)", world.ProtocolVersion)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("телеметрия: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	// === МИР ===
	store, err := storage.Open(cfg.World)
	if err != nil {
		return err
	}
	defer store.Close()

	w, err := loadOrGenerate(ctx, store, cfg)
	if err != nil {
		return err
	}
	defer w.Close()

	// === ПОЗИЦИИ И СОБЫТИЯ ===
	positions, err := storage.OpenPositions(cfg.Positions)
	if err != nil {
		return fmt.Errorf("хранилище позиций: %w", err)
	}
	defer positions.Close()

	bus, err := openEvents(cfg.Events)
	if err != nil {
		return err
	}
	defer bus.Close()

	if sub, err := eventbus.StartLoggingListener(bus); err != nil {
		logging.Warn("слушатель событий не запущен: %v", err)
	} else {
		defer sub.Unsubscribe()
	}
	exporter := eventbus.NewMetricsExporter(bus)
	exporter.Start()
	defer exporter.Stop()

	// === СЕТЬ ===
	srv := network.NewServer(cfg.Server, w,
		network.WithSaver(store),
		network.WithEvents(bus),
		network.WithPositions(positions),
	)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	defer srv.Stop()

	admin, err := api.NewAdminServer(srv, api.Options{
		Addr:   fmt.Sprintf(":%d", cfg.Server.GetAdminPort()),
		Admin:  cfg.Admin,
		Events: bus,
	})
	if err != nil {
		return fmt.Errorf("admin API: %w", err)
	}
	if err := admin.Start(); err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := admin.Stop(sctx); err != nil {
			logging.Warn("остановка admin API: %v", err)
		}
	}()

	logging.Info("✅ Сервер готов: игра %s (%s), admin :%d", srv.Addr(), cfg.Server.Transport, cfg.Server.GetAdminPort())

	<-ctx.Done()
	logging.Info("📡 Получен сигнал завершения, сохраняем мир...")
	return nil
}

// loadOrGenerate читает сохранённый мир, а при его отсутствии генерирует
// новый, если конфигурация это разрешает
func loadOrGenerate(ctx context.Context, store storage.WorldStore, cfg *config.Config) (*world.World, error) {
	w, err := store.Load(ctx, world.RoleServer)
	switch {
	case err == nil:
		s := w.Settings()
		logging.Info("🌍 Мир %q загружен (%dx%d чанков)", s.Name, s.SizeChunksX, s.SizeChunksZ)
	case errors.Is(err, storage.ErrNoWorld) && cfg.World.RequireExisting:
		return nil, fmt.Errorf("мир %s не найден, а world.require_existing запрещает генерацию: %w", cfg.World.Path, err)
	case errors.Is(err, storage.ErrNoWorld):
		settings := world.DefaultSettings()
		settings.Name = cfg.World.Name
		settings.Seed = cfg.World.Seed
		settings.SizeChunksX, settings.SizeChunksZ = cfg.World.SizeChunks, cfg.World.SizeChunks
		settings.Creative = cfg.World.Creative
		if w, err = world.New(settings, world.RoleServer); err != nil {
			return nil, err
		}
		start := time.Now()
		if err := generator.New(settings.Seed).Generate(ctx, w); err != nil {
			w.Close()
			return nil, err
		}
		logging.Info("🌱 Сгенерирован мир %q за %s", settings.Name, time.Since(start).Round(time.Millisecond))
	default:
		return nil, fmt.Errorf("загрузка мира: %w", err)
	}

	if err := w.FinalizeLoad(ctx); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

func openEvents(cfg config.EventsConfig) (eventbus.EventBus, error) {
	if cfg.NATSURL == "" {
		return eventbus.NewMemoryBus(cfg.Buffer), nil
	}
	bus, err := eventbus.NewJetStreamBus(cfg.NATSURL, cfg.Stream, cfg.Retention)
	if err != nil {
		return nil, fmt.Errorf("шина событий: %w", err)
	}
	logging.Info("📨 События публикуются в NATS %s, стрим %s", cfg.NATSURL, cfg.Stream)
	return bus, nil
}
