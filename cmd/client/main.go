package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/annel0/blockverse/internal/build"
	"github.com/annel0/blockverse/internal/config"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/network"
	"github.com/annel0/blockverse/internal/protocol"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
)

// maxRestarts сколько раз сессия перезапускается после сбоя посреди действия
const maxRestarts = 3

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (или BLOCKVERSE_CONFIG)")
	addr := flag.String("addr", "", "адрес сервера (перекрывает client.server_address)")
	name := flag.String("name", "", "имя игрока (перекрывает client.player_name)")
	flag.Parse()

	if err := logging.InitDefaultLogger("client"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Конфигурация: %v", err)
	}
	if *addr != "" {
		cfg.Client.ServerAddress = *addr
	}
	if *name != "" {
		cfg.Client.PlayerName = *name
	}
	logging.SetDefaultLevel(logging.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lines := readStdin()
	for attempt := 0; ; attempt++ {
		err := session(ctx, cfg, lines)
		var de *protocol.DisconnectError
		if errors.As(err, &de) && de.Restart && attempt < maxRestarts {
			logging.Warn("🔄 Сессия прервана посреди действия (%v), перезапуск", de)
			continue
		}
		if err != nil {
			logging.Error("❌ %v", err)
			logging.CloseDefaultLogger()
			os.Exit(1)
		}
		return
	}
}

// session одно подключение: загрузка мира, сборка геометрии и чат
func session(ctx context.Context, cfg *config.Config, lines <-chan string) error {
	var pipeline atomic.Pointer[build.Pipeline]

	opts := network.ClientOptionsFrom(cfg)
	opts.WorldOptions = []world.Option{world.WithFeedback(console{})}
	opts.OnSkyChange = func() {
		if p := pipeline.Load(); p != nil {
			p.QueueDayNight()
		}
	}

	c, err := network.Join(ctx, opts)
	if err != nil {
		return err
	}
	defer c.Close()

	w := c.World()
	w.SetChunkUpdatesDisabled(cfg.Render.ChunkUpdatesDisabled)
	p := build.NewPipeline(w, build.Options{Workers: cfg.Render.BuildWorkers, Smooth: cfg.Render.SmoothLighting})
	pipeline.Store(p)
	p.Start()
	defer p.Stop()

	s := w.Settings()
	logging.Info("🌍 Подключены к %s как #%d, мир %q %dx%d", cfg.Client.ServerAddress, c.PlayerID(), s.Name, s.SizeChunksX, s.SizeChunksZ)

	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()

	consumer, err := p.Handoff().Consumer()
	if err != nil {
		return err
	}
	r := &countingRenderer{}
	center := vec.ChunkCoords{X: -1 << 30}
	frame := time.NewTicker(50 * time.Millisecond)
	defer frame.Stop()

	for {
		select {
		case err := <-runErr:
			return err
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			if err := handleLine(c, line); err != nil {
				return err
			}
		case <-frame.C:
			if me, ok := w.Player(c.PlayerID()); ok {
				if cc := me.Coords().ToPosition().ChunkCoords(); cc != center {
					center = cc
					queued, unloaded := p.UpdateVisibility(center, cfg.Render.ViewDistance)
					logging.Debug("видимость %v: в очередь %d, выгружено %d", center, queued, unloaded)
				}
			}
			consumer.Drain(r, 16)
		}
	}
}

// handleLine строка ввода: "/quit" завершает сессию, остальное уходит в чат
func handleLine(c *network.Client, line string) error {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return nil
	case line == "/quit":
		return c.Close()
	}
	return c.Submit(&protocol.ChatMsg{From: c.PlayerID(), Text: line})
}

func readStdin() <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			out <- sc.Text()
		}
	}()
	return out
}

// console выводит чат и уведомления в терминал
type console struct{}

func (console) PlaySound(world.Sound, vec.Position) {}

func (console) Notify(msg string) { fmt.Println(msg) }

// countingRenderer считает принятую геометрию вместо загрузки в GPU
type countingRenderer struct {
	uploaded, released int
}

func (r *countingRenderer) Upload(c *world.Chunk, g *build.Geometry) {
	r.uploaded++
	logging.Trace("геометрия чанка %v принята", c.Coords)
}

func (r *countingRenderer) Release(c *world.Chunk) {
	r.released++
}
