package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/annel0/blockverse/internal/eventbus"
)

const timeFormat = "2006-01-02T15:04:05Z"

func main() {
	var (
		natsURL    = flag.String("nats", "nats://localhost:4222", "адрес NATS")
		stream     = flag.String("stream", "BLOCKVERSE", "стрим JetStream")
		eventTypes = flag.String("types", "", "типы событий через запятую (PlayerJoined,PlayerLeft,Chat,WorldSaved)")
		since      = flag.Duration("since", 0, "воспроизвести события за последний период (например 1h)")
		asJSON     = flag.Bool("json", false, "печатать события как JSON")
	)
	flag.Parse()

	bus, err := eventbus.NewJetStreamBus(*natsURL, *stream, 0)
	if err != nil {
		log.Fatalf("❌ Не удалось подключиться к NATS: %v", err)
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f := eventbus.Filter{Types: parseStringList(*eventTypes)}
	if *since > 0 {
		f.Since = time.Now().Add(-*since)
	}

	enc := json.NewEncoder(os.Stdout)
	sub, err := bus.Subscribe(ctx, f, func(_ context.Context, ev *eventbus.Envelope) {
		if *asJSON {
			_ = enc.Encode(ev)
			return
		}
		fmt.Println(format(ev))
	})
	if err != nil {
		log.Fatalf("❌ Подписка: %v", err)
	}
	defer sub.Unsubscribe()

	fmt.Fprintf(os.Stderr, "📡 %s/%s, Ctrl+C для выхода\n", *natsURL, *stream)
	<-ctx.Done()
}

// format однострочное описание события
func format(ev *eventbus.Envelope) string {
	ts := ev.Timestamp.UTC().Format(timeFormat)
	switch ev.EventType {
	case eventbus.PlayerJoined, eventbus.PlayerLeft:
		var p eventbus.PlayerEvent
		if json.Unmarshal(ev.Payload, &p) == nil {
			line := fmt.Sprintf("%s %-12s #%d %s", ts, ev.EventType, p.PlayerID, p.Name)
			if p.Reason != "" {
				line += " (" + p.Reason + ")"
			}
			return line
		}
	case eventbus.Chat:
		var c eventbus.ChatEvent
		if json.Unmarshal(ev.Payload, &c) == nil {
			return fmt.Sprintf("%s %-12s #%d: %s", ts, ev.EventType, c.From, c.Text)
		}
	case eventbus.WorldSaved:
		var s eventbus.SaveEvent
		if json.Unmarshal(ev.Payload, &s) == nil {
			if s.Error != "" {
				return fmt.Sprintf("%s %-12s ошибка: %s", ts, ev.EventType, s.Error)
			}
			return fmt.Sprintf("%s %-12s за %s", ts, ev.EventType, s.Duration)
		}
	}
	return fmt.Sprintf("%s %-12s %s", ts, ev.EventType, string(ev.Payload))
}

func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
