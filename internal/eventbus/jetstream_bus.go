package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	nats "github.com/nats-io/nats.go"
)

// JetStreamBus шина поверх NATS JetStream: события уходят в subject
// <prefix>.<EventType> и переживают перезапуск сервера
type JetStreamBus struct {
	nc        *nats.Conn
	js        nats.JetStreamContext
	stream    string
	prefix    string
	published atomic.Uint64
	consumed  atomic.Uint64
	dropped   atomic.Uint64
}

// NewJetStreamBus подключается к NATS и создаёт стрим при его отсутствии
func NewJetStreamBus(url, stream string, retention time.Duration) (*JetStreamBus, error) {
	if stream == "" {
		stream = "BLOCKVERSE"
	}
	nc, err := nats.Connect(url, nats.Name("blockverse-server"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	prefix := "blockverse"
	if _, err := js.StreamInfo(stream); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      stream,
			Subjects:  []string{prefix + ".*"},
			Retention: nats.LimitsPolicy,
			MaxAge:    retention,
			Storage:   nats.FileStorage,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("add stream: %w", err)
		}
	}
	return &JetStreamBus{nc: nc, js: js, stream: stream, prefix: prefix}, nil
}

func (jb *JetStreamBus) subject(eventType string) string {
	return jb.prefix + "." + eventType
}

// Publish сериализует событие в JSON
func (jb *JetStreamBus) Publish(ctx context.Context, ev *Envelope) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := jb.js.Publish(jb.subject(ev.EventType), data, nats.Context(ctx)); err != nil {
		jb.dropped.Add(1)
		return fmt.Errorf("публикация %s: %w", ev.EventType, err)
	}
	jb.published.Add(1)
	return nil
}

// Subscribe эфемерный потребитель с ручным подтверждением
func (jb *JetStreamBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	subj := jb.prefix + ".*"
	if len(f.Types) == 1 {
		subj = jb.subject(f.Types[0])
	}
	deliver := nats.DeliverNew()
	if !f.Since.IsZero() {
		deliver = nats.StartTime(f.Since)
	}
	sub, err := jb.js.Subscribe(subj, func(msg *nats.Msg) {
		var ev Envelope
		if err := json.Unmarshal(msg.Data, &ev); err == nil && matchFilter(&ev, f) {
			h(ctx, &ev)
			jb.consumed.Add(1)
		}
		_ = msg.Ack()
	}, nats.ManualAck(), deliver, nats.AckWait(30*time.Second))
	if err != nil {
		return nil, err
	}
	return &jetSub{sub}, nil
}

type jetSub struct {
	s *nats.Subscription
}

func (j *jetSub) Unsubscribe() {
	_ = j.s.Unsubscribe()
}

func (jb *JetStreamBus) Metrics() Stats {
	return Stats{
		Published: jb.published.Load(),
		Consumed:  jb.consumed.Load(),
		Dropped:   jb.dropped.Load(),
	}
}

// Close дожидается отправки буферов и закрывает соединение
func (jb *JetStreamBus) Close() error {
	return jb.nc.Drain()
}
