package eventbus

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Типы событий сервера
const (
	PlayerJoined = "PlayerJoined"
	PlayerLeft   = "PlayerLeft"
	Chat         = "Chat"
	WorldSaved   = "WorldSaved"
)

// Envelope контейнер события сервера
type Envelope struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Source    string            `json:"source"`
	EventType string            `json:"event_type"`
	Priority  int               `json:"priority"` // 0 низкий … 9 критичный
	Payload   json.RawMessage   `json:"payload,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// New собирает событие с JSON-нагрузкой
func New(source, eventType string, priority int, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		Priority:  priority,
		Payload:   raw,
	}, nil
}

// PlayerEvent нагрузка PlayerJoined и PlayerLeft
type PlayerEvent struct {
	PlayerID int32  `json:"player_id"`
	Name     string `json:"name"`
	Session  string `json:"session"`
	Reason   string `json:"reason,omitempty"`
}

// ChatEvent нагрузка Chat
type ChatEvent struct {
	From int32  `json:"from"`
	Text string `json:"text"`
}

// SaveEvent нагрузка WorldSaved
type SaveEvent struct {
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Filter подписка только на нужные события
type Filter struct {
	Types   []string // пусто: все типы
	Sources []string // пусто: все источники
	// Since воспроизводит сохранённые события начиная с момента;
	// действует только для JetStream, шина в памяти истории не хранит
	Since time.Time
}

// Subscription позволяет отписаться
type Subscription interface {
	Unsubscribe()
}

// Handler потребитель событий
type Handler func(ctx context.Context, ev *Envelope)

// Stats счётчики шины
type Stats struct {
	Published uint64
	Consumed  uint64
	Dropped   uint64
	InFlight  int
}

// EventBus шина событий сервера
type EventBus interface {
	Publish(ctx context.Context, ev *Envelope) error
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
	Metrics() Stats
	Close() error
}

//================ In-Memory =================//

type memoryBus struct {
	mu          sync.RWMutex
	subscribers map[int]subscriber
	nextID      int
	stats       Stats
	buffer      chan *Envelope
	closeOnce   sync.Once
	done        chan struct{}
}

type subscriber struct {
	filter  Filter
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewMemoryBus шина в памяти процесса с буфером capacity
func NewMemoryBus(capacity int) EventBus {
	mb := &memoryBus{
		subscribers: make(map[int]subscriber),
		buffer:      make(chan *Envelope, capacity),
		done:        make(chan struct{}),
	}
	go mb.dispatchLoop()
	return mb
}

// Publish не блокируется для низкого приоритета (<5): при полном буфере
// такое событие отбрасывается
func (mb *memoryBus) Publish(ctx context.Context, ev *Envelope) error {
	select {
	case <-mb.done:
		return context.Canceled
	default:
	}
	select {
	case mb.buffer <- ev:
		mb.count(func(s *Stats) { s.Published++ })
		return nil
	default:
	}
	if ev.Priority < 5 {
		mb.count(func(s *Stats) { s.Dropped++ })
		return nil
	}
	select {
	case mb.buffer <- ev:
		mb.count(func(s *Stats) { s.Published++ })
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-mb.done:
		return context.Canceled
	}
}

func (mb *memoryBus) count(f func(*Stats)) {
	mb.mu.Lock()
	f(&mb.stats)
	mb.mu.Unlock()
}

func (mb *memoryBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	mb.mu.Lock()
	id := mb.nextID
	mb.nextID++
	cctx, cancel := context.WithCancel(ctx)
	mb.subscribers[id] = subscriber{filter: f, handler: h, ctx: cctx, cancel: cancel}
	mb.mu.Unlock()
	return &memSub{bus: mb, id: id}, nil
}

func (mb *memoryBus) Metrics() Stats {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	s := mb.stats
	s.InFlight = len(mb.buffer)
	return s
}

func (mb *memoryBus) Close() error {
	mb.closeOnce.Do(func() { close(mb.done) })
	return nil
}

// dispatchLoop доставляет события подписчикам по порядку публикации
func (mb *memoryBus) dispatchLoop() {
	for {
		select {
		case <-mb.done:
			return
		case ev := <-mb.buffer:
			mb.mu.RLock()
			subs := make([]subscriber, 0, len(mb.subscribers))
			for _, sub := range mb.subscribers {
				subs = append(subs, sub)
			}
			mb.mu.RUnlock()

			for _, sub := range subs {
				if !matchFilter(ev, sub.filter) || sub.ctx.Err() != nil {
					continue
				}
				sub.handler(sub.ctx, ev)
				mb.count(func(s *Stats) { s.Consumed++ })
			}
		}
	}
}

func matchFilter(ev *Envelope, f Filter) bool {
	match := func(val string, arr []string) bool {
		if len(arr) == 0 {
			return true
		}
		for _, v := range arr {
			if v == val {
				return true
			}
		}
		return false
	}
	return match(ev.EventType, f.Types) && match(ev.Source, f.Sources)
}

type memSub struct {
	bus *memoryBus
	id  int
}

func (s *memSub) Unsubscribe() {
	s.bus.mu.Lock()
	if sub, ok := s.bus.subscribers[s.id]; ok {
		sub.cancel()
		delete(s.bus.subscribers, s.id)
	}
	s.bus.mu.Unlock()
}
