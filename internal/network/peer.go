package network

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/annel0/blockverse/internal/metrics"
	"github.com/annel0/blockverse/internal/protocol"
)

// errQueueFull пир не успевает читать свои действия
var errQueueFull = errors.New("очередь исходящих действий переполнена")

// Peer соединение с клиентом на сервере
type Peer struct {
	id   string
	conn net.Conn

	playerID  atomic.Int32
	admitted  atomic.Bool
	streaming atomic.Bool

	// writeMu не даёт кадрам из очереди и срочным кадрам перемешаться
	writeMu sync.Mutex
	out     chan protocol.Action

	closeOnce sync.Once
	done      chan struct{}

	connectedAt time.Time
}

func newPeer(conn net.Conn, queue int) *Peer {
	return &Peer{
		id:          uuid.NewString(),
		conn:        conn,
		out:         make(chan protocol.Action, queue),
		done:        make(chan struct{}),
		connectedAt: time.Now(),
	}
}

func (p *Peer) SessionID() string { return p.id }
func (p *Peer) PlayerID() int32   { return p.playerID.Load() }
func (p *Peer) Admitted() bool    { return p.admitted.Load() }

func (p *Peer) Admit(playerID int32) {
	p.playerID.Store(playerID)
	p.admitted.Store(true)
}

// StartStreaming снимает таймаут чтения: дальше поток без ограничений
func (p *Peer) StartStreaming() {
	if p.streaming.CompareAndSwap(false, true) {
		_ = p.conn.SetReadDeadline(time.Time{})
	}
}

// RemoteAddr адрес клиента
func (p *Peer) RemoteAddr() string { return p.conn.RemoteAddr().String() }

// enqueue ставит действие в очередь писателя. Не блокируется: пир,
// переполнивший очередь, считается отвалившимся.
func (p *Peer) enqueue(a protocol.Action) error {
	select {
	case <-p.done:
		return net.ErrClosed
	default:
	}
	select {
	case p.out <- a:
		return nil
	default:
		return errQueueFull
	}
}

// write пишет кадр в сокет
func (p *Peer) write(a protocol.Action) error {
	tag, payload := protocol.Encode(a)
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if err := protocol.WriteFrame(p.conn, tag, payload); err != nil {
		return err
	}
	metrics.ActionsOut.WithLabelValues(protocol.Name(tag)).Inc()
	return nil
}

// writeLoop доставляет действия из очереди в порядке постановки
func (p *Peer) writeLoop(onError func(error)) {
	for {
		select {
		case <-p.done:
			return
		case a := <-p.out:
			if err := p.write(a); err != nil {
				onError(err)
				return
			}
		}
	}
}

func (p *Peer) close() {
	p.closeOnce.Do(func() {
		close(p.done)
		_ = p.conn.Close()
	})
}
