package protocol

import (
	"sync"

	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
)

// Action типизированное сообщение с зависящей от роли семантикой применения
type Action interface {
	Type() Type
	Encode(w *Writer)
	Decode(r *Reader)
	// Apply применяет действие в контексте роли. На сервере после
	// применения рассылает новые экземпляры остальным пирам.
	Apply(ctx *Context) error

	Peer() Peer
	BindPeer(p Peer) error
}

// Validator проверка действия, инициированного игроком, до применения
type Validator interface {
	Validate(w *world.World, playerID int32) error
}

// Peer соединение на стороне сервера
type Peer interface {
	SessionID() string
	PlayerID() int32
	// Admit завершает рукопожатие и связывает соединение с игроком
	Admit(playerID int32)
	Admitted() bool
	// StartStreaming снимает таймаут чтения рукопожатия
	StartStreaming()
}

// Replicator стратегия доставки, выбираемая по роли один раз:
// одиночная игра применяет на месте, клиент шлёт на сервер, сервер
// шлёт пиру, к которому привязано действие.
type Replicator interface {
	Send(a Action, immediate bool) error
	// Broadcast отправляет всем допущенным пирам, кроме except, свежие
	// экземпляры от build. У клиента и одиночной игры ничего не делает.
	Broadcast(except Peer, build func() Action)
}

// Context всё, что нужно действию для применения
type Context struct {
	Role       world.Role
	World      *world.World
	Replicator Replicator

	// Peer источник входящего действия (только сервер)
	Peer Peer
	// PlayerID локальный игрок (клиент, одиночная игра)
	PlayerID int32
	// Local действие начато этим процессом, а не пришло по сети
	Local bool

	// OnSkyChange вызывается при заметной смене освещённости неба
	OnSkyChange func()
	// Spawn точка появления игрока по имени (сервер); nil: центр мира
	Spawn func(name string) vec.Coords

	Logger *logging.Logger
}

// From копия контекста для действия, пришедшего от пира
func (c *Context) From(p Peer) *Context {
	cp := *c
	cp.Peer = p
	return &cp
}

// actor игрок, от чьего имени выполняется действие
func (c *Context) actor() int32 {
	if c.Peer != nil {
		return c.Peer.PlayerID()
	}
	return c.PlayerID
}

func (c *Context) spawn(name string) vec.Coords {
	if c.Spawn != nil {
		return c.Spawn(name)
	}
	return c.World.SpawnPoint()
}

func (c *Context) logger() *logging.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return logging.GetNetworkLogger()
}

// base привязка к пиру с единственным присваиванием
type base struct {
	mu   sync.Mutex
	peer Peer
}

func (b *base) Peer() Peer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.peer
}

func (b *base) BindPeer(p Peer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.peer != nil && b.peer != p {
		return ErrPeerAlreadyBound
	}
	b.peer = p
	return nil
}

// reply привязывает новое действие к источнику и отправляет его
func reply(ctx *Context, a Action, immediate bool) error {
	if ctx.Peer == nil {
		return nil
	}
	if err := a.BindPeer(ctx.Peer); err != nil {
		return err
	}
	return ctx.Replicator.Send(a, immediate)
}

// Submit выполняет действие, начатое локальным игроком. Проверка
// (если есть) выполняется до всего: отклонённая правка не применяется,
// не отправляется и превращается в сообщение пользователю. Клиент
// применяет эхо-действия у себя до отправки на сервер.
func Submit(ctx *Context, a Action) error {
	if v, ok := a.(Validator); ok {
		if err := v.Validate(ctx.World, ctx.PlayerID); err != nil {
			ctx.World.Feedback().Notify(err.Error())
			return err
		}
	}
	if ctx.Role == world.RoleClient && Echoes(a.Type()) {
		local := *ctx
		local.Local = true
		if err := a.Apply(&local); err != nil {
			return err
		}
	}
	return ctx.Replicator.Send(a, false)
}
