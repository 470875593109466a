package network

import (
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/protocol"
	"github.com/annel0/blockverse/internal/world"
)

// Local доставка для одиночной игры: действие применяется на месте
type Local struct {
	ctx protocol.Context
}

// NewLocal связывает одиночную игру с миром и локальным игроком
func NewLocal(w *world.World, playerID int32, onSkyChange func()) *Local {
	l := &Local{}
	l.ctx = protocol.Context{
		Role:        world.RoleSinglePlayer,
		World:       w,
		Replicator:  l,
		PlayerID:    playerID,
		Local:       true,
		OnSkyChange: onSkyChange,
		Logger:      logging.GetNetworkLogger(),
	}
	return l
}

func (l *Local) Send(a protocol.Action, _ bool) error {
	return a.Apply(&l.ctx)
}

func (l *Local) Broadcast(protocol.Peer, func() protocol.Action) {}

// Submit выполняет действие игрока
func (l *Local) Submit(a protocol.Action) error {
	return protocol.Submit(&l.ctx, a)
}

// Context контекст применения
func (l *Local) Context() *protocol.Context { return &l.ctx }
