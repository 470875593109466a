package world

import (
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/vec"
)

// Role роль процесса. Задаётся один раз при создании мира.
type Role uint8

const (
	RoleSinglePlayer Role = iota
	RoleClient
	RoleServer
)

func (r Role) String() string {
	switch r {
	case RoleSinglePlayer:
		return "single-player"
	case RoleClient:
		return "client"
	case RoleServer:
		return "server"
	}
	return "unknown"
}

// Renders есть ли у роли рендер, а значит свет и пересборка чанков
func (r Role) Renders() bool {
	return r != RoleServer
}

// ChunkQueuer принимает чанки, которые нужно пересобрать после правки.
// Реализуется конвейером сборки.
type ChunkQueuer interface {
	QueueChanged(c *Chunk)
}

// Sound звуковой отклик на правку
type Sound uint8

const (
	SoundPlace Sound = iota
	SoundRemove
	SoundSplash
)

// Feedback внешний слой UI/звука. Ядро только сообщает о событиях.
type Feedback interface {
	PlaySound(s Sound, pos vec.Position)
	Notify(msg string)
}

type nopQueuer struct{}

func (nopQueuer) QueueChanged(*Chunk) {}

// logFeedback пишет события в лог вместо UI
type logFeedback struct{}

func (logFeedback) PlaySound(s Sound, pos vec.Position) {
	logging.Trace("звук %d в %v", s, pos)
}

func (logFeedback) Notify(msg string) {
	logging.Info("сообщение: %s", msg)
}
