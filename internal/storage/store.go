package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/annel0/blockverse/internal/config"
	"github.com/annel0/blockverse/internal/world"
)

// ErrNoWorld сохранённого мира ещё нет
var ErrNoWorld = errors.New("сохранённый мир не найден")

// WorldStore постоянное хранилище мира. Load возвращает неготовый мир:
// барьер FinalizeLoad выполняет вызывающий.
type WorldStore interface {
	Load(ctx context.Context, role world.Role, opts ...world.Option) (*world.World, error)
	Save(ctx context.Context, w *world.World) error
	Close() error
}

// Open выбирает хранилище по конфигурации
func Open(cfg config.WorldConfig) (WorldStore, error) {
	switch cfg.Storage {
	case "file", "":
		return NewFileStore(cfg.Path), nil
	case "badger":
		return NewBadgerStore(cfg.Path)
	}
	return nil, fmt.Errorf("неизвестное хранилище мира %q", cfg.Storage)
}
