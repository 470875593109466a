package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/annel0/blockverse/internal/config"
	"github.com/annel0/blockverse/internal/vec"
)

// ErrBadPlayerName пустое имя игрока
var ErrBadPlayerName = errors.New("недействительное имя игрока")

// PositionRepo последние координаты игроков по имени. Вернувшийся игрок
// появляется там, где вышел.
type PositionRepo interface {
	// Save сохраняет координаты игрока
	Save(ctx context.Context, name string, c vec.Coords) error
	// Load возвращает координаты; found=false при первом входе
	Load(ctx context.Context, name string) (c vec.Coords, found bool, err error)
	// BatchSave сохраняет координаты всех игроков онлайн (автосохранение)
	BatchSave(ctx context.Context, positions map[string]vec.Coords) error
	Close() error
}

// OpenPositions создаёт репозиторий позиций по конфигурации
func OpenPositions(cfg config.PositionsConfig) (PositionRepo, error) {
	switch cfg.Backend {
	case "memory", "":
		return NewMemoryPositionRepo(), nil
	case "redis":
		return NewRedisPositionRepo(&RedisConfig{Addr: cfg.RedisAddr, KeyPrefix: "blockverse:pos:", TTL: cfg.TTL})
	case "mysql":
		return NewMariaPositionRepo(cfg.MySQLDSN)
	}
	return nil, fmt.Errorf("неизвестное хранилище позиций %q", cfg.Backend)
}

func checkName(name string) error {
	if name == "" {
		return ErrBadPlayerName
	}
	return nil
}
