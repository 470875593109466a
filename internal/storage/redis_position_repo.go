package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/vec"
)

// RedisPositionRepo позиции в Redis: JSON по ключу prefix+имя с TTL
type RedisPositionRepo struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// playerPosition запись в Redis
type playerPosition struct {
	Coords    vec.Coords `json:"coords"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RedisConfig настройки подключения к Redis
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration // 0 = без срока
}

// DefaultRedisConfig конфигурация по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "blockverse:pos:",
		TTL:       7 * 24 * time.Hour,
	}
}

// NewRedisPositionRepo подключается к Redis и проверяет соединение
func NewRedisPositionRepo(config *RedisConfig) (*RedisPositionRepo, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("не удалось подключиться к Redis %s: %w", config.Addr, err)
	}
	logging.GetStorageLogger().Info("позиции игроков в Redis %s", config.Addr)
	return &RedisPositionRepo{client: client, keyPrefix: config.KeyPrefix, ttl: config.TTL}, nil
}

func (r *RedisPositionRepo) key(name string) string { return r.keyPrefix + name }

func (r *RedisPositionRepo) Save(ctx context.Context, name string, c vec.Coords) error {
	if err := checkName(name); err != nil {
		return err
	}
	data, err := json.Marshal(playerPosition{Coords: c, UpdatedAt: time.Now()})
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(name), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("сохранение позиции %s: %w", name, err)
	}
	return nil
}

func (r *RedisPositionRepo) Load(ctx context.Context, name string) (vec.Coords, bool, error) {
	if err := checkName(name); err != nil {
		return vec.Coords{}, false, err
	}
	data, err := r.client.Get(ctx, r.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return vec.Coords{}, false, nil
	}
	if err != nil {
		return vec.Coords{}, false, fmt.Errorf("загрузка позиции %s: %w", name, err)
	}
	var pos playerPosition
	if err := json.Unmarshal(data, &pos); err != nil {
		return vec.Coords{}, false, fmt.Errorf("разбор позиции %s: %w", name, err)
	}
	return pos.Coords, true, nil
}

// BatchSave пишет все позиции одним пайплайном
func (r *RedisPositionRepo) BatchSave(ctx context.Context, positions map[string]vec.Coords) error {
	if len(positions) == 0 {
		return nil
	}
	now := time.Now()
	pipe := r.client.Pipeline()
	for name, c := range positions {
		if err := checkName(name); err != nil {
			return err
		}
		data, err := json.Marshal(playerPosition{Coords: c, UpdatedAt: now})
		if err != nil {
			return err
		}
		pipe.Set(ctx, r.key(name), data, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("пакетное сохранение позиций: %w", err)
	}
	return nil
}

func (r *RedisPositionRepo) Close() error {
	return r.client.Close()
}
