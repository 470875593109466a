package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"

	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
)

const (
	settingsKey = "settings"
	itemsKey    = "items"
)

func chunkKey(c vec.ChunkCoords) []byte {
	return []byte(fmt.Sprintf("chunk:%d:%d", c.X, c.Z))
}

// BadgerStore мир в BadgerDB: настройки и по ключу на чанк. Снимок
// пишется одной транзакцией записи, поэтому читатель видит либо старый
// мир, либо новый целиком.
type BadgerStore struct {
	db     *badger.DB
	dbPath string
	mutex  sync.RWMutex
	closed bool

	enc *zstd.Encoder
	dec *zstd.Decoder

	logger *logging.Logger
}

// NewBadgerStore открывает (или создаёт) базу в каталоге path
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка создания zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка создания zstd decoder: %w", err)
	}
	return &BadgerStore{
		db:     db,
		dbPath: path,
		enc:    enc,
		dec:    dec,
		logger: logging.GetStorageLogger(),
	}, nil
}

// Close закрывает хранилище
func (s *BadgerStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.dec.Close()
	_ = s.enc.Close()
	return s.db.Close()
}

// Save записывает снимок мира
func (s *BadgerStore) Save(ctx context.Context, w *world.World) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.closed {
		return fmt.Errorf("хранилище не готово")
	}

	settings, err := world.MarshalSettings(w.Settings())
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(settingsKey), settings); err != nil {
			return err
		}
		for _, c := range w.Grid().All() {
			if err := ctx.Err(); err != nil {
				return err
			}
			buf.Reset()
			if err := c.WriteBlocks(&buf); err != nil {
				return fmt.Errorf("чанк %v: %w", c.Coords, err)
			}
			if err := txn.Set(chunkKey(c.Coords), s.enc.EncodeAll(buf.Bytes(), nil)); err != nil {
				return err
			}
		}
		buf.Reset()
		if err := w.WriteItems(&buf); err != nil {
			return err
		}
		return txn.Set([]byte(itemsKey), s.enc.EncodeAll(buf.Bytes(), nil))
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	s.logger.Debug("снимок мира записан в %s", s.dbPath)
	return nil
}

// Load восстанавливает мир из последнего снимка
func (s *BadgerStore) Load(ctx context.Context, role world.Role, opts ...world.Option) (*world.World, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var w *world.World
	err := s.db.View(func(txn *badger.Txn) error {
		raw, err := value(txn, []byte(settingsKey))
		if err != nil {
			return err
		}
		settings, err := world.UnmarshalSettings(raw)
		if err != nil {
			return err
		}
		w, err = world.New(settings, role, opts...)
		if err != nil {
			return err
		}
		for _, c := range w.Grid().All() {
			if err := ctx.Err(); err != nil {
				return err
			}
			packed, err := value(txn, chunkKey(c.Coords))
			if err != nil {
				return fmt.Errorf("чанк %v: %w", c.Coords, err)
			}
			blocks, err := s.dec.DecodeAll(packed, nil)
			if err != nil {
				return fmt.Errorf("распаковка чанка %v: %w", c.Coords, err)
			}
			if err := c.ReadBlocks(bytes.NewReader(blocks)); err != nil {
				return err
			}
		}
		// снимки без предметов остаются читаемыми
		packed, err := value(txn, []byte(itemsKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("предметы: %w", err)
		}
		items, err := s.dec.DecodeAll(packed, nil)
		if err != nil {
			return fmt.Errorf("распаковка предметов: %w", err)
		}
		return w.ReadItems(bytes.NewReader(items))
	})
	if errors.Is(err, badger.ErrKeyNotFound) && w == nil {
		return nil, ErrNoWorld
	}
	if err != nil {
		if w != nil {
			w.Close()
		}
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}
	s.logger.Info("мир загружен из %s", s.dbPath)
	return w, nil
}

func value(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}
