package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/world"
)

// FileStore мир в одном файле в формате передачи (zstd). Запись идёт во
// временный файл рядом с целевым и завершается переименованием, так что
// прерванное сохранение не портит предыдущее.
type FileStore struct {
	path   string
	logger *logging.Logger
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, logger: logging.GetStorageLogger()}
}

// Path путь к файлу мира
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(ctx context.Context, role world.Role, opts ...world.Option) (*world.World, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoWorld
		}
		return nil, fmt.Errorf("открытие мира %s: %w", s.path, err)
	}
	defer f.Close()
	w, err := world.ReadPayload(f, role, opts...)
	if err != nil {
		return nil, fmt.Errorf("чтение мира %s: %w", s.path, err)
	}
	s.logger.Info("мир загружен из %s", s.path)
	return w, nil
}

func (s *FileStore) Save(ctx context.Context, w *world.World) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("создание каталога мира: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("создание временного файла: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := w.WritePayload(tmp); err != nil {
		return fmt.Errorf("запись мира: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync мира: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("закрытие временного файла: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("замена файла мира: %w", err)
	}
	committed = true
	s.logger.Debug("мир записан в %s", s.path)
	return nil
}

func (s *FileStore) Close() error { return nil }
