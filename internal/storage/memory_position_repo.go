package storage

import (
	"context"
	"sync"

	"github.com/annel0/blockverse/internal/vec"
)

// MemoryPositionRepo позиции в памяти процесса: для тестов и серверов без
// внешней базы. Данные теряются при перезапуске.
type MemoryPositionRepo struct {
	mu   sync.RWMutex
	data map[string]vec.Coords
}

func NewMemoryPositionRepo() *MemoryPositionRepo {
	return &MemoryPositionRepo{data: make(map[string]vec.Coords)}
}

func (r *MemoryPositionRepo) Save(ctx context.Context, name string, c vec.Coords) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.data[name] = c
	r.mu.Unlock()
	return nil
}

func (r *MemoryPositionRepo) Load(ctx context.Context, name string) (vec.Coords, bool, error) {
	if err := checkName(name); err != nil {
		return vec.Coords{}, false, err
	}
	if err := ctx.Err(); err != nil {
		return vec.Coords{}, false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.data[name]
	return c, ok, nil
}

func (r *MemoryPositionRepo) BatchSave(ctx context.Context, positions map[string]vec.Coords) error {
	for name := range positions {
		if err := checkName(name); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, c := range positions {
		r.data[name] = c
	}
	return nil
}

// Len количество сохранённых позиций
func (r *MemoryPositionRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

func (r *MemoryPositionRepo) Close() error { return nil }
