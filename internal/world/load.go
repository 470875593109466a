package world

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/annel0/blockverse/internal/lighting"
)

// FinalizeLoad барьер готовности после генерации или загрузки блоков:
// пересчитывает карты высот, затем (если есть рендер) начальный свет по
// чанкам параллельно и проход подтягивания между чанками. Только после
// этого мир помечается готовым.
func (w *World) FinalizeLoad(ctx context.Context) error {
	start := time.Now()
	chunks := w.grid.All()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, c := range chunks {
		c := c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c.RecomputeHeights()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("пересчёт карт высот: %w", err)
	}

	if w.role.Renders() {
		if err := w.initLight(ctx, chunks); err != nil {
			return err
		}
	}

	w.ready.Store(true)
	w.logger.Info("мир %s готов: %d чанков за %v", w.Settings().Name, len(chunks), time.Since(start))
	return nil
}

func (w *World) initLight(ctx context.Context, chunks []*Chunk) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, c := range chunks {
		c := c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sky, item := lighting.InitChunk(w, c.Box())
			c.Mu.Lock()
			c.skyLight, c.itemLight = sky, item
			c.Mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("начальный свет: %w", err)
	}

	w.lightMu.Lock()
	defer w.lightMu.Unlock()
	for _, c := range chunks {
		c.Mu.Lock()
		w.skyLight.CopyFrom(c.skyLight)
		w.itemLight.CopyFrom(c.itemLight)
		c.skyLight, c.itemLight = nil, nil
		c.Mu.Unlock()
	}
	// порядок прохода фиксирован, чтобы все копии мира сошлись к одним значениям
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		lighting.Pull(w, w.skyLight, c.Box())
		lighting.Pull(w, w.itemLight, c.Box())
	}
	return nil
}
