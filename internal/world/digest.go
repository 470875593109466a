package world

import (
	"github.com/cespare/xxhash/v2"
)

// Digest хэш массивов блоков всех чанков в построчном порядке, без
// флага изменения. Совпадение хэшей означает совпадение блоков на копиях мира.
func (w *World) Digest() uint64 {
	h := xxhash.New()
	for _, c := range w.grid.All() {
		_ = c.writeBlocks(h, false)
	}
	return h.Sum64()
}
