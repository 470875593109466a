package world

import (
	"github.com/annel0/blockverse/internal/physics"
	"github.com/annel0/blockverse/internal/vec"
)

// SettleItems опускает падающие предметы-блоки на ближайшую твёрдую
// опору под ними и возвращает осевшие. Предмет, оказавшийся внутри
// твёрдого блока, остаётся на месте и просто перестаёт падать.
func (w *World) SettleItems() []*BlockItem {
	solid := func(p vec.Position) bool { return w.BlockAt(p).IsSolid() }
	var landed []*BlockItem
	for _, item := range w.BlockItems() {
		if !item.Falling() {
			continue
		}
		c := item.Coords()
		y := c.ToPosition().Y
		for y > 0 {
			below := c
			below.Yf = float32(y - 1)
			if !physics.ItemCollider.CanStand(below, solid) {
				break
			}
			y--
		}
		c.Yf = float32(y)
		if w.LandBlockItem(item.ID, c) {
			landed = append(landed, item)
		}
	}
	return landed
}
