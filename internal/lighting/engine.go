package lighting

import (
	"github.com/annel0/blockverse/internal/vec"
)

const (
	// MaxLight максимальная сила света в обоих каналах
	MaxLight = 15

	upCost       = 2
	sideCost     = 1
	diagonalCost = 2

	// BoxRadius горизонтальный радиус области пересчёта вокруг одиночной правки.
	// Свет силы 15 гаснет за 15 шагов, поэтому дальше правка не видна.
	BoxRadius = MaxLight
)

// Source точечный источник света предметного канала
type Source struct {
	Pos      vec.Position
	Strength byte
}

// Volume предоставляет движку сведения о блоках. Движок не хранит состояния:
// он меняет только переданные ему карты.
type Volume interface {
	// Transparent пропускает ли воксель свет; вне мира false
	Transparent(p vec.Position) bool
	// Height уровень самого высокого непрозрачного блока в колонке
	Height(x, z int) int
	// Sources источники предметного света внутри области
	Sources(b Box) []Source
}

func stepCost(f vec.Face) byte {
	if f == vec.FaceTop {
		return upCost
	}
	return sideCost
}

// propagate релаксация по шести направлениям: сосед обновляется, только если
// прозрачен и кандидат строго ярче его текущего значения. Сходимость
// обеспечивает именно это условие, а не ограничение по расстоянию.
func propagate(v Volume, m *Map, queue []vec.Position, limit Box) {
	for len(queue) > 0 {
		p := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		s := m.Get(p)
		if s <= 1 {
			continue
		}
		for _, f := range vec.AllFaces {
			cost := stepCost(f)
			if s <= cost {
				continue
			}
			n := p.Offset(f)
			if !limit.Contains(n) {
				continue
			}
			cand := s - cost
			if cand <= m.Get(n) || !v.Transparent(n) {
				continue
			}
			m.Set(n, cand)
			queue = append(queue, n)
		}
	}
}

// Propagate распространяет уже записанный в карту свет внутри области.
// Повторный вызов на неизменённых данных ничего не меняет.
func Propagate(v Volume, m *Map, region Box) {
	region = region.Intersect(m.Box())
	var seeds []vec.Position
	region.Each(func(p vec.Position) {
		if m.Get(p) > 1 {
			seeds = append(seeds, p)
		}
	})
	propagate(v, m, seeds, region)
}

// skyGroundTruth полный свет неба выше карты высот, ноль ниже
func skyGroundTruth(v Volume, m *Map, region Box) {
	for x := region.Min.X; x <= region.Max.X; x++ {
		for z := region.Min.Z; z <= region.Max.Z; z++ {
			h := v.Height(x, z)
			for y := region.Min.Y; y <= region.Max.Y; y++ {
				p := vec.Position{X: x, Y: y, Z: z}
				if y > h {
					m.Set(p, MaxLight)
				} else {
					m.Set(p, 0)
				}
			}
		}
	}
}

// skySeeds воксели неба, способные осветить соседа: те, что не выше карты
// высот хотя бы одной соседней колонки внутри области. Вниз небо светить не
// может, под ним непрозрачный блок карты высот.
func skySeeds(v Volume, region Box) []vec.Position {
	var seeds []vec.Position
	for x := region.Min.X; x <= region.Max.X; x++ {
		for z := region.Min.Z; z <= region.Max.Z; z++ {
			h := v.Height(x, z)
			top := h
			for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
				nx, nz := x+d[0], z+d[1]
				if nx < region.Min.X || nx > region.Max.X || nz < region.Min.Z || nz > region.Max.Z {
					continue
				}
				top = max(top, v.Height(nx, nz))
			}
			for y := max(h+1, region.Min.Y); y <= min(top, region.Max.Y); y++ {
				seeds = append(seeds, vec.Position{X: x, Y: y, Z: z})
			}
		}
	}
	return seeds
}

// InitChunk начальный режим: считает свет чанка в собственных (временных)
// картах, не заглядывая в соседние чанки.
func InitChunk(v Volume, box Box) (sky, item *Map) {
	sky = NewMap(box)
	item = NewMap(box)

	skyGroundTruth(v, sky, box)
	propagate(v, sky, skySeeds(v, box), box)

	var seeds []vec.Position
	for _, src := range v.Sources(box) {
		if src.Strength > item.Get(src.Pos) {
			item.Set(src.Pos, src.Strength)
			seeds = append(seeds, src.Pos)
		}
	}
	propagate(v, item, seeds, box)
	return sky, item
}

// Pull межчанковый проход: каждый граничный воксель области забирает более
// яркий свет, уже посчитанный у соседних чанков (−1 через грань), а четыре
// угловые колонки у диагональных соседей (−2 без учёта препятствий).
// Подтянутый свет распространяется по всей карте.
func Pull(v Volume, m *Map, box Box) {
	world := m.Box()
	var seeds []vec.Position

	pull := func(p, from vec.Position, cost byte) {
		if !world.Contains(from) || box.Contains(from) {
			return
		}
		src := m.Get(from)
		if src <= cost {
			return
		}
		cand := src - cost
		if cand > m.Get(p) && v.Transparent(p) {
			m.Set(p, cand)
			seeds = append(seeds, p)
		}
	}

	for y := box.Min.Y; y <= box.Max.Y; y++ {
		for x := box.Min.X; x <= box.Max.X; x++ {
			pull(vec.Position{X: x, Y: y, Z: box.Min.Z}, vec.Position{X: x, Y: y, Z: box.Min.Z - 1}, sideCost)
			pull(vec.Position{X: x, Y: y, Z: box.Max.Z}, vec.Position{X: x, Y: y, Z: box.Max.Z + 1}, sideCost)
		}
		for z := box.Min.Z; z <= box.Max.Z; z++ {
			pull(vec.Position{X: box.Min.X, Y: y, Z: z}, vec.Position{X: box.Min.X - 1, Y: y, Z: z}, sideCost)
			pull(vec.Position{X: box.Max.X, Y: y, Z: z}, vec.Position{X: box.Max.X + 1, Y: y, Z: z}, sideCost)
		}

		pull(vec.Position{X: box.Min.X, Y: y, Z: box.Min.Z}, vec.Position{X: box.Min.X - 1, Y: y, Z: box.Min.Z - 1}, diagonalCost)
		pull(vec.Position{X: box.Max.X, Y: y, Z: box.Min.Z}, vec.Position{X: box.Max.X + 1, Y: y, Z: box.Min.Z - 1}, diagonalCost)
		pull(vec.Position{X: box.Min.X, Y: y, Z: box.Max.Z}, vec.Position{X: box.Min.X - 1, Y: y, Z: box.Max.Z + 1}, diagonalCost)
		pull(vec.Position{X: box.Max.X, Y: y, Z: box.Max.Z}, vec.Position{X: box.Max.X + 1, Y: y, Z: box.Max.Z + 1}, diagonalCost)
	}

	propagate(v, m, seeds, world)
}

// SingleBlockBox внутренняя область пересчёта для одиночной правки.
// Если правка может изменить вертикальное распространение солнца,
// берётся вся высота мира.
func SingleBlockBox(p vec.Position, verticalSun bool) Box {
	b := Box{Min: p, Max: p}.ExpandXZ(BoxRadius)
	if verticalSun {
		b.Min.Y = 0
		b.Max.Y = vec.ChunkHeight - 1
	} else {
		b.Min.Y = max(p.Y-BoxRadius, 0)
		b.Max.Y = min(p.Y+BoxRadius, vec.ChunkHeight-1)
	}
	return b
}

// CuboidBox внутренняя область пересчёта для параллелепипеда с запасом
func CuboidBox(a, b vec.Position) Box {
	box := NewBox(a, b).ExpandXZ(BoxRadius)
	box.Min.Y = 0
	box.Max.Y = vec.ChunkHeight - 1
	return box
}

// LightBox инкрементальный режим: сбрасывает внутреннюю область к исходной
// истине (небо выше карты высот, предметный свет только у источников) и
// заново распространяет свет во внешней области на один воксель шире,
// подтягивая его снаружи сброшенной зоны. Возвращает внешнюю область.
func LightBox(v Volume, sky, item *Map, inner Box) Box {
	world := sky.Box()
	inner = inner.Intersect(world)
	outer := inner.Expand(1).Intersect(world)
	if inner.Empty() {
		return outer
	}

	skyGroundTruth(v, sky, inner)
	inner.Each(func(p vec.Position) { item.Set(p, 0) })
	for _, src := range v.Sources(inner) {
		if src.Strength > item.Get(src.Pos) {
			item.Set(src.Pos, src.Strength)
		}
	}

	Propagate(v, sky, outer)
	Propagate(v, item, outer)
	return outer
}
