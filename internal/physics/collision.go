package physics

import (
	"github.com/annel0/blockverse/internal/vec"
)

// AABB осевой параллелепипед в мировых координатах
type AABB struct {
	Min, Max [3]float32
}

// BoxCollider размеры тела: основание в точке координат, центр по X и Z
type BoxCollider struct {
	Width  float32
	Height float32
}

// Тела: игрок чуть уже блока и ниже двух блоков, существо ниже игрока,
// выпавший блок четверть блока
var (
	PlayerCollider = BoxCollider{Width: 0.6, Height: 1.8}
	MobCollider    = BoxCollider{Width: 0.9, Height: 1.3}
	ItemCollider   = BoxCollider{Width: 0.25, Height: 0.25}
)

// At коробка тела, стоящего в точке c
func (bc BoxCollider) At(c vec.Coords) AABB {
	half := bc.Width / 2
	return AABB{
		Min: [3]float32{c.Xf - half, c.Yf, c.Zf - half},
		Max: [3]float32{c.Xf + half, c.Yf + bc.Height, c.Zf + half},
	}
}

// BlockBox единичный куб блока
func BlockBox(p vec.Position) AABB {
	return CuboidBox(p, p)
}

// CuboidBox коробка, покрывающая все блоки между a и b включительно
func CuboidBox(a, b vec.Position) AABB {
	return AABB{
		Min: [3]float32{float32(min(a.X, b.X)), float32(min(a.Y, b.Y)), float32(min(a.Z, b.Z))},
		Max: [3]float32{float32(max(a.X, b.X) + 1), float32(max(a.Y, b.Y) + 1), float32(max(a.Z, b.Z) + 1)},
	}
}

// Intersects пересекаются ли коробки. Касание гранями не считается.
func (a AABB) Intersects(b AABB) bool {
	for i := 0; i < 3; i++ {
		if a.Max[i] <= b.Min[i] || b.Max[i] <= a.Min[i] {
			return false
		}
	}
	return true
}

// Blocks позиции блоков, которые задевает коробка
func (a AABB) Blocks() []vec.Position {
	lo := vec.NewCoords(a.Min[0], a.Min[1], a.Min[2]).ToPosition()
	// верхняя граница исключительна: коробка ровно до грани блока его не задевает
	const eps = 1e-4
	hi := vec.NewCoords(a.Max[0]-eps, a.Max[1]-eps, a.Max[2]-eps).ToPosition()
	var out []vec.Position
	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				out = append(out, vec.Position{X: x, Y: y, Z: z})
			}
		}
	}
	return out
}

// CanStand помещается ли тело в точке c: ни один задетый блок не твёрдый
func (bc BoxCollider) CanStand(c vec.Coords, solid func(vec.Position) bool) bool {
	for _, p := range bc.At(c).Blocks() {
		if solid(p) {
			return false
		}
	}
	return true
}
