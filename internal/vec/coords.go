package vec

import "math"

// Coords координаты подвижного объекта с точностью до долей блока,
// плюс направление взгляда и наклон (в радианах).
type Coords struct {
	Xf, Yf, Zf float32
	Direction  float32
	Pitch      float32
}

// NewCoords создаёт координаты без направления
func NewCoords(x, y, z float32) Coords {
	return Coords{Xf: x, Yf: y, Zf: z}
}

// ToPosition возвращает позицию блока, в котором находится точка
func (c Coords) ToPosition() Position {
	return Position{
		X: int(math.Floor(float64(c.Xf))),
		Y: int(math.Floor(float64(c.Yf))),
		Z: int(math.Floor(float64(c.Zf))),
	}
}

// Add смещает координаты на вектор
func (c Coords) Add(dx, dy, dz float32) Coords {
	c.Xf += dx
	c.Yf += dy
	c.Zf += dz
	return c
}

// DistanceTo вычисляет расстояние до других координат
func (c Coords) DistanceTo(other Coords) float64 {
	dx := float64(c.Xf - other.Xf)
	dy := float64(c.Yf - other.Yf)
	dz := float64(c.Zf - other.Zf)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
