package vec

import "math"

// ChunkCoords координаты чанка в сетке чанков
type ChunkCoords struct {
	X, Z int
}

// Origin возвращает мировую позицию угла чанка (y = 0)
func (c ChunkCoords) Origin() Position {
	return Position{X: c.X << chunkShift, Z: c.Z << chunkShift}
}

// Add смещает координаты чанка
func (c ChunkCoords) Add(dx, dz int) ChunkCoords {
	return ChunkCoords{X: c.X + dx, Z: c.Z + dz}
}

// DistanceTo вычисляет евклидово расстояние в чанках
func (c ChunkCoords) DistanceTo(other ChunkCoords) float64 {
	dx := float64(c.X - other.X)
	dz := float64(c.Z - other.Z)
	return math.Sqrt(dx*dx + dz*dz)
}
