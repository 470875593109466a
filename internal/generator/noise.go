package generator

import (
	"github.com/aquilax/go-perlin"
)

// Noise двумерный шум Перлина, приведённый к диапазону [0, 1].
// После создания только читается и безопасен для параллельного использования.
type Noise struct {
	p     *perlin.Perlin
	scale float64
}

// NewNoise создаёт шум с указанным сидом и масштабом координат
func NewNoise(seed int64, scale float64) *Noise {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	return &Noise{p: perlin.NewPerlin(alpha, beta, n, seed), scale: scale}
}

// At значение шума в мировых координатах (от 0 до 1)
func (n *Noise) At(x, z int) float64 {
	v := n.p.Noise2D(float64(x)*n.scale, float64(z)*n.scale)
	v = (v + 1.0) / 2.0
	return min(max(v, 0), 1)
}
