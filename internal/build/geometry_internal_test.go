package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCornerLightAveragesTransparentSamples(t *testing.T) {
	got := cornerLight(sample{v: 0.8, ok: true}, sample{v: 0.4, ok: true}, sample{}, sample{v: 0.6, ok: true})
	assert.InDelta(t, 0.6, got, 1e-6, "среднее центра, одной стороны и диагонали")

	got = cornerLight(sample{v: 1, ok: true}, sample{v: 1, ok: true}, sample{v: 1, ok: true}, sample{v: 1, ok: true})
	assert.InDelta(t, 1, got, 1e-6)
}

func TestCornerLightDarkestWhenDiagonalOccluded(t *testing.T) {
	// обе стороны непрозрачны: берётся самое тёмное из центра и диагонали
	got := cornerLight(sample{v: 0.8, ok: true}, sample{}, sample{}, sample{v: 0.5, ok: true})
	assert.InDelta(t, 0.5, got, 1e-6)

	got = cornerLight(sample{v: 0.3, ok: true}, sample{}, sample{}, sample{v: 0.9, ok: true})
	assert.InDelta(t, 0.3, got, 1e-6)
}
