package lighting

import "math"

// table нелинейная шкала яркости: каждый уровень на 20% темнее предыдущего
var table [MaxLight + 1]float32

func init() {
	for l := 0; l <= MaxLight; l++ {
		table[l] = float32(math.Pow(0.8, float64(MaxLight-l)))
	}
}

// Level яркость одного уровня по таблице
func Level(l byte) float32 {
	if l > MaxLight {
		l = MaxLight
	}
	return table[l]
}

// Brightness видимая яркость: максимум вклада неба (с учётом времени суток)
// и предметного света
func Brightness(sky, item byte, skyFactor float32) float32 {
	return max(Level(sky)*skyFactor, Level(item))
}

// SkyFactor множитель неба по положению солнца в градусах (0 восход,
// 90 полдень, 180 закат, дальше ночь)
func SkyFactor(sunDegrees float32) float32 {
	rad := float64(sunDegrees) * math.Pi / 180
	f := float32(math.Sin(rad))
	return min(max(f, 0.2), 1)
}
