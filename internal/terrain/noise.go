package terrain

import (
	"github.com/aquilax/go-perlin"
)

const (
	noiseAlpha   = 2.0 // Сглаживание шума
	noiseBeta    = 2.0 // Частота шума
	noiseOctaves = 3   // Количество октав
)

// noise2D: шум Перлина с собственным сидом, значения в [0, 1]
type noise2D struct {
	p *perlin.Perlin
}

func newNoise2D(seed int64) noise2D {
	return noise2D{p: perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctaves, seed)}
}

// At возвращает значение шума для указанных координат (от 0 до 1)
func (n noise2D) At(x, y float64) float64 {
	v := (n.p.Noise2D(x, y) + 1.0) / 2.0
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
