package util

import (
	"fmt"

	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"
)

// Поддерживаемые реализации когерентного шума
const (
	BackendSimplex = "simplex"
	BackendPerlin  = "perlin"
)

// Sampler источник когерентного шума в диапазоне примерно [-1, 1]
type Sampler interface {
	Noise2D(x, y float64) float64
	Noise3D(x, y, z float64) float64
}

// simplexSampler адаптер над opensimplex
type simplexSampler struct {
	noise opensimplex.Noise
}

func (s simplexSampler) Noise2D(x, y float64) float64    { return s.noise.Eval2(x, y) }
func (s simplexSampler) Noise3D(x, y, z float64) float64 { return s.noise.Eval3(x, y, z) }

// perlinSampler адаптер над go-perlin; одна октава, фрактал собирается выше
type perlinSampler struct {
	noise *perlin.Perlin
}

func (p perlinSampler) Noise2D(x, y float64) float64    { return p.noise.Noise2D(x, y) }
func (p perlinSampler) Noise3D(x, y, z float64) float64 { return p.noise.Noise3D(x, y, z) }

// NewSampler создаёт генератор шума выбранной реализации с указанным сидом
func NewSampler(backend string, seed int64) (Sampler, error) {
	switch backend {
	case BackendSimplex, "":
		return simplexSampler{noise: opensimplex.New(seed)}, nil
	case BackendPerlin:
		alpha := 2.0  // Сглаживание шума
		beta := 2.0   // Частота шума
		n := int32(1) // Октавы считает Fractal
		return perlinSampler{noise: perlin.NewPerlin(alpha, beta, n, seed)}, nil
	default:
		return nil, fmt.Errorf("неизвестная реализация шума %q", backend)
	}
}

// FractalParams параметры фрактального броуновского движения (fBm)
type FractalParams struct {
	Octaves    int
	Lacunarity float64
	Gain       float64
	Scale      float64    // размер "пятна" шума в блоках
	AxisScale  [3]float64 // дополнительное растяжение по осям X, Y, Z
}

// Fractal суммирует октавы шума; каждая октава использует свой сид
type Fractal struct {
	params   FractalParams
	octaves  []Sampler
	bounding float64
	freq     float64
}

// NewFractal создаёт fBm генератор поверх выбранной реализации шума
func NewFractal(backend string, seed int64, params FractalParams) (*Fractal, error) {
	if params.Octaves < 1 {
		return nil, fmt.Errorf("число октав должно быть положительным: %d", params.Octaves)
	}
	if params.Scale <= 0 {
		return nil, fmt.Errorf("масштаб шума должен быть положительным: %f", params.Scale)
	}
	for i, s := range params.AxisScale {
		if s == 0 {
			params.AxisScale[i] = 1
		}
	}

	f := &Fractal{
		params:  params,
		octaves: make([]Sampler, params.Octaves),
		freq:    1 / params.Scale,
	}

	amp, sum := 1.0, 0.0
	for i := 0; i < params.Octaves; i++ {
		s, err := NewSampler(backend, seed+int64(i))
		if err != nil {
			return nil, err
		}
		f.octaves[i] = s
		sum += amp
		amp *= params.Gain
	}
	f.bounding = 1 / sum
	return f, nil
}

// Sample2D возвращает нормированное fBm значение для точки на плоскости
func (f *Fractal) Sample2D(x, z float64) float64 {
	x *= f.freq * f.params.AxisScale[0]
	z *= f.freq * f.params.AxisScale[2]

	sum, amp := 0.0, 1.0
	for _, o := range f.octaves {
		sum += o.Noise2D(x, z) * amp
		x *= f.params.Lacunarity
		z *= f.params.Lacunarity
		amp *= f.params.Gain
	}
	return sum * f.bounding
}

// Sample3D возвращает нормированное fBm значение для точки пространства
func (f *Fractal) Sample3D(x, y, z float64) float64 {
	x *= f.freq * f.params.AxisScale[0]
	y *= f.freq * f.params.AxisScale[1]
	z *= f.freq * f.params.AxisScale[2]

	sum, amp := 0.0, 1.0
	for _, o := range f.octaves {
		sum += o.Noise3D(x, y, z) * amp
		x *= f.params.Lacunarity
		y *= f.params.Lacunarity
		z *= f.params.Lacunarity
		amp *= f.params.Gain
	}
	return sum * f.bounding
}

// GenUniformGrid2D заполняет dst значениями на сетке w x d, начиная с (x0, z0).
// Индекс: z*w + x.
func (f *Fractal) GenUniformGrid2D(dst []float64, x0, z0, w, d int) {
	if len(dst) < w*d {
		panic("util: буфер меньше сетки")
	}
	for z := 0; z < d; z++ {
		for x := 0; x < w; x++ {
			dst[z*w+x] = f.Sample2D(float64(x0+x), float64(z0+z))
		}
	}
}

// GenColumns3D заполняет столбцы сетки w x d значениями по Y от 0 до limits[z*w+x]
// включительно. Индекс: (z*w + x)*h + y.
func (f *Fractal) GenColumns3D(dst []float64, x0, z0, w, h, d int, limits []int) {
	if len(dst) < w*h*d {
		panic("util: буфер меньше сетки")
	}
	for z := 0; z < d; z++ {
		for x := 0; x < w; x++ {
			top := limits[z*w+x]
			if top >= h {
				top = h - 1
			}
			base := (z*w + x) * h
			for y := 0; y <= top; y++ {
				dst[base+y] = f.Sample3D(float64(x0+x), float64(y), float64(z0+z))
			}
		}
	}
}
