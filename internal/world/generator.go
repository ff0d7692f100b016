package world

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/annel0/voxelstream/internal/config"
	"github.com/annel0/voxelstream/internal/util"
	"github.com/annel0/voxelstream/internal/vec"
	"github.com/annel0/voxelstream/internal/world/block"
	"github.com/cespare/xxhash/v2"
)

// Generator заполняет блоки и карту высот чанка. Должен быть детерминирован
// по (сид, ID чанка) и безопасен для вызова из нескольких горутин.
type Generator interface {
	Generate(c *Chunk)
}

// Константы рельефа
const (
	SnowLine     = 170 // выше - снежные вершины
	SandBand     = 3   // песок до SeaLevel + SandBand
	DirtDepth    = 3   // толщина слоя земли под поверхностью
	maxSurface   = vec.ChunkSizeY - 2
	cheeseBase   = -0.65
	spaghettiCut = 0.085

	DefaultGlowstoneRarity = 96
)

// NoiseGenerator генерирует рельеф из фрактального шума:
// континентальность задаёт высоту, "сырные" и "спагетти" пещеры вырезают полости.
type NoiseGenerator struct {
	Seed            int64
	GlowstoneRarity uint64 // один светокамень на N подходящих потолков пещер

	continentalness *util.Fractal
	cheese          *util.Fractal
	spaghettiA      *util.Fractal
	spaghettiB      *util.Fractal

	buffers sync.Pool
}

// noiseBuffers буферы выборок шума одного чанка
type noiseBuffers struct {
	surface    [chunkArea]float64
	limits     [chunkArea]int
	cheese     [chunkVolume]float64
	spaghettiA [chunkVolume]float64
	spaghettiB [chunkVolume]float64
}

// NewNoiseGenerator создаёт генератор рельефа на выбранной реализации шума
func NewNoiseGenerator(seed int64, backend string) (*NoiseGenerator, error) {
	g := &NoiseGenerator{
		Seed:            seed,
		GlowstoneRarity: DefaultGlowstoneRarity,
	}

	var err error
	g.continentalness, err = util.NewFractal(backend, seed, util.FractalParams{
		Octaves: 4, Lacunarity: 2.6, Gain: 0.5, Scale: 625,
	})
	if err != nil {
		return nil, fmt.Errorf("континентальность: %w", err)
	}
	g.cheese, err = util.NewFractal(backend, seed, util.FractalParams{
		Octaves: 5, Lacunarity: 2.2, Gain: 0.5, Scale: 200, AxisScale: [3]float64{0.8, 1.4, 0.8},
	})
	if err != nil {
		return nil, fmt.Errorf("сырные пещеры: %w", err)
	}
	spaghetti := util.FractalParams{
		Octaves: 4, Lacunarity: 2.4, Gain: 0.5, Scale: 200, AxisScale: [3]float64{0.8, 1.2, 0.8},
	}
	if g.spaghettiA, err = util.NewFractal(backend, seed+10000, spaghetti); err != nil {
		return nil, fmt.Errorf("спагетти пещеры: %w", err)
	}
	if g.spaghettiB, err = util.NewFractal(backend, seed+20000, spaghetti); err != nil {
		return nil, fmt.Errorf("спагетти пещеры: %w", err)
	}

	g.buffers.New = func() any { return &noiseBuffers{} }
	return g, nil
}

// surfaceHeight переводит континентальность в высоту поверхности
func surfaceHeight(c float64) int {
	h := int(math.Floor(c*64 + vec.SeaLevel + 64))
	if h < 1 {
		return 1
	}
	if h > maxSurface {
		return maxSurface
	}
	return h
}

// surfaceBlock выбирает верхний блок столбца по высоте
func surfaceBlock(h int) block.BlockID {
	switch {
	case h >= SnowLine:
		return block.SnowBlockID
	case h <= vec.SeaLevel+SandBand:
		return block.SandBlockID
	default:
		return block.GrassBlockID
	}
}

// Generate заполняет чанк
func (g *NoiseGenerator) Generate(c *Chunk) {
	buf := g.buffers.Get().(*noiseBuffers)
	defer g.buffers.Put(buf)

	off := c.ID.Offset()
	g.continentalness.GenUniformGrid2D(buf.surface[:], off.X, off.Z, vec.ChunkSizeX, vec.ChunkSizeZ)
	for i, v := range buf.surface {
		buf.limits[i] = surfaceHeight(v)
	}

	// Пещеры считаются только ниже поверхности
	w, h, d := vec.ChunkSizeX, vec.ChunkSizeY, vec.ChunkSizeZ
	g.cheese.GenColumns3D(buf.cheese[:], off.X, off.Z, w, h, d, buf.limits[:])
	g.spaghettiA.GenColumns3D(buf.spaghettiA[:], off.X, off.Z, w, h, d, buf.limits[:])
	g.spaghettiB.GenColumns3D(buf.spaghettiB[:], off.X, off.Z, w, h, d, buf.limits[:])

	for z := 0; z < d; z++ {
		for x := 0; x < w; x++ {
			top := buf.limits[z*w+x]
			surface := surfaceBlock(top)

			for y := 0; y <= top; y++ {
				i := index(x, y, z)
				local := vec.Vec3{X: x, Y: y, Z: z}

				if y == 0 {
					c.SetBlockAt(local, block.BedrockBlockID)
					continue
				}

				cheese := buf.cheese[i] < cheeseBase-float64(y)/float64(top)
				spaghetti := math.Abs(buf.spaghettiA[i]) < spaghettiCut && math.Abs(buf.spaghettiB[i]) < spaghettiCut
				if cheese || spaghetti {
					continue
				}

				switch {
				case y == top:
					c.SetBlockAt(local, surface)
				case y >= top-DirtDepth:
					if surface == block.SandBlockID {
						c.SetBlockAt(local, block.SandBlockID)
					} else {
						c.SetBlockAt(local, block.DirtBlockID)
					}
				default:
					c.SetBlockAt(local, block.StoneBlockID)
				}
			}

			g.placeGlowstone(c, x, z, top)
		}
	}

	computeHeights(c)
}

// placeGlowstone заменяет редкие каменные потолки пещер светокамнем
func (g *NoiseGenerator) placeGlowstone(c *Chunk, x, z, top int) {
	if g.GlowstoneRarity == 0 {
		return
	}
	off := c.ID.Offset()
	for y := 1; y < top; y++ {
		below := vec.Vec3{X: x, Y: y, Z: z}
		ceiling := vec.Vec3{X: x, Y: y + 1, Z: z}
		if c.BlockAt(below) != block.AirBlockID || c.BlockAt(ceiling) != block.StoneBlockID {
			continue
		}
		if positionHash(g.Seed, off.X+x, y+1, off.Z+z)%g.GlowstoneRarity == 0 {
			c.SetBlockAt(ceiling, block.GlowstoneBlockID)
		}
	}
}

// positionHash детерминированный хеш глобальной позиции
func positionHash(seed int64, x, y, z int) uint64 {
	var b [32]byte
	binary.LittleEndian.PutUint64(b[0:], uint64(seed))
	binary.LittleEndian.PutUint64(b[8:], uint64(int64(x)))
	binary.LittleEndian.PutUint64(b[16:], uint64(int64(y)))
	binary.LittleEndian.PutUint64(b[24:], uint64(int64(z)))
	return xxhash.Sum64(b[:])
}

// computeHeights заполняет карту высот: первый непустой блок сверху
func computeHeights(c *Chunk) {
	for z := 0; z < vec.ChunkSizeZ; z++ {
		for x := 0; x < vec.ChunkSizeX; x++ {
			h := 0
			for y := vec.ChunkSizeY - 1; y >= 0; y-- {
				if c.BlockAt(vec.Vec3{X: x, Y: y, Z: z}) != block.AirBlockID {
					h = y
					break
				}
			}
			c.setHeightAt(x, z, uint8(h))
		}
	}
}

// FlatGenerator плоский рельеф с детерминированным разбросом высоты.
// Используется в тестах и для отладки.
type FlatGenerator struct {
	Seed   int64
	Height int
	Jitter int // максимальное отклонение высоты в блоках
}

// Generate заполняет чанк
func (g *FlatGenerator) Generate(c *Chunk) {
	off := c.ID.Offset()
	for z := 0; z < vec.ChunkSizeZ; z++ {
		for x := 0; x < vec.ChunkSizeX; x++ {
			top := g.Height
			if g.Jitter > 0 {
				span := uint64(2*g.Jitter + 1)
				top += int(positionHash(g.Seed, off.X+x, 0, off.Z+z)%span) - g.Jitter
			}
			top = min(max(top, 1), maxSurface)

			for y := 0; y <= top; y++ {
				local := vec.Vec3{X: x, Y: y, Z: z}
				switch {
				case y == 0:
					c.SetBlockAt(local, block.BedrockBlockID)
				case y == top:
					c.SetBlockAt(local, block.GrassBlockID)
				case y >= top-DirtDepth:
					c.SetBlockAt(local, block.DirtBlockID)
				default:
					c.SetBlockAt(local, block.StoneBlockID)
				}
			}
		}
	}
	computeHeights(c)
}

// NewGenerator создаёт генератор по конфигурации мира
func NewGenerator(cfg config.WorldConfig) (Generator, error) {
	switch cfg.Generator {
	case config.GeneratorFlat:
		return &FlatGenerator{Seed: cfg.Seed, Height: cfg.FlatHeight}, nil
	case config.GeneratorNoise, "":
		return NewNoiseGenerator(cfg.Seed, cfg.NoiseBackend)
	default:
		return nil, fmt.Errorf("неизвестный генератор %q", cfg.Generator)
	}
}
