package world

import (
	"testing"

	"github.com/annel0/voxelstream/internal/config"
	"github.com/annel0/voxelstream/internal/vec"
	"github.com/annel0/voxelstream/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkHeights(t *testing.T, c *Chunk) {
	t.Helper()
	for z := 0; z < vec.ChunkSizeZ; z++ {
		for x := 0; x < vec.ChunkSizeX; x++ {
			h := int(c.HeightAt(x, z))
			assert.NotEqual(t, block.AirBlockID, c.BlockAt(vec.Vec3{X: x, Y: h, Z: z}))
			for y := h + 1; y < vec.ChunkSizeY; y++ {
				if c.BlockAt(vec.Vec3{X: x, Y: y, Z: z}) != block.AirBlockID {
					t.Fatalf("над высотой %d в столбце (%d, %d) есть блок на y=%d", h, x, z, y)
				}
			}
		}
	}
}

func TestNoiseGeneratorDeterministic(t *testing.T) {
	a, err := NewNoiseGenerator(4242, "simplex")
	require.NoError(t, err)
	b, err := NewNoiseGenerator(4242, "simplex")
	require.NoError(t, err)

	for _, id := range []vec.ChunkID{{X: 0, Z: 0}, {X: -3, Z: 7}} {
		ca, cb := NewChunk(id), NewChunk(id)
		a.Generate(ca)
		b.Generate(cb)
		assert.Equal(t, ca.storage.Blocks, cb.storage.Blocks, "чанк %v", id)
		assert.Equal(t, ca.storage.Heights, cb.storage.Heights, "чанк %v", id)

		// повторная генерация тем же генератором через пул буферов
		cc := NewChunk(id)
		a.Generate(cc)
		assert.Equal(t, ca.storage.Blocks, cc.storage.Blocks)
	}
}

func TestNoiseGeneratorTerrain(t *testing.T) {
	for _, backend := range []string{"simplex", "perlin"} {
		gen, err := NewNoiseGenerator(99, backend)
		require.NoError(t, err)

		c := NewChunk(vec.ChunkID{X: 1, Z: -1})
		gen.Generate(c)

		for z := 0; z < vec.ChunkSizeZ; z++ {
			for x := 0; x < vec.ChunkSizeX; x++ {
				assert.Equal(t, block.BedrockBlockID, c.BlockAt(vec.Vec3{X: x, Z: z}), "y=0 всегда bedrock")
			}
		}
		checkHeights(t, c)
		assert.Greater(t, c.MaxHeight(), 0)
		assert.Less(t, c.MaxHeight(), vec.ChunkSizeY-1)
	}
}

func TestSurfaceHelpers(t *testing.T) {
	assert.Equal(t, 128, surfaceHeight(0))
	assert.Equal(t, maxSurface, surfaceHeight(3))
	assert.Equal(t, 1, surfaceHeight(-5))

	assert.Equal(t, block.SandBlockID, surfaceBlock(vec.SeaLevel+1))
	assert.Equal(t, block.GrassBlockID, surfaceBlock(100))
	assert.Equal(t, block.SnowBlockID, surfaceBlock(SnowLine))
}

func TestGlowstonePlacement(t *testing.T) {
	gen, err := NewNoiseGenerator(7, "simplex")
	require.NoError(t, err)
	gen.GlowstoneRarity = 1

	c := NewChunk(vec.ChunkID{})
	c.SetBlockAt(vec.Vec3{X: 2, Y: 10, Z: 2}, block.StoneBlockID)
	c.SetBlockAt(vec.Vec3{X: 2, Y: 11, Z: 2}, block.StoneBlockID)
	gen.placeGlowstone(c, 2, 2, 20)

	assert.Equal(t, block.GlowstoneBlockID, c.BlockAt(vec.Vec3{X: 2, Y: 10, Z: 2}), "потолок пещеры")
	assert.Equal(t, block.StoneBlockID, c.BlockAt(vec.Vec3{X: 2, Y: 11, Z: 2}), "под камнем нет воздуха")

	gen.GlowstoneRarity = 0
	c.SetBlockAt(vec.Vec3{X: 3, Y: 10, Z: 3}, block.StoneBlockID)
	gen.placeGlowstone(c, 3, 3, 20)
	assert.Equal(t, block.StoneBlockID, c.BlockAt(vec.Vec3{X: 3, Y: 10, Z: 3}))
}

func TestFlatGenerator(t *testing.T) {
	c := NewChunk(vec.ChunkID{X: 5, Z: 5})
	(&FlatGenerator{Height: 40}).Generate(c)

	col := func(y int) block.BlockID { return c.BlockAt(vec.Vec3{X: 7, Y: y, Z: 3}) }
	assert.Equal(t, block.BedrockBlockID, col(0))
	assert.Equal(t, block.StoneBlockID, col(36))
	assert.Equal(t, block.DirtBlockID, col(37))
	assert.Equal(t, block.DirtBlockID, col(39))
	assert.Equal(t, block.GrassBlockID, col(40))
	assert.Equal(t, block.AirBlockID, col(41))
	assert.Equal(t, uint8(40), c.HeightAt(7, 3))

	jittered := NewChunk(vec.ChunkID{X: -2, Z: 9})
	(&FlatGenerator{Seed: 3, Height: 40, Jitter: 3}).Generate(jittered)
	checkHeights(t, jittered)
	for z := 0; z < vec.ChunkSizeZ; z++ {
		for x := 0; x < vec.ChunkSizeX; x++ {
			h := int(jittered.HeightAt(x, z))
			assert.GreaterOrEqual(t, h, 37)
			assert.LessOrEqual(t, h, 43)
		}
	}
}

func TestNewGenerator(t *testing.T) {
	cfg := config.Default().World

	gen, err := NewGenerator(cfg)
	require.NoError(t, err)
	assert.IsType(t, &NoiseGenerator{}, gen)

	cfg.Generator = config.GeneratorFlat
	gen, err = NewGenerator(cfg)
	require.NoError(t, err)
	assert.IsType(t, &FlatGenerator{}, gen)

	cfg.Generator = "islands"
	_, err = NewGenerator(cfg)
	assert.Error(t, err)

	cfg.Generator = config.GeneratorNoise
	cfg.NoiseBackend = "value"
	_, err = NewGenerator(cfg)
	assert.Error(t, err)
}
