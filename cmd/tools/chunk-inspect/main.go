package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/annel0/voxelstream/internal/config"
	"github.com/annel0/voxelstream/internal/vec"
	"github.com/annel0/voxelstream/internal/world"
	"github.com/annel0/voxelstream/internal/world/block"
)

func main() {
	var (
		seed      = flag.Int64("seed", 1337, "Сид мира")
		generator = flag.String("generator", config.GeneratorNoise, "Генератор: noise или flat")
		backend   = flag.String("noise", "simplex", "Реализация шума: simplex или perlin")
		chunkX    = flag.Int("x", 0, "X чанка")
		chunkZ    = flag.Int("z", 0, "Z чанка")
	)
	flag.Parse()

	cfg := config.Default()
	cfg.World.Seed = *seed
	cfg.World.Generator = *generator
	cfg.World.NoiseBackend = *backend
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ %v", err)
	}

	gen, err := world.NewGenerator(cfg.World)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	c := world.NewChunk(vec.ChunkID{X: *chunkX, Z: *chunkZ})
	gen.Generate(c)
	world.LightLocal(c)
	mesh := world.BuildMesh(c)

	counts := make(map[block.BlockID]int)
	minH, maxH := vec.ChunkSizeY, 0
	for z := 0; z < vec.ChunkSizeZ; z++ {
		for x := 0; x < vec.ChunkSizeX; x++ {
			h := int(c.HeightAt(x, z))
			minH, maxH = min(minH, h), max(maxH, h)
			for y := 0; y <= h; y++ {
				counts[c.BlockAt(vec.Vec3{X: x, Y: y, Z: z})]++
			}
		}
	}

	fmt.Printf("Чанк %v (сид %d, %s/%s)\n", c.ID, *seed, *generator, *backend)
	fmt.Printf("Высота: %d..%d, вершин: %d, индексов: %d\n\n", minH, maxH, len(mesh.Vertices), len(mesh.Indices))

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "БЛОК\tКОЛИЧЕСТВО")
	for id := block.BlockID(0); block.IsValidBlockID(id); id++ {
		if counts[id] > 0 {
			fmt.Fprintf(tw, "%s\t%d\n", id, counts[id])
		}
	}
	tw.Flush()
}
