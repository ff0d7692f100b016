package world

import (
	"github.com/annel0/voxelstream/internal/vec"
	"github.com/annel0/voxelstream/internal/world/block"
)

// newGrid создаёт сетку чанков [x0, x0+w) x [z0, z0+d), генерирует их и
// связывает соседей у всех чанков, у которых есть все 8 соседей.
func newGrid(gen Generator, x0, z0, w, d int) map[vec.ChunkID]*Chunk {
	chunks := make(map[vec.ChunkID]*Chunk, w*d)
	for z := z0; z < z0+d; z++ {
		for x := x0; x < x0+w; x++ {
			c := NewChunk(vec.ChunkID{X: x, Z: z})
			if gen != nil {
				gen.Generate(c)
				c.storeStage(StageGenerationComplete)
			}
			chunks[c.ID] = c
		}
	}
	for _, c := range chunks {
		var n [neighbourCount]*Chunk
		complete := true
		for i, o := range neighbourOffsets {
			nb, ok := chunks[c.ID.Add(o[0], o[1])]
			if !ok {
				complete = false
				break
			}
			n[i] = nb
		}
		if complete {
			c.setNeighbours(n)
		}
	}
	return chunks
}

// fillBox заполняет блоками параллелепипед [from, to] включительно
func fillBox(c *Chunk, from, to vec.Vec3, id block.BlockID) {
	for x := from.X; x <= to.X; x++ {
		for y := from.Y; y <= to.Y; y++ {
			for z := from.Z; z <= to.Z; z++ {
				c.SetBlockAt(vec.Vec3{X: x, Y: y, Z: z}, id)
			}
		}
	}
}
