package world

import (
	"github.com/annel0/voxelstream/internal/vec"
	"github.com/annel0/voxelstream/internal/world/block"
	"github.com/go-gl/mathgl/mgl32"
)

// Vertex вершина меша чанка в локальных координатах
type Vertex struct {
	X, Y, Z float32
	S, T    float32
	Face    uint8
	Light   uint8 // упакованный свет соседа по грани
	AO      uint8 // 0..3, 3 - без затенения
}

// Mesh геометрия чанка и версия хранилища, по которой она построена
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
	Version  uint32
}

// faceCorners углы граней единичного куба против часовой стрелки
var faceCorners = [block.FaceCount][4]mgl32.Vec3{
	block.FaceXN: {{0, 0, 0}, {0, 0, 1}, {0, 1, 1}, {0, 1, 0}},
	block.FaceXP: {{1, 0, 1}, {1, 0, 0}, {1, 1, 0}, {1, 1, 1}},
	block.FaceYN: {{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}},
	block.FaceYP: {{0, 1, 1}, {1, 1, 1}, {1, 1, 0}, {0, 1, 0}},
	block.FaceZN: {{1, 0, 0}, {0, 0, 0}, {0, 1, 0}, {1, 1, 0}},
	block.FaceZP: {{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}},
}

// aoNeighbours индексы в WholeNeighbourBlocks для затенения вершины: сторона, сторона, угол
var aoNeighbours = [block.FaceCount][4][3]uint8{
	block.FaceXN: {{6, 14, 18}, {14, 8, 22}, {8, 16, 24}, {6, 16, 20}},
	block.FaceXP: {{9, 15, 23}, {7, 15, 19}, {7, 17, 21}, {9, 17, 25}},
	block.FaceYN: {{14, 10, 18}, {15, 10, 19}, {15, 12, 23}, {14, 12, 22}},
	block.FaceYP: {{16, 13, 24}, {17, 13, 25}, {17, 11, 21}, {16, 11, 20}},
	block.FaceZN: {{7, 10, 19}, {6, 10, 18}, {6, 11, 20}, {7, 11, 21}},
	block.FaceZP: {{8, 12, 22}, {9, 12, 23}, {9, 13, 25}, {8, 13, 24}},
}

const tileSize = float32(1) / block.AtlasSize

func b2u(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// vertexAO считает затенение по двум боковым и угловому соседям
func vertexAO(side1, side2, corner bool) uint8 {
	if side1 && side2 {
		return 0
	}
	return 3 - (b2u(side1) + b2u(side2) + b2u(corner))
}

// BuildMesh строит меш видимых граней чанка под разделяемыми блокировками окрестности
func BuildMesh(c *Chunk) *Mesh {
	unlock := lockNeighbourhood(c.neighbourhood(), false)
	defer unlock()
	return buildMeshLocked(c)
}

func buildMeshLocked(c *Chunk) *Mesh {
	m := &Mesh{Version: c.StorageVersion()}
	top := c.MaxHeight()
	offset := c.ID.Offset()

	for z := 0; z < vec.ChunkSizeZ; z++ {
		for x := 0; x < vec.ChunkSizeX; x++ {
			for y := 0; y <= top; y++ {
				local := vec.Vec3{X: x, Y: y, Z: z}
				id := c.BlockAt(local)
				if id == block.AirBlockID {
					continue
				}

				faces := c.CrossNeighbourBlocks(local)
				var lights [block.FaceCount]Light
				var whole [26]block.BlockID
				fetched := false

				for face := block.Face(0); face < block.FaceCount; face++ {
					if faces[face].IsOpaque() {
						continue
					}
					if !fetched {
						lights = c.CrossNeighbourLights(local)
						whole = c.WholeNeighbourBlocks(local)
						fetched = true
					}
					m.appendFace(offset.Add(local), id, face, lights[face], &whole)
				}
			}
		}
	}
	return m
}

// appendFace добавляет грань блока в мировых координатах global
func (m *Mesh) appendFace(global vec.Vec3, id block.BlockID, face block.Face, light Light, whole *[26]block.BlockID) {
	tile := id.TileFor(face)
	s0 := float32(tile.S) * tileSize
	t0 := float32(tile.T) * tileSize
	origin := mgl32.Vec3{float32(global.X), float32(global.Y), float32(global.Z)}

	var ao [4]uint8
	base := uint32(len(m.Vertices))

	for vi, corner := range faceCorners[face] {
		n := aoNeighbours[face][vi]
		ao[vi] = vertexAO(whole[n[0]].IsOpaque(), whole[n[1]].IsOpaque(), whole[n[2]].IsOpaque())

		s, t := s0, t0
		if vi == 1 || vi == 2 {
			s += tileSize
		}
		if vi == 2 || vi == 3 {
			t += tileSize
		}

		p := origin.Add(corner)
		m.Vertices = append(m.Vertices, Vertex{
			X: p.X(), Y: p.Y(), Z: p.Z(),
			S: s, T: t,
			Face:  uint8(face),
			Light: uint8(light),
			AO:    ao[vi],
		})
	}

	// Диагональ выбирается так, чтобы затенение интерполировалось без анизотропии
	if int(ao[1])+int(ao[3]) <= int(ao[0])+int(ao[2]) {
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	} else {
		m.Indices = append(m.Indices, base, base+1, base+3, base+1, base+2, base+3)
	}
}

// Mesh возвращает кешированный меш или перестраивает его, если хранилище изменилось
func (c *Chunk) Mesh() *Mesh {
	c.meshMu.Lock()
	defer c.meshMu.Unlock()

	if c.mesh != nil && c.mesh.Version == c.StorageVersion() {
		return c.mesh
	}
	c.mesh = BuildMesh(c)
	return c.mesh
}

// storeMesh кеширует меш, построенный задачей Meshing
func (c *Chunk) storeMesh(m *Mesh) {
	c.meshMu.Lock()
	c.mesh = m
	c.meshMu.Unlock()
}
