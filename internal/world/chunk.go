package world

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/annel0/voxelstream/internal/vec"
	"github.com/annel0/voxelstream/internal/world/block"
)

const (
	chunkVolume = vec.ChunkSizeX * vec.ChunkSizeY * vec.ChunkSizeZ
	chunkArea   = vec.ChunkSizeX * vec.ChunkSizeZ
)

// Storage данные вокселей чанка. Индекс: (z*16 + x)*256 + y.
type Storage struct {
	Blocks  [chunkVolume]block.BlockID
	Lights  [chunkVolume]Light
	Heights [chunkArea]uint8 // высота первого непустого блока сверху, индекс z*16 + x
}

// Индексы соседних чанков в Chunk.Neighbours
const (
	NeighbourXN = iota
	NeighbourXP
	NeighbourZN
	NeighbourZP
	NeighbourXNZN
	NeighbourXPZN
	NeighbourXNZP
	NeighbourXPZP

	neighbourCount
)

// neighbourOffsets смещения соседей в чанках по X и Z
var neighbourOffsets = [neighbourCount][2]int{
	{-1, 0}, {1, 0}, {0, -1}, {0, 1},
	{-1, -1}, {1, -1}, {-1, 1}, {1, 1},
}

// neighbourIndex возвращает слот соседа по смещению; для (0, 0) - -1
func neighbourIndex(dx, dz int) int {
	for i, o := range neighbourOffsets {
		if o[0] == dx && o[1] == dz {
			return i
		}
	}
	return -1
}

// Chunk столбец вокселей 16x256x16.
//
// Блоки и высоты пишутся только генератором до публикации GenerationComplete,
// дальше они неизменны и читаются без блокировок. Освещение защищено lightMu.
type Chunk struct {
	ID vec.ChunkID

	stage    atomic.Uint32
	enqueued atomic.Uint32

	storage *Storage

	// Соседи выставляются один раз, до NeighboursSet
	Neighbours    [neighbourCount]*Chunk
	neighboursSet atomic.Bool

	storageVersion atomic.Uint32
	hasModified    atomic.Bool

	lightMu sync.RWMutex

	meshMu sync.Mutex
	mesh   *Mesh
}

// NewChunk создаёт чанк в стадии Empty с выделенным хранилищем
func NewChunk(id vec.ChunkID) *Chunk {
	return &Chunk{
		ID:      id,
		storage: &Storage{},
	}
}

// Stage возвращает текущую стадию
func (c *Chunk) Stage() Stage { return Stage(c.stage.Load()) }

func (c *Chunk) casStage(from, to Stage) bool {
	return c.stage.CompareAndSwap(uint32(from), uint32(to))
}

func (c *Chunk) storeStage(s Stage) { c.stage.Store(uint32(s)) }

// MarkReady переводит чанк из MeshingComplete в Ready после загрузки меша потребителем
func (c *Chunk) MarkReady() bool {
	return c.casStage(StageMeshingComplete, StageReady)
}

// markEnqueued выставляет бит задачи; false если задача уже в очереди
func (c *Chunk) markEnqueued(t JobType) bool {
	return c.enqueued.Or(t.bit())&t.bit() == 0
}

func (c *Chunk) clearEnqueued(t JobType) {
	c.enqueued.And(^t.bit())
}

// IsEnqueued сообщает, стоит ли задача типа t в очереди
func (c *Chunk) IsEnqueued(t JobType) bool {
	return c.enqueued.Load()&t.bit() != 0
}

// NeighboursSet сообщает, связаны ли все 8 соседей
func (c *Chunk) NeighboursSet() bool { return c.neighboursSet.Load() }

// setNeighbours связывает соседей; повторный вызов ничего не делает
func (c *Chunk) setNeighbours(n [neighbourCount]*Chunk) bool {
	if c.neighboursSet.Load() {
		return false
	}
	for _, nb := range n {
		if nb == nil {
			panic(fmt.Sprintf("world: неполный набор соседей для чанка %v", c.ID))
		}
	}
	c.Neighbours = n
	c.neighboursSet.Store(true)
	return true
}

// StorageVersion счётчик изменений хранилища
func (c *Chunk) StorageVersion() uint32 { return c.storageVersion.Load() }

// HasModified сообщает, менялось ли хранилище после генерации
func (c *Chunk) HasModified() bool { return c.hasModified.Load() }

// touch отмечает изменение хранилища
func (c *Chunk) touch() {
	c.hasModified.Store(true)
	c.storageVersion.Add(1)
}

func index(x, y, z int) int {
	return (z*vec.ChunkSizeX+x)*vec.ChunkSizeY + y
}

func checkedIndex(local vec.Vec3) int {
	if !vec.InBounds(local) {
		panic(fmt.Sprintf("world: локальные координаты вне чанка: %v", local))
	}
	return index(local.X, local.Y, local.Z)
}

// BlockAt возвращает блок по локальным координатам
func (c *Chunk) BlockAt(local vec.Vec3) block.BlockID {
	return c.storage.Blocks[checkedIndex(local)]
}

// SetBlockAt записывает блок; только для генератора
func (c *Chunk) SetBlockAt(local vec.Vec3, id block.BlockID) {
	c.storage.Blocks[checkedIndex(local)] = id
}

// LightAt возвращает упакованный свет вокселя
func (c *Chunk) LightAt(local vec.Vec3) Light {
	return c.storage.Lights[checkedIndex(local)]
}

func (c *Chunk) SkyLightAt(local vec.Vec3) uint8   { return c.LightAt(local).Sky() }
func (c *Chunk) PointLightAt(local vec.Vec3) uint8 { return c.LightAt(local).Point() }

func (c *Chunk) SetSkyLightAt(local vec.Vec3, v uint8) {
	i := checkedIndex(local)
	c.storage.Lights[i] = c.storage.Lights[i].WithSky(v)
}

func (c *Chunk) SetPointLightAt(local vec.Vec3, v uint8) {
	i := checkedIndex(local)
	c.storage.Lights[i] = c.storage.Lights[i].WithPoint(v)
}

func (c *Chunk) channelAt(local vec.Vec3, ch Channel) uint8 {
	return c.LightAt(local).Get(ch)
}

func (c *Chunk) setChannelAt(local vec.Vec3, ch Channel, v uint8) {
	i := checkedIndex(local)
	c.storage.Lights[i] = c.storage.Lights[i].With(ch, v)
}

// HeightAt возвращает высоту столбца (x, z)
func (c *Chunk) HeightAt(x, z int) uint8 {
	return c.storage.Heights[z*vec.ChunkSizeX+x]
}

func (c *Chunk) setHeightAt(x, z int, h uint8) {
	c.storage.Heights[z*vec.ChunkSizeX+x] = h
}

// MaxHeight возвращает наибольшую высоту столбцов
func (c *Chunk) MaxHeight() int {
	maxH := 0
	for _, h := range c.storage.Heights {
		if int(h) > maxH {
			maxH = int(h)
		}
	}
	return maxH
}

// resolve переводит локальные координаты, выходящие за край по X/Z не более
// чем на один чанк, в (чанк, локальные координаты). nil - вне мира по Y или
// сосед не связан.
func (c *Chunk) resolve(local vec.Vec3) (*Chunk, vec.Vec3) {
	if local.Y < 0 || local.Y >= vec.ChunkSizeY {
		return nil, local
	}

	dx, dz := 0, 0
	if local.X < 0 {
		dx, local.X = -1, local.X+vec.ChunkSizeX
	} else if local.X >= vec.ChunkSizeX {
		dx, local.X = 1, local.X-vec.ChunkSizeX
	}
	if local.Z < 0 {
		dz, local.Z = -1, local.Z+vec.ChunkSizeZ
	} else if local.Z >= vec.ChunkSizeZ {
		dz, local.Z = 1, local.Z-vec.ChunkSizeZ
	}

	if dx == 0 && dz == 0 {
		return c, local
	}
	if !c.NeighboursSet() {
		return nil, local
	}
	return c.Neighbours[neighbourIndex(dx, dz)], local
}

// Шесть направлений граней в порядке XN, XP, YN, YP, ZN, ZP
var faceDirections = [block.FaceCount]vec.Vec3{
	{X: -1}, {X: 1}, {Y: -1}, {Y: 1}, {Z: -1}, {Z: 1},
}

// CrossNeighbourBlocks возвращает блоки шести соседей по граням.
// Вне мира или у несвязанного соседа - воздух.
func (c *Chunk) CrossNeighbourBlocks(local vec.Vec3) [block.FaceCount]block.BlockID {
	var out [block.FaceCount]block.BlockID
	for i, d := range faceDirections {
		if nc, nl := c.resolve(local.Add(d)); nc != nil {
			out[i] = nc.BlockAt(nl)
		}
	}
	return out
}

// CrossNeighbourLights возвращает свет шести соседей по граням.
// Выше мира - полный солнечный свет, ниже или у несвязанного соседа - 0.
func (c *Chunk) CrossNeighbourLights(local vec.Vec3) [block.FaceCount]Light {
	var out [block.FaceCount]Light
	for i, d := range faceDirections {
		p := local.Add(d)
		if p.Y >= vec.ChunkSizeY {
			out[i] = NewLight(LightMax, 0)
			continue
		}
		if nc, nl := c.resolve(p); nc != nil {
			out[i] = nc.LightAt(nl)
		}
	}
	return out
}

// Порядок 26 соседей: 6 граней, 12 рёбер (XZ, YZ, XY), 8 углов
var wholeNeighbourOffsets = [26]vec.Vec3{
	// грани
	{X: -1}, {X: 1}, {Y: -1}, {Y: 1}, {Z: -1}, {Z: 1},
	// рёбра XZ
	{X: -1, Z: -1}, {X: 1, Z: -1}, {X: -1, Z: 1}, {X: 1, Z: 1},
	// рёбра YZ
	{Y: -1, Z: -1}, {Y: 1, Z: -1}, {Y: -1, Z: 1}, {Y: 1, Z: 1},
	// рёбра XY
	{X: -1, Y: -1}, {X: 1, Y: -1}, {X: -1, Y: 1}, {X: 1, Y: 1},
	// углы
	{X: -1, Y: -1, Z: -1}, {X: 1, Y: -1, Z: -1}, {X: -1, Y: 1, Z: -1}, {X: 1, Y: 1, Z: -1},
	{X: -1, Y: -1, Z: 1}, {X: 1, Y: -1, Z: 1}, {X: -1, Y: 1, Z: 1}, {X: 1, Y: 1, Z: 1},
}

// WholeNeighbourBlocks возвращает блоки всех 26 соседей вокселя
func (c *Chunk) WholeNeighbourBlocks(local vec.Vec3) [26]block.BlockID {
	var out [26]block.BlockID
	for i, d := range wholeNeighbourOffsets {
		if nc, nl := c.resolve(local.Add(d)); nc != nil {
			out[i] = nc.BlockAt(nl)
		}
	}
	return out
}

// neighbourhood возвращает чанк и его связанных соседей, отсортированных по ID
func (c *Chunk) neighbourhood() []*Chunk {
	chunks := make([]*Chunk, 0, neighbourCount+1)
	chunks = append(chunks, c)
	if c.NeighboursSet() {
		chunks = append(chunks, c.Neighbours[:]...)
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ID.Less(chunks[j].ID) })
	return chunks
}

// lockNeighbourhood блокирует свет чанка и соседей в глобальном порядке ID
func lockNeighbourhood(chunks []*Chunk, write bool) func() {
	for _, ch := range chunks {
		if write {
			ch.lightMu.Lock()
		} else {
			ch.lightMu.RLock()
		}
	}
	return func() {
		for i := len(chunks) - 1; i >= 0; i-- {
			if write {
				chunks[i].lightMu.Unlock()
			} else {
				chunks[i].lightMu.RUnlock()
			}
		}
	}
}

// BlockAtGlobal возвращает блок по глобальной позиции внутри этого чанка
func (c *Chunk) BlockAtGlobal(g vec.Vec3) block.BlockID {
	return c.BlockAt(g.Sub(c.ID.Offset()))
}
