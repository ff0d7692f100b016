package world

import (
	"github.com/annel0/voxelstream/internal/vec"
	"github.com/annel0/voxelstream/internal/world/block"
	"github.com/gammazero/deque"
)

// LightNode воксель в очереди распространения
type LightNode struct {
	Chunk *Chunk
	Local vec.Vec3
}

// LightRemovalNode воксель в очереди удаления вместе с уровнем, который у него был
type LightRemovalNode struct {
	Chunk *Chunk
	Local vec.Vec3
	Light uint8
}

// ChunkScope множество чанков, в которые разрешено писать свет; nil - без ограничений
type ChunkScope map[*Chunk]struct{}

// NewChunkScope собирает область из списка чанков
func NewChunkScope(chunks ...*Chunk) ChunkScope {
	s := make(ChunkScope, len(chunks))
	for _, c := range chunks {
		s[c] = struct{}{}
	}
	return s
}

func (s ChunkScope) contains(c *Chunk) bool {
	if s == nil {
		return true
	}
	_, ok := s[c]
	return ok
}

// LightPropagator заливка одного канала освещения очередями в ширину.
// Вызывающий держит блокировки на запись всех чанков области.
type LightPropagator struct {
	channel   Channel
	scope     ChunkScope
	additions deque.Deque[LightNode]
	removals  deque.Deque[LightRemovalNode]
	touched   map[*Chunk]struct{}
}

// NewLightPropagator создаёт распространитель для канала в заданной области
func NewLightPropagator(ch Channel, scope ChunkScope) *LightPropagator {
	return &LightPropagator{
		channel: ch,
		scope:   scope,
		touched: make(map[*Chunk]struct{}),
	}
}

func (p *LightPropagator) set(c *Chunk, local vec.Vec3, v uint8) {
	c.setChannelAt(local, p.channel, v)
	p.touched[c] = struct{}{}
}

// Seed выставляет уровень вокселю и ставит его в очередь распространения
func (p *LightPropagator) Seed(c *Chunk, local vec.Vec3, level uint8) {
	p.set(c, local, level)
	p.additions.PushBack(LightNode{Chunk: c, Local: local})
}

// Enqueue ставит воксель с текущим уровнем в очередь распространения
func (p *LightPropagator) Enqueue(c *Chunk, local vec.Vec3) {
	p.additions.PushBack(LightNode{Chunk: c, Local: local})
}

// Remove гасит воксель и ставит его в очередь удаления
func (p *LightPropagator) Remove(c *Chunk, local vec.Vec3) {
	v := c.channelAt(local, p.channel)
	p.set(c, local, LightMin)
	p.removals.PushBack(LightRemovalNode{Chunk: c, Local: local, Light: v})
}

// step возвращает соседа по грани, если он существует и входит в область
func (p *LightPropagator) step(c *Chunk, local vec.Vec3, face int) (*Chunk, vec.Vec3, bool) {
	nc, nl := c.resolve(local.Add(faceDirections[face]))
	if nc == nil || !p.scope.contains(nc) {
		return nil, nl, false
	}
	return nc, nl, true
}

// Propagate опустошает очередь распространения. Сосед получает L-1, если он
// прозрачен и его уровень ниже; солнечный свет 15 идёт вниз через прозрачные
// блоки без потерь.
func (p *LightPropagator) Propagate() {
	for p.additions.Len() > 0 {
		n := p.additions.PopFront()
		level := n.Chunk.channelAt(n.Local, p.channel)
		if level <= 1 {
			continue
		}

		for face := range faceDirections {
			nc, nl, ok := p.step(n.Chunk, n.Local, face)
			if !ok {
				continue
			}
			b := nc.BlockAt(nl)
			if b.IsOpaque() {
				continue
			}

			target := level - 1
			if p.channel == ChannelSky && face == int(block.FaceYN) && level == LightMax {
				target = LightMax
			}
			if nc.channelAt(nl, p.channel) >= target {
				continue
			}

			p.set(nc, nl, target)
			p.additions.PushBack(LightNode{Chunk: nc, Local: nl})
		}
	}
}

// Unpropagate опустошает очередь удаления: гасит всё, что было освещено
// удалёнными вокселями, и перезаливает область от оставшихся источников.
func (p *LightPropagator) Unpropagate() {
	for p.removals.Len() > 0 {
		r := p.removals.PopFront()

		for face := range faceDirections {
			nc, nl, ok := p.step(r.Chunk, r.Local, face)
			if !ok {
				continue
			}
			v := nc.channelAt(nl, p.channel)

			if p.channel == ChannelSky && face == int(block.FaceYN) && r.Light == LightMax && v == LightMax {
				p.set(nc, nl, LightMin)
				p.removals.PushBack(LightRemovalNode{Chunk: nc, Local: nl, Light: LightMax})
				continue
			}

			if v != 0 && v < r.Light {
				p.set(nc, nl, LightMin)
				p.removals.PushBack(LightRemovalNode{Chunk: nc, Local: nl, Light: v})
			} else if v >= r.Light {
				p.additions.PushBack(LightNode{Chunk: nc, Local: nl})
			}
		}
	}
	p.Propagate()
}

// Touched возвращает чанки, в которые писал распространитель
func (p *LightPropagator) Touched() []*Chunk {
	out := make([]*Chunk, 0, len(p.touched))
	for c := range p.touched {
		out = append(out, c)
	}
	return out
}

// Flush увеличивает версию хранилища каждого изменённого чанка
func (p *LightPropagator) Flush() {
	for c := range p.touched {
		c.touch()
	}
	clear(p.touched)
}

// LightLocal освещает чанк без учёта соседей: солнечный свет 15 над рельефом
// и точечный свет светящихся блоков. Свет за границу чанка не выходит.
func LightLocal(c *Chunk) {
	c.lightMu.Lock()
	defer c.lightMu.Unlock()

	scope := NewChunkScope(c)
	sky := NewLightPropagator(ChannelSky, scope)
	point := NewLightPropagator(ChannelPoint, scope)

	for z := 0; z < vec.ChunkSizeZ; z++ {
		for x := 0; x < vec.ChunkSizeX; x++ {
			h := int(c.HeightAt(x, z))
			for y := vec.ChunkSizeY - 1; y > h; y-- {
				sky.Seed(c, vec.Vec3{X: x, Y: y, Z: z}, LightMax)
			}
			for y := 0; y <= h; y++ {
				local := vec.Vec3{X: x, Y: y, Z: z}
				if e := c.BlockAt(local).Emission(); e > 0 {
					point.Seed(c, local, e)
				}
			}
		}
	}

	sky.Propagate()
	point.Propagate()
	sky.Flush()
	point.Flush()
}

// LightNeighbours переносит свет через границы чанка: источниками служат
// граничные слои чанка и обращённые к нему слои четырёх соседей по граням.
// Запись ограничена окрестностью 3x3, все девять чанков заблокированы на запись.
// Соседи по граням тоже должны быть связаны со своими соседями: свет из их
// граничного слоя идёт в c через их ссылки на соседей.
func LightNeighbours(c *Chunk) {
	chunks := c.neighbourhood()
	unlock := lockNeighbourhood(chunks, true)
	defer unlock()

	scope := NewChunkScope(chunks...)
	props := [2]*LightPropagator{
		NewLightPropagator(ChannelSky, scope),
		NewLightPropagator(ChannelPoint, scope),
	}

	enqueue := func(owner *Chunk, x, z int) {
		for y := 0; y < vec.ChunkSizeY; y++ {
			local := vec.Vec3{X: x, Y: y, Z: z}
			l := owner.LightAt(local)
			for _, p := range props {
				if l.Get(p.channel) > 1 {
					p.Enqueue(owner, local)
				}
			}
		}
	}

	const last = vec.ChunkSizeX - 1
	for i := 0; i < vec.ChunkSizeX; i++ {
		// собственные граничные слои
		enqueue(c, 0, i)
		enqueue(c, last, i)
		enqueue(c, i, 0)
		enqueue(c, i, last)

		if c.NeighboursSet() {
			enqueue(c.Neighbours[NeighbourXN], last, i)
			enqueue(c.Neighbours[NeighbourXP], 0, i)
			enqueue(c.Neighbours[NeighbourZN], i, last)
			enqueue(c.Neighbours[NeighbourZP], i, 0)
		}
	}

	for _, p := range props {
		p.Propagate()
		p.Flush()
	}
}
