package block

// Face обозначает грань куба в порядке XN, XP, YN, YP, ZN, ZP
type Face uint8

const (
	FaceXN Face = iota
	FaceXP
	FaceYN
	FaceYP
	FaceZN
	FaceZP

	FaceCount = 6
)

// AtlasSize количество тайлов по каждой оси текстурного атласа
const AtlasSize = 16

// Tile координаты тайла в атласе 16x16
type Tile struct {
	S, T uint8
}

// Properties статические свойства типа блока
type Properties struct {
	Name     string
	Opaque   bool
	Emission uint8 // уровень точечного света (0 - не светится)
	Tiles    [FaceCount]Tile
}

// uniform возвращает одинаковый тайл на всех гранях
func uniform(s, t uint8) [FaceCount]Tile {
	var tiles [FaceCount]Tile
	for i := range tiles {
		tiles[i] = Tile{S: s, T: t}
	}
	return tiles
}

// sided возвращает тайлы для блоков с разными боковыми, нижней и верхней гранями
func sided(side, bottom, top Tile) [FaceCount]Tile {
	return [FaceCount]Tile{side, side, bottom, top, side, side}
}

// TileFor возвращает тайл атласа для грани блока
func (id BlockID) TileFor(face Face) Tile {
	return Get(id).Tiles[face]
}

func init() {
	Register(AirBlockID, Properties{Name: "air", Tiles: uniform(0, 0)})
	Register(StoneBlockID, Properties{Name: "stone", Opaque: true, Tiles: uniform(1, 0)})
	Register(BedrockBlockID, Properties{Name: "bedrock", Opaque: true, Tiles: uniform(2, 0)})
	Register(DirtBlockID, Properties{Name: "dirt", Opaque: true, Tiles: uniform(3, 0)})
	Register(GrassBlockID, Properties{
		Name:   "grass",
		Opaque: true,
		Tiles:  sided(Tile{S: 4, T: 1}, Tile{S: 4, T: 0}, Tile{S: 4, T: 2}),
	})
	Register(SandBlockID, Properties{Name: "sand", Opaque: true, Tiles: uniform(5, 0)})
	Register(SnowBlockID, Properties{Name: "snow", Opaque: true, Tiles: uniform(6, 0)})
	Register(BrickBlockID, Properties{Name: "brick", Opaque: true, Tiles: uniform(7, 0)})
	Register(GlowstoneBlockID, Properties{Name: "glowstone", Opaque: true, Emission: 14, Tiles: uniform(8, 0)})
	Register(OakBlockID, Properties{
		Name:   "oak",
		Opaque: true,
		Tiles:  sided(Tile{S: 9, T: 1}, Tile{S: 9, T: 0}, Tile{S: 9, T: 2}),
	})
	// Листва прозрачна для света и соседних граней
	Register(OakLeavesBlockID, Properties{Name: "oak_leaves", Tiles: uniform(10, 0)})
	Register(OakWoodBlockID, Properties{Name: "oak_wood", Opaque: true, Tiles: uniform(11, 0)})
}
