package vec

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Размеры чанка в блоках
const (
	ChunkSizeX = 16
	ChunkSizeY = 256
	ChunkSizeZ = 16

	// SeaLevel уровень моря, от него считается высота рельефа
	SeaLevel = 64
)

// ChunkID идентифицирует столбец чанка на плоскости XZ (Y всегда 0)
type ChunkID struct {
	X int
	Z int
}

// Offset возвращает глобальные координаты угла чанка (id * размер чанка)
func (id ChunkID) Offset() Vec3 {
	return Vec3{X: id.X * ChunkSizeX, Y: 0, Z: id.Z * ChunkSizeZ}
}

// Add сдвигает идентификатор на dx, dz чанков
func (id ChunkID) Add(dx, dz int) ChunkID {
	return ChunkID{X: id.X + dx, Z: id.Z + dz}
}

// Distance возвращает расстояние Чебышёва в чанках (номер кольца)
func (id ChunkID) Distance(other ChunkID) int {
	dx := id.X - other.X
	if dx < 0 {
		dx = -dx
	}
	dz := id.Z - other.Z
	if dz < 0 {
		dz = -dz
	}
	if dx > dz {
		return dx
	}
	return dz
}

// Less задаёт глобальный порядок идентификаторов (сначала X, потом Z)
func (id ChunkID) Less(other ChunkID) bool {
	if id.X != other.X {
		return id.X < other.X
	}
	return id.Z < other.Z
}

// floorDiv делит с округлением к минус бесконечности
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// ChunkIDFromGlobal возвращает чанк, содержащий глобальную позицию
func ChunkIDFromGlobal(g Vec3) ChunkID {
	return ChunkID{X: floorDiv(g.X, ChunkSizeX), Z: floorDiv(g.Z, ChunkSizeZ)}
}

// LocalFromGlobal переводит глобальную позицию в локальную внутри её чанка
func LocalFromGlobal(g Vec3) Vec3 {
	return g.Sub(ChunkIDFromGlobal(g).Offset())
}

// GlobalFromPosition округляет вещественную позицию вниз до блока
func GlobalFromPosition(p mgl32.Vec3) Vec3 {
	return Vec3{
		X: int(math.Floor(float64(p.X()))),
		Y: int(math.Floor(float64(p.Y()))),
		Z: int(math.Floor(float64(p.Z()))),
	}
}

// ChunkIDFromPosition возвращает чанк под точкой обзора
func ChunkIDFromPosition(p mgl32.Vec3) ChunkID {
	return ChunkIDFromGlobal(GlobalFromPosition(p))
}

// InBounds проверяет, что локальные координаты лежат внутри чанка
func InBounds(local Vec3) bool {
	return local.X >= 0 && local.X < ChunkSizeX &&
		local.Y >= 0 && local.Y < ChunkSizeY &&
		local.Z >= 0 && local.Z < ChunkSizeZ
}
