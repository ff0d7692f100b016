package block

import "fmt"

// BlockID представляет идентификатор типа вокселя
type BlockID uint8

// Константы ID блоков
const (
	AirBlockID BlockID = iota
	StoneBlockID
	BedrockBlockID
	DirtBlockID
	GrassBlockID
	SandBlockID
	SnowBlockID
	BrickBlockID
	GlowstoneBlockID
	OakBlockID
	OakLeavesBlockID
	OakWoodBlockID

	blockCount
)

var registry [blockCount]Properties

// Register добавляет свойства блока в регистр
func Register(id BlockID, props Properties) {
	if id >= blockCount {
		panic(fmt.Sprintf("block: id %d вне диапазона", id))
	}
	registry[id] = props
}

// Get возвращает свойства блока; неизвестный ID ведёт себя как воздух
func Get(id BlockID) Properties {
	if id >= blockCount {
		return registry[AirBlockID]
	}
	return registry[id]
}

// IsValidBlockID проверяет, является ли ID допустимым идентификатором блока
func IsValidBlockID(id BlockID) bool {
	return id < blockCount
}

// IsOpaque возвращает true для блоков, которые не пропускают свет
func (id BlockID) IsOpaque() bool {
	return Get(id).Opaque
}

// IsTransparent возвращает true для воздуха и листвы
func (id BlockID) IsTransparent() bool {
	return !id.IsOpaque()
}

// Emission возвращает уровень точечного света, испускаемого блоком
func (id BlockID) Emission() uint8 {
	return Get(id).Emission
}

// String возвращает имя блока
func (id BlockID) String() string {
	if !IsValidBlockID(id) {
		return fmt.Sprintf("BlockID(%d)", uint8(id))
	}
	return Get(id).Name
}
