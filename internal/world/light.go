package world

// Light упакованный уровень освещения вокселя:
// младший полубайт - солнечный свет, старший - точечный.
type Light uint8

const (
	LightMin uint8 = 0
	LightMax uint8 = 15
)

// NewLight упаковывает солнечный и точечный уровни
func NewLight(sky, point uint8) Light {
	return Light(sky&0x0F | (point&0x0F)<<4)
}

// Sky возвращает уровень солнечного света
func (l Light) Sky() uint8 { return uint8(l) & 0x0F }

// Point возвращает уровень точечного света
func (l Light) Point() uint8 { return uint8(l) >> 4 }

// WithSky возвращает копию с новым солнечным уровнем
func (l Light) WithSky(v uint8) Light { return Light(uint8(l)&0xF0 | v&0x0F) }

// WithPoint возвращает копию с новым точечным уровнем
func (l Light) WithPoint(v uint8) Light { return Light(uint8(l)&0x0F | (v&0x0F)<<4) }

// Channel канал освещения
type Channel uint8

const (
	ChannelSky Channel = iota
	ChannelPoint
)

func (ch Channel) String() string {
	if ch == ChannelSky {
		return "sky"
	}
	return "point"
}

// Get возвращает уровень канала
func (l Light) Get(ch Channel) uint8 {
	if ch == ChannelSky {
		return l.Sky()
	}
	return l.Point()
}

// With возвращает копию с новым уровнем канала
func (l Light) With(ch Channel, v uint8) Light {
	if ch == ChannelSky {
		return l.WithSky(v)
	}
	return l.WithPoint(v)
}
