package vec

// Vec3 представляет трехмерный вектор с целочисленными координатами
type Vec3 struct {
	X int
	Y int
	Z int
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Sub вычитает вектор
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{
		X: v.X - other.X,
		Y: v.Y - other.Y,
		Z: v.Z - other.Z,
	}
}
