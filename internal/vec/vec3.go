package vec

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ChunkSize: длина ребра чанка и мегачанка в ячейках.
const ChunkSize = 16

// Vec3 представляет трехмерный вектор с целочисленными координатами.
// Используется для глобальных координат блоков, чанков и мегачанков.
type Vec3 struct {
	X int
	Y int
	Z int
}

// Направления шести соседей в порядке -x, +x, -y, +y, -z, +z.
var FaceOffsets = [6]Vec3{
	{X: -1}, {X: 1},
	{Y: -1}, {Y: 1},
	{Z: -1}, {Z: 1},
}

// FloorDiv выполняет деление с округлением вниз (b > 0).
// В отличие от оператора `/` для отрицательных a результат не «подтягивается» к нулю.
func FloorDiv(a, b int) int {
	q := a / b
	if a%b < 0 {
		q--
	}
	return q
}

// Mod возвращает евклидов остаток, всегда в диапазоне [0, b).
func Mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
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
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Scale умножает все компоненты на скаляр
func (v Vec3) Scale(k int) Vec3 {
	return Vec3{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// FloorDiv делит каждую компоненту с округлением вниз.
func (v Vec3) FloorDiv(b int) Vec3 {
	return Vec3{X: FloorDiv(v.X, b), Y: FloorDiv(v.Y, b), Z: FloorDiv(v.Z, b)}
}

// Mod берёт евклидов остаток по каждой компоненте.
func (v Vec3) Mod(b int) Vec3 {
	return Vec3{X: Mod(v.X, b), Y: Mod(v.Y, b), Z: Mod(v.Z, b)}
}

// ToChunkCoords преобразует глобальные координаты блока в координаты чанка
func (v Vec3) ToChunkCoords() Vec3 {
	return v.FloorDiv(ChunkSize)
}

// ToMegaChunkCoords преобразует координаты чанка в координаты мегачанка
func (v Vec3) ToMegaChunkCoords() Vec3 {
	return v.FloorDiv(ChunkSize)
}

// LocalInChunk возвращает локальные координаты внутри родителя (0..15)
func (v Vec3) LocalInChunk() Vec3 {
	return v.Mod(ChunkSize)
}

// InLocalRange проверяет, что все компоненты лежат в [0, ChunkSize).
func (v Vec3) InLocalRange() bool {
	return v.X >= 0 && v.X < ChunkSize &&
		v.Y >= 0 && v.Y < ChunkSize &&
		v.Z >= 0 && v.Z < ChunkSize
}

// Float переводит вектор в mgl64.Vec3
func (v Vec3) Float() mgl64.Vec3 {
	return mgl64.Vec3{float64(v.X), float64(v.Y), float64(v.Z)}
}

// DistanceTo возвращает квадрат расстояния до другого вектора
func (v Vec3) DistanceTo(other Vec3) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return float64(dx*dx + dy*dy + dz*dz)
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%d,%d,%d)", v.X, v.Y, v.Z)
}

// Floor возвращает ячейку, содержащую точку p.
func Floor(p mgl64.Vec3) Vec3 {
	return Vec3{
		X: int(math.Floor(p[0])),
		Y: int(math.Floor(p[1])),
		Z: int(math.Floor(p[2])),
	}
}

// Ceil округляет каждую компоненту вверх.
func Ceil(p mgl64.Vec3) Vec3 {
	return Vec3{
		X: int(math.Ceil(p[0])),
		Y: int(math.Ceil(p[1])),
		Z: int(math.Ceil(p[2])),
	}
}
