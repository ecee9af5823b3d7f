package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/meteorsfall/voxelcraft/internal/vec"
)

// AABB представляет выровненный по осям параллелепипед.
// Инвариант: Min <= Max покомпонентно; его поддерживают все конструкторы и мутаторы.
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// NewAABB создаёт AABB по двум противоположным углам в любом порядке.
func NewAABB(a, b mgl64.Vec3) AABB {
	return AABB{
		Min: mgl64.Vec3{math.Min(a[0], b[0]), math.Min(a[1], b[1]), math.Min(a[2], b[2])},
		Max: mgl64.Vec3{math.Max(a[0], b[0]), math.Max(a[1], b[1]), math.Max(a[2], b[2])},
	}
}

// UnitCube возвращает AABB ячейки блока pos: [pos, pos+1].
func UnitCube(pos vec.Vec3) AABB {
	min := pos.Float()
	return AABB{Min: min, Max: min.Add(mgl64.Vec3{1, 1, 1})}
}

// Translate сдвигает коробку на d.
func (a AABB) Translate(d mgl64.Vec3) AABB {
	return AABB{Min: a.Min.Add(d), Max: a.Max.Add(d)}
}

// Grow расширяет коробку на r во все стороны (r может быть отрицательным,
// но не больше половины протяжённости).
func (a AABB) Grow(r float64) AABB {
	d := mgl64.Vec3{r, r, r}
	return NewAABB(a.Min.Sub(d), a.Max.Add(d))
}

// Extent возвращает размеры коробки по осям.
func (a AABB) Extent() mgl64.Vec3 {
	return a.Max.Sub(a.Min)
}

// Center возвращает центр коробки.
func (a AABB) Center() mgl64.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// Corners возвращает 8 вершин коробки.
func (a AABB) Corners() [8]mgl64.Vec3 {
	var out [8]mgl64.Vec3
	for i := 0; i < 8; i++ {
		c := a.Min
		if i&1 != 0 {
			c[0] = a.Max[0]
		}
		if i&2 != 0 {
			c[1] = a.Max[1]
		}
		if i&4 != 0 {
			c[2] = a.Max[2]
		}
		out[i] = c
	}
	return out
}

// TestPoint проверяет, лежит ли точка внутри коробки (границы включительно).
func (a AABB) TestPoint(p mgl64.Vec3) bool {
	return p[0] >= a.Min[0] && p[0] <= a.Max[0] &&
		p[1] >= a.Min[1] && p[1] <= a.Max[1] &&
		p[2] >= a.Min[2] && p[2] <= a.Max[2]
}

// TestPlane проверяет пересечение коробки с плоскостью, заданной точкой и нормалью.
// Полупротяжённости проецируются на нормаль и сравниваются с расстоянием от центра.
func (a AABB) TestPlane(point, normal mgl64.Vec3) bool {
	half := a.Extent().Mul(0.5)
	radius := half[0]*math.Abs(normal[0]) + half[1]*math.Abs(normal[1]) + half[2]*math.Abs(normal[2])
	distance := normal.Dot(a.Center().Sub(point))
	return math.Abs(distance) <= radius
}

// TestFrustum: консервативная проверка видимости (Gribb–Hartmann).
// Углы переводятся в clip space матрицей projection*view; коробка отбрасывается,
// только если все 8 углов строго снаружи одной из 6 плоскостей.
// Возможны ложные срабатывания у углов пирамиды, ложных отказов нет.
func (a AABB) TestFrustum(pv mgl64.Mat4) bool {
	var clip [8]mgl64.Vec4
	for i, c := range a.Corners() {
		clip[i] = pv.Mul4x1(c.Vec4(1))
	}

	for axis := 0; axis < 3; axis++ {
		for _, sign := range [2]float64{-1, 1} {
			outside := 0
			for _, p := range clip {
				if sign*p[axis] > p[3] {
					outside++
				}
			}
			if outside == len(clip) {
				return false
			}
		}
	}
	return true
}
