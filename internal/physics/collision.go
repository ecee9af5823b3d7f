package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// IsColliding проверяет пересечение двух коробок.
// Неравенства строгие: коробки, касающиеся гранью, не сталкиваются.
func (a AABB) IsColliding(other AABB) bool {
	return a.Min[0] < other.Max[0] && a.Max[0] > other.Min[0] &&
		a.Min[1] < other.Max[1] && a.Max[1] > other.Min[1] &&
		a.Min[2] < other.Max[2] && a.Max[2] > other.Min[2]
}

// Collide возвращает минимальный вектор, на который нужно сдвинуть other,
// чтобы он перестал пересекаться с a.
//
// Кандидаты проверяются в порядке -x, +x, -y, +y, -z, +z. Кандидат допустим,
// только если расстояние положительно и строго меньше протяжённости a по этой оси.
// При равенстве выигрывает более ранний кандидат. Если ни один кандидат не
// допустим, возвращается false даже при пересечении, и это штатная ситуация.
func (a AABB) Collide(other AABB) (mgl64.Vec3, bool) {
	if !a.IsColliding(other) {
		return mgl64.Vec3{}, false
	}

	extent := a.Extent()
	best := math.Inf(1)
	var push mgl64.Vec3
	found := false

	for axis := 0; axis < 3; axis++ {
		// -axis: other уходит за нижнюю грань a
		neg := other.Max[axis] - a.Min[axis]
		// +axis: other уходит за верхнюю грань a
		pos := a.Max[axis] - other.Min[axis]

		if neg > 0 && neg < extent[axis] && neg < best {
			best = neg
			push = mgl64.Vec3{}
			push[axis] = -neg
			found = true
		}
		if pos > 0 && pos < extent[axis] && pos < best {
			best = pos
			push = mgl64.Vec3{}
			push[axis] = pos
			found = true
		}
	}

	if !found {
		return mgl64.Vec3{}, false
	}
	return push, true
}
