package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/meteorsfall/voxelcraft/internal/physics"
	"github.com/meteorsfall/voxelcraft/internal/vec"
)

// Collide выталкивает box из всех занятых ячеек в диапазоне floor(min)-1 .. ceil(max).
// Ячейки обходятся по x, затем y, затем z; каждый толчок сразу сдвигает box,
// а итоговый вектор равен простой сумме толчков (в углах возможен двойной толчок).
// onCollide вызывается один раз, если итог ненулевой.
func (w *World) Collide(box physics.AABB, onCollide func(mgl64.Vec3)) (mgl64.Vec3, bool) {
	lo := vec.Floor(box.Min).Sub(vec.Vec3{X: 1, Y: 1, Z: 1})
	hi := vec.Ceil(box.Max)

	var total mgl64.Vec3
	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				cell := vec.Vec3{X: x, Y: y, Z: z}
				if w.GetBlock(cell) == nil {
					continue
				}
				push, ok := physics.UnitCube(cell).Collide(box)
				if !ok {
					continue
				}
				total = total.Add(push)
				box = box.Translate(push)
			}
		}
	}

	moved := total != (mgl64.Vec3{})
	w.metrics.Collision(moved)
	if moved && onCollide != nil {
		onCollide(total)
	}
	return total, moved
}
