package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/meteorsfall/voxelcraft/internal/vec"
)

// RaycastStep: шаг марша луча в мировых единицах.
// Дальность копания и установки блоков завязана на эту гранулярность.
const RaycastStep = 0.01

// Raycast идёт вдоль нормализованного direction шагами RaycastStep,
// int(maxDistance/RaycastStep) шагов начиная с самого origin.
// Возвращает ячейку первого непустого блока. При wantPrevious возвращается ячейка
// предыдущего отсчёта (куда ставить блок); при попадании на нулевом шаге это ячейка origin.
func (w *World) Raycast(origin, direction mgl64.Vec3, maxDistance float64, wantPrevious bool) (vec.Vec3, bool) {
	if direction.Len() == 0 || maxDistance <= 0 {
		return vec.Vec3{}, false
	}
	dir := direction.Normalize()
	steps := int(maxDistance / RaycastStep)

	prev := origin
	for i := 0; i <= steps; i++ {
		p := origin.Add(dir.Mul(float64(i) * RaycastStep))
		cell := vec.Floor(p)
		if w.GetBlock(cell) != nil {
			w.metrics.Raycast(true)
			if wantPrevious {
				return vec.Floor(prev), true
			}
			return cell, true
		}
		prev = p
	}

	w.metrics.Raycast(false)
	return vec.Vec3{}, false
}
