package world

import (
	"github.com/meteorsfall/voxelcraft/internal/world/block"
)

// Face: индекс грани блока в порядке -x, +x, -y, +y, -z, +z (как vec.FaceOffsets).
type Face int

const (
	FaceNegX Face = iota
	FacePosX
	FaceNegY
	FacePosY
	FaceNegZ
	FacePosZ

	FaceCount // всегда последний
)

// FaceMask кеширует видимость граней. Биты 0..5 отмечают видимые грани, бит 6 означает валидный кеш.
type FaceMask uint8

const (
	FacesAll   FaceMask = 0x3F
	FacesValid FaceMask = 1 << 6
)

// Valid сообщает, вычислен ли кеш.
func (m FaceMask) Valid() bool {
	return m&FacesValid != 0
}

// Has проверяет видимость грани.
func (m FaceMask) Has(f Face) bool {
	return m&(1<<uint(f)) != 0
}

// Visible возвращает только биты граней, без флага валидности.
func (m FaceMask) Visible() FaceMask {
	return m & FacesAll
}

// Block представляет собой ячейку чанка.
// Идентичности у блока нет: он определяется позицией в сетке.
type Block struct {
	Type   block.BlockID // Идентификатор типа блока (0 = воздух)
	Damage float32       // Доля «выкопанности», 0..1
	Faces  FaceMask      // Кеш видимых граней для рендера
}

// IsAir возвращает true для пустой ячейки
func (b *Block) IsAir() bool {
	return b.Type == block.AirBlockID
}

// Properties возвращает свойства типа блока из регистра
func (b *Block) Properties() (block.Properties, bool) {
	return block.Get(b.Type)
}
