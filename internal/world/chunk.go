package world

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/meteorsfall/voxelcraft/internal/vec"
	"github.com/meteorsfall/voxelcraft/internal/world/block"
)

const (
	// ChunkVolume: число ячеек в чанке (16³)
	ChunkVolume = vec.ChunkSize * vec.ChunkSize * vec.ChunkSize

	// BlockRecordSize: 2 байта типа (big-endian) + 1 байт повреждения
	BlockRecordSize = 3

	// SerializedChunkSize: точный размер сериализованного чанка
	SerializedChunkSize = ChunkVolume * BlockRecordSize
)

// NeighborSource отдаёт блок по глобальной координате.
// Нужен чанку, чтобы видеть соседей за своей границей. Реализуется World.
type NeighborSource interface {
	NeighborBlock(pos vec.Vec3) *Block
}

// Chunk: куб 16x16x16 блоков плюс флаг кеша рендера.
// Пустой Chunk (нулевое значение) полностью состоит из воздуха.
type Chunk struct {
	blocks [ChunkVolume]Block
	cached bool
}

// NewChunk создаёт пустой чанк
func NewChunk() *Chunk {
	return &Chunk{}
}

func blockIndex(x, y, z int) int {
	return z*vec.ChunkSize*vec.ChunkSize + y*vec.ChunkSize + x
}

func inChunk(x, y, z int) bool {
	return vec.Vec3{X: x, Y: y, Z: z}.InLocalRange()
}

// Reset возвращает чанк в состояние «весь воздух»
func (c *Chunk) Reset() {
	c.blocks = [ChunkVolume]Block{}
	c.cached = false
}

// SetBlock записывает тип блока, сбрасывая повреждение и кеш граней.
func (c *Chunk) SetBlock(x, y, z int, id block.BlockID) error {
	if !inChunk(x, y, z) {
		return fmt.Errorf("chunk set block (%d, %d, %d): %w", x, y, z, ErrOutOfRange)
	}
	c.blocks[blockIndex(x, y, z)] = Block{Type: id}
	c.cached = false
	return nil
}

// GetBlock возвращает блок или nil, если ячейка пуста либо вне чанка.
// Указатель действителен, пока чанк не переиспользован ареной.
func (c *Chunk) GetBlock(x, y, z int) *Block {
	if !inChunk(x, y, z) {
		return nil
	}
	b := &c.blocks[blockIndex(x, y, z)]
	if b.IsAir() {
		return nil
	}
	return b
}

// SetDamage задаёт повреждение блока, значение обрезается до [0, 1].
func (c *Chunk) SetDamage(x, y, z int, damage float32) error {
	if !inChunk(x, y, z) {
		return fmt.Errorf("chunk set damage (%d, %d, %d): %w", x, y, z, ErrOutOfRange)
	}
	if damage < 0 {
		damage = 0
	} else if damage > 1 {
		damage = 1
	}
	c.blocks[blockIndex(x, y, z)].Damage = damage
	c.cached = false
	return nil
}

// ResetFaces помечает кеш граней ячейки как невычисленный
func (c *Chunk) ResetFaces(x, y, z int) {
	if !inChunk(x, y, z) {
		return
	}
	c.blocks[blockIndex(x, y, z)].Faces = 0
}

// VisibleFaces лениво вычисляет маску видимых граней блока.
// origin: глобальная координата ячейки (0,0,0) чанка; src может быть nil,
// тогда всё за границей чанка считается воздухом.
func (c *Chunk) VisibleFaces(x, y, z int, origin vec.Vec3, src NeighborSource) FaceMask {
	b := c.GetBlock(x, y, z)
	if b == nil {
		return 0
	}
	if b.Faces.Valid() {
		return b.Faces.Visible()
	}

	var mask FaceMask
	for f, off := range vec.FaceOffsets {
		nx, ny, nz := x+off.X, y+off.Y, z+off.Z

		var n *Block
		if inChunk(nx, ny, nz) {
			n = c.GetBlock(nx, ny, nz)
		} else if src != nil {
			n = src.NeighborBlock(origin.Add(vec.Vec3{X: nx, Y: ny, Z: nz}))
		}

		if faceExposed(b, n) {
			mask |= 1 << uint(f)
		}
	}

	b.Faces = mask | FacesValid
	return mask
}

// Грань видна, если сосед является воздухом или прозрачный блок другого типа.
func faceExposed(self, neighbor *Block) bool {
	if neighbor == nil {
		return true
	}
	return neighbor.Type != self.Type && block.IsTransparent(neighbor.Type)
}

// CountSolid возвращает число непустых ячеек
func (c *Chunk) CountSolid() int {
	n := 0
	for i := range c.blocks {
		if !c.blocks[i].IsAir() {
			n++
		}
	}
	return n
}

// InvalidateCache сбрасывает кеш рендера
func (c *Chunk) InvalidateCache() {
	c.cached = false
}

// IsCached сообщает, актуален ли кеш рендера
func (c *Chunk) IsCached() bool {
	return c.cached
}

// MarkCached вызывается рендером после пересборки меша
func (c *Chunk) MarkCached() {
	c.cached = true
}

// quantizeDamage: floor(d*256) mod 256, так что 1.0 кодируется как 0.
func quantizeDamage(d float32) byte {
	q := int(math.Floor(float64(d) * 256))
	return byte(((q % 256) + 256) % 256)
}

// Serialize кодирует чанк ровно в SerializedChunkSize байт.
// Порядок ячеек: индекс k*256 + j*16 + i.
func (c *Chunk) Serialize() []byte {
	buf := make([]byte, SerializedChunkSize)
	c.serializeInto(buf)
	return buf
}

func (c *Chunk) serializeInto(buf []byte) {
	for i := range c.blocks {
		b := &c.blocks[i]
		off := i * BlockRecordSize
		binary.BigEndian.PutUint16(buf[off:], uint16(b.Type))
		buf[off+2] = quantizeDamage(b.Damage)
	}
}

// Deserialize восстанавливает чанк из буфера. При ошибке чанк не меняется.
func (c *Chunk) Deserialize(buf []byte) error {
	if len(buf) != SerializedChunkSize {
		return fmt.Errorf("chunk payload is %d bytes, want %d: %w", len(buf), SerializedChunkSize, ErrCorruptData)
	}
	for i := range c.blocks {
		off := i * BlockRecordSize
		c.blocks[i] = Block{
			Type:   block.BlockID(binary.BigEndian.Uint16(buf[off:])),
			Damage: float32(buf[off+2]) / 256,
		}
	}
	c.cached = false
	return nil
}
