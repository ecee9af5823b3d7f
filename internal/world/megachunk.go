package world

import (
	"fmt"

	"github.com/meteorsfall/voxelcraft/internal/vec"
)

const (
	// MegaChunkHeaderSize: байт знаков + три 3-байтовых модуля координат
	MegaChunkHeaderSize = 10

	// ChunkRecordSize: флаг генерации, i, j, k и полезная нагрузка чанка
	ChunkRecordSize = 4 + SerializedChunkSize

	// maxMegaCoord: максимальный модуль координаты, помещающийся в 3 байта
	maxMegaCoord = 1<<24 - 1
)

// MegaChunk: разреженная сетка 16x16x16 дескрипторов чанков.
type MegaChunk struct {
	coord vec.Vec3
	slots [ChunkVolume]ChunkHandle
	count int
	arena *ChunkArena
}

// NewMegaChunk создаёт пустой мегачанк с координатой coord
func NewMegaChunk(coord vec.Vec3, arena *ChunkArena) *MegaChunk {
	m := &MegaChunk{coord: coord, arena: arena}
	for i := range m.slots {
		m.slots[i] = NoChunk
	}
	return m
}

// Coord возвращает координату мегачанка
func (m *MegaChunk) Coord() vec.Vec3 {
	return m.coord
}

// ChunkCount возвращает число созданных чанков
func (m *MegaChunk) ChunkCount() int {
	return m.count
}

func slotIndex(local vec.Vec3) int {
	return blockIndex(local.X, local.Y, local.Z)
}

func slotLocal(i int) vec.Vec3 {
	return vec.Vec3{X: i % vec.ChunkSize, Y: (i / vec.ChunkSize) % vec.ChunkSize, Z: i / (vec.ChunkSize * vec.ChunkSize)}
}

// CreateChunk выделяет чанк для абсолютной координаты чанка absChunk.
func (m *MegaChunk) CreateChunk(absChunk vec.Vec3) (*ChunkData, error) {
	if owner := absChunk.FloorDiv(vec.ChunkSize); owner != m.coord {
		return nil, fmt.Errorf("chunk %s belongs to megachunk %s, not %s: %w", absChunk, owner, m.coord, ErrOutOfRange)
	}
	idx := slotIndex(absChunk.Mod(vec.ChunkSize))
	if m.slots[idx] != NoChunk {
		return nil, fmt.Errorf("create chunk %s: %w", absChunk, ErrChunkExists)
	}

	h := m.arena.Allocate()
	m.slots[idx] = h
	m.count++
	return m.arena.Get(h), nil
}

// GetChunk возвращает чанк по локальной координате или nil
func (m *MegaChunk) GetChunk(local vec.Vec3) *ChunkData {
	if !local.InLocalRange() {
		return nil
	}
	h := m.slots[slotIndex(local)]
	if h == NoChunk {
		return nil
	}
	return m.arena.Get(h)
}

// ForEachChunk обходит созданные чанки в порядке слотов
func (m *MegaChunk) ForEachChunk(fn func(local vec.Vec3, data *ChunkData)) {
	for i, h := range m.slots {
		if h != NoChunk {
			fn(slotLocal(i), m.arena.Get(h))
		}
	}
}

// Release возвращает все чанки в арену и опустошает мегачанк
func (m *MegaChunk) Release() {
	for i, h := range m.slots {
		if h != NoChunk {
			m.arena.Free(h)
			m.slots[i] = NoChunk
		}
	}
	m.count = 0
}

// Serialize кодирует мегачанк: заголовок и по записи на каждый занятый слот.
func (m *MegaChunk) Serialize() ([]byte, error) {
	header, err := encodeMegaHeader(m.coord)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, MegaChunkHeaderSize+m.count*ChunkRecordSize)
	copy(buf, header[:])

	off := MegaChunkHeaderSize
	m.ForEachChunk(func(local vec.Vec3, data *ChunkData) {
		if data.Generated {
			buf[off] = 1
		}
		buf[off+1] = byte(local.X)
		buf[off+2] = byte(local.Y)
		buf[off+3] = byte(local.Z)
		data.Chunk.serializeInto(buf[off+4 : off+ChunkRecordSize])
		off += ChunkRecordSize
	})
	return buf, nil
}

func encodeMegaHeader(c vec.Vec3) ([MegaChunkHeaderSize]byte, error) {
	var h [MegaChunkHeaderSize]byte
	for axis, v := range [3]int{c.X, c.Y, c.Z} {
		if v < 0 {
			h[0] |= 1 << uint(2-axis)
			v = -v
		}
		if v > maxMegaCoord {
			return h, fmt.Errorf("megachunk %s does not fit the header: %w", c, ErrOutOfRange)
		}
		off := 1 + axis*3
		h[off] = byte(v >> 16)
		h[off+1] = byte(v >> 8)
		h[off+2] = byte(v)
	}
	return h, nil
}

func decodeMegaHeader(buf []byte) vec.Vec3 {
	var out [3]int
	for axis := range out {
		off := 1 + axis*3
		v := int(buf[off])<<16 | int(buf[off+1])<<8 | int(buf[off+2])
		if buf[0]&(1<<uint(2-axis)) != 0 {
			v = -v
		}
		out[axis] = v
	}
	return vec.Vec3{X: out[0], Y: out[1], Z: out[2]}
}

// chunkRecord: разобранная, но ещё не размещённая запись чанка
type chunkRecord struct {
	local     vec.Vec3
	generated bool
	payload   []byte
}

// parseMegaChunk полностью проверяет буфер, ничего не выделяя в арене.
func parseMegaChunk(buf []byte) (vec.Vec3, []chunkRecord, error) {
	if len(buf) < MegaChunkHeaderSize {
		return vec.Vec3{}, nil, fmt.Errorf("megachunk buffer is %d bytes, shorter than header: %w", len(buf), ErrCorruptData)
	}
	body := len(buf) - MegaChunkHeaderSize
	if body%ChunkRecordSize != 0 {
		return vec.Vec3{}, nil, fmt.Errorf("megachunk body of %d bytes is not a multiple of %d: %w", body, ChunkRecordSize, ErrCorruptData)
	}

	coord := decodeMegaHeader(buf)
	records := make([]chunkRecord, 0, body/ChunkRecordSize)
	var seen [ChunkVolume]bool

	for off := MegaChunkHeaderSize; off < len(buf); off += ChunkRecordSize {
		local := vec.Vec3{X: int(buf[off+1]), Y: int(buf[off+2]), Z: int(buf[off+3])}
		if !local.InLocalRange() {
			return vec.Vec3{}, nil, fmt.Errorf("megachunk %s: chunk index %s: %w", coord, local, ErrCorruptData)
		}
		idx := slotIndex(local)
		if seen[idx] {
			return vec.Vec3{}, nil, fmt.Errorf("megachunk %s: duplicate chunk %s: %w", coord, local, ErrCorruptData)
		}
		seen[idx] = true

		records = append(records, chunkRecord{
			local:     local,
			generated: buf[off] != 0,
			payload:   buf[off+4 : off+ChunkRecordSize],
		})
	}
	return coord, records, nil
}

// DeserializeMegaChunk разбирает буфер и размещает чанки в arena.
// Повреждённый буфер не выделяет ни одного слота.
func DeserializeMegaChunk(buf []byte, arena *ChunkArena) (*MegaChunk, error) {
	coord, records, err := parseMegaChunk(buf)
	if err != nil {
		return nil, err
	}
	return placeMegaChunk(coord, records, arena), nil
}

// placeMegaChunk размещает проверенные записи в arena
func placeMegaChunk(coord vec.Vec3, records []chunkRecord, arena *ChunkArena) *MegaChunk {
	m := NewMegaChunk(coord, arena)
	for _, rec := range records {
		h := arena.Allocate()
		data := arena.Get(h)
		// Длина payload проверена в parseMegaChunk
		_ = data.Chunk.Deserialize(rec.payload)
		data.Generated = rec.generated
		m.slots[slotIndex(rec.local)] = h
		m.count++
	}
	return m
}
