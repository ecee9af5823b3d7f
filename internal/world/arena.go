package world

import (
	"fmt"

	"github.com/meteorsfall/voxelcraft/internal/logging"
)

// ChunkHandle: индекс слота в ChunkArena
type ChunkHandle int32

// NoChunk обозначает пустой слот мегачанка
const NoChunk ChunkHandle = -1

// arenaPageSize: число чанков в одной странице арены.
// Страницы не перемещаются при росте, поэтому *ChunkData остаётся на месте.
const arenaPageSize = 16

// ChunkData: запись арены: чанк и его метаданные для генератора и рендера.
type ChunkData struct {
	Chunk       Chunk
	Generated   bool   // Генератор уже заполнил чанк
	Priority    int    // Приоритет загрузки/перестроения
	LastTouched uint64 // Тик последнего изменения
}

func (d *ChunkData) reset() {
	d.Chunk.Reset()
	d.Generated = false
	d.Priority = 0
	d.LastTouched = 0
}

// ChunkArena: пул чанков с переиспользованием через список свободных слотов.
// Не потокобезопасна.
type ChunkArena struct {
	pages     []*[arenaPageSize]ChunkData
	allocated []bool
	free      []ChunkHandle
	live      int

	logger *logging.Logger
}

// NewChunkArena создаёт пустую арену. logger может быть nil.
func NewChunkArena(logger *logging.Logger) *ChunkArena {
	return &ChunkArena{logger: logger}
}

// Allocate выдаёт свободный слот: сначала из списка свободных, иначе новый.
// Переиспользованный слот очищается здесь, а не в Free.
func (a *ChunkArena) Allocate() ChunkHandle {
	a.live++

	if n := len(a.free); n > 0 {
		h := a.free[n-1]
		a.free = a.free[:n-1]
		a.allocated[h] = true
		a.slot(h).reset()
		return h
	}

	h := ChunkHandle(len(a.allocated))
	if int(h)%arenaPageSize == 0 {
		a.pages = append(a.pages, new([arenaPageSize]ChunkData))
	}
	a.allocated = append(a.allocated, true)
	return h
}

func (a *ChunkArena) slot(h ChunkHandle) *ChunkData {
	return &a.pages[int(h)/arenaPageSize][int(h)%arenaPageSize]
}

// Get возвращает данные слота. Неверный дескриптор считается ошибкой программиста и вызывает панику.
func (a *ChunkArena) Get(h ChunkHandle) *ChunkData {
	if h < 0 || int(h) >= len(a.allocated) {
		panic(fmt.Sprintf("chunk arena: handle %d out of range [0, %d)", h, len(a.allocated)))
	}
	if !a.allocated[h] {
		panic(fmt.Sprintf("chunk arena: handle %d is not allocated", h))
	}
	return a.slot(h)
}

// Free возвращает слот в список свободных. Повторное освобождение игнорируется.
func (a *ChunkArena) Free(h ChunkHandle) {
	if h < 0 || int(h) >= len(a.allocated) {
		a.logger.Error("Освобождение несуществующего чанка %d", h)
		return
	}
	if !a.allocated[h] {
		a.logger.Warn("Повторное освобождение чанка %d", h)
		return
	}
	a.allocated[h] = false
	a.free = append(a.free, h)
	a.live--
}

// ClearAll освобождает все занятые слоты, память страниц сохраняется.
func (a *ChunkArena) ClearAll() {
	for i, used := range a.allocated {
		if used {
			a.allocated[i] = false
			a.free = append(a.free, ChunkHandle(i))
		}
	}
	a.live = 0
}

// Len: ёмкость арены (занятые + свободные слоты)
func (a *ChunkArena) Len() int {
	return len(a.allocated)
}

// Live: число занятых слотов
func (a *ChunkArena) Live() int {
	return a.live
}

// FreeCount: длина списка свободных слотов
func (a *ChunkArena) FreeCount() int {
	return len(a.free)
}
