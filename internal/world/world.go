package world

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/meteorsfall/voxelcraft/internal/logging"
	"github.com/meteorsfall/voxelcraft/internal/vec"
	"github.com/meteorsfall/voxelcraft/internal/world/block"
)

// World: разреженный бесконечный мир: мегачанки по координате и собственная арена чанков.
// World не потокобезопасен: владелец обязан сериализовать доступ сам.
type World struct {
	megachunks map[vec.Vec3]*MegaChunk // Загруженные мегачанки
	arena      *ChunkArena             // Хранилище всех чанков мира

	seed        int64     // Сид генератора, пишется в манифест
	id          string    // Идентификатор мира (uuid)
	createdAt   time.Time // Время создания мира
	currentTick uint64    // Текущий тик, проставляется в LastTouched
	compression string    // Сжатие записей архива при Save

	logger  *logging.Logger
	metrics Metrics
}

// Option настраивает World при создании
type Option func(*World)

// WithLogger задаёт логгер мира
func WithLogger(l *logging.Logger) Option {
	return func(w *World) { w.logger = l }
}

// WithMetrics подключает сборщик метрик
func WithMetrics(m Metrics) Option {
	return func(w *World) {
		if m != nil {
			w.metrics = m
		}
	}
}

// WithCompression задаёт метод сжатия архива: "deflate" или "zstd"
func WithCompression(method string) Option {
	return func(w *World) { w.compression = method }
}

// NewWorld создаёт пустой мир с указанным сидом
func NewWorld(seed int64, opts ...Option) *World {
	w := &World{
		megachunks: make(map[vec.Vec3]*MegaChunk),
		seed:       seed,
		id:         uuid.NewString(),
		createdAt:  time.Now().UTC(),
		metrics:    nopMetrics{},
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logging.For(logging.ComponentWorld)
	}
	w.arena = NewChunkArena(w.logger)
	return w
}

// Seed возвращает сид мира
func (w *World) Seed() int64 { return w.seed }

// ID возвращает идентификатор мира
func (w *World) ID() string { return w.id }

// Arena возвращает арену чанков мира
func (w *World) Arena() *ChunkArena { return w.arena }

// Tick возвращает текущий тик
func (w *World) Tick() uint64 { return w.currentTick }

// AdvanceTick увеличивает счётчик тиков и возвращает новое значение
func (w *World) AdvanceTick() uint64 {
	w.currentTick++
	return w.currentTick
}

// MegaChunkCount возвращает число загруженных мегачанков
func (w *World) MegaChunkCount() int {
	return len(w.megachunks)
}

// ChunkCount возвращает число созданных чанков
func (w *World) ChunkCount() int {
	return w.arena.Live()
}

// MegaChunkCoords возвращает координаты мегачанков в детерминированном порядке (x, y, z).
func (w *World) MegaChunkCoords() []vec.Vec3 {
	coords := make([]vec.Vec3, 0, len(w.megachunks))
	for c := range w.megachunks {
		coords = append(coords, c)
	}
	sort.Slice(coords, func(i, j int) bool {
		a, b := coords[i], coords[j]
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
	return coords
}

// MegaChunk возвращает мегачанк по его координате или nil
func (w *World) MegaChunk(coord vec.Vec3) *MegaChunk {
	return w.megachunks[coord]
}

func (w *World) observe() {
	w.metrics.ObserveArena(w.arena.Live(), w.arena.Len(), w.arena.FreeCount())
	w.metrics.ObserveMegaChunks(len(w.megachunks))
}

// chunkAt находит чанк по координате чанка; при create создаёт цепочку мегачанк → чанк.
func (w *World) chunkAt(chunkCoord vec.Vec3, create bool) *ChunkData {
	megaCoord := chunkCoord.FloorDiv(vec.ChunkSize)
	mega, ok := w.megachunks[megaCoord]
	if !ok {
		if !create {
			return nil
		}
		mega = NewMegaChunk(megaCoord, w.arena)
		w.megachunks[megaCoord] = mega
		w.logger.Debug("Создан мегачанк %s", megaCoord)
	}

	if data := mega.GetChunk(chunkCoord.Mod(vec.ChunkSize)); data != nil || !create {
		return data
	}

	data, err := mega.CreateChunk(chunkCoord)
	if err != nil {
		// Слот проверен выше, сюда попасть нельзя
		panic(fmt.Sprintf("world: %v", err))
	}
	w.logger.Trace("Создан чанк %s", chunkCoord)
	w.observe()
	return data
}

// GetChunk возвращает чанк по координате чанка или nil
func (w *World) GetChunk(chunkCoord vec.Vec3) *ChunkData {
	return w.chunkAt(chunkCoord, false)
}

// GetBlock возвращает блок по глобальной координате или nil для воздуха и пустоты.
func (w *World) GetBlock(pos vec.Vec3) *Block {
	data := w.chunkAt(pos.ToChunkCoords(), false)
	if data == nil {
		return nil
	}
	local := pos.LocalInChunk()
	return data.Chunk.GetBlock(local.X, local.Y, local.Z)
}

// NeighborBlock реализует NeighborSource
func (w *World) NeighborBlock(pos vec.Vec3) *Block {
	return w.GetBlock(pos)
}

// SetBlock записывает блок по глобальной координате, создавая мегачанк и чанк при необходимости.
func (w *World) SetBlock(pos vec.Vec3, id block.BlockID) error {
	data := w.chunkAt(pos.ToChunkCoords(), true)
	local := pos.LocalInChunk()
	if err := data.Chunk.SetBlock(local.X, local.Y, local.Z, id); err != nil {
		return fmt.Errorf("set block %s: %w", pos, err)
	}
	data.LastTouched = w.currentTick
	w.metrics.BlockWritten()
	w.RefreshBlock(pos)
	return nil
}

// RefreshBlock сбрасывает кеш рендера чанка блока и кеши граней шести соседей,
// в том числе в соседних чанках.
func (w *World) RefreshBlock(pos vec.Vec3) {
	if data := w.GetChunk(pos.ToChunkCoords()); data != nil {
		local := pos.LocalInChunk()
		data.Chunk.ResetFaces(local.X, local.Y, local.Z)
		data.Chunk.InvalidateCache()
	}

	for _, off := range vec.FaceOffsets {
		n := pos.Add(off)
		data := w.GetChunk(n.ToChunkCoords())
		if data == nil {
			continue
		}
		local := n.LocalInChunk()
		data.Chunk.ResetFaces(local.X, local.Y, local.Z)
		data.Chunk.InvalidateCache()
	}
}

// VisibleFaces возвращает маску видимых граней блока (0 для воздуха)
func (w *World) VisibleFaces(pos vec.Vec3) FaceMask {
	chunkCoord := pos.ToChunkCoords()
	data := w.GetChunk(chunkCoord)
	if data == nil {
		return 0
	}
	local := pos.LocalInChunk()
	return data.Chunk.VisibleFaces(local.X, local.Y, local.Z, chunkCoord.Scale(vec.ChunkSize), w)
}

// DamageBlock наносит блоку урон amount с учётом твёрдости типа.
// Когда накопленный урон достигает 1, блок становится воздухом и возвращается true.
func (w *World) DamageBlock(pos vec.Vec3, amount float32) (bool, error) {
	b := w.GetBlock(pos)
	if b == nil || amount <= 0 {
		return false, nil
	}

	hardness := block.Hardness(b.Type)
	if hardness < 0 {
		return false, nil
	}

	damage := b.Damage + amount/hardness
	if damage >= 1 {
		if err := w.SetBlock(pos, block.AirBlockID); err != nil {
			return false, err
		}
		w.logger.Debug("Блок %s разрушен", pos)
		return true, nil
	}

	data := w.GetChunk(pos.ToChunkCoords())
	local := pos.LocalInChunk()
	if err := data.Chunk.SetDamage(local.X, local.Y, local.Z, damage); err != nil {
		return false, fmt.Errorf("damage block %s: %w", pos, err)
	}
	data.LastTouched = w.currentTick
	return false, nil
}

// MarkChunk задаёт приоритет чанка, создавая его при необходимости
func (w *World) MarkChunk(chunkCoord vec.Vec3, priority int) {
	w.chunkAt(chunkCoord, true).Priority = priority
}

// IsGenerated сообщает, заполнил ли генератор чанк. Отсутствующий чанк не сгенерирован.
func (w *World) IsGenerated(chunkCoord vec.Vec3) bool {
	data := w.GetChunk(chunkCoord)
	return data != nil && data.Generated
}

// MarkGenerated помечает чанк сгенерированным, создавая его при необходимости
func (w *World) MarkGenerated(chunkCoord vec.Vec3) {
	w.chunkAt(chunkCoord, true).Generated = true
}

// Reset выгружает все мегачанки. Память арены сохраняется для переиспользования.
func (w *World) Reset() {
	w.megachunks = make(map[vec.Vec3]*MegaChunk)
	w.arena.ClearAll()
	w.observe()
	w.logger.Info("Мир очищен")
}

// UnloadMegaChunk выгружает мегачанк и возвращает его чанки в арену
func (w *World) UnloadMegaChunk(coord vec.Vec3) bool {
	mega, ok := w.megachunks[coord]
	if !ok {
		return false
	}
	mega.Release()
	delete(w.megachunks, coord)
	w.observe()
	return true
}
