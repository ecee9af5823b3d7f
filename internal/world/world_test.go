package world

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteorsfall/voxelcraft/internal/logging"
	"github.com/meteorsfall/voxelcraft/internal/vec"
	"github.com/meteorsfall/voxelcraft/internal/world/block"
)

// recordingMetrics запоминает вызовы для проверок
type recordingMetrics struct {
	mu          sync.Mutex
	blockWrites int
	raycasts    map[bool]int
	collisions  map[bool]int
	saves       []error
	loads       []error
	lastLive    int
	lastMega    int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{raycasts: map[bool]int{}, collisions: map[bool]int{}}
}

func (r *recordingMetrics) ObserveArena(live, capacity, free int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastLive = live
}

func (r *recordingMetrics) ObserveMegaChunks(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastMega = n
}

func (r *recordingMetrics) BlockWritten() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blockWrites++
}

func (r *recordingMetrics) Raycast(hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raycasts[hit]++
}

func (r *recordingMetrics) Collision(resolved bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collisions[resolved]++
}

func (r *recordingMetrics) Saved(_ int, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, err)
}

func (r *recordingMetrics) Loaded(_ int, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads = append(r.loads, err)
}

func newTestWorld(opts ...Option) *World {
	return NewWorld(12345, append([]Option{WithLogger(logging.Discard())}, opts...)...)
}

func TestWorld_Creation(t *testing.T) {
	w := newTestWorld()

	assert.NotNil(t, w.Arena(), "Мир должен владеть ареной")
	assert.Equal(t, int64(12345), w.Seed())
	assert.NotEmpty(t, w.ID())
	assert.Equal(t, 0, w.MegaChunkCount())
	assert.Equal(t, 0, w.ChunkCount())
	assert.NotEqual(t, w.ID(), newTestWorld().ID(), "У каждого мира свой идентификатор")
}

func TestWorld_SetGetBlock(t *testing.T) {
	w := newTestWorld()
	pos := vec.Vec3{X: 10, Y: 64, Z: -3}

	require.NoError(t, w.SetBlock(pos, block.StoneBlockID))
	b := w.GetBlock(pos)
	require.NotNil(t, b)
	assert.Equal(t, block.StoneBlockID, b.Type)

	require.NoError(t, w.SetBlock(pos, block.AirBlockID))
	assert.Nil(t, w.GetBlock(pos), "Воздух читается как отсутствие блока")

	// Блоки в незагруженной области отсутствуют и ничего не создают
	assert.Nil(t, w.GetBlock(vec.Vec3{X: 1000, Y: 1000, Z: 1000}))
	assert.Equal(t, 1, w.MegaChunkCount())
}

func TestWorld_NegativeCoordinates(t *testing.T) {
	w := newTestWorld()
	pos := vec.Vec3{X: -1, Y: -1, Z: -1}

	require.NoError(t, w.SetBlock(pos, block.DirtBlockID))

	mega := w.MegaChunk(vec.Vec3{X: -1, Y: -1, Z: -1})
	require.NotNil(t, mega, "Блок (-1,-1,-1) живёт в мегачанке (-1,-1,-1)")

	data := w.GetChunk(vec.Vec3{X: -1, Y: -1, Z: -1})
	require.NotNil(t, data)
	assert.Equal(t, block.DirtBlockID, data.Chunk.GetBlock(15, 15, 15).Type)

	// Соседний блок (0,0,0) лежит уже в другом мегачанке
	require.NoError(t, w.SetBlock(vec.Vec3{}, block.DirtBlockID))
	assert.Equal(t, 2, w.MegaChunkCount())
	assert.Equal(t, 2, w.ChunkCount())
}

func TestWorld_AutoCreationNotGenerated(t *testing.T) {
	w := newTestWorld()
	pos := vec.Vec3{X: 40, Y: 5, Z: 40}
	chunk := pos.ToChunkCoords()

	assert.False(t, w.IsGenerated(chunk), "Отсутствующий чанк не сгенерирован")
	require.NoError(t, w.SetBlock(pos, block.GrassBlockID))
	assert.NotNil(t, w.GetChunk(chunk))
	assert.False(t, w.IsGenerated(chunk), "Автосоздание не помечает чанк сгенерированным")

	w.MarkGenerated(chunk)
	assert.True(t, w.IsGenerated(chunk))
}

func TestWorld_MarkChunkCreates(t *testing.T) {
	w := newTestWorld()
	chunk := vec.Vec3{X: -5, Y: 0, Z: 3}

	w.MarkChunk(chunk, 4)
	data := w.GetChunk(chunk)
	require.NotNil(t, data)
	assert.Equal(t, 4, data.Priority)
	assert.False(t, data.Generated)

	w.MarkGenerated(vec.Vec3{X: 100})
	assert.True(t, w.IsGenerated(vec.Vec3{X: 100}))
}

func TestWorld_SetBlockTouchesChunk(t *testing.T) {
	w := newTestWorld()
	w.AdvanceTick()
	w.AdvanceTick()

	require.NoError(t, w.SetBlock(vec.Vec3{X: 1}, block.StoneBlockID))
	assert.Equal(t, uint64(2), w.GetChunk(vec.Vec3{}).LastTouched)
}

func TestWorld_RefreshAcrossChunkBorder(t *testing.T) {
	w := newTestWorld()
	right := vec.Vec3{X: 16, Y: 0, Z: 0}
	left := vec.Vec3{X: 15, Y: 0, Z: 0}

	require.NoError(t, w.SetBlock(right, block.StoneBlockID))
	assert.True(t, w.VisibleFaces(right).Has(FaceNegX))

	rightChunk := w.GetChunk(right.ToChunkCoords())
	rightChunk.Chunk.MarkCached()
	assert.True(t, w.GetBlock(right).Faces.Valid())

	require.NoError(t, w.SetBlock(left, block.StoneBlockID))
	assert.False(t, rightChunk.Chunk.IsCached(), "Изменение соседа сбрасывает кеш рендера соседнего чанка")
	assert.False(t, w.GetBlock(right).Faces.Valid(), "Кеш граней соседа сброшен")

	assert.False(t, w.VisibleFaces(right).Has(FaceNegX), "Грань к соседу больше не видна")
	assert.False(t, w.VisibleFaces(left).Has(FacePosX))
	assert.Equal(t, FaceMask(0), w.VisibleFaces(vec.Vec3{X: 3, Y: 3, Z: 3}))
}

func TestWorld_DamageBlock(t *testing.T) {
	w := newTestWorld()
	pos := vec.Vec3{X: 2, Y: 2, Z: 2}
	require.NoError(t, w.SetBlock(pos, block.StoneBlockID))

	// Камень твёрдости 3: 1.5 урона дают половину
	broken, err := w.DamageBlock(pos, 1.5)
	require.NoError(t, err)
	assert.False(t, broken)
	assert.InDelta(t, 0.5, w.GetBlock(pos).Damage, 1e-6)

	broken, err = w.DamageBlock(pos, 1.5)
	require.NoError(t, err)
	assert.True(t, broken)
	assert.Nil(t, w.GetBlock(pos))

	// Бедрок неразрушим, воздух копать нечего
	require.NoError(t, w.SetBlock(pos, block.BedrockBlockID))
	broken, err = w.DamageBlock(pos, 100)
	require.NoError(t, err)
	assert.False(t, broken)
	assert.Equal(t, float32(0), w.GetBlock(pos).Damage)

	broken, err = w.DamageBlock(vec.Vec3{X: 9}, 1)
	require.NoError(t, err)
	assert.False(t, broken)
}

func TestWorld_ResetKeepsArenaMemory(t *testing.T) {
	w := newTestWorld()
	for x := 0; x < 64; x += 16 {
		require.NoError(t, w.SetBlock(vec.Vec3{X: x}, block.StoneBlockID))
	}
	capacity := w.Arena().Len()

	w.Reset()
	assert.Equal(t, 0, w.MegaChunkCount())
	assert.Equal(t, 0, w.ChunkCount())
	assert.Nil(t, w.GetBlock(vec.Vec3{}))
	assert.Equal(t, capacity, w.Arena().Len())

	require.NoError(t, w.SetBlock(vec.Vec3{Y: 1}, block.StoneBlockID))
	assert.Equal(t, capacity, w.Arena().Len(), "Новые чанки берутся из свободного списка")
}

func TestWorld_UnloadMegaChunk(t *testing.T) {
	w := newTestWorld()
	require.NoError(t, w.SetBlock(vec.Vec3{X: 300}, block.StoneBlockID))
	require.NoError(t, w.SetBlock(vec.Vec3{}, block.StoneBlockID))

	assert.True(t, w.UnloadMegaChunk(vec.Vec3{X: 1}))
	assert.False(t, w.UnloadMegaChunk(vec.Vec3{X: 1}))
	assert.Nil(t, w.GetBlock(vec.Vec3{X: 300}))
	assert.NotNil(t, w.GetBlock(vec.Vec3{}))
	assert.Equal(t, 1, w.ChunkCount())
}

func TestWorld_MegaChunkCoordsSorted(t *testing.T) {
	w := newTestWorld()
	for _, x := range []int{600, -300, 0} {
		require.NoError(t, w.SetBlock(vec.Vec3{X: x}, block.StoneBlockID))
	}
	assert.Equal(t, []vec.Vec3{{X: -2}, {X: 0}, {X: 2}}, w.MegaChunkCoords())
}

func TestWorld_Metrics(t *testing.T) {
	m := newRecordingMetrics()
	w := newTestWorld(WithMetrics(m))

	require.NoError(t, w.SetBlock(vec.Vec3{}, block.StoneBlockID))
	require.NoError(t, w.SetBlock(vec.Vec3{X: 1}, block.StoneBlockID))

	assert.Equal(t, 2, m.blockWrites)
	assert.Equal(t, 1, m.lastLive)
	assert.Equal(t, 1, m.lastMega)
}
