package world

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteorsfall/voxelcraft/internal/storage"
	"github.com/meteorsfall/voxelcraft/internal/vec"
	"github.com/meteorsfall/voxelcraft/internal/world/block"
)

// memArchive: сохранение в памяти для проверок LoadFrom
type memArchive map[string][]byte

func (m memArchive) WriteEntry(name string, data []byte) error {
	m[name] = append([]byte(nil), data...)
	return nil
}

func (m memArchive) Entries() ([]string, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m memArchive) ReadEntry(name string) ([]byte, error) {
	data, ok := m[name]
	if !ok {
		return nil, storage.ErrEntryNotFound
	}
	return data, nil
}

func populate(t *testing.T, w *World) {
	t.Helper()
	require.NoError(t, w.SetBlock(vec.Vec3{X: 0, Y: 0, Z: 0}, block.StoneBlockID))
	require.NoError(t, w.SetBlock(vec.Vec3{X: -1, Y: -20, Z: 300}, block.GlassBlockID))
	require.NoError(t, w.SetBlock(vec.Vec3{X: 5000, Y: 7, Z: -5000}, block.LogBlockID))
	_, err := w.DamageBlock(vec.Vec3{X: 5000, Y: 7, Z: -5000}, 1)
	require.NoError(t, err)
	w.MarkGenerated(vec.Vec3{X: 0, Y: 0, Z: 0})
}

func assertPopulated(t *testing.T, w *World) {
	t.Helper()
	assert.Equal(t, 3, w.MegaChunkCount())
	assert.Equal(t, 3, w.ChunkCount())

	assert.Equal(t, block.StoneBlockID, w.GetBlock(vec.Vec3{}).Type)
	assert.Equal(t, block.GlassBlockID, w.GetBlock(vec.Vec3{X: -1, Y: -20, Z: 300}).Type)

	log := w.GetBlock(vec.Vec3{X: 5000, Y: 7, Z: -5000})
	require.NotNil(t, log)
	assert.Equal(t, block.LogBlockID, log.Type)
	// Твёрдость бревна 2: урон 0.5 переживает квантование без потерь
	assert.Equal(t, float32(0.5), log.Damage)

	assert.True(t, w.IsGenerated(vec.Vec3{}))
	assert.False(t, w.IsGenerated(vec.Vec3{X: -1, Y: -2, Z: 18}))
}

func TestPersist_SaveLoadZip(t *testing.T) {
	for _, compression := range []string{storage.CompressionDeflate, storage.CompressionZstd} {
		t.Run(compression, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "saves", "world.zip")

			src := newTestWorld(WithCompression(compression))
			populate(t, src)
			require.NoError(t, src.Save(path))

			dst := NewWorld(0, WithLogger(src.logger))
			require.NoError(t, dst.Load(path))
			assertPopulated(t, dst)

			assert.Equal(t, src.ID(), dst.ID(), "Идентификатор мира берётся из манифеста")
			assert.Equal(t, src.Seed(), dst.Seed())
		})
	}
}

func TestPersist_EntryLayout(t *testing.T) {
	w := newTestWorld()
	populate(t, w)

	archive := memArchive{}
	require.NoError(t, w.SaveTo(archive))

	names, err := archive.Entries()
	require.NoError(t, err)
	assert.Equal(t, []string{
		storage.ManifestName,
		"megachunk_-1_-1_1.bin",
		"megachunk_0_0_0.bin",
		"megachunk_19_0_-20.bin",
	}, names)

	// Один чанк на мегачанк: заголовок + одна запись
	assert.Len(t, archive["megachunk_0_0_0.bin"], MegaChunkHeaderSize+ChunkRecordSize)
}

func TestPersist_LoadIsAllOrNothing(t *testing.T) {
	good := memArchive{}
	src := newTestWorld()
	populate(t, src)
	require.NoError(t, src.SaveTo(good))

	corrupt := func(mutate func(memArchive)) memArchive {
		a := memArchive{}
		for k, v := range good {
			a[k] = append([]byte(nil), v...)
		}
		mutate(a)
		return a
	}

	cases := map[string]memArchive{
		"truncated megachunk": corrupt(func(a memArchive) {
			data := a["megachunk_19_0_-20.bin"]
			a["megachunk_19_0_-20.bin"] = data[:len(data)-5]
		}),
		"name does not match header": corrupt(func(a memArchive) {
			a["megachunk_7_7_7.bin"] = a["megachunk_0_0_0.bin"]
			delete(a, "megachunk_0_0_0.bin")
		}),
		"manifest count mismatch": corrupt(func(a memArchive) {
			delete(a, "megachunk_-1_-1_1.bin")
		}),
		"broken manifest": corrupt(func(a memArchive) {
			a[storage.ManifestName] = []byte("format: 7\n")
		}),
	}

	for name, archive := range cases {
		t.Run(name, func(t *testing.T) {
			m := newRecordingMetrics()
			w := newTestWorld(WithMetrics(m))
			require.NoError(t, w.SetBlock(vec.Vec3{X: 1, Y: 1, Z: 1}, block.SandBlockID))
			id := w.ID()

			err := w.LoadFrom(archive)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCorruptData)
			assert.True(t, IsCorrupt(err))

			// Мир не тронут
			assert.Equal(t, id, w.ID())
			assert.Equal(t, 1, w.ChunkCount())
			assert.Equal(t, block.SandBlockID, w.GetBlock(vec.Vec3{X: 1, Y: 1, Z: 1}).Type)
			assert.Nil(t, w.GetBlock(vec.Vec3{}))

			require.Len(t, m.loads, 1)
			assert.Error(t, m.loads[0])
		})
	}
}

func TestPersist_BrokenManifestKeepsCause(t *testing.T) {
	archive := memArchive{}
	src := newTestWorld()
	populate(t, src)
	require.NoError(t, src.SaveTo(archive))
	archive[storage.ManifestName] = []byte("format: 7\n")

	err := newTestWorld().LoadFrom(archive)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorruptData)
	assert.ErrorIs(t, err, storage.ErrUnsupportedFormat, "Причина ошибки манифеста не теряется")
}

func TestPersist_LoadReusesArena(t *testing.T) {
	archive := memArchive{}
	src := newTestWorld()
	require.NoError(t, src.SetBlock(vec.Vec3{X: 3, Y: 3, Z: 3}, block.StoneBlockID))
	require.NoError(t, src.SaveTo(archive))

	w := newTestWorld()
	for i := 0; i < 40; i++ {
		require.NoError(t, w.SetBlock(vec.Vec3{X: i * vec.ChunkSize}, block.DirtBlockID))
	}
	arena := w.Arena()
	require.Equal(t, 40, arena.Len())

	require.NoError(t, w.LoadFrom(archive))

	assert.Same(t, arena, w.Arena(), "Загрузка использует ту же арену")
	assert.Equal(t, 40, w.Arena().Len(), "Ёмкость арены сохраняется")
	assert.Equal(t, 1, w.Arena().Live())
	assert.Equal(t, 39, w.Arena().FreeCount())
	assert.Equal(t, block.StoneBlockID, w.GetBlock(vec.Vec3{X: 3, Y: 3, Z: 3}).Type)
	assert.Nil(t, w.GetBlock(vec.Vec3{}), "Старые чанки выгружены")
}

func TestPersist_FailedLoadKeepsArena(t *testing.T) {
	archive := memArchive{}
	src := newTestWorld()
	populate(t, src)
	require.NoError(t, src.SaveTo(archive))
	data := archive["megachunk_0_0_0.bin"]
	archive["megachunk_0_0_0.bin"] = data[:len(data)-1]

	w := newTestWorld()
	require.NoError(t, w.SetBlock(vec.Vec3{X: 1, Y: 1, Z: 1}, block.SandBlockID))
	arena := w.Arena()

	require.Error(t, w.LoadFrom(archive))
	assert.Same(t, arena, w.Arena())
	assert.Equal(t, 1, arena.Live(), "Неудачная загрузка не трогает арену")
	assert.Equal(t, 0, arena.FreeCount())
}

func TestPersist_LoadWithoutManifest(t *testing.T) {
	archive := memArchive{}
	src := newTestWorld()
	populate(t, src)
	require.NoError(t, src.SaveTo(archive))
	delete(archive, storage.ManifestName)
	archive["readme.txt"] = []byte("посторонние записи игнорируются")

	dst := newTestWorld()
	require.NoError(t, dst.LoadFrom(archive))
	assertPopulated(t, dst)
	assert.Equal(t, int64(12345), dst.Seed())
}

func TestPersist_LoadMissingFile(t *testing.T) {
	w := newTestWorld()
	require.NoError(t, w.SetBlock(vec.Vec3{}, block.StoneBlockID))

	err := w.Load(filepath.Join(t.TempDir(), "absent.zip"))
	assert.Error(t, err)
	assert.NotNil(t, w.GetBlock(vec.Vec3{}))
}

func TestPersist_SaveFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "world.zip")

	w := newTestWorld()
	// Мегачанк 2^24 не помещается в 3 байта заголовка
	require.NoError(t, w.SetBlock(vec.Vec3{X: 1 << 32}, block.StoneBlockID))

	err := w.Save(path)
	assert.ErrorIs(t, err, ErrOutOfRange)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, files, "Неудачное сохранение не оставляет файлов")
}

func TestPersist_EntryNames(t *testing.T) {
	c := vec.Vec3{X: -12, Y: 0, Z: 345}
	name := MegaChunkEntryName(c)
	assert.Equal(t, "megachunk_-12_0_345.bin", name)

	back, ok := ParseMegaChunkEntryName(name)
	require.True(t, ok)
	assert.Equal(t, c, back)

	for _, bad := range []string{
		storage.ManifestName,
		"megachunk_1_2.bin",
		"megachunk_1_2_3_4.bin",
		"megachunk_a_2_3.bin",
		"megachunk_1_2_3.dat",
	} {
		_, ok := ParseMegaChunkEntryName(bad)
		assert.False(t, ok, bad)
	}
}
