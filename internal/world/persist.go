package world

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/meteorsfall/voxelcraft/internal/logging"
	"github.com/meteorsfall/voxelcraft/internal/storage"
	"github.com/meteorsfall/voxelcraft/internal/vec"
)

const megaChunkEntryPrefix = "megachunk_"

// MegaChunkEntryName возвращает имя записи архива для мегачанка
func MegaChunkEntryName(coord vec.Vec3) string {
	return fmt.Sprintf("%s%d_%d_%d.bin", megaChunkEntryPrefix, coord.X, coord.Y, coord.Z)
}

// ParseMegaChunkEntryName разбирает имя записи; ok == false для посторонних записей.
func ParseMegaChunkEntryName(name string) (vec.Vec3, bool) {
	if !strings.HasPrefix(name, megaChunkEntryPrefix) || !strings.HasSuffix(name, ".bin") {
		return vec.Vec3{}, false
	}
	parts := strings.Split(strings.TrimSuffix(strings.TrimPrefix(name, megaChunkEntryPrefix), ".bin"), "_")
	if len(parts) != 3 {
		return vec.Vec3{}, false
	}
	var xyz [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return vec.Vec3{}, false
		}
		xyz[i] = v
	}
	return vec.Vec3{X: xyz[0], Y: xyz[1], Z: xyz[2]}, true
}

// SaveTo пишет манифест и по записи на каждый мегачанк в w.
func (w *World) SaveTo(out storage.Writer) error {
	start := time.Now()
	coords := w.MegaChunkCoords()

	err := w.saveTo(out, coords)
	w.metrics.Saved(len(coords), time.Since(start), err)
	if err != nil {
		w.logger.Error("Ошибка сохранения мира: %v", err)
		return err
	}
	w.logger.Info("Мир сохранён: %d мегачанков, %d чанков за %v", len(coords), w.ChunkCount(), time.Since(start))
	return nil
}

func (w *World) saveTo(out storage.Writer, coords []vec.Vec3) error {
	for _, c := range coords {
		data, err := w.megachunks[c].Serialize()
		if err != nil {
			return fmt.Errorf("serialize megachunk %s: %w", c, err)
		}
		if err := out.WriteEntry(MegaChunkEntryName(c), data); err != nil {
			return fmt.Errorf("write megachunk %s: %w", c, err)
		}
	}

	manifest := storage.Manifest{
		Format:      storage.ManifestFormat,
		WorldID:     w.id,
		Seed:        w.seed,
		CreatedAt:   w.createdAt,
		SavedAt:     time.Now().UTC(),
		MegaChunks:  len(coords),
		Compression: w.compression,
	}
	return storage.WriteManifest(out, manifest)
}

// LoadFrom заменяет содержимое мира данными из in.
// Сначала проверяются все записи; при любой ошибке мир остаётся прежним.
// При успехе чанки размещаются в той же арене после ClearAll.
func (w *World) LoadFrom(in storage.Reader) error {
	start := time.Now()

	count, err := w.loadFrom(in)
	w.metrics.Loaded(count, time.Since(start), err)
	if err != nil {
		w.logger.Error("Ошибка загрузки мира: %v", err)
		return err
	}
	w.observe()
	w.logger.Info("Мир загружен: %d мегачанков, %d чанков за %v", count, w.ChunkCount(), time.Since(start))
	return nil
}

// parsedMegaChunk: проверенная запись сохранения, ещё не размещённая в арене
type parsedMegaChunk struct {
	coord   vec.Vec3
	records []chunkRecord
}

func (w *World) loadFrom(in storage.Reader) (int, error) {
	manifest, hasManifest, err := storage.ReadManifest(in)
	if err != nil {
		return 0, fmt.Errorf("manifest: %w: %w", err, ErrCorruptData)
	}

	names, err := in.Entries()
	if err != nil {
		return 0, err
	}

	parsed := make([]parsedMegaChunk, 0, len(names))
	seen := make(map[vec.Vec3]bool, len(names))

	for _, name := range names {
		coord, ok := ParseMegaChunkEntryName(name)
		if !ok {
			continue
		}
		data, err := in.ReadEntry(name)
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", name, err)
		}

		stored, records, err := parseMegaChunk(data)
		if err != nil {
			w.logger.Debug("Повреждённая запись %s:\n%s", name, logging.HexDump(data))
			return 0, fmt.Errorf("decode %s: %w", name, err)
		}
		if stored != coord {
			return 0, fmt.Errorf("entry %s holds megachunk %s: %w", name, stored, ErrCorruptData)
		}
		if seen[coord] {
			return 0, fmt.Errorf("megachunk %s stored twice: %w", coord, ErrCorruptData)
		}
		seen[coord] = true
		parsed = append(parsed, parsedMegaChunk{coord: coord, records: records})
	}

	if hasManifest && manifest.MegaChunks != len(parsed) {
		return 0, fmt.Errorf("manifest lists %d megachunks, archive holds %d: %w",
			manifest.MegaChunks, len(parsed), ErrCorruptData)
	}

	// Дальше ошибок нет: страницы арены переиспользуются
	w.arena.ClearAll()
	w.megachunks = make(map[vec.Vec3]*MegaChunk, len(parsed))
	for _, p := range parsed {
		w.megachunks[p.coord] = placeMegaChunk(p.coord, p.records, w.arena)
	}

	if hasManifest {
		w.id = manifest.WorldID
		w.seed = manifest.Seed
		w.createdAt = manifest.CreatedAt
	}
	return len(parsed), nil
}

// Save атомарно записывает мир в zip-архив path
func (w *World) Save(path string) error {
	out, err := storage.CreateZip(path, w.compression)
	if err != nil {
		return err
	}
	if err := w.SaveTo(out); err != nil {
		out.Abort()
		return err
	}
	return out.Close()
}

// Load читает мир из zip-архива path. При ошибке мир не меняется.
func (w *World) Load(path string) error {
	in, err := storage.OpenZip(path)
	if err != nil {
		return err
	}
	defer in.Close()
	return w.LoadFrom(in)
}

// IsCorrupt сообщает, что ошибка загрузки вызвана повреждёнными данными
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorruptData)
}
