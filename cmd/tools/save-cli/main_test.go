package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteorsfall/voxelcraft/internal/logging"
	"github.com/meteorsfall/voxelcraft/internal/storage"
	"github.com/meteorsfall/voxelcraft/internal/vec"
	"github.com/meteorsfall/voxelcraft/internal/world"
	"github.com/meteorsfall/voxelcraft/internal/world/block"
)

func TestParseLocation(t *testing.T) {
	kind, path := parseLocation("badger:/tmp/db")
	assert.Equal(t, "badger", kind)
	assert.Equal(t, "/tmp/db", path)

	kind, path = parseLocation("zip:world.zip")
	assert.Equal(t, "zip", kind)
	assert.Equal(t, "world.zip", path)

	// Без префикса считаем путь zip-файлом
	kind, path = parseLocation("C:/saves/world.zip")
	assert.Equal(t, "zip", kind)
	assert.Equal(t, "C:/saves/world.zip", path)
}

func TestParseCoord(t *testing.T) {
	v, err := parseCoord("-1, 0,19")
	require.NoError(t, err)
	assert.Equal(t, vec.Vec3{X: -1, Y: 0, Z: 19}, v)

	_, err = parseCoord("1,2")
	assert.Error(t, err)
	_, err = parseCoord("1,2,z")
	assert.Error(t, err)
}

func TestConvertZipToBadgerAndBack(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "world.zip")
	badgerDir := filepath.Join(dir, "badger")
	backPath := filepath.Join(dir, "back.zip")

	w := world.NewWorld(77, world.WithLogger(logging.Discard()))
	require.NoError(t, w.SetBlock(vec.Vec3{X: -20, Y: 3, Z: 300}, block.LogBlockID))
	require.NoError(t, w.Save(zipPath))

	require.NoError(t, convert("zip:"+zipPath, "badger:"+badgerDir, storage.CompressionZstd))
	require.NoError(t, convert("badger:"+badgerDir, "zip:"+backPath, storage.CompressionDeflate))

	loaded := world.NewWorld(0, world.WithLogger(logging.Discard()))
	require.NoError(t, loaded.Load(backPath))
	assert.Equal(t, w.ID(), loaded.ID(), "Идентификатор мира переживает конвертацию")
	assert.Equal(t, int64(77), loaded.Seed())

	b := loaded.GetBlock(vec.Vec3{X: -20, Y: 3, Z: 300})
	require.NotNil(t, b)
	assert.Equal(t, block.LogBlockID, b.Type)
}

func TestConvertRequiresDestination(t *testing.T) {
	assert.Error(t, convert("zip:missing.zip", "", storage.CompressionZstd))
}
