package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStorage(t *testing.T) *BadgerArchive {
	t.Helper()

	// Инициализируем хранилище во временной директории
	archive, err := OpenBadger(t.TempDir())
	require.NoError(t, err, "Не удалось создать хранилище")
	t.Cleanup(func() { archive.Close() })
	return archive
}

func writeGeneration(t *testing.T, archive *BadgerArchive, entries map[string][]byte) {
	t.Helper()

	w, err := archive.NewWriter()
	require.NoError(t, err)
	for name, data := range entries {
		require.NoError(t, w.WriteEntry(name, data))
	}
	require.NoError(t, w.Close())
}

func TestBadgerSaveAndLoad(t *testing.T) {
	archive := setupTestStorage(t)

	writeGeneration(t, archive, map[string][]byte{
		"megachunk_0_0_0.bin":  {1, 2, 3},
		"megachunk_-1_0_2.bin": {4, 5},
		ManifestName:           []byte("format: 1\n"),
	})

	r, err := archive.NewReader()
	require.NoError(t, err)

	names, err := r.Entries()
	require.NoError(t, err)
	assert.Equal(t, []string{ManifestName, "megachunk_-1_0_2.bin", "megachunk_0_0_0.bin"}, names, "Записи должны идти в порядке ключей")

	data, err := r.ReadEntry("megachunk_-1_0_2.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 5}, data)
}

func TestBadgerNewSaveReplacesOld(t *testing.T) {
	archive := setupTestStorage(t)

	writeGeneration(t, archive, map[string][]byte{
		"megachunk_0_0_0.bin": {1},
		"megachunk_1_0_0.bin": {2},
	})
	writeGeneration(t, archive, map[string][]byte{
		"megachunk_0_0_0.bin": {9},
	})

	r, err := archive.NewReader()
	require.NoError(t, err)

	names, err := r.Entries()
	require.NoError(t, err)
	assert.Equal(t, []string{"megachunk_0_0_0.bin"}, names, "Записи старого сохранения не должны протекать")

	data, err := r.ReadEntry("megachunk_0_0_0.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, data)
}

func TestBadgerAbortKeepsCurrentSave(t *testing.T) {
	archive := setupTestStorage(t)

	writeGeneration(t, archive, map[string][]byte{"a": {1}})

	w, err := archive.NewWriter()
	require.NoError(t, err)
	require.NoError(t, w.WriteEntry("b", []byte{2}))
	w.Abort()

	r, err := archive.NewReader()
	require.NoError(t, err)
	names, err := r.Entries()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, names)
}

func TestBadgerEmptyArchive(t *testing.T) {
	archive := setupTestStorage(t)

	// Пока ничего не сохранено, читать нечего
	_, err := archive.NewReader()
	assert.ErrorIs(t, err, ErrNoSave)
}

func TestBadgerMissingEntry(t *testing.T) {
	archive := setupTestStorage(t)
	writeGeneration(t, archive, map[string][]byte{"a": {1}})

	r, err := archive.NewReader()
	require.NoError(t, err)

	_, err = r.ReadEntry("megachunk_99_99_99.bin")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestBadgerClosedArchive(t *testing.T) {
	archive, err := OpenBadger(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, archive.Close())

	_, err = archive.NewWriter()
	assert.Error(t, err, "Закрытое хранилище не должно принимать запись")
	assert.NoError(t, archive.Close(), "Повторное закрытие безопасно")
}
