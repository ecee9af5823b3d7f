package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZipRoundTrip(t *testing.T) {
	for _, compression := range []string{CompressionDeflate, CompressionZstd} {
		t.Run(compression, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "world.zip")
			payload := make([]byte, 12292)
			for i := range payload {
				payload[i] = byte(i % 7)
			}

			w, err := CreateZip(path, compression)
			require.NoError(t, err)
			require.NoError(t, w.WriteEntry("megachunk_0_0_0.bin", payload))
			require.NoError(t, w.WriteEntry(ManifestName, []byte("format: 1\n")))
			require.NoError(t, w.Close())

			r, err := OpenZip(path)
			require.NoError(t, err)
			defer r.Close()

			names, err := r.Entries()
			require.NoError(t, err)
			assert.Equal(t, []string{ManifestName, "megachunk_0_0_0.bin"}, names)

			data, err := r.ReadEntry("megachunk_0_0_0.bin")
			require.NoError(t, err)
			assert.Equal(t, payload, data)
		})
	}
}

func TestZipFileAppearsOnlyAfterClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "world.zip")

	w, err := CreateZip(path, "")
	require.NoError(t, err)
	require.NoError(t, w.WriteEntry("a", []byte{1}))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "До Close файл сохранения не должен существовать")

	require.NoError(t, w.Close())
	_, err = os.Stat(path)
	assert.NoError(t, err)

	// Временных файлов не остаётся
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestZipAbortKeepsPreviousSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "world.zip")

	w, err := CreateZip(path, CompressionDeflate)
	require.NoError(t, err)
	require.NoError(t, w.WriteEntry("old", []byte{1}))
	require.NoError(t, w.Close())

	w, err = CreateZip(path, CompressionDeflate)
	require.NoError(t, err)
	require.NoError(t, w.WriteEntry("new", []byte{2}))
	w.Abort()

	r, err := OpenZip(path)
	require.NoError(t, err)
	defer r.Close()

	names, err := r.Entries()
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, names)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1, "Временный файл должен быть удалён")
}

func TestZipUnknownCompression(t *testing.T) {
	_, err := CreateZip(filepath.Join(t.TempDir(), "w.zip"), "lz4")
	assert.Error(t, err)
}

func TestZipMissingEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.zip")
	w, err := CreateZip(path, CompressionZstd)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := OpenZip(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.ReadEntry("nope")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestCopyZipToBadger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.zip")
	w, err := CreateZip(path, CompressionZstd)
	require.NoError(t, err)
	require.NoError(t, w.WriteEntry("megachunk_0_0_0.bin", []byte{1, 2}))
	require.NoError(t, w.WriteEntry("megachunk_0_1_0.bin", []byte{3}))
	require.NoError(t, w.Close())

	src, err := OpenZip(path)
	require.NoError(t, err)
	defer src.Close()

	archive := setupTestStorage(t)
	dst, err := archive.NewWriter()
	require.NoError(t, err)

	n, err := Copy(dst, src)
	require.NoError(t, err)
	require.NoError(t, dst.Close())
	assert.Equal(t, 2, n)

	r, err := archive.NewReader()
	require.NoError(t, err)
	data, err := r.ReadEntry("megachunk_0_1_0.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{3}, data)
}
