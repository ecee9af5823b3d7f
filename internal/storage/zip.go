package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// ZipWriter пишет сохранение во временный файл рядом с целевым.
// Файл появляется по месту назначения только после успешного Close.
type ZipWriter struct {
	path   string
	file   *os.File
	zw     *zip.Writer
	method uint16
	done   bool
}

// CreateZip начинает новое сохранение по пути path
func CreateZip(path, compression string) (*ZipWriter, error) {
	if compression == "" {
		compression = CompressionDeflate
	}
	if !ValidCompression(compression) {
		return nil, fmt.Errorf("unknown compression %q", compression)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create save directory: %w", err)
	}
	file, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp save: %w", err)
	}

	w := &ZipWriter{
		path:   path,
		file:   file,
		zw:     zip.NewWriter(file),
		method: zip.Deflate,
	}
	if compression == CompressionZstd {
		w.method = zstd.ZipMethodWinZip
		w.zw.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())
	}
	return w, nil
}

// WriteEntry добавляет запись в архив
func (w *ZipWriter) WriteEntry(name string, data []byte) error {
	if w.done {
		return fmt.Errorf("zip writer for %s is closed", w.path)
	}
	out, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   w.method,
		Modified: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("create entry %s: %w", name, err)
	}
	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}
	return nil
}

// Close дописывает каталог архива и атомарно переименовывает файл
func (w *ZipWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	tmp := w.file.Name()

	if err := w.zw.Close(); err != nil {
		w.file.Close()
		os.Remove(tmp)
		return fmt.Errorf("finish zip: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync save: %w", err)
	}
	if err := w.file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close save: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace save: %w", err)
	}
	return nil
}

// Abort удаляет временный файл, прежнее сохранение остаётся нетронутым
func (w *ZipWriter) Abort() {
	if w.done {
		return
	}
	w.done = true
	w.file.Close()
	os.Remove(w.file.Name())
}

// ZipReader читает сохранение из zip-архива (deflate или zstd)
type ZipReader struct {
	rc    *zip.ReadCloser
	files map[string]*zip.File
}

// OpenZip открывает архив сохранения
func OpenZip(path string) (*ZipReader, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open save %s: %w", path, err)
	}
	rc.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())

	files := make(map[string]*zip.File, len(rc.File))
	for _, f := range rc.File {
		files[f.Name] = f
	}
	return &ZipReader{rc: rc, files: files}, nil
}

// Entries возвращает имена записей в лексикографическом порядке
func (r *ZipReader) Entries() ([]string, error) {
	names := make([]string, 0, len(r.files))
	for name := range r.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ReadEntry читает запись целиком
func (r *ZipReader) ReadEntry(name string) ([]byte, error) {
	f, ok := r.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrEntryNotFound)
	}
	in, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %s: %w", name, err)
	}
	defer in.Close()

	data, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("read entry %s: %w", name, err)
	}
	return data, nil
}

// Close закрывает архив
func (r *ZipReader) Close() error {
	return r.rc.Close()
}
