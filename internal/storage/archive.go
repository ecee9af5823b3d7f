package storage

import (
	"errors"
	"fmt"
)

// Методы сжатия записей zip-архива
const (
	CompressionDeflate = "deflate"
	CompressionZstd    = "zstd"
)

// ErrEntryNotFound возвращается при чтении отсутствующей записи
var ErrEntryNotFound = errors.New("archive entry not found")

// ErrNoSave: в хранилище нет ни одного завершённого сохранения
var ErrNoSave = errors.New("no save found")

// ErrUnsupportedFormat: версия формата сохранения неизвестна этой сборке
var ErrUnsupportedFormat = errors.New("unsupported save format")

// Writer принимает именованные записи одного сохранения.
type Writer interface {
	WriteEntry(name string, data []byte) error
}

// Reader отдаёт записи одного сохранения.
type Reader interface {
	Entries() ([]string, error)
	ReadEntry(name string) ([]byte, error)
}

// ValidCompression проверяет название метода сжатия
func ValidCompression(method string) bool {
	switch method {
	case CompressionDeflate, CompressionZstd:
		return true
	}
	return false
}

// Copy переносит все записи из src в dst и возвращает их число.
func Copy(dst Writer, src Reader) (int, error) {
	names, err := src.Entries()
	if err != nil {
		return 0, fmt.Errorf("list entries: %w", err)
	}
	for i, name := range names {
		data, err := src.ReadEntry(name)
		if err != nil {
			return i, fmt.Errorf("read %s: %w", name, err)
		}
		if err := dst.WriteEntry(name, data); err != nil {
			return i, fmt.Errorf("write %s: %w", name, err)
		}
	}
	return len(names), nil
}
