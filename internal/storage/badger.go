package storage

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"

	"github.com/meteorsfall/voxelcraft/internal/logging"
)

// Ключ указателя на текущее поколение сохранения
var currentKey = []byte("save:current")

// BadgerArchive хранит сохранения мира в BadgerDB.
// Каждое сохранение пишется под своим поколением "save:<uuid>:",
// и только после записи всех данных указатель переключается на него.
type BadgerArchive struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
	logger  *logging.Logger
}

// OpenBadger открывает (или создаёт) хранилище в каталоге dataPath
func OpenBadger(dataPath string) (*BadgerArchive, error) {
	dbPath := filepath.Join(dataPath, "world")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	return &BadgerArchive{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
		logger:  logging.For(logging.ComponentStorage),
	}, nil
}

// Close закрывает хранилище данных
func (ba *BadgerArchive) Close() error {
	ba.mutex.Lock()
	defer ba.mutex.Unlock()

	if !ba.isReady {
		return nil
	}

	ba.isReady = false
	return ba.db.Close()
}

func generationPrefix(gen string) []byte {
	return []byte("save:" + gen + ":")
}

func (ba *BadgerArchive) currentGeneration() (string, error) {
	var gen string
	err := ba.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(currentKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			gen = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNoSave
	}
	if err != nil {
		return "", fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}
	return gen, nil
}

// BadgerWriter накапливает записи нового поколения пакетом
type BadgerWriter struct {
	archive *BadgerArchive
	gen     string
	batch   *badger.WriteBatch
	done    bool
}

// NewWriter начинает новое сохранение
func (ba *BadgerArchive) NewWriter() (*BadgerWriter, error) {
	ba.mutex.RLock()
	defer ba.mutex.RUnlock()

	if !ba.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}
	return &BadgerWriter{
		archive: ba,
		gen:     uuid.NewString(),
		batch:   ba.db.NewWriteBatch(),
	}, nil
}

// WriteEntry добавляет запись в пакет
func (bw *BadgerWriter) WriteEntry(name string, data []byte) error {
	if bw.done {
		return fmt.Errorf("badger writer is closed")
	}
	key := append(generationPrefix(bw.gen), name...)
	value := append([]byte(nil), data...)
	if err := bw.batch.Set(key, value); err != nil {
		return fmt.Errorf("ошибка записи %s в BadgerDB: %w", name, err)
	}
	return nil
}

// Close сбрасывает пакет, переключает указатель и удаляет прежнее поколение
func (bw *BadgerWriter) Close() error {
	if bw.done {
		return nil
	}
	bw.done = true

	ba := bw.archive
	ba.mutex.Lock()
	defer ba.mutex.Unlock()

	if err := bw.batch.Flush(); err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}

	previous, err := ba.currentGeneration()
	if err != nil && !errors.Is(err, ErrNoSave) {
		return err
	}

	if err := ba.db.Update(func(txn *badger.Txn) error {
		return txn.Set(currentKey, []byte(bw.gen))
	}); err != nil {
		return fmt.Errorf("ошибка переключения сохранения: %w", err)
	}

	ba.logger.Debug("Поколение сохранения %s стало текущим", bw.gen)

	if previous != "" {
		if err := ba.db.DropPrefix(generationPrefix(previous)); err != nil {
			return fmt.Errorf("ошибка удаления старого сохранения: %w", err)
		}
		ba.logger.Debug("Поколение %s удалено", previous)
	}
	return nil
}

// Abort отменяет незавершённое сохранение; текущее остаётся на месте
func (bw *BadgerWriter) Abort() {
	if bw.done {
		return
	}
	bw.done = true
	bw.batch.Cancel()
	if err := bw.archive.db.DropPrefix(generationPrefix(bw.gen)); err != nil {
		bw.archive.logger.Warn("Не удалось удалить отменённое поколение %s: %v", bw.gen, err)
		return
	}
	bw.archive.logger.Debug("Сохранение %s отменено", bw.gen)
}

// BadgerReader читает текущее поколение сохранения
type BadgerReader struct {
	archive *BadgerArchive
	prefix  []byte
}

// NewReader открывает текущее сохранение; ErrNoSave, если его нет
func (ba *BadgerArchive) NewReader() (*BadgerReader, error) {
	ba.mutex.RLock()
	defer ba.mutex.RUnlock()

	if !ba.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}
	gen, err := ba.currentGeneration()
	if err != nil {
		return nil, err
	}
	return &BadgerReader{archive: ba, prefix: generationPrefix(gen)}, nil
}

// Entries возвращает имена записей в порядке ключей
func (br *BadgerReader) Entries() ([]string, error) {
	br.archive.mutex.RLock()
	defer br.archive.mutex.RUnlock()

	var names []string
	err := br.archive.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = br.prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			names = append(names, string(bytes.TrimPrefix(key, br.prefix)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}
	return names, nil
}

// ReadEntry читает запись текущего поколения
func (br *BadgerReader) ReadEntry(name string) ([]byte, error) {
	br.archive.mutex.RLock()
	defer br.archive.mutex.RUnlock()

	key := append(append([]byte(nil), br.prefix...), name...)
	var data []byte

	err := br.archive.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...)
			return nil
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%s: %w", name, ErrEntryNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}
	return data, nil
}
