package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/meteorsfall/voxelcraft/internal/config"
	"github.com/meteorsfall/voxelcraft/internal/storage"
	"github.com/meteorsfall/voxelcraft/internal/world"
)

// persistence сохраняет и загружает мир через выбранный backend
type persistence struct {
	cfg    config.Config
	badger *storage.BadgerArchive
}

func newPersistence(cfg *config.Config) (*persistence, error) {
	p := &persistence{cfg: *cfg}
	if cfg.Storage.Backend == config.BackendBadger {
		archive, err := storage.OpenBadger(cfg.Storage.BadgerPath)
		if err != nil {
			return nil, fmt.Errorf("open badger: %w", err)
		}
		p.badger = archive
	}
	return p, nil
}

// load читает сохранение. found=false, если сохранения ещё нет.
func (p *persistence) load(w *world.World) (found bool, err error) {
	if p.badger == nil {
		err = w.Load(p.cfg.World.SavePath)
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return err == nil, err
	}

	reader, err := p.badger.NewReader()
	if errors.Is(err, storage.ErrNoSave) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := w.LoadFrom(reader); err != nil {
		return false, err
	}
	return true, nil
}

// save записывает мир целиком
func (p *persistence) save(w *world.World) error {
	if p.badger == nil {
		return w.Save(p.cfg.World.SavePath)
	}

	writer, err := p.badger.NewWriter()
	if err != nil {
		return err
	}
	if err := w.SaveTo(writer); err != nil {
		writer.Abort()
		return err
	}
	return writer.Close()
}

func (p *persistence) describe() string {
	if p.badger != nil {
		return "badger:" + p.cfg.Storage.BadgerPath
	}
	return "zip:" + p.cfg.World.SavePath
}

func (p *persistence) close() error {
	if p.badger == nil {
		return nil
	}
	return p.badger.Close()
}
