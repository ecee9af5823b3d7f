package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	// ManifestName: имя записи манифеста в сохранении
	ManifestName = "level.yaml"

	// ManifestFormat: текущая версия формата сохранения
	ManifestFormat = 1
)

// Manifest описывает сохранение: кто, когда и сколько мегачанков записано.
type Manifest struct {
	Format      int       `yaml:"format"`
	WorldID     string    `yaml:"world_id"`
	Seed        int64     `yaml:"seed"`
	CreatedAt   time.Time `yaml:"created_at"`
	SavedAt     time.Time `yaml:"saved_at"`
	MegaChunks  int       `yaml:"megachunks"`
	Compression string    `yaml:"compression,omitempty"`
}

// Marshal кодирует манифест в YAML
func (m Manifest) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return data, nil
}

// ParseManifest разбирает и проверяет манифест
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Format < 1 || m.Format > ManifestFormat {
		return m, fmt.Errorf("format %d: %w", m.Format, ErrUnsupportedFormat)
	}
	if _, err := uuid.Parse(m.WorldID); err != nil {
		return m, fmt.Errorf("manifest world id %q: %w", m.WorldID, err)
	}
	if m.MegaChunks < 0 {
		return m, fmt.Errorf("manifest megachunk count %d is negative", m.MegaChunks)
	}
	return m, nil
}

// ReadManifest читает манифест из сохранения. found == false, если записи нет.
func ReadManifest(r Reader) (m Manifest, found bool, err error) {
	data, err := r.ReadEntry(ManifestName)
	if errors.Is(err, ErrEntryNotFound) {
		return Manifest{}, false, nil
	}
	if err != nil {
		return Manifest{}, false, err
	}
	m, err = ParseManifest(data)
	if err != nil {
		return Manifest{}, true, err
	}
	return m, true, nil
}

// WriteManifest записывает манифест в сохранение
func WriteManifest(w Writer, m Manifest) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	return w.WriteEntry(ManifestName, data)
}
