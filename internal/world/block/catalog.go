package block

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CatalogEntry: описание пользовательского типа блока в YAML-каталоге.
type CatalogEntry struct {
	ID         BlockID `yaml:"id"`
	Properties `yaml:",inline"`
}

// Catalog: корень YAML-файла каталога блоков.
type Catalog struct {
	Blocks []CatalogEntry `yaml:"blocks"`
}

// ParseCatalog разбирает YAML-каталог и регистрирует описанные типы.
// Воздух переопределять нельзя.
func ParseCatalog(data []byte) (int, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return 0, fmt.Errorf("parse block catalog: %w", err)
	}

	for _, entry := range catalog.Blocks {
		if entry.ID == AirBlockID {
			return 0, fmt.Errorf("block catalog: id 0 is reserved for air")
		}
		if entry.Name == "" {
			return 0, fmt.Errorf("block catalog: id %d has no name", entry.ID)
		}
	}

	for _, entry := range catalog.Blocks {
		Register(entry.ID, entry.Properties)
	}
	return len(catalog.Blocks), nil
}

// LoadCatalog читает каталог блоков из файла.
func LoadCatalog(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return ParseCatalog(data)
}
