package block

import (
	"fmt"
	"sort"
	"sync"
)

// BlockID представляет идентификатор типа блока. 0 означает воздух.
type BlockID uint16

// Константы ID блоков
const (
	// Базовые типы блоков
	AirBlockID    BlockID = iota // 0
	StoneBlockID                 // 1
	GrassBlockID                 // 2
	DirtBlockID                  // 3
	SandBlockID                  // 4
	WaterBlockID                 // 5
	LogBlockID                   // 6
	LeavesBlockID                // 7
	GlassBlockID                 // 8
	BedrockBlockID               // 9

	// Пользовательские типы из каталога начинаются с 100
	FirstCustomBlockID BlockID = 100
)

// Properties описывает свойства типа блока, нужные ядру мира.
type Properties struct {
	Name string `yaml:"name"`
	// Transparent: соседние грани остаются видимыми (стекло, листва, вода).
	Transparent bool `yaml:"transparent"`
	// Hardness: во сколько раз медленнее копается блок; 0 трактуется как 1.
	// Отрицательное значение: неразрушаемый блок.
	Hardness float32 `yaml:"hardness"`
}

var (
	registry = make(map[BlockID]Properties)
	mu       sync.RWMutex
)

// Регистрируем базовые типы блоков при импорте пакета
func init() {
	Register(AirBlockID, Properties{Name: "air", Transparent: true})
	Register(StoneBlockID, Properties{Name: "stone", Hardness: 3})
	Register(GrassBlockID, Properties{Name: "grass", Hardness: 1})
	Register(DirtBlockID, Properties{Name: "dirt", Hardness: 1})
	Register(SandBlockID, Properties{Name: "sand", Hardness: 1})
	Register(WaterBlockID, Properties{Name: "water", Transparent: true, Hardness: -1})
	Register(LogBlockID, Properties{Name: "log", Hardness: 2})
	Register(LeavesBlockID, Properties{Name: "leaves", Transparent: true, Hardness: 0.5})
	Register(GlassBlockID, Properties{Name: "glass", Transparent: true, Hardness: 0.5})
	Register(BedrockBlockID, Properties{Name: "bedrock", Hardness: -1})
}

// Register добавляет (или заменяет) свойства типа блока в регистре
func Register(id BlockID, props Properties) {
	mu.Lock()
	defer mu.Unlock()
	registry[id] = props
}

// Get возвращает свойства для указанного ID
func Get(id BlockID) (Properties, bool) {
	mu.RLock()
	defer mu.RUnlock()
	props, exists := registry[id]
	return props, exists
}

// IsValidBlockID проверяет, является ли ID допустимым идентификатором блока
func IsValidBlockID(id BlockID) bool {
	_, exists := Get(id)
	return exists
}

// IsTransparent сообщает, пропускает ли блок взгляд к соседним граням.
// Воздух и неизвестные типы считаются прозрачными.
func IsTransparent(id BlockID) bool {
	if id == AirBlockID {
		return true
	}
	props, exists := Get(id)
	if !exists {
		return true
	}
	return props.Transparent
}

// Hardness возвращает прочность типа блока (1 для неизвестных типов).
func Hardness(id BlockID) float32 {
	props, exists := Get(id)
	if !exists || props.Hardness == 0 {
		return 1
	}
	return props.Hardness
}

// Lookup ищет ID по имени типа.
func Lookup(name string) (BlockID, error) {
	mu.RLock()
	defer mu.RUnlock()
	for id, props := range registry {
		if props.Name == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown block type %q", name)
}

// IDs возвращает отсортированный список зарегистрированных ID.
func IDs() []BlockID {
	mu.RLock()
	defer mu.RUnlock()
	ids := make([]BlockID, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
