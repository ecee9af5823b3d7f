package logging

import (
	"fmt"
	"sort"
	"sync"
)

// Component: подсистема, которой принадлежит логгер и его файл
type Component string

const (
	ComponentWorld   Component = "world"
	ComponentStorage Component = "storage"
	ComponentTerrain Component = "terrain"
	ComponentHTTP    Component = "http"
)

// KnownComponents перечисляет компоненты, для которых конфиг может задать уровень.
func KnownComponents() []Component {
	return []Component{ComponentWorld, ComponentStorage, ComponentTerrain, ComponentHTTP}
}

func isKnown(c Component) bool {
	for _, k := range KnownComponents() {
		if k == c {
			return true
		}
	}
	return false
}

// levelOverride: уровни одного компонента, заданные до создания его логгера
type levelOverride struct {
	console, file LogLevel
}

// LoggerManager раздаёт по одному логгеру на компонент
type LoggerManager struct {
	mu        sync.Mutex
	loggers   map[Component]*Logger
	overrides map[Component]levelOverride
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

func newLoggerManager() *LoggerManager {
	return &LoggerManager{
		loggers:   make(map[Component]*Logger),
		overrides: make(map[Component]levelOverride),
	}
}

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = newLoggerManager()
	})
	return globalManager
}

// Logger возвращает логгер компонента, создавая его при первом обращении.
// Если файл лога открыть не удалось, логгер пишет только в консоль.
func (lm *LoggerManager) Logger(c Component) *Logger {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if logger, ok := lm.loggers[c]; ok {
		return logger
	}

	logger, err := NewLogger(string(c))
	if err != nil {
		defaultLogger.Warn("Логгер %s без файла: %v", c, err)
		logger = &Logger{
			component:       string(c),
			consoleLogger:   defaultLogger.consoleLogger,
			minConsoleLevel: currentOptions().ConsoleLevel,
			minFileLevel:    OFF,
		}
	}
	if o, ok := lm.overrides[c]; ok {
		logger.applyLevels(o.console, o.file)
	}
	lm.loggers[c] = logger
	return logger
}

// SetLevel задаёт уровни компонента. Уже созданный логгер меняется сразу,
// ещё не созданный получит их при создании.
func (lm *LoggerManager) SetLevel(c Component, console, file LogLevel) error {
	if !isKnown(c) {
		return fmt.Errorf("unknown log component %q", c)
	}
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.overrides[c] = levelOverride{console: console, file: file}
	if logger, ok := lm.loggers[c]; ok {
		logger.applyLevels(console, file)
	}
	return nil
}

// CheckLevels проверяет уровни из конфига вида {"world": "DEBUG"}, ничего не меняя
func CheckLevels(levels map[string]string) error {
	for name, raw := range levels {
		if !isKnown(Component(name)) {
			return fmt.Errorf("unknown log component %q", name)
		}
		if _, err := ParseLevel(raw); err != nil {
			return fmt.Errorf("log level for %s: %w", name, err)
		}
	}
	return nil
}

// ApplyLevels применяет уровни из конфига к консоли и к файлу.
// При ошибке не меняется ни один компонент.
func (lm *LoggerManager) ApplyLevels(levels map[string]string) error {
	if err := CheckLevels(levels); err != nil {
		return err
	}
	for name, raw := range levels {
		level, _ := ParseLevel(raw)
		if err := lm.SetLevel(Component(name), level, level); err != nil {
			return err
		}
	}
	return nil
}

// Active возвращает отсортированный список компонентов с созданными логгерами
func (lm *LoggerManager) Active() []Component {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	out := make([]Component, 0, len(lm.loggers))
	for c := range lm.loggers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CloseAll закрывает файлы всех логгеров
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var lastErr error
	for c, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			lastErr = fmt.Errorf("close %s logger: %w", c, err)
		}
	}
	lm.loggers = make(map[Component]*Logger)
	return lastErr
}

// For возвращает логгер компонента из глобального менеджера
func For(c Component) *Logger {
	return GetLoggerManager().Logger(c)
}
