package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, WARN, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, INFO, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestLoggerRespectsConsoleLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(Options{ConsoleLevel: WARN, Console: &buf})
	defer Configure(Options{ConsoleLevel: INFO, FileLevel: DEBUG})

	l, err := NewLogger("world")
	require.NoError(t, err)

	l.Info("hidden %d", 1)
	l.Warn("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[world] shown 2")
}

func TestLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	Configure(Options{Dir: dir, ConsoleLevel: OFF, FileLevel: DEBUG, Console: &buf})
	defer Configure(Options{ConsoleLevel: INFO, FileLevel: DEBUG})

	l, err := NewLogger("storage")
	require.NoError(t, err)
	l.Debug("saved %s", "megachunk")
	require.NoError(t, l.Close())

	files, err := filepath.Glob(filepath.Join(dir, "storage_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DEBUG] [storage] saved megachunk")
	assert.Empty(t, buf.String())
}

func TestDiscardIsSilent(t *testing.T) {
	l := Discard()
	l.Error("nothing")
	assert.NoError(t, l.Close())
}

func TestManagerReturnsSameLogger(t *testing.T) {
	lm := newLoggerManager()

	a := lm.Logger(ComponentTerrain)
	b := lm.Logger(ComponentTerrain)

	assert.Same(t, a, b)
	assert.Equal(t, "terrain", a.Component())
	assert.Equal(t, []Component{ComponentTerrain}, lm.Active())
	assert.NoError(t, lm.CloseAll())
	assert.Empty(t, lm.Active())
}

func TestManagerLevels(t *testing.T) {
	lm := newLoggerManager()

	// Уровень, заданный до создания логгера, применяется при создании
	require.NoError(t, lm.SetLevel(ComponentStorage, ERROR, ERROR))
	assert.Equal(t, ERROR, lm.Logger(ComponentStorage).minConsoleLevel)

	// И сразу меняет уже созданный
	world := lm.Logger(ComponentWorld)
	require.NoError(t, lm.ApplyLevels(map[string]string{"world": "trace"}))
	assert.Equal(t, TRACE, world.minConsoleLevel)

	assert.Error(t, lm.SetLevel(Component("physics"), ERROR, ERROR), "Неизвестный компонент")
	assert.Error(t, lm.ApplyLevels(map[string]string{"http": "loud"}))
	assert.Error(t, lm.ApplyLevels(map[string]string{"mmo": "INFO"}))

	// Ошибочный набор не меняет ни одного компонента
	err := lm.ApplyLevels(map[string]string{"world": "error", "terrain": "loud"})
	assert.Error(t, err)
	assert.Equal(t, TRACE, world.minConsoleLevel)
	assert.NoError(t, CheckLevels(nil))
}

func TestHexDumpTruncates(t *testing.T) {
	assert.Equal(t, "No data", HexDump(nil))
	dump := HexDump(make([]byte, 1000))
	assert.Contains(t, dump, "000000f0")
	assert.NotContains(t, dump, "00000100")
}
