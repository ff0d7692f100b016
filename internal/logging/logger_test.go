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
	lvl, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, DEBUG, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, INFO, lvl)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger("chunks", Options{Console: &buf, MinConsoleLevel: WARN})
	require.NoError(t, err)

	l.Info("не должно попасть")
	l.Warn("очередь %d", 3)

	out := buf.String()
	assert.NotContains(t, out, "не должно попасть")
	assert.Contains(t, out, "[WARN] [chunks] очередь 3")
	assert.True(t, l.Enabled(ERROR))
	assert.False(t, l.Enabled(DEBUG))
}

func TestLoggerFile(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger("world", Options{Dir: dir, Console: &bytes.Buffer{}, MinConsoleLevel: ERROR, MinFileLevel: DEBUG})
	require.NoError(t, err)

	l.Debug("генерация %s", "ok")
	require.NoError(t, l.Close())

	files, err := filepath.Glob(filepath.Join(dir, "world_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DEBUG] [world] генерация ok")
}

func TestNilLoggerIsSilent(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Info("ничего")
		Info("глобальный логгер не инициализирован")
	})
	assert.False(t, l.Enabled(ERROR))
}

func TestComponentLoggers(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitDefaultLogger("test", Options{Console: &buf, MinConsoleLevel: INFO}))
	defer CloseDefaultLogger()

	GetChunkLogger().Info("чанк готов")
	assert.Contains(t, buf.String(), "[chunks] чанк готов")
	assert.Same(t, GetChunkLogger(), Components().Logger(ComponentChunks))
	GetWorldLogger().Debug("не выводится")
	assert.Equal(t, []string{ComponentChunks, ComponentWorld}, Components().Names())
	assert.NotContains(t, buf.String(), "не выводится")

	require.NoError(t, Components().SetLevel(ComponentChunks, ERROR, ERROR))
	GetChunkLogger().Info("подавлено")
	assert.NotContains(t, buf.String(), "подавлено")
	assert.Error(t, Components().SetLevel("missing", ERROR, ERROR))

	CloseDefaultLogger()
	assert.Empty(t, Components().Names())
	assert.Nil(t, GetChunkLogger(), "после закрытия вывод компонентов отключён")
}
