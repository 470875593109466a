package logging

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentLoggerIsShared(t *testing.T) {
	a := GetComponentLogger("test-shared")
	b := GetComponentLogger("test-shared")
	assert.Same(t, a, b, "один логгер на компонент")
	assert.Equal(t, "test-shared", a.Component())
}

func TestDefaultLevelReachesComponents(t *testing.T) {
	t.Cleanup(func() { SetDefaultLevel(INFO) })
	l := GetComponentLogger("test-level")

	SetDefaultLevel(WARN)
	assert.Equal(t, WARN, l.minConsoleLevel, "уже созданный компонент")
	assert.Equal(t, WARN, GetComponentLogger("test-level-new").minConsoleLevel, "новый компонент")
}

func TestCloseReleasesComponentFiles(t *testing.T) {
	dir := t.TempDir()
	SetLogDir(dir)
	t.Cleanup(func() { SetLogDir("") })

	l := GetComponentLogger("test-file")
	l.Info("запись")
	require.NotNil(t, l.file)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	closeComponents()
	assert.Nil(t, l.file, "файл закрыт")
	assert.NotSame(t, l, GetComponentLogger("test-file"), "после закрытия логгер создаётся заново")
	closeComponents()
}

func TestWriterLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("test", &buf, WARN)
	l.Info("скрыто")
	l.Warn("видно %d", 1)
	assert.NotContains(t, buf.String(), "скрыто")
	assert.Contains(t, buf.String(), "[WARN] [test] видно 1")
}
