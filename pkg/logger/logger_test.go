package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("info"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xteps.log")
	l := New(&Config{Level: "debug", Format: "json", Output: "file", FilePath: path, MaxSize: 1})

	l.Debug("step passed", zap.String("step", "open page"))
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"step passed"`)
	assert.Contains(t, string(data), `"step":"open page"`)
}

func TestNew_NoneOutput(t *testing.T) {
	l := New(&Config{Output: "none"})
	assert.False(t, l.Core().Enabled(zapcore.ErrorLevel))
}

func TestSetLogger(t *testing.T) {
	previous := L()
	t.Cleanup(func() { SetLogger(previous) })

	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))

	L().Info("hello")
	assert.Equal(t, 1, logs.FilterMessage("hello").Len())

	SetLogger(nil)
	assert.NotNil(t, L())
}
