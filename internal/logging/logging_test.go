package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	require.Equal(t, slog.LevelWarn, ParseLevel(" WARN "))
	require.Equal(t, slog.LevelError, ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNew_WritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(&buf, "warn", "")
	require.NoError(t, err)
	defer closer()

	logger.Info("hidden")
	logger.Warn("shown", "phone", "9999999999")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "phone=9999999999")
}

func TestFileWriter_KeepsTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "kinboard.log")
	w, err := NewFileWriter(path)
	require.NoError(t, err)
	defer w.Close()

	chunk := []byte(strings.Repeat("a", 1024*1024))
	for i := 0; i < 6; i++ {
		_, err := w.Write(chunk)
		require.NoError(t, err)
	}
	_, err = w.Write([]byte("tail-marker"))
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(keepLogSizeBytes), info.Size())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasSuffix(data, []byte("tail-marker")))

	_, err = w.Write([]byte("x"))
	require.NoError(t, err)
	info, err = os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(keepLogSizeBytes+1), info.Size())
}
