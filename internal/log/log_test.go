package log

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormat_FieldsAndOrphanKey(t *testing.T) {
	ts := time.Date(2025, 12, 6, 10, 45, 0, 0, time.UTC)

	got := format(ts, LevelWarn, CatSink, "append failed", []any{"path", "/tmp/x", "orphan"})

	require.Equal(t, "2025-12-06T10:45:00 [WARN] [sink] append failed path=/tmp/x orphan=<missing>\n", got)
}

func TestWrite_RespectsMinLevelAndEnabled(t *testing.T) {
	var buf bytes.Buffer
	cleanup := InitWriter(&buf)
	defer cleanup()

	SetMinLevel(LevelInfo)
	Debug(CatCapture, "hidden")
	Info(CatCapture, "shown", "state", "idle")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "[INFO] [capture] shown state=idle")

	SetEnabled(false)
	Error(CatCapture, "muted")
	require.NotContains(t, buf.String(), "muted")
}

func TestErrorErr_NilError(t *testing.T) {
	var buf bytes.Buffer
	cleanup := InitWriter(&buf)
	defer cleanup()

	ErrorErr(CatLedger, "insert", nil)
	require.Contains(t, buf.String(), "error=<nil>")
}

func TestInit_AppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")

	cleanup, err := Init(path)
	require.NoError(t, err)
	Info(CatConfig, "first")
	cleanup()

	cleanup, err = Init(path)
	require.NoError(t, err)
	Info(CatConfig, "second")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
}

func TestNewListener_ReceivesLines(t *testing.T) {
	var buf bytes.Buffer
	cleanup := InitWriter(&buf)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener := NewListener(ctx)
	require.NotNil(t, listener)

	Warn(CatAPI, "slow client")

	msg := listener.Listen()()
	event, ok := msg.(LogEvent)
	require.True(t, ok)
	require.Contains(t, event.Payload, "[WARN] [api] slow client")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, LevelInfo, ParseLevel("INFO"))
	require.Equal(t, LevelWarn, ParseLevel("warning"))
	require.Equal(t, LevelError, ParseLevel("error"))
	require.Equal(t, LevelDebug, ParseLevel("nonsense"))
}
