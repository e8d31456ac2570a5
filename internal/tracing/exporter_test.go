package tracing

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestFileExporter_AppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"existing":"data"}`+"\n"), 0o644))

	exp, err := NewFileExporter(path)
	require.NoError(t, err)

	stub := tracetest.SpanStub{Name: "flush", StartTime: time.Now(), EndTime: time.Now().Add(time.Millisecond)}
	require.NoError(t, exp.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{stub.Snapshot()}))
	require.NoError(t, exp.Shutdown(context.Background()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines++
	}
	require.Equal(t, 2, lines)
}

func TestFileExporter_WritesRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl")
	exp, err := NewFileExporter(path)
	require.NoError(t, err)

	start := time.Now()
	stub := tracetest.SpanStub{
		Name:      SpanEpisodeFlush,
		SpanKind:  trace.SpanKindInternal,
		StartTime: start,
		EndTime:   start.Add(25 * time.Millisecond),
		Status:    sdktrace.Status{Code: codes.Error, Description: "sink failed"},
		Attributes: []attribute.KeyValue{
			attribute.String(AttrEpisodeID, "ep-1"),
			attribute.Int(AttrTokens, 6),
		},
		Events: []sdktrace.Event{{
			Name:       EventTokensCounted,
			Time:       start,
			Attributes: []attribute.KeyValue{attribute.Int(AttrTokens, 6)},
		}},
	}
	require.NoError(t, exp.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{stub.Snapshot()}))
	require.NoError(t, exp.Shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var rec SpanRecord
	require.NoError(t, json.Unmarshal(data, &rec))
	require.Equal(t, SpanEpisodeFlush, rec.Name)
	require.Equal(t, "INTERNAL", rec.Kind)
	require.Equal(t, "ERROR", rec.Status)
	require.Equal(t, "sink failed", rec.StatusMsg)
	require.InDelta(t, 25.0, rec.DurationMs, 0.001)
	require.Equal(t, "ep-1", rec.Attributes[AttrEpisodeID])
	require.EqualValues(t, 6, rec.Attributes[AttrTokens])
	require.Len(t, rec.Events, 1)
	require.Equal(t, EventTokensCounted, rec.Events[0].Name)
}

func TestFileExporter_ShutdownTwice(t *testing.T) {
	exp, err := NewFileExporter(filepath.Join(t.TempDir(), "traces.jsonl"))
	require.NoError(t, err)

	require.NoError(t, exp.Shutdown(context.Background()))
	require.NoError(t, exp.Shutdown(context.Background()))

	stub := tracetest.SpanStub{Name: "late"}
	require.Error(t, exp.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{stub.Snapshot()}))
}

func TestFileExporter_ConcurrentExports(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl")
	exp, err := NewFileExporter(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				stub := tracetest.SpanStub{
					Name:       "concurrent",
					Attributes: []attribute.KeyValue{attribute.Int("worker", worker)},
				}
				_ = exp.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{stub.Snapshot()})
			}
		}(i)
	}
	wg.Wait()
	require.NoError(t, exp.Shutdown(context.Background()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec SpanRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		lines++
	}
	require.Equal(t, 400, lines)
}
