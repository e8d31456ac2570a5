package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zjrosen/tokenwatt/internal/bridge"
	"github.com/zjrosen/tokenwatt/internal/capture"
	"github.com/zjrosen/tokenwatt/internal/pubsub"
	"github.com/zjrosen/tokenwatt/internal/session"
)

type mockController struct {
	mock.Mock
}

func (m *mockController) Open(ctx context.Context, document, text string) error {
	return m.Called(ctx, document, text).Error(0)
}

func (m *mockController) Edit(ctx context.Context, e capture.Edit) (bool, error) {
	args := m.Called(ctx, e)
	return args.Bool(0), args.Error(1)
}

func (m *mockController) SetEnabled(ctx context.Context, enabled bool) error {
	return m.Called(ctx, enabled).Error(0)
}

func (m *mockController) Flush(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *mockController) Status(ctx context.Context) (capture.Status, error) {
	args := m.Called(ctx)
	return args.Get(0).(capture.Status), args.Error(1)
}

func (m *mockController) Snapshot(ctx context.Context) (session.Update, error) {
	args := m.Called(ctx)
	return args.Get(0).(session.Update), args.Error(1)
}

func newTestHandler(t *testing.T, ctrl *mockController) (*Handler, *pubsub.Broker[session.Update]) {
	t.Helper()
	broker := pubsub.NewBroker[session.Update]()
	t.Cleanup(broker.Close)
	return NewHandler(HandlerConfig{Controller: ctrl, Broker: broker}), broker
}

func serve(h *Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	}
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, req)
	return w
}

func decodeReply(t *testing.T, w *httptest.ResponseRecorder) bridge.Reply {
	t.Helper()
	var reply bridge.Reply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	return reply
}

func TestHandler_OpenDocument(t *testing.T) {
	ctrl := &mockController{}
	ctrl.On("Open", mock.Anything, "main.go", "package main\n").Return(nil).Once()
	h, _ := newTestHandler(t, ctrl)

	w := serve(h, http.MethodPost, "/v1/documents", `{"document":"main.go","text":"package main\n"}`)

	require.Equal(t, http.StatusOK, w.Code)
	reply := decodeReply(t, w)
	assert.True(t, reply.OK)
	assert.Equal(t, bridge.TypeOpen, reply.Type)
	ctrl.AssertExpectations(t)
}

func TestHandler_OpenDocument_Validation(t *testing.T) {
	h, _ := newTestHandler(t, &mockController{})

	w := serve(h, http.MethodPost, "/v1/documents", `{"text":"x"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp.Code)
}

func TestHandler_InvalidJSON(t *testing.T) {
	h, _ := newTestHandler(t, &mockController{})

	w := serve(h, http.MethodPost, "/v1/edits", "not json")
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_json", resp.Code)
}

func TestHandler_Edit(t *testing.T) {
	ctrl := &mockController{}
	ctrl.On("Edit", mock.Anything, capture.Edit{
		Document: "a.go",
		Text:     "x\ny\n",
		Changes:  []capture.Change{{Text: "y\n", StartLine: 1, EndLine: 1}},
	}).Return(true, nil).Once()
	h, _ := newTestHandler(t, ctrl)

	w := serve(h, http.MethodPost, "/v1/edits",
		`{"document":"a.go","text":"x\ny\n","changes":[{"text":"y\n","start_line":1,"end_line":1}]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeReply(t, w).Significant)
	ctrl.AssertExpectations(t)
}

func TestHandler_EditSnapshot(t *testing.T) {
	ctrl := &mockController{}
	ctrl.On("Open", mock.Anything, "a.go", "x\n").Return(nil).Once()
	ctrl.On("Edit", mock.Anything, capture.EditFromSnapshots("a.go", "x\n", "x\ny := 2\n")).Return(true, nil).Once()
	h, _ := newTestHandler(t, ctrl)

	w := serve(h, http.MethodPost, "/v1/edits", `{"document":"a.go","text":"x\n","snapshot":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeReply(t, w).Significant)

	w = serve(h, http.MethodPost, "/v1/edits", `{"document":"a.go","text":"x\ny := 2\n","snapshot":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeReply(t, w).Significant)
	ctrl.AssertExpectations(t)

	w = serve(h, http.MethodPost, "/v1/edits", `{"text":"x","snapshot":true}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Flush(t *testing.T) {
	ctrl := &mockController{}
	ctrl.On("Flush", mock.Anything).Return(true, nil).Once()
	h, _ := newTestHandler(t, ctrl)

	w := serve(h, http.MethodPost, "/v1/flush", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeReply(t, w).Flushed)
}

func TestHandler_LoopStopped(t *testing.T) {
	ctrl := &mockController{}
	ctrl.On("Flush", mock.Anything).Return(false, capture.ErrLoopStopped)
	h, _ := newTestHandler(t, ctrl)

	w := serve(h, http.MethodPost, "/v1/flush", "")

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "stopped", resp.Code)
}

func TestHandler_EditInactiveDocument(t *testing.T) {
	ctrl := &mockController{}
	ctrl.On("Edit", mock.Anything, mock.Anything).Return(false, fmt.Errorf("%w: b.go", capture.ErrInactiveDocument))
	h, _ := newTestHandler(t, ctrl)

	w := serve(h, http.MethodPost, "/v1/edits", `{"document":"b.go","text":"x","changes":[{"text":"x"}]}`)

	require.Equal(t, http.StatusConflict, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "inactive_document", resp.Code)
}

func TestHandler_SetLogging(t *testing.T) {
	t.Run("explicit", func(t *testing.T) {
		ctrl := &mockController{}
		ctrl.On("SetEnabled", mock.Anything, false).Return(nil).Once()
		h, _ := newTestHandler(t, ctrl)

		w := serve(h, http.MethodPut, "/v1/logging", `{"enabled":false}`)

		require.Equal(t, http.StatusOK, w.Code)
		reply := decodeReply(t, w)
		require.NotNil(t, reply.Enabled)
		assert.False(t, *reply.Enabled)
	})

	t.Run("empty body flips", func(t *testing.T) {
		ctrl := &mockController{}
		ctrl.On("Status", mock.Anything).Return(capture.Status{Enabled: false}, nil)
		ctrl.On("SetEnabled", mock.Anything, true).Return(nil).Once()
		h, _ := newTestHandler(t, ctrl)

		w := serve(h, http.MethodPut, "/v1/logging", "")

		require.Equal(t, http.StatusOK, w.Code)
		ctrl.AssertExpectations(t)
	})
}

func TestHandler_Totals(t *testing.T) {
	ctrl := &mockController{}
	ctrl.On("Snapshot", mock.Anything).Return(session.Update{TotalEnergyJoules: 12.96, Episodes: 2, Enabled: true}, nil)
	h, _ := newTestHandler(t, ctrl)

	w := serve(h, http.MethodGet, "/v1/totals", "")

	require.Equal(t, http.StatusOK, w.Code)
	var got session.Update
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 12.96, got.TotalEnergyJoules)
	assert.Equal(t, 2, got.Episodes)
	assert.True(t, got.Enabled)
}

func TestHandler_Health(t *testing.T) {
	ctrl := &mockController{}
	ctrl.On("Status", mock.Anything).Return(capture.Status{State: capture.StateCapturing, Enabled: true}, nil).Once()
	h, _ := newTestHandler(t, ctrl)

	w := serve(h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, HealthResponse{Status: "ok", State: "capturing", Enabled: true}, resp)
}

func TestHandler_Health_Unhealthy(t *testing.T) {
	ctrl := &mockController{}
	ctrl.On("Status", mock.Anything).Return(capture.Status{}, capture.ErrLoopStopped)
	h, _ := newTestHandler(t, ctrl)

	w := serve(h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandler_TracesRequests(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	ctrl := &mockController{}
	ctrl.On("Flush", mock.Anything).Return(false, nil)
	broker := pubsub.NewBroker[session.Update]()
	defer broker.Close()
	h := NewHandler(HandlerConfig{Controller: ctrl, Broker: broker, Tracer: tp.Tracer("test")})

	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/flush", nil))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "http.POST /v1/flush", spans[0].Name())
}
