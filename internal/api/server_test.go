package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/tokenwatt/internal/capture"
	"github.com/zjrosen/tokenwatt/internal/pubsub"
	"github.com/zjrosen/tokenwatt/internal/session"
)

func TestServer_Lifecycle(t *testing.T) {
	ctrl := &mockController{}
	ctrl.On("Status", mock.Anything).Return(capture.Status{Enabled: true}, nil)
	ctrl.On("Snapshot", mock.Anything).Return(session.Update{}, nil)
	broker := pubsub.NewBroker[session.Update]()
	defer broker.Close()

	srv, err := NewServer(ServerConfig{
		Addr:    "127.0.0.1:0",
		Handler: HandlerConfig{Controller: ctrl, Broker: broker},
	})
	require.NoError(t, err)
	require.NotZero(t, srv.Port())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", srv.Port()))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// An open event stream must not hold up shutdown.
	stream, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/v1/events", srv.Port()))
	require.NoError(t, err)
	defer stream.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	require.NoError(t, <-errCh)
}

func TestNewServer_BadAddr(t *testing.T) {
	_, err := NewServer(ServerConfig{Addr: "256.0.0.1:bad"})
	require.Error(t, err)
}
