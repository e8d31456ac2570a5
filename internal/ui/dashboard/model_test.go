package dashboard

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/tokenwatt/internal/pubsub"
	"github.com/zjrosen/tokenwatt/internal/session"
	"github.com/zjrosen/tokenwatt/internal/ui/toaster"
)

type mockController struct {
	mock.Mock
}

func (m *mockController) SetEnabled(ctx context.Context, enabled bool) error {
	return m.Called(ctx, enabled).Error(0)
}

func (m *mockController) Flush(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *mockController) Snapshot(ctx context.Context) (session.Update, error) {
	args := m.Called(ctx)
	return args.Get(0).(session.Update), args.Error(1)
}

func createTestModel(t *testing.T, ctrl *mockController) (Model, *pubsub.Broker[session.Update]) {
	t.Helper()
	broker := pubsub.NewBroker[session.Update]()
	t.Cleanup(broker.Close)
	m := New(Config{Controller: ctrl, Broker: broker, LogPath: "/tmp/tokenwatt.log"})
	t.Cleanup(m.Cleanup)
	return m, broker
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestModel_LoadsSnapshot(t *testing.T) {
	ctrl := &mockController{}
	ctrl.On("Snapshot", mock.Anything).Return(session.Update{Enabled: true, TotalEnergyJoules: 9, Episodes: 1}, nil)
	m, _ := createTestModel(t, ctrl)

	msg := m.loadSnapshot()()
	m, _ = update(t, m, msg)

	require.Equal(t, 9.0, m.Current().TotalEnergyJoules)
	require.Contains(t, m.View(), "9 J")
}

func TestModel_EpisodeRecorded(t *testing.T) {
	m, _ := createTestModel(t, &mockController{})

	for i := 1; i <= maxRecent+2; i++ {
		m, _ = update(t, m, pubsub.Event[session.Update]{
			Type: pubsub.EpisodeRecorded,
			Payload: session.Update{
				Enabled:           true,
				FileName:          "main.go",
				Tokens:            i,
				EnergyJoules:      float64(i) * 3,
				TotalEnergyJoules: float64(i) * 3,
				Episodes:          i,
				Timestamp:         time.Now(),
			},
		})
	}

	require.Len(t, m.recent, maxRecent)
	require.Equal(t, maxRecent+2, m.recent[0].Tokens, "newest first")
	require.Equal(t, maxRecent+2, m.Current().Episodes)

	view := m.View()
	require.Contains(t, view, "Recent suggestions")
	require.Contains(t, view, "main.go")
}

func TestModel_SinkFailedShowsError(t *testing.T) {
	m, _ := createTestModel(t, &mockController{})

	m, _ = update(t, m, pubsub.Event[session.Update]{
		Type:    pubsub.SinkFailed,
		Payload: session.Update{Enabled: true, Error: "permission denied"},
	})

	require.Contains(t, m.View(), "Error: permission denied")
	require.Empty(t, m.recent)
}

func TestModel_ToggleKey(t *testing.T) {
	ctrl := &mockController{}
	ctrl.On("SetEnabled", mock.Anything, false).Return(nil).Once()
	m, _ := createTestModel(t, ctrl)
	m.current.Enabled = true

	_, cmd := update(t, m, keyMsg("t"))
	require.NotNil(t, cmd)
	require.Nil(t, cmd())
	ctrl.AssertExpectations(t)

	m, _ = update(t, m, pubsub.Event[session.Update]{Type: pubsub.LoggingToggled, Payload: session.Update{Enabled: false}})
	require.Contains(t, m.View(), "Logging disabled")
}

func TestModel_ToggleKeyError(t *testing.T) {
	ctrl := &mockController{}
	ctrl.On("SetEnabled", mock.Anything, true).Return(errors.New("capture loop stopped"))
	m, _ := createTestModel(t, ctrl)

	_, cmd := update(t, m, keyMsg("t"))
	m, _ = update(t, m, cmd())

	require.Contains(t, m.View(), "capture loop stopped")
}

func TestModel_FlushKey(t *testing.T) {
	ctrl := &mockController{}
	ctrl.On("Flush", mock.Anything).Return(false, nil).Once()
	m, _ := createTestModel(t, ctrl)

	_, cmd := update(t, m, keyMsg("f"))
	m, _ = update(t, m, cmd())

	require.Contains(t, m.View(), "Nothing to flush")
}

func TestModel_QuitKey(t *testing.T) {
	m, _ := createTestModel(t, &mockController{})

	m, cmd := update(t, m, keyMsg("q"))
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
	require.Error(t, m.ctx.Err(), "quitting releases subscriptions")
}

func TestModel_ListensThroughBroker(t *testing.T) {
	m, broker := createTestModel(t, &mockController{})

	broker.Publish(pubsub.EpisodeRecorded, session.Update{TotalEnergyJoules: 4})

	msg := m.updates.Listen()()
	ev, ok := msg.(pubsub.Event[session.Update])
	require.True(t, ok)
	require.Equal(t, 4.0, ev.Payload.TotalEnergyJoules)
}

func TestModel_ViewRespectsWidth(t *testing.T) {
	m, _ := createTestModel(t, &mockController{})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 50, Height: 20})

	for _, line := range strings.Split(m.View(), "\n") {
		require.LessOrEqual(t, lipgloss.Width(line), 50)
	}
}

func TestModel_ToastDismisses(t *testing.T) {
	ctrl := &mockController{}
	ctrl.On("Flush", mock.Anything).Return(true, nil).Once()
	m, _ := createTestModel(t, ctrl)

	_, cmd := update(t, m, keyMsg("f"))
	m, dismiss := update(t, m, cmd())
	require.Contains(t, m.View(), "Flushed open episode")
	require.NotNil(t, dismiss)

	m, _ = update(t, m, toaster.DismissMsg{})
	require.Contains(t, m.View(), "Flushed open episode", "a dismissal for another toast is ignored")
}

func TestModel_HelpKeyExpandsFooter(t *testing.T) {
	m, _ := createTestModel(t, &mockController{})
	require.False(t, m.help.ShowAll)

	m, _ = update(t, m, keyMsg("?"))
	require.True(t, m.help.ShowAll)
	require.Contains(t, m.View(), "toggle logging")
}
