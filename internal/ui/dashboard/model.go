// Package dashboard implements the live totals TUI shown by `tokenwatt watch --tui`.
//
// The dashboard renders:
//   - the logging state and session totals, updated from the display broker
//   - the most recent recorded episodes
//   - the latest debug log line, when logging to file is on
//
// Keys: t toggles logging, f flushes the open episode, ? expands help, q quits.
package dashboard

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/tokenwatt/internal/keys"
	"github.com/zjrosen/tokenwatt/internal/log"
	"github.com/zjrosen/tokenwatt/internal/pubsub"
	"github.com/zjrosen/tokenwatt/internal/session"
	"github.com/zjrosen/tokenwatt/internal/ui/toaster"
)

// maxRecent is how many recorded episodes the dashboard keeps on screen.
const maxRecent = 8

// Controller is the subset of the tracker the dashboard acts on.
type Controller interface {
	SetEnabled(ctx context.Context, enabled bool) error
	Flush(ctx context.Context) (bool, error)
	Snapshot(ctx context.Context) (session.Update, error)
}

// Config holds configuration for creating a dashboard Model.
type Config struct {
	Controller Controller
	Broker     *pubsub.Broker[session.Update]
	// LogPath is shown in the footer when set.
	LogPath string
}

type snapshotMsg struct {
	update session.Update
}

type flushedMsg struct {
	flushed bool
}

type errMsg struct {
	err error
}

// Model holds the dashboard state.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	ctrl     Controller
	updates  *pubsub.ContinuousListener[session.Update]
	logLines *log.LogListener
	logPath  string

	current session.Update
	recent  []session.Update
	lastLog string
	toast   toaster.Model
	help    help.Model
	err     string

	width  int
	height int
}

// New creates a dashboard Model subscribed to cfg.Broker.
func New(cfg Config) Model {
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		ctx:      ctx,
		cancel:   cancel,
		ctrl:     cfg.Controller,
		updates:  pubsub.NewContinuousListener(ctx, cfg.Broker),
		logLines: log.NewListener(ctx),
		logPath:  cfg.LogPath,
		toast:    toaster.New(),
		help:     help.New(),
	}
}

// Init loads the current totals and starts listening for updates.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.updates.Listen(), m.loadSnapshot()}
	if m.logLines != nil {
		cmds = append(cmds, m.logLines.Listen())
	}
	return tea.Batch(cmds...)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case toaster.DismissMsg:
		m.toast = m.toast.Update(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case pubsub.Event[session.Update]:
		cmd := m.handleUpdate(msg)
		return m, tea.Batch(m.updates.Listen(), cmd)

	case pubsub.Event[string]:
		m.lastLog = msg.Payload
		return m, m.logLines.Listen()

	case snapshotMsg:
		m.current = msg.update
		return m, nil

	case flushedMsg:
		var cmd tea.Cmd
		if msg.flushed {
			m.toast, cmd = m.toast.Show("Flushed open episode", toaster.StyleSuccess, toaster.DefaultDuration)
		} else {
			m.toast, cmd = m.toast.Show("Nothing to flush", toaster.StyleInfo, toaster.DefaultDuration)
		}
		return m, cmd

	case errMsg:
		m.err = msg.err.Error()
		return m, nil
	}

	return m, nil
}

func (m *Model) handleUpdate(ev pubsub.Event[session.Update]) tea.Cmd {
	u := ev.Payload
	m.current = u
	m.err = u.Error

	var cmd tea.Cmd
	switch ev.Type {
	case pubsub.EpisodeRecorded:
		m.recent = append([]session.Update{u}, m.recent...)
		if len(m.recent) > maxRecent {
			m.recent = m.recent[:maxRecent]
		}
	case pubsub.LoggingToggled:
		if u.Enabled {
			m.toast, cmd = m.toast.Show("Logging enabled", toaster.StyleSuccess, toaster.DefaultDuration)
		} else {
			m.toast, cmd = m.toast.Show("Logging disabled", toaster.StyleInfo, toaster.DefaultDuration)
		}
	case pubsub.SinkFailed:
		m.toast, cmd = m.toast.Show("Log write failed", toaster.StyleError, toaster.DefaultDuration)
	}
	return cmd
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Dashboard.Quit):
		m.cancel()
		return m, tea.Quit
	case key.Matches(msg, keys.Dashboard.Toggle):
		return m, m.toggle(!m.current.Enabled)
	case key.Matches(msg, keys.Dashboard.Flush):
		return m, m.flush()
	case key.Matches(msg, keys.Dashboard.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	return m, nil
}

func (m Model) loadSnapshot() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		u, err := ctrl.Snapshot(ctx)
		if err != nil {
			return errMsg{err: err}
		}
		return snapshotMsg{update: u}
	}
}

// toggle returns nothing on success; the resulting LoggingToggled event
// updates the view.
func (m Model) toggle(enabled bool) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		if err := ctrl.SetEnabled(ctx, enabled); err != nil {
			return errMsg{err: err}
		}
		return nil
	}
}

func (m Model) flush() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		flushed, err := ctrl.Flush(ctx)
		if err != nil {
			return errMsg{err: err}
		}
		return flushedMsg{flushed: flushed}
	}
}

// Current returns the latest totals shown.
func (m Model) Current() session.Update {
	return m.current
}

// Cleanup releases the broker subscriptions.
func (m Model) Cleanup() {
	m.cancel()
}
