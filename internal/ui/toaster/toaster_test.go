package toaster

import (
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	m := New()

	assert.False(t, m.Visible())
	assert.Empty(t, m.View(80))
}

func TestShow(t *testing.T) {
	m, cmd := New().Show("Hello", StyleSuccess, time.Millisecond)

	require.NotNil(t, cmd)
	assert.True(t, m.Visible())
	assert.Contains(t, m.View(80), "✓ Hello")
}

func TestShow_ReplacesExisting(t *testing.T) {
	m, _ := New().Show("First", StyleSuccess, time.Second)
	m, _ = m.Show("Second", StyleError, time.Second)

	assert.Contains(t, m.View(80), "✗ Second")
	assert.NotContains(t, m.View(80), "First")
}

func TestUpdate_DismissesOwnToast(t *testing.T) {
	m, cmd := New().Show("Hello", StyleInfo, time.Millisecond)

	m = m.Update(cmd())
	assert.False(t, m.Visible())
	assert.Empty(t, m.Message())
}

func TestUpdate_IgnoresStaleDismiss(t *testing.T) {
	m, stale := New().Show("First", StyleInfo, time.Millisecond)
	m, _ = m.Show("Second", StyleInfo, time.Hour)

	m = m.Update(stale())
	assert.True(t, m.Visible())
	assert.Equal(t, "Second", m.Message())
}

func TestView_Truncates(t *testing.T) {
	m, _ := New().Show("a rather long notice that will not fit", StyleSuccess, time.Second)

	assert.LessOrEqual(t, lipgloss.Width(m.View(12)), 12)
}
