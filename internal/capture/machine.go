package capture

import (
	"time"

	"github.com/google/uuid"

	"github.com/zjrosen/tokenwatt/internal/log"
)

// State is the episode state of a Machine.
type State int

const (
	// StateIdle means no episode is open.
	StateIdle State = iota
	// StateCapturing means an episode is open and its debounce timer is pending.
	StateCapturing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	default:
		return "unknown"
	}
}

// Episode is a closed capture episode handed to the flush handler.
type Episode struct {
	ID       string
	Document string
	// Base is the document text before the first significant edit.
	Base string
	// Final is the document text after the most recent significant edit.
	Final    string
	Edits    int
	OpenedAt time.Time
	ClosedAt time.Time
}

// FlushFunc receives each flushed episode.
type FlushFunc func(Episode)

// Config configures a Machine.
type Config struct {
	Classifier Classifier
	// Debounce is the quiet period after the last significant edit before flushing.
	Debounce time.Duration
	// FlushOnSwitch flushes an open episode when the active document changes
	// instead of abandoning it.
	FlushOnSwitch bool
	// Scheduler runs the debounce timer. Defaults to RealScheduler.
	Scheduler Scheduler
	// Now defaults to time.Now.
	Now func() time.Time
}

// DefaultDebounce is the quiet period used when Config.Debounce is zero.
const DefaultDebounce = 4 * time.Second

// Status is a point-in-time view of a Machine.
type Status struct {
	State     State
	Enabled   bool
	Document  string
	EpisodeID string
	Edits     int
	OpenedAt  time.Time
}

type episode struct {
	id       string
	base     string
	final    string
	edits    int
	openedAt time.Time
	timer    Timer
}

// Machine is the episode state machine. It is not safe for concurrent use;
// Loop provides serialised access.
type Machine struct {
	classifier    Classifier
	debounce      time.Duration
	flushOnSwitch bool
	sched         Scheduler
	now           func() time.Time
	onFlush       FlushFunc

	enabled  bool
	document string
	prior    string
	ep       *episode
	gen      uint64
}

// NewMachine creates an enabled Machine in the Idle state.
func NewMachine(cfg Config, onFlush FlushFunc) *Machine {
	m := &Machine{
		classifier:    cfg.Classifier,
		debounce:      cfg.Debounce,
		flushOnSwitch: cfg.FlushOnSwitch,
		sched:         cfg.Scheduler,
		now:           cfg.Now,
		onFlush:       onFlush,
		enabled:       true,
	}
	if m.debounce <= 0 {
		m.debounce = DefaultDebounce
	}
	if m.sched == nil {
		m.sched = RealScheduler{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// State returns Idle or Capturing.
func (m *Machine) State() State {
	if m.ep == nil {
		return StateIdle
	}
	return StateCapturing
}

// Status returns a diagnostic snapshot.
func (m *Machine) Status() Status {
	s := Status{
		State:    m.State(),
		Enabled:  m.enabled,
		Document: m.document,
	}
	if m.ep != nil {
		s.EpisodeID = m.ep.id
		s.Edits = m.ep.edits
		s.OpenedAt = m.ep.openedAt
	}
	return s
}

// Enabled reports whether edits are being tracked.
func (m *Machine) Enabled() bool {
	return m.enabled
}

// SetEnabled is the logging toggle. While disabled, edits are ignored
// entirely; disabling abandons any open episode.
func (m *Machine) SetEnabled(enabled bool) {
	if m.enabled == enabled {
		return
	}
	m.enabled = enabled
	if !enabled {
		m.abandon("logging disabled")
	}
	log.Info(log.CatCapture, "Logging toggled", "enabled", enabled)
}

// Open makes document the active document with text as its current content.
// An open episode on a different document is abandoned, or flushed when
// FlushOnSwitch is set.
func (m *Machine) Open(document, text string) {
	if m.ep != nil && document != m.document {
		if m.flushOnSwitch {
			m.Flush()
		} else {
			m.abandon("document switch")
		}
	}
	m.document = document
	m.prior = text
	log.Debug(log.CatCapture, "Active document", "document", document, "chars", len(text))
}

// IsActive reports whether edits for document are applied: it is the active
// document, or no document is active yet.
func (m *Machine) IsActive(document string) bool {
	return document == "" || m.document == "" || document == m.document
}

// OnEdit applies one edit notification and reports whether it was significant.
func (m *Machine) OnEdit(e Edit) bool {
	if !m.enabled {
		return false
	}
	if !m.IsActive(e.Document) {
		log.Debug(log.CatCapture, "Ignoring edit for inactive document",
			"document", e.Document, "active", m.document)
		return false
	}
	if m.document == "" {
		m.document = e.Document
	}

	significant := m.classifier.SignificantEdit(e)
	if significant {
		if m.ep == nil {
			m.ep = &episode{
				id:       uuid.NewString(),
				base:     m.prior,
				openedAt: m.now(),
			}
			log.Debug(log.CatCapture, "Episode opened", "episode", m.ep.id, "document", m.document)
		}
		m.ep.final = e.Text
		m.ep.edits++
		m.arm()
	}

	m.prior = e.Text
	return significant
}

// Flush closes the open episode and hands it to the flush handler.
// The machine is Idle again before the handler runs. Returns false when no
// episode was open.
func (m *Machine) Flush() bool {
	ep := m.ep
	if ep == nil {
		return false
	}
	m.clear()

	closed := Episode{
		ID:       ep.id,
		Document: m.document,
		Base:     ep.base,
		Final:    ep.final,
		Edits:    ep.edits,
		OpenedAt: ep.openedAt,
		ClosedAt: m.now(),
	}
	log.Debug(log.CatCapture, "Episode flushed", "episode", closed.ID, "edits", closed.Edits)

	if m.onFlush != nil {
		m.onFlush(closed)
	}
	return true
}

// Abandon drops the open episode without flushing it.
func (m *Machine) Abandon() {
	m.abandon("requested")
}

func (m *Machine) abandon(reason string) {
	if m.ep == nil {
		return
	}
	log.Info(log.CatCapture, "Episode abandoned", "episode", m.ep.id, "reason", reason)
	m.clear()
}

func (m *Machine) clear() {
	if m.ep != nil && m.ep.timer != nil {
		m.ep.timer.Stop()
	}
	m.ep = nil
	m.gen++
}

// arm (re)starts the debounce timer for the open episode.
func (m *Machine) arm() {
	if m.ep.timer != nil {
		m.ep.timer.Stop()
	}
	m.gen++
	gen := m.gen
	m.ep.timer = m.sched.AfterFunc(m.debounce, func() { m.fire(gen) })
}

// fire ignores callbacks from timers that were superseded after they fired
// but before they were delivered.
func (m *Machine) fire(gen uint64) {
	if m.ep == nil || gen != m.gen {
		return
	}
	m.Flush()
}
