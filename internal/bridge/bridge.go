// Package bridge implements the JSON-lines protocol hosts use to feed the
// capture loop: one Message per line in, one Reply per line out.
package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/zjrosen/tokenwatt/internal/capture"
	"github.com/zjrosen/tokenwatt/internal/log"
)

// MessageType names a bridge operation.
type MessageType string

const (
	// TypeOpen switches the active document.
	TypeOpen MessageType = "open"
	// TypeEdit delivers an edit notification with explicit changes.
	TypeEdit MessageType = "edit"
	// TypeSnapshot delivers the whole document; changes are derived from the
	// previous snapshot of the same document.
	TypeSnapshot MessageType = "snapshot"
	// TypeToggle enables or disables logging. A missing Enabled flips it.
	TypeToggle MessageType = "toggle"
	// TypeFlush closes the open episode now.
	TypeFlush MessageType = "flush"
	// TypeStatus reports the capture state.
	TypeStatus MessageType = "status"
)

// ErrUnknownType is returned for messages with an unrecognised type.
var ErrUnknownType = errors.New("unknown message type")

// maxLineSize bounds a single message; whole documents travel in one line.
const maxLineSize = 16 * 1024 * 1024

// Message is one inbound bridge message.
type Message struct {
	Type     MessageType      `json:"type"`
	Document string           `json:"document,omitempty"`
	Text     string           `json:"text,omitempty"`
	Changes  []capture.Change `json:"changes,omitempty"`
	Enabled  *bool            `json:"enabled,omitempty"`
}

// Reply answers one Message.
type Reply struct {
	Type        MessageType `json:"type"`
	OK          bool        `json:"ok"`
	Significant bool        `json:"significant,omitempty"`
	Flushed     bool        `json:"flushed,omitempty"`
	Enabled     *bool       `json:"enabled,omitempty"`
	State       string      `json:"state,omitempty"`
	Document    string      `json:"document,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// Controller is the capture surface the bridge drives.
type Controller interface {
	Open(ctx context.Context, document, text string) error
	Edit(ctx context.Context, e capture.Edit) (bool, error)
	SetEnabled(ctx context.Context, enabled bool) error
	Flush(ctx context.Context) (bool, error)
	Status(ctx context.Context) (capture.Status, error)
}

// Dispatcher applies messages to a Controller. It remembers the last text
// seen per document so snapshot messages can be turned into edits.
type Dispatcher struct {
	ctrl Controller

	mu   sync.Mutex
	last map[string]string
}

// NewDispatcher creates a Dispatcher for ctrl.
func NewDispatcher(ctrl Controller) *Dispatcher {
	return &Dispatcher{ctrl: ctrl, last: make(map[string]string)}
}

// Dispatch applies msg and returns the reply. Failures are reported in the
// reply, never as a panic or a dropped message.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) Reply {
	reply, err := d.Apply(ctx, msg)
	if err != nil {
		log.Debug(log.CatAPI, "Bridge message failed", "type", msg.Type, "error", err)
		reply.Error = err.Error()
	}
	return reply
}

// Apply is Dispatch for callers that branch on the error, such as the HTTP
// API mapping failures to status codes.
func (d *Dispatcher) Apply(ctx context.Context, msg Message) (Reply, error) {
	reply, err := d.dispatch(ctx, msg)
	if err != nil {
		return Reply{Type: msg.Type}, err
	}
	reply.Type = msg.Type
	reply.OK = true
	return reply, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, msg Message) (Reply, error) {
	switch msg.Type {
	case TypeOpen:
		if err := d.ctrl.Open(ctx, msg.Document, msg.Text); err != nil {
			return Reply{}, err
		}
		d.remember(msg.Document, msg.Text)
		return Reply{Document: msg.Document}, nil

	case TypeEdit:
		ok, err := d.ctrl.Edit(ctx, capture.Edit{Document: msg.Document, Changes: msg.Changes, Text: msg.Text})
		if err != nil {
			return Reply{}, err
		}
		d.remember(msg.Document, msg.Text)
		return Reply{Significant: ok}, nil

	case TypeSnapshot:
		return d.snapshot(ctx, msg)

	case TypeToggle:
		enabled := msg.Enabled
		if enabled == nil {
			status, err := d.ctrl.Status(ctx)
			if err != nil {
				return Reply{}, err
			}
			flipped := !status.Enabled
			enabled = &flipped
		}
		if err := d.ctrl.SetEnabled(ctx, *enabled); err != nil {
			return Reply{}, err
		}
		return Reply{Enabled: enabled}, nil

	case TypeFlush:
		flushed, err := d.ctrl.Flush(ctx)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Flushed: flushed}, nil

	case TypeStatus:
		status, err := d.ctrl.Status(ctx)
		if err != nil {
			return Reply{}, err
		}
		enabled := status.Enabled
		return Reply{Enabled: &enabled, State: status.State.String(), Document: status.Document}, nil

	default:
		return Reply{}, fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}
}

// snapshot treats the first snapshot of a document as opening it; later
// snapshots become edits against the previous one. A snapshot of a known
// document that is not the active one switches to it first, so hosts that
// report several files (such as the file watcher) track each of them.
func (d *Dispatcher) snapshot(ctx context.Context, msg Message) (Reply, error) {
	d.mu.Lock()
	prior, seen := d.last[msg.Document]
	d.mu.Unlock()

	if !seen {
		if err := d.ctrl.Open(ctx, msg.Document, msg.Text); err != nil {
			return Reply{}, err
		}
		d.remember(msg.Document, msg.Text)
		return Reply{Document: msg.Document}, nil
	}

	edit := capture.EditFromSnapshots(msg.Document, prior, msg.Text)
	ok, err := d.ctrl.Edit(ctx, edit)
	if errors.Is(err, capture.ErrInactiveDocument) {
		log.Debug(log.CatAPI, "Switching to snapshot document", "document", msg.Document)
		if err := d.ctrl.Open(ctx, msg.Document, prior); err != nil {
			return Reply{}, err
		}
		ok, err = d.ctrl.Edit(ctx, edit)
	}
	if err != nil {
		return Reply{}, err
	}
	d.remember(msg.Document, msg.Text)
	return Reply{Significant: ok}, nil
}

func (d *Dispatcher) remember(document, text string) {
	if document == "" {
		return
	}
	d.mu.Lock()
	d.last[document] = text
	d.mu.Unlock()
}

// Serve reads messages from r, one JSON object per line, and writes one reply
// per line to w until r is exhausted or ctx is cancelled. Malformed lines get
// an error reply and processing continues.
func (d *Dispatcher) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxLineSize)

	enc := json.NewEncoder(w)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var reply Reply
		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			log.Debug(log.CatAPI, "Malformed bridge line", "error", err)
			reply = Reply{Error: fmt.Sprintf("parse error: %v", err)}
		} else {
			reply = d.Dispatch(ctx, msg)
		}

		if err := enc.Encode(reply); err != nil {
			return fmt.Errorf("writing reply: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		log.Debug(log.CatAPI, "Scanner error", "error", err)
		return fmt.Errorf("reading messages: %w", err)
	}
	return nil
}
