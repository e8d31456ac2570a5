package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/zjrosen/tokenwatt/internal/log"
)

// StreamEvents streams display updates as server-sent events.
// GET /v1/events
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "streaming_unsupported", "Streaming not supported", "")
		return
	}

	ctx := r.Context()
	events := h.broker.Subscribe(ctx)

	// Current totals first so a late subscriber has something to render.
	if snap, err := h.ctrl.Snapshot(ctx); err == nil {
		data, _ := json.Marshal(snap)
		_, _ = fmt.Fprintf(w, "event: connected\ndata: %s\n\n", data)
	} else {
		_, _ = fmt.Fprintf(w, "event: connected\ndata: {}\n\n")
	}
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}

			data, err := json.Marshal(event.Payload)
			if err != nil {
				log.Error(log.CatAPI, "Failed to marshal event", "error", err)
				continue
			}

			_, _ = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", event.Seq, event.Type, data)
			flusher.Flush()
		}
	}
}
