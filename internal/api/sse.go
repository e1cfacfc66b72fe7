package api

import (
	"fmt"
	"net/http"

	"github.com/anatolev-dev/variantgate/internal/snapshot"
	"github.com/anatolev-dev/variantgate/internal/telemetry"
)

// handleStream handles GET /v1/configs/stream: a server-sent-events stream
// of snapshot ETags. SDKs re-fetch the snapshot when a new ETag arrives
// instead of polling on a timer.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	updates, unsub := snapshot.Subscribe()
	defer unsub()

	telemetry.SSEClients.Inc()
	defer telemetry.SSEClients.Dec()

	// Initial event so clients can verify their cached ETag immediately.
	fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", snapshot.Load().ETag)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case etag, open := <-updates:
			if !open {
				return
			}
			fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", etag)
			flusher.Flush()
		}
	}
}
