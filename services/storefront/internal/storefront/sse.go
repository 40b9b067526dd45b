package storefront

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	sseRetryMillis   = 2000
	sseKeepalive     = 30 * time.Second
	sseViewEventName = "view"
)

// StreamViews pushes every modal view of a tab as server-sent events.
func (h *Handler) StreamViews(w http.ResponseWriter, r *http.Request) {
	tab, ok := h.tab(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	subscriberID := uuid.New().String()
	log := h.log(r).With("tab_id", tab.ID, "subscriber_id", subscriberID)
	log.Info("new SSE connection")

	views := tab.Views().Subscribe(subscriberID)
	defer tab.Views().Unsubscribe(subscriberID)

	fmt.Fprintf(w, ": connected\n\n")
	fmt.Fprintf(w, "retry: %d\n\n", sseRetryMillis)
	flush(w)

	ticker := time.NewTicker(sseKeepalive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Info("SSE client disconnected")
			return

		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flush(w)

		case view, ok := <-views:
			if !ok {
				log.Info("view channel closed")
				return
			}

			data, err := json.Marshal(view)
			if err != nil {
				log.Error("cannot encode view", "error", err)
				continue
			}
			sendSSEEvent(w, sseViewEventName, string(data))
		}
	}
}

// sendSSEEvent writes one event, prefixing every data line.
func sendSSEEvent(w http.ResponseWriter, eventType string, data string) {
	data = strings.TrimSpace(data)

	fmt.Fprintf(w, "event: %s\n", eventType)
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprintf(w, "\n")

	flush(w)
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
