package streaming

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Handler streams hub events as Server-Sent Events. The optional query
// parameters "workflow" and "types" (comma separated) narrow the stream.
func Handler(hub EventHub) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		filter := EventFilter{Workflow: r.URL.Query().Get("workflow")}
		if types := r.URL.Query().Get("types"); types != "" {
			filter.Types = strings.Split(types, ",")
		}

		ch, cancel, err := hub.Subscribe(r.Context(), filter)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		defer cancel()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				data, err := json.Marshal(ev)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
				flusher.Flush()
			}
		}
	})
}
