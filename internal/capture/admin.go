package capture

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"tailscale.com/tsweb"

	"github.com/banshee-data/motion.capture/internal/sink"
)

// AttachAdminRoutes registers the session's debug endpoints under /debug/.
func (s *Session) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("capture-status", "current capture session as JSON", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(s.Snapshot()); err != nil {
			http.Error(w, "Failed to encode status", http.StatusInternalServerError)
		}
	})

	// Server-Sent Events stream of emitted rows, formatted as sink records.
	debug.HandleSilentFunc("capture-tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		id, c := s.Subscribe(64)
		defer s.Unsubscribe(id)

		fmt.Fprintf(w, ": %s\n\n", strings.Join(s.cfg.Columns, ","))
		flusher.Flush()

		for {
			select {
			case row, ok := <-c:
				if !ok {
					fmt.Fprint(w, "event: finished\ndata: \n\n")
					flusher.Flush()
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", formatRecord(row.Record())); err != nil {
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	})
}

func formatRecord(record []float64) string {
	var b strings.Builder
	for i, v := range record {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(sink.FormatValue(v))
	}
	return b.String()
}
