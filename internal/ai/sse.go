package ai

import (
	"fmt"
	"net/http"
	"strings"
)

// Relay forwards every token of s to w as a server-sent event, flushing after
// each frame. It returns the number of frames written.
func Relay(w http.ResponseWriter, s *Stream) (int, error) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	frames := 0
	for s.Next() {
		if _, err := fmt.Fprint(w, Frame(s.Token())); err != nil {
			return frames, fmt.Errorf("write frame: %w", err)
		}
		frames++
		if flusher != nil {
			flusher.Flush()
		}
	}
	return frames, s.Err()
}

// Frame encodes one SSE data event. Multi-line tokens become several data
// lines of the same event.
func Frame(tok string) string {
	tok = strings.ReplaceAll(tok, "\r\n", "\n")
	var b strings.Builder
	for _, line := range strings.Split(tok, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.String()
}
