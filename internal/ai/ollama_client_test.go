package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"syscall"
	"testing"
	"time"
)

type ipv4Server struct {
	URL string
	srv *http.Server
	ln  net.Listener
}

func newIPv4Server(t *testing.T, handler http.Handler) *ipv4Server {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
			t.Skipf("skipping test: cannot open local listener (%v)", err)
		}
		t.Fatalf("listen tcp4: %v", err)
	}
	srv := &http.Server{Handler: handler}
	s := &ipv4Server{
		URL: "http://" + ln.Addr().String(),
		srv: srv,
		ln:  ln,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(fmt.Sprintf("test server serve: %v", err))
		}
	}()
	return s
}

func (s *ipv4Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}

const threeTokensOneBad = `{"response":"Kig","done":false}
not json at all
{"response":"ali","done":false}

{"response":"","done":true}
`

func TestOllamaGenerateStreamRequest(t *testing.T) {
	var captured generateRequest
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = io.WriteString(w, threeTokensOneBad)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "", 2*time.Second)
	s, err := c.GenerateStream(context.Background(), "capital of Rwanda?")
	if err != nil {
		t.Fatalf("GenerateStream error: %v", err)
	}
	defer s.Close()

	var toks []string
	for s.Next() {
		toks = append(toks, s.Token())
	}
	if err := s.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if captured.Model != "gemma:2b" || captured.Prompt != "capital of Rwanda?" || !captured.Stream {
		t.Fatalf("unexpected request: %+v", captured)
	}
	if strings.Join(toks, "|") != "Kig|ali|" {
		t.Fatalf("tokens = %q", toks)
	}
	if s.Skipped() != 1 {
		t.Fatalf("skipped = %d, want 1", s.Skipped())
	}
}

func TestOllamaGenerateStreamModelNotFound(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "model 'x' not found"})
	}))
	defer srv.Close()
	c := NewOllamaClient(srv.URL, "x", 2*time.Second)
	_, err := c.GenerateStream(context.Background(), "hi")
	var mnf *ModelNotFoundError
	if !errors.As(err, &mnf) {
		t.Fatalf("expected ModelNotFoundError, got %v", err)
	}
	if mnf.Message != "model 'x' not found" {
		t.Fatalf("message = %q", mnf.Message)
	}
}

func TestOllamaGenerateStreamServerError(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	c := NewOllamaClient(srv.URL, "", 2*time.Second)
	_, err := c.GenerateStream(context.Background(), "hi")
	var se *ServerError
	if !errors.As(err, &se) || se.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected ServerError 503, got %v", err)
	}
}

func TestOllamaGenerateStreamEmptyPrompt(t *testing.T) {
	c := NewOllamaClient("http://localhost:11434", "", time.Second)
	_, err := c.GenerateStream(context.Background(), "   ")
	if err == nil || err.Error() != "prompt cannot be empty" {
		t.Fatalf("expected 'prompt cannot be empty' error, got: %v", err)
	}
}

func TestOllamaUnreachable(t *testing.T) {
	c := NewOllamaClient("http://127.0.0.1:1", "", time.Second)
	_, err := c.GenerateStream(context.Background(), "hi")
	var ue *UnreachableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnreachableError, got %v", err)
	}
}

func TestStreamStopsAtDone(t *testing.T) {
	body := `{"response":"a"}
{"response":"b","done":true}
{"response":"after"}
`
	s := NewStream(io.NopCloser(strings.NewReader(body)))
	var toks []string
	for s.Next() {
		toks = append(toks, s.Token())
	}
	if strings.Join(toks, "") != "ab" {
		t.Fatalf("tokens = %q", toks)
	}
	if s.Next() {
		t.Fatalf("Next after end must stay false")
	}
}

func TestRelayForwardsOneFramePerValidLine(t *testing.T) {
	rec := httptest.NewRecorder()
	s := NewStream(io.NopCloser(strings.NewReader(threeTokensOneBad)))
	n, err := Relay(rec, s)
	if err != nil {
		t.Fatalf("Relay: %v", err)
	}
	if n != 3 {
		t.Fatalf("frames = %d, want 3", n)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	want := "data: Kig\n\ndata: ali\n\ndata: \n\n"
	if rec.Body.String() != want {
		t.Fatalf("body = %q, want %q", rec.Body.String(), want)
	}
	if !rec.Flushed {
		t.Fatalf("expected frames to be flushed")
	}
}

func TestFrameSplitsLines(t *testing.T) {
	if got := Frame("one\ntwo"); got != "data: one\ndata: two\n\n" {
		t.Fatalf("Frame = %q", got)
	}
	if got := Frame("x\r\ny"); got != "data: x\ndata: y\n\n" {
		t.Fatalf("Frame = %q", got)
	}
}
