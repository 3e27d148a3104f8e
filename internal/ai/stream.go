package ai

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
)

const maxLineBytes = 1 << 20

// Stream yields the tokens of a newline-delimited JSON generation stream one
// line at a time. Blank and malformed lines are skipped. The stream ends at
// EOF or after a line with "done": true.
type Stream struct {
	body    io.ReadCloser
	sc      *bufio.Scanner
	tok     string
	err     error
	done    bool
	skipped int
}

// NewStream wraps an NDJSON body.
func NewStream(body io.ReadCloser) *Stream {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)
	return &Stream{body: body, sc: sc}
}

// Next advances to the next token. It returns false at the end of the
// stream or on a read error (see Err).
func (s *Stream) Next() bool {
	if s.done {
		return false
	}
	for s.sc.Scan() {
		line := bytes.TrimSpace(s.sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk generateChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			s.skipped++
			continue
		}
		s.tok = chunk.Response
		s.done = chunk.Done
		return true
	}
	s.done = true
	s.err = s.sc.Err()
	return false
}

// Token is the response fragment of the current line.
func (s *Stream) Token() string { return s.tok }

// Err returns the read error that ended the stream, if any.
func (s *Stream) Err() error { return s.err }

// Skipped counts malformed lines dropped so far.
func (s *Stream) Skipped() int { return s.skipped }

func (s *Stream) Close() error { return s.body.Close() }
