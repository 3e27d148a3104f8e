package web

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/KaramelBytes/geoportal/internal/ai"
)

type chatRequest struct {
	Message string `json:"message"`
}

type chatReply struct {
	Reply string `json:"reply"`
}

const maxChatBody = 64 << 10

// handleChat relays a prompt to the inference runtime as server-sent events.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, chatReply{Reply: "⚠️ Only POST allowed"})
		return
	}
	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxChatBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, chatReply{Reply: "⚠️ Error: invalid JSON body"})
		return
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		writeJSON(w, http.StatusOK, chatReply{Reply: "⚠️ Please enter a message."})
		return
	}
	if s.Chat == nil {
		writeJSON(w, http.StatusServiceUnavailable, chatReply{Reply: "⚠️ Error: the assistant is not configured"})
		return
	}

	stream, err := s.Chat.GenerateStream(r.Context(), msg)
	if err != nil {
		s.Log.Warn("chat upstream failed", "err", err)
		writeJSON(w, http.StatusBadGateway, chatReply{Reply: "⚠️ Error: " + err.Error()})
		return
	}
	defer stream.Close()

	frames, err := ai.Relay(w, stream)
	if err != nil && r.Context().Err() == nil {
		s.Log.Warn("chat relay ended early", "frames", frames, "err", err)
	}
	if n := stream.Skipped(); n > 0 {
		s.Log.Debug("chat relay skipped malformed lines", "count", n)
	}
}
