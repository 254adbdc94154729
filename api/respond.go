package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/hlog"
)

type errorBody struct {
	Detail string `json:"detail"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("write response")
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, detail string) {
	respondJSON(w, r, status, errorBody{Detail: detail})
}

// streamEvent is one SSE data frame of /api/stream-chat.
type streamEvent struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Agent   string `json:"agent,omitempty"`
}

const (
	streamEventText = "text"
	streamEventDone = "done"
)

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

func sendSSE(w http.ResponseWriter, flusher http.Flusher, ev streamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if _, err := w.Write([]byte("\n\n")); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
