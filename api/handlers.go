package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	contractx "github.com/tanpawarit/coach-agent/agent/contract"
	promptx "github.com/tanpawarit/coach-agent/agent/prompt"
)

const maxRequestBytes = 64 << 10

type chatRequestBody struct {
	UserID       string `json:"user_id"`
	Query        string `json:"query"`
	UserLanguage string `json:"user_language"`
}

type historyBody struct {
	Messages []contractx.Message `json:"messages"`
}

func (s *Server) decodeChatRequest(w http.ResponseWriter, r *http.Request) (contractx.ChatRequest, bool) {
	var body chatRequestBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&body); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return contractx.ChatRequest{}, false
	}
	body.UserID = strings.TrimSpace(body.UserID)
	if body.UserID == "" {
		respondError(w, r, http.StatusBadRequest, "user_id is required")
		return contractx.ChatRequest{}, false
	}
	if !s.limiter.Allow(body.UserID, s.now()) {
		respondError(w, r, http.StatusTooManyRequests, "too many requests, please slow down")
		return contractx.ChatRequest{}, false
	}
	lang := strings.TrimSpace(body.UserLanguage)
	if lang == "" {
		lang = promptx.DefaultLanguage
	}
	return contractx.ChatRequest{
		UserID:       body.UserID,
		Query:        body.Query,
		UserLanguage: lang,
	}, true
}

func (s *Server) turnContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.turnContext(r.Context())
	defer cancel()

	respondJSON(w, r, http.StatusOK, s.chat.Chat(ctx, req))
}

func (s *Server) handleStreamChat(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.turnContext(r.Context())
	defer cancel()

	setupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	logger := hlog.FromRequest(r)
	var writeErr error
	s.chat.ChatStream(ctx, req, func(f contractx.TextFragment) {
		if writeErr != nil {
			return
		}
		writeErr = sendSSE(w, flusher, streamEvent{Type: streamEventText, Content: f.Text, Agent: string(f.Agent)})
	})
	if writeErr == nil {
		writeErr = sendSSE(w, flusher, streamEvent{Type: streamEventDone})
	}
	if writeErr != nil {
		logger.Warn().Err(writeErr).Msg("stream client went away")
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		respondError(w, r, http.StatusBadRequest, "user id is required")
		return
	}
	messages, err := s.chat.History(r.Context(), userID)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("load history")
		respondError(w, r, http.StatusBadGateway, "history unavailable")
		return
	}
	if messages == nil {
		messages = []contractx.Message{}
	}
	respondJSON(w, r, http.StatusOK, historyBody{Messages: messages})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		respondError(w, r, http.StatusBadRequest, "user id is required")
		return
	}
	if err := s.chat.Clear(r.Context(), userID); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("clear history")
		respondError(w, r, http.StatusBadGateway, "history unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("deep") == "" || s.probe == nil {
		respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	if err := s.probe.Probe(r.Context()); err != nil {
		detail := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			detail = "model provider timed out"
		}
		respondError(w, r, http.StatusServiceUnavailable, detail)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok", "model": "ok"})
}
