package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"

	"github.com/ensura-lab/ensura/pkg/domain/model"
	"github.com/ensura-lab/ensura/pkg/domain/types"
)

type sessionResponse struct {
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

func toSessionResponse(s *model.Session) sessionResponse {
	return sessionResponse{
		SessionID:    s.ID.String(),
		UserID:       s.UserID,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		MessageCount: s.MessageCount,
	}
}

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	// An empty body is allowed: sessions do not require a user identifier.
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			s.handleError(w, r, err)
			return
		}
	}

	session, err := s.uc.CreateSession(r.Context(), req.UserID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusCreated, toSessionResponse(session))
}

func (s *Server) sendMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Message   string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	if req.SessionID == "" {
		s.handleError(w, r, goerr.Wrap(types.ErrValidation, "session_id is required", goerr.V(types.FieldNameKey, "session_id")))
		return
	}

	result, err := s.uc.SendMessage(r.Context(), clientKey(r), model.SessionID(req.SessionID), req.Message)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	setRateLimitHeaders(w, result.RateLimit)
	respondJSON(r.Context(), w, http.StatusOK, struct {
		TurnID    string    `json:"turn_id"`
		SessionID string    `json:"session_id"`
		Answer    string    `json:"answer"`
		Sources   []string  `json:"sources"`
		Reasoning string    `json:"reasoning,omitempty"`
		Timestamp time.Time `json:"timestamp"`
	}{
		TurnID:    result.TurnID.String(),
		SessionID: result.SessionID.String(),
		Answer:    result.Answer,
		Sources:   result.Sources,
		Reasoning: result.Reasoning,
		Timestamp: result.Timestamp,
	})
}

func (s *Server) getHistoryHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := model.SessionID(chi.URLParam(r, "sessionID"))

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			s.handleError(w, r, goerr.Wrap(types.ErrValidation, "limit must be a non-negative integer", goerr.V(types.FieldNameKey, "limit")))
			return
		}
		limit = v
	}

	session, msgs, err := s.uc.GetHistory(r.Context(), sessionID, limit)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	type messageResponse struct {
		Role      string    `json:"role"`
		Content   string    `json:"content"`
		Timestamp time.Time `json:"timestamp"`
	}
	messages := make([]messageResponse, len(msgs))
	for i, msg := range msgs {
		messages[i] = messageResponse{
			Role:      msg.Role.String(),
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
		}
	}

	respondJSON(r.Context(), w, http.StatusOK, struct {
		Session  sessionResponse   `json:"session"`
		Messages []messageResponse `json:"messages"`
	}{
		Session:  toSessionResponse(session),
		Messages: messages,
	})
}

func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := model.SessionID(chi.URLParam(r, "sessionID"))

	if err := s.uc.DeleteSession(r.Context(), sessionID); err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) listSessionsHandler(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.uc.ListSessions(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	resp := struct {
		Sessions []sessionResponse `json:"sessions"`
	}{
		Sessions: make([]sessionResponse, len(sessions)),
	}
	for i, session := range sessions {
		resp.Sessions[i] = toSessionResponse(session)
	}
	respondJSON(r.Context(), w, http.StatusOK, resp)
}

func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(r.Context(), w, http.StatusOK, s.uc.Metrics())
}

func (s *Server) reloadKnowledgeHandler(w http.ResponseWriter, r *http.Request) {
	n, err := s.uc.ReloadKnowledgeBase(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, map[string]int{"chunks": n})
}
