package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"document-qa/internal/models"
	"document-qa/internal/session"
)

const maxQuestionBody = 64 << 10

type sessionResponse struct {
	ID      string          `json:"id"`
	State   string          `json:"state"`
	Summary session.Summary `json:"summary"`
}

type questionRequest struct {
	Question string `json:"question"`
}

type transcriptResponse struct {
	Turns    []models.Turn    `json:"turns"`
	Messages []models.Message `json:"messages"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, describe(sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Close(chi.URLParam(r, "id")) {
		httpError(w, http.StatusNotFound, "not_found", "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	uploads, err := s.readUploads(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := sess.Process(r.Context(), uploads); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, describe(sess))
}

func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxQuestionBody)
	defer r.Body.Close()

	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, string(models.KindUsage), "invalid request body: %v", err)
		return
	}
	turns, err := sess.Ask(r.Context(), req.Question)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transcriptResponse{Turns: turns, Messages: sess.Messages()})
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, transcriptResponse{Turns: sess.Transcript(), Messages: sess.Messages()})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		httpError(w, http.StatusNotFound, "not_found", "session not found")
	}
	return sess, ok
}

func describe(sess *session.Session) sessionResponse {
	return sessionResponse{ID: sess.ID, State: sess.State().String(), Summary: sess.Summary()}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code, kind := statusOf(err)
	httpError(w, code, kind, "%s", err.Error())
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}
