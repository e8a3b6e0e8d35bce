package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/docbook-core-poc-v1/server/internal/agent/model"
	errx "github.com/docbook-core-poc-v1/server/internal/core/error"
	logx "github.com/docbook-core-poc-v1/server/pkg/logger"
)

//go:embed static/index.html
var indexHTML []byte

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	SessionID string  `json:"session_id"`
	Reply     string  `json:"reply"`
	CostUSD   float64 `json:"cost_usd"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	message, err := readMessage(r)
	if err != nil {
		writeError(w, err)
		return
	}

	sessionID := s.session(w, r)
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	res, err := s.runner.Invoke(ctx, model.QueryInput{SessionID: sessionID, Message: message})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		SessionID: res.SessionID,
		Reply:     res.Reply,
		CostUSD:   res.CostUSD,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || strings.TrimSpace(c.Value) == "" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
		return
	}
	if err := s.runner.Reset(r.Context(), c.Value); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset", "session_id": c.Value})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// session returns the caller's session id, issuing a cookie when absent.
func (s *Server) session(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && strings.TrimSpace(c.Value) != "" {
		return c.Value
	}
	id := s.newID()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// readMessage accepts a JSON body or a form field named "message".
func readMessage(r *http.Request) (string, error) {
	var message string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return "", errx.New(err, http.StatusRequestEntityTooLarge, "request body too large")
			}
			return "", errx.Validation("invalid JSON body")
		}
		message = req.Message
	} else {
		if err := r.ParseForm(); err != nil {
			return "", errx.Validation("invalid form body")
		}
		message = r.FormValue("message")
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return "", errx.Validation("message cannot be empty")
	}
	return message, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Warn().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := errx.StatusOf(err)
	if status >= http.StatusInternalServerError {
		logx.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Error: errx.PublicMessage(err)})
}

func newSessionID() string {
	return uuid.NewString()
}
