package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/emurenMRz/mailmark/internal/firebase"
	"github.com/emurenMRz/mailmark/internal/metrics"
	"github.com/emurenMRz/mailmark/internal/store"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.startSession(w, r, "signup", strings.TrimSpace(req.Email), req.Password, s.backend.SignUp)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.startSession(w, r, "signin", strings.TrimSpace(req.Email), req.Password, s.backend.SignIn)
}

type authFunc func(ctx context.Context, email, password string) (*firebase.Account, error)

func (s *Server) startSession(w http.ResponseWriter, r *http.Request, op, email, password string, auth authFunc) {
	acct, err := auth(r.Context(), email, password)
	if err != nil {
		s.writeBackendError(w, op, err)
		return
	}

	sess := store.Session{
		ID:        uuid.NewString(),
		UserID:    acct.UserID,
		Email:     acct.Email,
		Token:     acct.Token,
		CreatedAt: s.now(),
	}
	if err := s.sessions.SaveSession(r.Context(), sess); err != nil {
		s.log.Error("save session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.log.Info("session started", zap.String("op", op), zap.String("user", acct.UserID))
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess.ID, UserID: sess.UserID, Email: sess.Email})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	if err := s.sessions.DeleteSession(r.Context(), sess.ID); err != nil {
		s.log.Error("delete session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeBackendError maps remote store failures to HTTP answers. Anything
// unrecognised is reported as a bad gateway.
func (s *Server) writeBackendError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, firebase.ErrEmailExists):
		writeError(w, http.StatusConflict, firebase.ErrEmailExists.Error())
	case errors.Is(err, firebase.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, firebase.ErrInvalidCredentials.Error())
	case errors.Is(err, firebase.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, firebase.ErrWeakPassword.Error())
	case errors.Is(err, firebase.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, firebase.ErrUnauthorized.Error())
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		metrics.BackendError(op)
		s.log.Error("backend call failed", zap.String("op", op), zap.Error(err))
		writeError(w, http.StatusBadGateway, "remote store unavailable")
	}
}
