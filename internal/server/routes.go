package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/emurenMRz/mailmark/internal/store"
)

type ctxKey int

const sessionKey ctxKey = iota

func sessionFrom(ctx context.Context) (store.Session, bool) {
	sess, ok := ctx.Value(sessionKey).(store.Session)
	return sess, ok
}

type recorder struct {
	http.ResponseWriter
	status int
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &recorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)))
	})
}

func rateLimit(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// requireSession resolves the bearer session, drops it when older than the
// session TTL and refreshes its token, persisting a refreshed token.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := bearer(r)
		if id == "" {
			writeError(w, http.StatusUnauthorized, "missing session")
			return
		}
		ctx := r.Context()

		sess, err := s.sessions.GetSession(ctx, id)
		if errors.Is(err, store.ErrSessionNotFound) {
			writeError(w, http.StatusUnauthorized, "unknown session")
			return
		}
		if err != nil {
			s.log.Error("load session", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if s.now().Sub(sess.CreatedAt) > s.cfg.GetSessionTTL() {
			if err := s.sessions.DeleteSession(ctx, id); err != nil {
				s.log.Warn("drop expired session", zap.Error(err))
			}
			writeError(w, http.StatusUnauthorized, "session expired")
			return
		}

		tok, err := s.backend.TokenSource(ctx, sess.Token).Token()
		if err != nil {
			s.log.Info("token refresh failed", zap.String("user", sess.UserID), zap.Error(err))
			writeError(w, http.StatusUnauthorized, "session expired")
			return
		}
		if tok.AccessToken != sess.Token.AccessToken {
			if err := s.sessions.UpdateToken(ctx, id, tok); err != nil {
				s.log.Warn("persist refreshed token", zap.Error(err))
			}
			sess.Token = tok
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, sessionKey, sess)))
	})
}
