// Package server exposes validation, search, bookmarks and mailboxes over a
// JSON HTTP API and serves the single page client.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/emurenMRz/mailmark/internal/config"
	"github.com/emurenMRz/mailmark/internal/firebase"
	"github.com/emurenMRz/mailmark/internal/mailbox"
	"github.com/emurenMRz/mailmark/internal/record"
	"github.com/emurenMRz/mailmark/internal/search"
	"github.com/emurenMRz/mailmark/internal/store"
)

// Backend is the remote store: accounts and per-user email documents.
type Backend interface {
	SignUp(ctx context.Context, email, password string) (*firebase.Account, error)
	SignIn(ctx context.Context, email, password string) (*firebase.Account, error)
	TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource
	ListEmails(ctx context.Context, tok *oauth2.Token, userID string) (*record.Collection, error)
	CreateEmail(ctx context.Context, tok *oauth2.Token, userID string, raw *record.Raw) (string, error)
	DeleteEmail(ctx context.Context, tok *oauth2.Token, userID, id string) error
}

// Sessions persists signed-in sessions.
type Sessions interface {
	SaveSession(ctx context.Context, sess store.Session) error
	GetSession(ctx context.Context, id string) (store.Session, error)
	UpdateToken(ctx context.Context, id string, tok *oauth2.Token) error
	DeleteSession(ctx context.Context, id string) error
}

// Options wires a Server. Mailboxes may be nil.
type Options struct {
	Config    *config.Config
	Backend   Backend
	Sessions  Sessions
	Search    *search.Service
	Mailboxes *mailbox.Dir
	Logger    *zap.Logger
}

type Server struct {
	cfg       *config.Config
	backend   Backend
	sessions  Sessions
	search    *search.Service
	mailboxes *mailbox.Dir
	log       *zap.Logger
	validate  *validator.Validate
	now       func() time.Time
}

// New builds a server. It panics when a required dependency is missing.
func New(opts Options) *Server {
	if opts.Config == nil || opts.Backend == nil || opts.Sessions == nil || opts.Search == nil {
		panic("server: config, backend, sessions and search are required")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		cfg:       opts.Config,
		backend:   opts.Backend,
		sessions:  opts.Sessions,
		search:    opts.Search,
		mailboxes: opts.Mailboxes,
		log:       log,
		validate:  newRequestValidator(opts.Config.Validation.PasswordMinLength),
		now:       time.Now,
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
// within the configured timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-errCh
	s.log.Info("shutdown complete")
	return nil
}
