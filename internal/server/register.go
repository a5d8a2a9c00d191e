package server

import (
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/emurenMRz/mailmark/internal/metrics"
)

// Handler builds the router. API routes live under /api/, assets under
// /static/ and every other GET path serves the client's index page.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(metrics.Middleware())
	r.Use(s.accessLog)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/config", s.handleConfig).Methods(http.MethodGet).Name("config")
	api.HandleFunc("/validate", s.handleValidate).Methods(http.MethodPost).Name("validate")
	api.HandleFunc("/search", s.handleSearch).Methods(http.MethodGet).Name("search")
	api.HandleFunc("/mailboxes", s.handleMailboxes).Methods(http.MethodGet).Name("list_mailboxes")
	api.HandleFunc("/mailboxes/{name}/addresses", s.handleMailboxAddresses).Methods(http.MethodGet).Name("mailbox_addresses")

	auth := api.PathPrefix("/auth").Subrouter()
	auth.Use(rateLimit(s.authLimiter()))
	auth.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost).Name("register")
	auth.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost).Name("login")
	auth.Handle("/logout", s.requireSession(http.HandlerFunc(s.handleLogout))).Methods(http.MethodPost).Name("logout")

	bookmarks := api.PathPrefix("/bookmarks").Subrouter()
	bookmarks.Use(s.requireSession)
	bookmarks.HandleFunc("", s.handleListBookmarks).Methods(http.MethodGet).Name("list_bookmarks")
	bookmarks.HandleFunc("", s.handleCreateBookmark).Methods(http.MethodPost).Name("create_bookmark")
	bookmarks.HandleFunc("/export", s.handleExportBookmarks).Methods(http.MethodGet).Name("export_bookmarks")
	bookmarks.HandleFunc("/{id}", s.handleDeleteBookmark).Methods(http.MethodDelete).Name("delete_bookmark")

	api.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet).Name("metrics")
	r.HandleFunc("/healthz", handleHealthz).Methods(http.MethodGet).Name("healthz")

	// Some platforms lack .css/.js in their MIME tables.
	mime.AddExtensionType(".css", "text/css")
	mime.AddExtensionType(".js", "application/javascript")

	staticDir := s.cfg.Server.StaticDir
	if staticDir == "" {
		staticDir = "static"
	}
	fs := http.FileServer(http.Dir(staticDir))
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", fs)).Name("static")
	r.PathPrefix("/").Methods(http.MethodGet).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
	}).Name("index")

	return r
}

func (s *Server) authLimiter() *rate.Limiter {
	limit := rate.Limit(s.cfg.Server.AuthRateLimit)
	if s.cfg.Server.AuthRateLimit <= 0 {
		limit = rate.Inf
	}
	burst := s.cfg.Server.AuthBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(limit, burst)
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
