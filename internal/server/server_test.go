package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/emurenMRz/mailmark/internal/config"
	"github.com/emurenMRz/mailmark/internal/firebase"
	"github.com/emurenMRz/mailmark/internal/mailbox"
	"github.com/emurenMRz/mailmark/internal/record"
	"github.com/emurenMRz/mailmark/internal/search"
	"github.com/emurenMRz/mailmark/internal/store"
)

const goodPassword = "Secret1!"

type fakeBackend struct {
	mu        sync.Mutex
	accounts  map[string]string
	docs      map[string][]record.Entry
	nextID    int
	refreshed *oauth2.Token
	failWith  error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{accounts: map[string]string{}, docs: map[string][]record.Entry{}}
}

func account(email string) *firebase.Account {
	return &firebase.Account{
		UserID: "uid-" + email,
		Email:  email,
		Token:  &oauth2.Token{AccessToken: "tok-" + email, RefreshToken: "r", Expiry: time.Now().Add(time.Hour)},
	}
}

func (f *fakeBackend) SignUp(_ context.Context, email, password string) (*firebase.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[email]; ok {
		return nil, fmt.Errorf("%w: %w", firebase.ErrEmailExists, &firebase.APIError{Status: 400, Message: "EMAIL_EXISTS"})
	}
	f.accounts[email] = password
	return account(email), nil
}

func (f *fakeBackend) SignIn(_ context.Context, email, password string) (*firebase.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	if pw, ok := f.accounts[email]; !ok || pw != password {
		return nil, firebase.ErrInvalidCredentials
	}
	return account(email), nil
}

func (f *fakeBackend) TokenSource(_ context.Context, tok *oauth2.Token) oauth2.TokenSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refreshed != nil {
		return oauth2.StaticTokenSource(f.refreshed)
	}
	return oauth2.StaticTokenSource(tok)
}

func (f *fakeBackend) ListEmails(_ context.Context, tok *oauth2.Token, userID string) (*record.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, firebase.ErrUnauthorized
	}
	return &record.Collection{Entries: slices.Clone(f.docs[userID])}, nil
}

func (f *fakeBackend) CreateEmail(_ context.Context, _ *oauth2.Token, userID string, raw *record.Raw) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("-k%02d", f.nextID)
	f.docs[userID] = append(f.docs[userID], record.Entry{ID: id, Raw: *raw})
	return id, nil
}

func (f *fakeBackend) DeleteEmail(_ context.Context, _ *oauth2.Token, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[userID] = slices.DeleteFunc(f.docs[userID], func(e record.Entry) bool { return e.ID == id })
	return nil
}

type testEnv struct {
	srv      *Server
	handler  http.Handler
	backend  *fakeBackend
	sessions *store.SQLiteStore
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server.AuthRateLimit = 0
	cfg.Server.StaticDir = t.TempDir()
	cfg.Search.MaxCount = 50
	if mutate != nil {
		mutate(cfg)
	}

	sessions, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sessions.Close() })

	var dir *mailbox.Dir
	engines, err := search.ParseEngines(cfg.Search.Engines)
	require.NoError(t, err)
	if cfg.Search.MailboxDir != "" {
		dir = mailbox.NewDir(cfg.Search.MailboxDir, nil)
		engines = append(engines, search.Mailbox)
	}
	svc := search.NewService(search.NewGenerator(rand.New(rand.NewPCG(7, 7))), dir, engines, cfg.Search.MaxCount, nil)

	backend := newFakeBackend()
	srv := New(Options{Config: cfg, Backend: backend, Sessions: sessions, Search: svc, Mailboxes: dir})
	return &testEnv{srv: srv, handler: srv.Handler(), backend: backend, sessions: sessions}
}

func (e *testEnv) do(t *testing.T, method, path, session string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rd = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			rd = strings.NewReader(string(data))
		}
	}
	req := httptest.NewRequest(method, path, rd)
	if session != "" {
		req.Header.Set("Authorization", "Bearer "+session)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *testEnv) register(t *testing.T, email string) sessionResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": email, "password": goodPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[sessionResponse](t, rec)
}

func TestConfigEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/config", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[configResponse](t, rec)
	assert.Equal(t, []string{"google", "bing", "yahoo", "duckduckgo"}, got.Engines)
	assert.Equal(t, []int{10, 25, 50, 100}, got.PageSizes)
	assert.Equal(t, 6, got.PasswordMinLength)
	assert.Contains(t, got.ValidationKinds, "email-domain")
	assert.Equal(t, 50, got.MaxCount)
}

func TestValidateEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/validate", "", map[string]any{
		"kind": "email", "value": "a@b.co, nope", "multi": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"isValid":false,"invalidValue":"nope"}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/validate", "", map[string]any{"kind": "url", "value": "example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"isValid":true}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/validate", "", map[string]any{"kind": "phone", "value": "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/validate", "", `{"kind":"email","value":"a@b.co","extra":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/validate", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookmarkLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	sess := env.register(t, "ann@example.com")
	assert.Equal(t, "uid-ann@example.com", sess.UserID)

	rec := env.do(t, http.MethodGet, "/api/bookmarks", sess.Session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	empty := decode[pageResponse[record.Record]](t, rec)
	assert.Empty(t, empty.Items)
	assert.Equal(t, 0, empty.Total)

	rec = env.do(t, http.MethodPost, "/api/bookmarks", sess.Session, map[string]any{
		"id":           "temp-id",
		"address":      "bob.smith@example.org",
		"link":         "https://example.org/team",
		"searchEngine": "google",
		"searchKey":    "smith",
		"selected":     true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[createdResponse](t, rec)
	assert.Equal(t, "-k01", created.ID)

	rec = env.do(t, http.MethodGet, "/api/bookmarks", sess.Session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[pageResponse[record.Record]](t, rec)
	require.Len(t, list.Items, 1)
	got := list.Items[0]
	assert.Equal(t, "-k01", got.ID)
	assert.Equal(t, record.TypeBookmark, got.Type)
	assert.True(t, got.Bookmarked)
	assert.False(t, got.Selected)
	assert.Equal(t, "uid-ann@example.com", got.UserID)
	assert.False(t, got.UserAddedDate.IsZero())
	assert.Equal(t, []int{10}, list.PageSizes)

	rec = env.do(t, http.MethodDelete, "/api/bookmarks/-k01", sess.Session, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/logout", sess.Session, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/bookmarks", sess.Session, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateBookmark_Validation(t *testing.T) {
	env := newTestEnv(t, nil)
	sess := env.register(t, "ann@example.com")

	rec := env.do(t, http.MethodPost, "/api/bookmarks", sess.Session, map[string]any{"address": "not-an-address"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "address")

	rec = env.do(t, http.MethodPost, "/api/bookmarks", sess.Session, map[string]any{
		"address": "a@example.org", "link": "http://192.168.0.1/",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "link")

	rec = env.do(t, http.MethodPost, "/api/bookmarks", sess.Session, map[string]any{
		"address": "a@example.org", "searchEngine": "google\nBcc: someone@example.net",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "searchEngine")
}

func TestListBookmarks_LimitAndPaging(t *testing.T) {
	env := newTestEnv(t, nil)
	sess := env.register(t, "ann@example.com")
	for i := range 5 {
		rec := env.do(t, http.MethodPost, "/api/bookmarks", sess.Session, map[string]any{
			"address": fmt.Sprintf("user%d@example.org", i),
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/bookmarks?limit=3", sess.Session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[pageResponse[record.Record]](t, rec)
	require.Len(t, list.Items, 3)
	assert.Equal(t, "user0@example.org", list.Items[0].Address)
	assert.Equal(t, "user2@example.org", list.Items[2].Address)

	rec = env.do(t, http.MethodGet, "/api/bookmarks?limit=x", sess.Session, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegister_Rejects(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name     string
		email    string
		password string
		want     int
		contains string
	}{
		{"bad email", "nope", goodPassword, http.StatusBadRequest, "email"},
		{"weak password", "a@example.com", "password", http.StatusBadRequest, "password"},
		{"short password", "a@example.com", "Aa1!", http.StatusBadRequest, "too short"},
		{"missing password", "a@example.com", "", http.StatusBadRequest, "password is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": tt.email, "password": tt.password})
			require.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Contains(t, decode[errorResponse](t, rec).Error, tt.contains)
		})
	}

	env.register(t, "dup@example.com")
	rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "dup@example.com", "password": goodPassword})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "ann@example.com")

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ann@example.com", "password": goodPassword})
	require.Equal(t, http.StatusOK, rec.Code)
	sess := decode[sessionResponse](t, rec)
	assert.NotEmpty(t, sess.Session)

	stored, err := env.sessions.GetSession(context.Background(), sess.Session)
	require.NoError(t, err)
	assert.Equal(t, "tok-ann@example.com", stored.Token.AccessToken)

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ann@example.com", "password": "Wrong1!x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_BackendDown(t *testing.T) {
	env := newTestEnv(t, nil)
	env.backend.failWith = errors.New("connection refused")

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ann@example.com", "password": goodPassword})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRequireSession(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/bookmarks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/bookmarks", "no-such-session", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireSession_Expired(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Session.TTL = "1h" })
	ctx := context.Background()
	require.NoError(t, env.sessions.SaveSession(ctx, store.Session{
		ID:        "old",
		UserID:    "u",
		Token:     &oauth2.Token{AccessToken: "t"},
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}))

	rec := env.do(t, http.MethodGet, "/api/bookmarks", "old", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	_, err := env.sessions.GetSession(ctx, "old")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestRequireSession_PersistsRefreshedToken(t *testing.T) {
	env := newTestEnv(t, nil)
	sess := env.register(t, "ann@example.com")
	env.backend.refreshed = &oauth2.Token{AccessToken: "fresh", Expiry: time.Now().Add(time.Hour)}

	rec := env.do(t, http.MethodGet, "/api/bookmarks", sess.Session, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := env.sessions.GetSession(context.Background(), sess.Session)
	require.NoError(t, err)
	assert.Equal(t, "fresh", stored.Token.AccessToken)
}

func TestSearchEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/search?engine=google&key=smith&count=30&page=2&size=10", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[pageResponse[record.Record]](t, rec)
	assert.Len(t, res.Items, 10)
	assert.Equal(t, 30, res.Total)
	assert.Equal(t, 2, res.Page)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, []int{10, 25, 50}, res.PageSizes)
	for _, r := range res.Items {
		assert.Equal(t, "google", r.SearchEngine)
		assert.Equal(t, record.TypeSearch, r.Type)
	}

	rec = env.do(t, http.MethodGet, "/api/search?key=smith&count=5&size=100", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res = decode[pageResponse[record.Record]](t, rec)
	assert.Equal(t, 20, res.Total)
	assert.Len(t, res.Items, 20)
	assert.Equal(t, "google", res.Items[0].SearchEngine)
	assert.Equal(t, "duckduckgo", res.Items[19].SearchEngine)
}

func TestSearchEndpoint_BadInput(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, path := range []string{
		"/api/search?engine=altavista&key=smith",
		"/api/search?engine=mailbox&key=smith",
		"/api/search?key=smith@x",
		"/api/search?key=smith&domain=nodot",
		"/api/search?key=smith&count=51",
		"/api/search?key=smith&count=many",
		"/api/search?key=smith&page=first",
	} {
		rec := env.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

const inbox = `From anna@example.com Mon Jan  1 00:00:00 2024
From: Anna <anna@example.com>
To: bob.smith@example.org
Subject: hi
Date: Mon, 01 Jan 2024 10:00:00 +0000

hello

`

func TestMailboxEndpoints(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "INBOX"), []byte(inbox), 0o644))
	env := newTestEnv(t, func(c *config.Config) { c.Search.MailboxDir = dir })

	rec := env.do(t, http.MethodGet, "/api/mailboxes", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["INBOX"]`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/mailboxes/INBOX/addresses", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	addrs := decode[pageResponse[addressResponse]](t, rec)
	require.Len(t, addrs.Items, 2)
	assert.Equal(t, "anna@example.com", addrs.Items[0].Address)
	assert.Equal(t, "Anna", addrs.Items[0].Name)

	rec = env.do(t, http.MethodGet, "/api/mailboxes/Missing/addresses", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/search?engine=mailbox&key=smith", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[pageResponse[record.Record]](t, rec)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "bob.smith@example.org", res.Items[0].Address)
}

func TestMailboxEndpoints_NoDirectory(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/mailboxes", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestExportBookmarks(t *testing.T) {
	env := newTestEnv(t, nil)
	sess := env.register(t, "ann@example.com")
	rec := env.do(t, http.MethodPost, "/api/bookmarks", sess.Session, map[string]any{
		"address": "carol@example.net", "link": "https://example.net/", "searchKey": "carol",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/bookmarks/export", sess.Session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/mbox", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".mbox")
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "From carol@example.net "), body)
	assert.Contains(t, body, "Link: https://example.net/")
}

func TestAuthRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Server.AuthRateLimit = 0.001
		c.Server.AuthBurst = 1
	})
	body := map[string]string{"email": "ann@example.com", "password": goodPassword}

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/config", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOperationalAndStatic(t *testing.T) {
	env := newTestEnv(t, nil)
	static := env.srv.cfg.Server.StaticDir
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>mailmark</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(static, "app.js"), []byte("console.log(1)"), 0o644))

	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mailmark_http_requests_total")

	rec = env.do(t, http.MethodGet, "/bookmarks", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mailmark")

	rec = env.do(t, http.MethodGet, "/static/app.js", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "javascript")

	rec = env.do(t, http.MethodGet, "/api/nothing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListenAndServe_Shutdown(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Server.Addr = "127.0.0.1:0"
		c.Server.ShutdownTimeout = "1s"
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.srv.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
