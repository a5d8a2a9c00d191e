// Package firebase talks to the remote store: password accounts through the
// Identity Toolkit REST API and per-user email documents through the
// Realtime Database REST API.
package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/emurenMRz/mailmark/internal/config"
	"github.com/emurenMRz/mailmark/internal/record"
)

var (
	ErrEmailExists        = errors.New("email address already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password too weak")
	ErrUnauthorized       = errors.New("not authorized")
)

// APIError is a non-2xx answer from either API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("firebase: status %d", e.Status)
	}
	return fmt.Sprintf("firebase: status %d: %s", e.Status, e.Message)
}

// Account is a signed-in remote store user.
type Account struct {
	UserID string
	Email  string
	Token  *oauth2.Token
}

type Client struct {
	apiKey  string
	authURL string
	dbURL   string
	oauth   *oauth2.Config
	http    *http.Client
	log     *zap.Logger
}

// New creates a client. A nil hc uses http.DefaultClient, a nil log discards.
func New(cfg config.FirebaseConfig, hc *http.Client, log *zap.Logger) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	tokenURL := cfg.TokenURL
	if cfg.APIKey != "" {
		tokenURL = withQuery(tokenURL, "key", cfg.APIKey)
	}
	return &Client{
		apiKey:  cfg.APIKey,
		authURL: strings.TrimRight(cfg.AuthURL, "/"),
		dbURL:   strings.TrimRight(cfg.DatabaseURL, "/"),
		oauth: &oauth2.Config{
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		http: hc,
		log:  log,
	}
}

type credentials struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type authResponse struct {
	IDToken      string `json:"idToken"`
	Email        string `json:"email"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
}

// SignUp creates a password account.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Account, error) {
	return c.authenticate(ctx, "accounts:signUp", email, password)
}

// SignIn signs in with a password.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Account, error) {
	return c.authenticate(ctx, "accounts:signInWithPassword", email, password)
}

func (c *Client) authenticate(ctx context.Context, op, email, password string) (*Account, error) {
	endpoint := withQuery(c.authURL+"/"+op, "key", c.apiKey)
	body := credentials{Email: email, Password: password, ReturnSecureToken: true}

	var res authResponse
	if err := c.do(ctx, http.MethodPost, endpoint, body, &res); err != nil {
		c.log.Debug("auth request failed", zap.String("op", op), zap.Error(err))
		return nil, err
	}
	if res.LocalID == "" || res.IDToken == "" {
		return nil, &APIError{Status: http.StatusBadGateway, Message: "incomplete auth response"}
	}

	tok := &oauth2.Token{
		AccessToken:  res.IDToken,
		TokenType:    "Bearer",
		RefreshToken: res.RefreshToken,
	}
	if secs, err := strconv.Atoi(res.ExpiresIn); err == nil && secs > 0 {
		tok.Expiry = time.Now().Add(time.Duration(secs) * time.Second)
	}
	return &Account{UserID: res.LocalID, Email: res.Email, Token: tok}, nil
}

// TokenSource returns a source that hands out tok until it expires and then
// refreshes it through the token endpoint.
func (c *Client) TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	return oauth2.ReuseTokenSource(tok, c.oauth.TokenSource(ctx, tok))
}

func (c *Client) emailsURL(tok *oauth2.Token, segments ...string) (string, error) {
	if tok == nil || tok.AccessToken == "" {
		return "", ErrUnauthorized
	}
	escaped := make([]string, 0, len(segments)+1)
	escaped = append(escaped, "emails")
	for _, s := range segments {
		if s == "" {
			return "", errors.New("empty path segment")
		}
		escaped = append(escaped, url.PathEscape(s))
	}
	return withQuery(c.dbURL+"/"+strings.Join(escaped, "/")+".json", "auth", tok.AccessToken), nil
}

// ListEmails loads every email document stored for userID in the order the
// database sent them. A user without documents yields an empty collection.
func (c *Client) ListEmails(ctx context.Context, tok *oauth2.Token, userID string) (*record.Collection, error) {
	endpoint, err := c.emailsURL(tok, userID)
	if err != nil {
		return nil, err
	}

	var coll record.Collection
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &coll); err != nil {
		return nil, err
	}
	return &coll, nil
}

// CreateEmail stores raw under userID and returns the generated key.
func (c *Client) CreateEmail(ctx context.Context, tok *oauth2.Token, userID string, raw *record.Raw) (string, error) {
	if raw == nil {
		return "", errors.New("nothing to store")
	}
	endpoint, err := c.emailsURL(tok, userID)
	if err != nil {
		return "", err
	}
	var res struct {
		Name string `json:"name"`
	}
	if err := c.do(ctx, http.MethodPost, endpoint, raw, &res); err != nil {
		return "", err
	}
	return res.Name, nil
}

// DeleteEmail removes one document. Deleting a missing key succeeds.
func (c *Client) DeleteEmail(ctx context.Context, tok *oauth2.Token, userID, id string) error {
	endpoint, err := c.emailsURL(tok, userID, id)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return fmt.Errorf("%s %s: %w", method, redact(req.URL), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError understands both the Identity Toolkit shape
// {"error":{"code":400,"message":"EMAIL_EXISTS"}} and the database shape
// {"error":"Permission denied"}.
func decodeError(status int, data []byte) error {
	apiErr := &APIError{Status: status}

	var env struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(data, &env) == nil && len(env.Error) > 0 {
		var detailed struct {
			Message string `json:"message"`
		}
		var plain string
		switch {
		case json.Unmarshal(env.Error, &plain) == nil:
			apiErr.Message = plain
		case json.Unmarshal(env.Error, &detailed) == nil:
			apiErr.Message = detailed.Message
		}
	}

	if sentinel := classify(status, apiErr.Message); sentinel != nil {
		return fmt.Errorf("%w: %w", sentinel, apiErr)
	}
	return apiErr
}

func classify(status int, message string) error {
	// WEAK_PASSWORD carries a human suffix: "WEAK_PASSWORD : Password should be ..."
	code, _, _ := strings.Cut(message, " ")
	switch code {
	case "EMAIL_EXISTS":
		return ErrEmailExists
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS":
		return ErrInvalidCredentials
	case "WEAK_PASSWORD":
		return ErrWeakPassword
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return ErrUnauthorized
	}
	return nil
}

func withQuery(raw, key, value string) string {
	sep := "?"
	if strings.Contains(raw, "?") {
		sep = "&"
	}
	return raw + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}

// redact drops credentials carried in the query string before logging.
func redact(u *url.URL) string {
	c := *u
	c.RawQuery = ""
	return c.String()
}
