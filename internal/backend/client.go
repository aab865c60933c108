package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// refreshMargin is how long before access-token expiry a refresh is issued.
const refreshMargin = 30 * time.Second

// Client talks to the hosted auth service (password grant, sign-up, refresh).
// It owns a single session's tokens and emits AuthEvents to subscribers when
// that session changes.
type Client struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
	logger  *log.Logger

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	identity     *Identity
	refreshTimer *time.Timer
	closed       bool

	subMu   sync.Mutex
	subs    map[int]func(AuthEvent)
	nextSub int
}

func NewClient(baseURL, apiKey string, httpClient *http.Client, logger *log.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Client{
		baseURL: u,
		apiKey:  apiKey,
		http:    httpClient,
		logger:  logger,
		subs:    make(map[int]func(AuthEvent)),
	}, nil
}

// Close stops the refresh timer. It does not sign the session out remotely.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
		c.refreshTimer = nil
	}
}

func (c *Client) OnAuthChange(fn func(AuthEvent)) func() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Client) notify(ev AuthEvent) {
	c.subMu.Lock()
	fns := make([]func(AuthEvent), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

type tokenResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int      `json:"expires_in"`
	User         Identity `json:"user"`
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Identity, error) {
	var tok tokenResponse
	err := c.do(ctx, http.MethodPost, "/auth/v1/token", url.Values{"grant_type": {"password"}},
		map[string]string{"email": email, "password": password}, &tok)
	if err != nil {
		return nil, err
	}
	c.setSession(tok)
	id := tok.User
	c.notify(AuthEvent{Type: EventSignedIn, Identity: &id})
	return &id, nil
}

func (c *Client) SignUp(ctx context.Context, email, password, redirectTo string) (*SignUpResult, error) {
	q := url.Values{}
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	var resp struct {
		Identity
		ConfirmationSentAt *time.Time `json:"confirmation_sent_at"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/v1/signup", q,
		map[string]string{"email": email, "password": password}, &resp)
	if err != nil {
		return nil, err
	}
	id := resp.Identity
	return &SignUpResult{Identity: &id, ConfirmationSent: resp.ConfirmationSentAt != nil}, nil
}

func (c *Client) ResendVerification(ctx context.Context, email, redirectTo string) error {
	q := url.Values{}
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	return c.do(ctx, http.MethodPost, "/auth/v1/resend", q,
		map[string]string{"type": "signup", "email": email}, nil)
}

// GetUser resolves the current session's identity. With no session it
// returns (nil, nil): signed out, not an error.
func (c *Client) GetUser(ctx context.Context) (*Identity, error) {
	c.mu.Lock()
	token := c.accessToken
	c.mu.Unlock()
	if token == "" {
		return nil, nil
	}
	var id Identity
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", nil, nil, &id); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.identity = &id
	c.mu.Unlock()
	return &id, nil
}

func (c *Client) UpdatePassword(ctx context.Context, newPassword string) error {
	return c.do(ctx, http.MethodPut, "/auth/v1/user", nil,
		map[string]string{"password": newPassword}, nil)
}

// SignOut revokes the session remotely. Local tokens are cleared even when
// the remote call fails, so the caller is never stuck signed in.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/v1/logout", nil, struct{}{}, nil)
	c.clearSession()
	c.notify(AuthEvent{Type: EventSignedOut})
	return err
}

func (c *Client) OAuthURL(provider, redirectTo string) string {
	q := url.Values{"provider": {provider}}
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	u := *c.baseURL
	u.Path = joinPath(u.Path, "/auth/v1/authorize")
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) setSession(tok tokenResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.accessToken = tok.AccessToken
	c.refreshToken = tok.RefreshToken
	id := tok.User
	c.identity = &id
	c.scheduleRefreshLocked(tok)
}

func (c *Client) clearSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = ""
	c.refreshToken = ""
	c.identity = nil
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
		c.refreshTimer = nil
	}
}

// scheduleRefreshLocked arms the refresh timer from the access token's exp
// claim, falling back to the advertised expires_in.
func (c *Client) scheduleRefreshLocked(tok tokenResponse) {
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
	}
	ttl := time.Duration(tok.ExpiresIn) * time.Second
	if claims := parseClaims(tok.AccessToken); claims != nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			ttl = time.Until(exp.Time)
		}
	}
	ttl -= refreshMargin
	if ttl < time.Second {
		ttl = time.Second
	}
	c.refreshTimer = time.AfterFunc(ttl, c.refresh)
}

func parseClaims(token string) jwt.MapClaims {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims
}

func (c *Client) refresh() {
	c.mu.Lock()
	refreshToken := c.refreshToken
	closed := c.closed
	c.mu.Unlock()
	if closed || refreshToken == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var tok tokenResponse
	err := c.do(ctx, http.MethodPost, "/auth/v1/token", url.Values{"grant_type": {"refresh_token"}},
		map[string]string{"refresh_token": refreshToken}, &tok)
	if err != nil {
		// A dead refresh token is an external sign-out; mirror it locally.
		c.logger.Printf("token refresh failed: %v", err)
		c.clearSession()
		c.notify(AuthEvent{Type: EventSignedOut})
		return
	}
	c.setSession(tok)
	id := tok.User
	c.notify(AuthEvent{Type: EventTokenRefreshed, Identity: &id})
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.baseURL
	u.Path = joinPath(u.Path, path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	c.mu.Lock()
	token := c.accessToken
	c.mu.Unlock()
	if token == "" {
		token = c.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAuthError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func parseAuthError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	var body struct {
		ErrorCode        string `json:"error_code"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
	}
	_ = json.Unmarshal(raw, &body)

	msg := body.Msg
	if msg == "" {
		msg = body.Message
	}
	if msg == "" {
		msg = body.ErrorDescription
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &AuthError{Code: body.ErrorCode, Message: msg, Status: resp.StatusCode}
}

func joinPath(base, p string) string {
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	return base + p
}
