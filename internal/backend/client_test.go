package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch r.URL.Query().Get("grant_type") {
		case "password":
			if body["email"] != "shopper@example.com" || body["password"] != "s3cret" {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{
					"error_code": "invalid_credentials",
					"msg":        "Invalid login credentials",
				})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "access-1",
				"refresh_token": "refresh-1",
				"expires_in":    3600,
				"user":          map[string]string{"id": "user-1", "email": "shopper@example.com"},
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	mux.HandleFunc("GET /auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-1" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"msg": "invalid token"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "user-1", "email": "shopper@example.com"})
	})
	mux.HandleFunc("POST /auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://shop.example.com/login", r.URL.Query().Get("redirect_to"))
		now := time.Now().UTC()
		json.NewEncoder(w).Encode(map[string]any{
			"id":                   "user-2",
			"email":                "new@example.com",
			"confirmation_sent_at": now,
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientSignInAndGetUser(t *testing.T) {
	srv := newAuthServer(t)
	c, err := NewClient(srv.URL, "anon-key", srv.Client(), nil)
	require.NoError(t, err)
	defer c.Close()

	var events []AuthEventType
	unsub := c.OnAuthChange(func(ev AuthEvent) { events = append(events, ev.Type) })
	defer unsub()

	ctx := context.Background()

	id, err := c.SignInWithPassword(ctx, "shopper@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.ID)
	assert.Equal(t, []AuthEventType{EventSignedIn}, events)

	got, err := c.GetUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "shopper@example.com", got.Email)

	require.NoError(t, c.SignOut(ctx))
	assert.Equal(t, []AuthEventType{EventSignedIn, EventSignedOut}, events)

	// After sign-out there is no session: signed out, not an error.
	got, err = c.GetUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClientInvalidCredentialsPassThrough(t *testing.T) {
	srv := newAuthServer(t)
	c, err := NewClient(srv.URL, "anon-key", srv.Client(), nil)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.SignInWithPassword(context.Background(), "shopper@example.com", "wrong")
	require.Error(t, err)
	assert.True(t, IsInvalidCredentials(err))

	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "Invalid login credentials", ae.Message)
	assert.Equal(t, http.StatusBadRequest, ae.Status)
}

func TestClientSignUpDoesNotAuthenticate(t *testing.T) {
	srv := newAuthServer(t)
	c, err := NewClient(srv.URL, "anon-key", srv.Client(), nil)
	require.NoError(t, err)
	defer c.Close()

	res, err := c.SignUp(context.Background(), "new@example.com", "pw", "https://shop.example.com/login")
	require.NoError(t, err)
	assert.True(t, res.ConfirmationSent)
	assert.Equal(t, "user-2", res.Identity.ID)

	// No session was established by sign-up.
	got, err := c.GetUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClientUnsubscribeStopsEvents(t *testing.T) {
	srv := newAuthServer(t)
	c, err := NewClient(srv.URL, "anon-key", srv.Client(), nil)
	require.NoError(t, err)
	defer c.Close()

	calls := 0
	unsub := c.OnAuthChange(func(AuthEvent) { calls++ })

	_, err = c.SignInWithPassword(context.Background(), "shopper@example.com", "s3cret")
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	unsub()
	require.NoError(t, c.SignOut(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestOAuthURL(t *testing.T) {
	c, err := NewClient("https://project.example.co", "anon-key", nil, nil)
	require.NoError(t, err)
	defer c.Close()

	u := c.OAuthURL("google", "https://shop.example.com/auth/callback")
	assert.Equal(t, "https://project.example.co/auth/v1/authorize?provider=google&redirect_to=https%3A%2F%2Fshop.example.com%2Fauth%2Fcallback", u)
}
