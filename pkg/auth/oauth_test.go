package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Widen/tap-rest-api-msdk/constants"
	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenServer(t *testing.T, hits *atomic.Int32, body func(r *http.Request) string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body(r)))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOAuthClientCredentials(t *testing.T) {
	var hits atomic.Int32
	server := tokenServer(t, &hits, func(r *http.Request) string {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "id", r.PostForm.Get("client_id"))
		assert.Equal(t, "secret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "read", r.PostForm.Get("scope"))
		assert.Equal(t, "eu", r.PostForm.Get("audience"))
		assert.Equal(t, "acme", r.Header.Get("X-Tenant"))
		return `{"access_token":"tok-1","token_type":"bearer","expires_in":3600}`
	})

	authenticator, err := New(Config{
		Method:         "oauth",
		AccessTokenURL: server.URL,
		GrantType:      "client_credentials",
		ClientID:       "id",
		ClientSecret:   "secret",
		Scope:          "read",
		OAuthExtras:    map[string]string{"audience": "eu"},
		Headers:        map[string]string{"X-Tenant": "acme"},
	}, resty.New())
	require.NoError(t, err)
	assert.True(t, authenticator.Expired())
	assert.Equal(t, int32(0), hits.Load())

	ctx := context.Background()
	req := newRequest(t)
	require.NoError(t, authenticator.Apply(ctx, req))
	assert.Equal(t, "Bearer tok-1", req.Header.Get("Authorization"))
	assert.False(t, authenticator.Expired())

	// cached token is reused
	require.NoError(t, authenticator.Apply(ctx, newRequest(t)))
	assert.Equal(t, int32(1), hits.Load())
}

func TestOAuthRefreshOnExpiry(t *testing.T) {
	var hits atomic.Int32
	server := tokenServer(t, &hits, func(r *http.Request) string {
		if hits.Load() == 1 {
			assert.Equal(t, "r-0", r.PostForm.Get("refresh_token"))
			return `{"access_token":"tok-1","refresh_token":"r-1","expires_in":10}`
		}
		assert.Equal(t, "r-1", r.PostForm.Get("refresh_token"))
		return `{"access_token":"tok-2","refresh_token":"r-2","expires_in":10}`
	})

	authenticator, err := New(Config{
		Method:              "oauth2",
		AccessTokenURL:      server.URL,
		GrantType:           "refresh_token",
		RefreshToken:        "r-0",
		OAuthExpirationSecs: 60,
	}, nil)
	require.NoError(t, err)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	oauth := authenticator.(*oauthAuthenticator)
	oauth.now = func() time.Time { return now }

	ctx := context.Background()
	req := newRequest(t)
	require.NoError(t, authenticator.Apply(ctx, req))
	assert.Equal(t, "Bearer tok-1", req.Header.Get("Authorization"))
	// configured expiration overrides expires_in
	assert.Equal(t, now.Add(60*time.Second), oauth.token.Expiry)

	now = now.Add(61 * time.Second)
	assert.True(t, authenticator.Expired())

	req = newRequest(t)
	require.NoError(t, authenticator.Apply(ctx, req))
	assert.Equal(t, "Bearer tok-2", req.Header.Get("Authorization"))
	assert.Equal(t, int32(2), hits.Load())
}

func TestOAuthTokenFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid_client", http.StatusUnauthorized)
	}))
	defer server.Close()

	authenticator, err := New(Config{
		Method:         "oauth",
		AccessTokenURL: server.URL,
		GrantType:      "password",
		Username:       "user",
		Password:       "pass",
	}, nil)
	require.NoError(t, err)

	err = authenticator.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestOAuthRequestBodyValidation(t *testing.T) {
	testCases := []struct {
		name string
		cfg  Config
	}{
		{"missing_grant", Config{ClientID: "id", ClientSecret: "secret"}},
		{"unknown_grant", Config{GrantType: "device_code"}},
		{"client_credentials_without_secret", Config{GrantType: "client_credentials", ClientID: "id"}},
		{"password_without_password", Config{GrantType: "password", Username: "user"}},
		{"refresh_without_token", Config{GrantType: "refresh_token"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Method = "oauth"
			tc.cfg.AccessTokenURL = "http://127.0.0.1:1/token"
			_, err := New(tc.cfg, nil)
			assert.ErrorIs(t, err, constants.ErrConfiguration)
		})
	}

	form, err := oauthRequestBody(Config{GrantType: "password", Username: "u", Password: "p", ClientID: "c", RedirectURI: "https://cb"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"grant_type":   "password",
		"username":     "u",
		"password":     "p",
		"client_id":    "c",
		"redirect_uri": "https://cb",
	}, form)
}
