package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Widen/tap-rest-api-msdk/constants"
	"github.com/Widen/tap-rest-api-msdk/utils/logger"
	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
)

const (
	GrantClientCredentials = "client_credentials"
	GrantPassword          = "password"
	GrantRefreshToken      = "refresh_token"
)

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type oauthAuthenticator struct {
	client   *resty.Client
	tokenURL string
	headers  map[string]string
	expiry   time.Duration

	mu    sync.Mutex
	form  map[string]string
	token *oauth2.Token
	now   func() time.Time
}

// oauthRequestBody assembles the token request form for the configured grant
func oauthRequestBody(cfg Config) (map[string]string, error) {
	if cfg.GrantType == "" {
		return nil, fmt.Errorf("%w: missing grant_type for oauth token", constants.ErrConfiguration)
	}

	switch cfg.GrantType {
	case GrantClientCredentials:
		if cfg.ClientID == "" || cfg.ClientSecret == "" {
			return nil, fmt.Errorf("%w: missing either client_id or client_secret for '%s' grant_type", constants.ErrConfiguration, cfg.GrantType)
		}
	case GrantPassword:
		if cfg.Username == "" || cfg.Password == "" {
			return nil, fmt.Errorf("%w: missing either username or password for '%s' grant_type", constants.ErrConfiguration, cfg.GrantType)
		}
	case GrantRefreshToken:
		if cfg.RefreshToken == "" {
			return nil, fmt.Errorf("%w: missing refresh_token for '%s' grant_type", constants.ErrConfiguration, cfg.GrantType)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported grant_type [%s]", constants.ErrConfiguration, cfg.GrantType)
	}

	form := map[string]string{"grant_type": cfg.GrantType}
	optional := map[string]string{
		"scope":         cfg.Scope,
		"client_id":     cfg.ClientID,
		"client_secret": cfg.ClientSecret,
		"username":      cfg.Username,
		"password":      cfg.Password,
		"refresh_token": cfg.RefreshToken,
		"redirect_uri":  cfg.RedirectURI,
	}
	for key, value := range optional {
		if value != "" {
			form[key] = value
		}
	}
	for key, value := range cfg.OAuthExtras {
		form[key] = value
	}
	return form, nil
}

func newOAuth(cfg Config, client *resty.Client) (Authenticator, error) {
	if cfg.AccessTokenURL == "" {
		return nil, fmt.Errorf("%w: access_token_url is required for oauth", constants.ErrConfiguration)
	}
	form, err := oauthRequestBody(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.OAuthExpirationSecs < 0 {
		return nil, fmt.Errorf("%w: oauth_expiration_secs must not be negative", constants.ErrConfiguration)
	}

	return &oauthAuthenticator{
		client:   client,
		tokenURL: cfg.AccessTokenURL,
		headers:  cfg.Headers,
		expiry:   time.Duration(cfg.OAuthExpirationSecs) * time.Second,
		form:     form,
		now:      time.Now,
	}, nil
}

func (o *oauthAuthenticator) Method() Method { return OAuth }

func (o *oauthAuthenticator) Expired() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.expired()
}

func (o *oauthAuthenticator) expired() bool {
	if o.token == nil || o.token.AccessToken == "" {
		return true
	}
	return !o.token.Expiry.IsZero() && !o.now().Before(o.token.Expiry)
}

func (o *oauthAuthenticator) Apply(ctx context.Context, req *http.Request) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.expired() {
		if err := o.refresh(ctx); err != nil {
			return err
		}
	}
	o.token.SetAuthHeader(req)
	return nil
}

func (o *oauthAuthenticator) Refresh(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.refresh(ctx)
}

func (o *oauthAuthenticator) refresh(ctx context.Context) error {
	issuedAt := o.now()
	result := &tokenResponse{}
	resp, err := o.client.R().
		SetContext(ctx).
		SetHeaders(o.headers).
		SetFormData(o.form).
		SetResult(result).
		Post(o.tokenURL)
	if err != nil {
		return fmt.Errorf("failed to request oauth token: %s", err)
	}
	if resp.IsError() {
		return fmt.Errorf("failed to request oauth token: status %d: %s", resp.StatusCode(), resp.String())
	}
	if result.AccessToken == "" {
		return fmt.Errorf("oauth token response carried no access_token")
	}

	token := &oauth2.Token{
		AccessToken:  result.AccessToken,
		TokenType:    result.TokenType,
		RefreshToken: result.RefreshToken,
	}
	expiresIn := o.expiry
	if expiresIn == 0 && result.ExpiresIn > 0 {
		expiresIn = time.Duration(result.ExpiresIn) * time.Second
	}
	if expiresIn > 0 {
		token.Expiry = issuedAt.Add(expiresIn)
	}

	// keep a rotated refresh token for the next grant
	if result.RefreshToken != "" && o.form["grant_type"] == GrantRefreshToken {
		o.form["refresh_token"] = result.RefreshToken
	}

	o.token = token
	logger.Debugf("oauth token acquired, expires at %s", token.Expiry)
	return nil
}
