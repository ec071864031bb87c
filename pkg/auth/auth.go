// Package auth selects and applies the request authentication strategy
// configured for a tap.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Widen/tap-rest-api-msdk/constants"
	"github.com/go-resty/resty/v2"
)

type Method string

const (
	NoAuth      Method = "no_auth"
	APIKey      Method = "api_key"
	Basic       Method = "basic"
	BearerToken Method = "bearer_token"
	OAuth       Method = "oauth"
	AWS         Method = "aws"
)

var methodAliases = map[string]Method{
	"":               NoAuth,
	"none":           NoAuth,
	"no_auth":        NoAuth,
	"api_key":        APIKey,
	"basic":          Basic,
	"bearer_token":   BearerToken,
	"oauth":          OAuth,
	"oauth2":         OAuth,
	"aws":            AWS,
	"signed_request": AWS,
}

// ParseMethod normalizes aliases onto the closed set of methods
func ParseMethod(raw string) (Method, error) {
	method, found := methodAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !found {
		return "", fmt.Errorf("%w: unknown authentication method [%s], use one of %s", constants.ErrConfiguration, raw,
			strings.Join([]string{string(NoAuth), string(APIKey), string(Basic), string(BearerToken), string(OAuth), string(AWS)}, ", "))
	}
	return method, nil
}

const (
	LocationHeader = "header"
	LocationParams = "params"
)

// Config carries every auth related setting of the tap configuration
type Config struct {
	Method string `json:"auth_method,omitempty" jsonschema:"enum=no_auth,enum=api_key,enum=basic,enum=bearer_token,enum=oauth,enum=aws,default=no_auth"`

	APIKeys        map[string]string `json:"api_keys,omitempty" jsonschema:"description=single key/value pair sent as header or query parameter"`
	APIKeyLocation string            `json:"api_key_location,omitempty" jsonschema:"enum=header,enum=params,default=header"`

	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
	BearerToken string `json:"bearer_token,omitempty"`

	AccessTokenURL      string            `json:"access_token_url,omitempty"`
	GrantType           string            `json:"grant_type,omitempty" jsonschema:"enum=client_credentials,enum=password,enum=refresh_token"`
	ClientID            string            `json:"client_id,omitempty"`
	ClientSecret        string            `json:"client_secret,omitempty"`
	RefreshToken        string            `json:"refresh_token,omitempty"`
	Scope               string            `json:"scope,omitempty"`
	RedirectURI         string            `json:"redirect_uri,omitempty"`
	OAuthExtras         map[string]string `json:"oauth_extras,omitempty"`
	OAuthExpirationSecs int               `json:"oauth_expiration_secs,omitempty"`

	AWSCredentials *AWSCredentials `json:"aws_credentials,omitempty"`

	// Headers are forwarded with the oauth token request
	Headers map[string]string `json:"-"`
}

// Authenticator decorates outgoing requests. Apply refreshes an expired
// credential before decorating.
type Authenticator interface {
	Method() Method
	Apply(ctx context.Context, req *http.Request) error
	Expired() bool
	Refresh(ctx context.Context) error
}

// New builds the authenticator for cfg. client is used for token requests and
// must not carry the authentication hook itself; nil creates a plain client.
// Configuration problems are reported here, before any request is sent.
func New(cfg Config, client *resty.Client) (Authenticator, error) {
	method, err := ParseMethod(cfg.Method)
	if err != nil {
		return nil, err
	}

	switch method {
	case NoAuth:
		return noAuth{}, nil
	case APIKey:
		return newAPIKey(cfg)
	case Basic:
		if cfg.Username == "" {
			return nil, fmt.Errorf("%w: username is required for basic auth", constants.ErrConfiguration)
		}
		return basicAuth{username: cfg.Username, password: cfg.Password}, nil
	case BearerToken:
		if cfg.BearerToken == "" {
			return nil, fmt.Errorf("%w: bearer_token is required for bearer_token auth", constants.ErrConfiguration)
		}
		return bearerAuth{token: cfg.BearerToken}, nil
	case OAuth:
		if client == nil {
			client = resty.New()
		}
		return newOAuth(cfg, client)
	case AWS:
		return newAWS(context.Background(), cfg.AWSCredentials)
	default:
		return nil, fmt.Errorf("%w: unsupported authentication method [%s]", constants.ErrConfiguration, method)
	}
}

// static strategies never expire

type noAuth struct{}

func (noAuth) Method() Method { return NoAuth }
func (noAuth) Apply(_ context.Context, _ *http.Request) error { return nil }
func (noAuth) Expired() bool { return false }
func (noAuth) Refresh(_ context.Context) error { return nil }

type apiKeyAuth struct {
	key      string
	value    string
	location string
}

func newAPIKey(cfg Config) (Authenticator, error) {
	if len(cfg.APIKeys) != 1 {
		return nil, fmt.Errorf("%w: api_keys must hold exactly one key/value pair, found %d", constants.ErrConfiguration, len(cfg.APIKeys))
	}

	location := strings.ToLower(cfg.APIKeyLocation)
	switch location {
	case "":
		location = LocationHeader
	case LocationHeader, LocationParams:
	default:
		return nil, fmt.Errorf("%w: api_key_location must be %s or %s, got [%s]", constants.ErrConfiguration, LocationHeader, LocationParams, cfg.APIKeyLocation)
	}

	auth := &apiKeyAuth{location: location}
	for key, value := range cfg.APIKeys {
		auth.key, auth.value = key, value
	}
	return auth, nil
}

func (a *apiKeyAuth) Method() Method { return APIKey }

func (a *apiKeyAuth) Apply(_ context.Context, req *http.Request) error {
	if a.location == LocationParams {
		query := req.URL.Query()
		query.Set(a.key, a.value)
		req.URL.RawQuery = query.Encode()
		return nil
	}
	req.Header.Set(a.key, a.value)
	return nil
}

func (a *apiKeyAuth) Expired() bool { return false }
func (a *apiKeyAuth) Refresh(_ context.Context) error { return nil }

type basicAuth struct {
	username string
	password string
}

func (basicAuth) Method() Method { return Basic }

func (a basicAuth) Apply(_ context.Context, req *http.Request) error {
	req.SetBasicAuth(a.username, a.password)
	return nil
}

func (basicAuth) Expired() bool { return false }
func (basicAuth) Refresh(_ context.Context) error { return nil }

type bearerAuth struct {
	token string
}

func (bearerAuth) Method() Method { return BearerToken }

func (a bearerAuth) Apply(_ context.Context, req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+a.token)
	return nil
}

func (bearerAuth) Expired() bool { return false }
func (bearerAuth) Refresh(_ context.Context) error { return nil }
