package auth

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/Widen/tap-rest-api-msdk/constants"
	"github.com/Widen/tap-rest-api-msdk/utils/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// AWSCredentials configures SigV4 request signing
type AWSCredentials struct {
	AccessKeyID             string `json:"aws_access_key_id,omitempty"`
	SecretAccessKey         string `json:"aws_secret_access_key,omitempty"`
	SessionToken            string `json:"aws_session_token,omitempty"`
	Region                  string `json:"aws_region,omitempty"`
	Service                 string `json:"aws_service,omitempty"`
	Profile                 string `json:"aws_profile,omitempty"`
	CreateSignedCredentials *bool  `json:"create_signed_credentials,omitempty" jsonschema:"default=true"`
	SigningRequired         bool   `json:"signing_required,omitempty"`
}

// sha256 of an empty payload
const emptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

type awsAuthenticator struct {
	credentials *aws.CredentialsCache
	signer      *v4.Signer
	region      string
	service     string

	mu      sync.Mutex
	current aws.Credentials
	now     func() time.Time
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

// newAWS resolves credentials from explicit keys, then the environment, then a
// shared config profile
func newAWS(ctx context.Context, creds *AWSCredentials) (Authenticator, error) {
	if creds == nil {
		creds = &AWSCredentials{}
	}

	region := firstNonEmpty(creds.Region, os.Getenv("AWS_REGION"))
	service := firstNonEmpty(creds.Service, os.Getenv("AWS_SERVICE"))
	accessKeyID := firstNonEmpty(creds.AccessKeyID, os.Getenv("AWS_ACCESS_KEY_ID"))
	secretAccessKey := firstNonEmpty(creds.SecretAccessKey, os.Getenv("AWS_SECRET_ACCESS_KEY"))
	sessionToken := firstNonEmpty(creds.SessionToken, os.Getenv("AWS_SESSION_TOKEN"))
	profile := firstNonEmpty(creds.Profile, os.Getenv("AWS_PROFILE"))

	var provider aws.CredentialsProvider
	switch {
	case accessKeyID != "" && secretAccessKey != "":
		provider = credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, sessionToken)
	case profile != "":
		opts := []func(*config.LoadOptions) error{config.WithSharedConfigProfile(profile)}
		if region != "" {
			opts = append(opts, config.WithRegion(region))
		}
		awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to load aws profile [%s]: %s", constants.ErrConfiguration, profile, err)
		}
		provider = awsCfg.Credentials
		region = firstNonEmpty(region, awsCfg.Region)
	}

	signing := creds.CreateSignedCredentials == nil || *creds.CreateSignedCredentials
	if provider == nil || !signing {
		if creds.SigningRequired {
			return nil, fmt.Errorf("%w: aws request signing is required but no credentials could be resolved", constants.ErrConfiguration)
		}
		logger.Warn("aws auth selected without usable credentials, requests will not be signed")
		return &awsAuthenticator{now: time.Now}, nil
	}
	if service == "" {
		return nil, fmt.Errorf("%w: aws_service is required for request signing", constants.ErrConfiguration)
	}

	return &awsAuthenticator{
		credentials: aws.NewCredentialsCache(provider),
		signer:      v4.NewSigner(),
		region:      region,
		service:     service,
		now:         time.Now,
	}, nil
}

func (a *awsAuthenticator) Method() Method { return AWS }

func (a *awsAuthenticator) Expired() bool {
	if a.credentials == nil {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.current.HasKeys() || (a.current.CanExpire && !a.now().Before(a.current.Expires))
}

// Refresh drops the cached credentials and retrieves them again
func (a *awsAuthenticator) Refresh(ctx context.Context) error {
	if a.credentials == nil {
		return nil
	}
	a.credentials.Invalidate()
	_, err := a.retrieve(ctx)
	return err
}

func (a *awsAuthenticator) retrieve(ctx context.Context) (aws.Credentials, error) {
	creds, err := a.credentials.Retrieve(ctx)
	if err != nil {
		return aws.Credentials{}, fmt.Errorf("failed to retrieve aws credentials: %s", err)
	}
	a.mu.Lock()
	a.current = creds
	a.mu.Unlock()
	return creds, nil
}

func (a *awsAuthenticator) Apply(ctx context.Context, req *http.Request) error {
	if a.credentials == nil {
		return nil
	}

	creds, err := a.retrieve(ctx)
	if err != nil {
		return err
	}
	payloadHash, err := hashBody(req)
	if err != nil {
		return err
	}
	if err := a.signer.SignHTTP(ctx, creds, req, payloadHash, a.service, a.region, a.now()); err != nil {
		return fmt.Errorf("failed to sign request: %s", err)
	}
	return nil
}

// hashBody reads the payload without consuming it
func hashBody(req *http.Request) (string, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return emptyPayloadHash, nil
	}

	var body io.ReadCloser
	var err error
	if req.GetBody != nil {
		body, err = req.GetBody()
		if err != nil {
			return "", fmt.Errorf("failed to read request body: %s", err)
		}
	} else {
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			return "", fmt.Errorf("failed to read request body: %s", err)
		}
		req.Body = io.NopCloser(bytes.NewReader(raw))
		body = io.NopCloser(bytes.NewReader(raw))
	}
	defer body.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, body); err != nil {
		return "", fmt.Errorf("failed to hash request body: %s", err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
