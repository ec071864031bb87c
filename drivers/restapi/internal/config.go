package driver

import (
	"fmt"
	"strings"
	"time"

	"github.com/Widen/tap-rest-api-msdk/constants"
	"github.com/Widen/tap-rest-api-msdk/pkg/auth"
	"github.com/Widen/tap-rest-api-msdk/pkg/backoff"
	"github.com/Widen/tap-rest-api-msdk/pkg/pagination"
	"github.com/Widen/tap-rest-api-msdk/pkg/request"
	"github.com/Widen/tap-rest-api-msdk/utils"
	"github.com/Widen/tap-rest-api-msdk/utils/typeutils"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// Config is the tap configuration. Stream settings given at the top level are
// defaults for every entry of streams; a config without streams describes a
// single stream at the top level.
type Config struct {
	APIURL            string  `json:"api_url" validate:"required,url" jsonschema:"description=base url of the api"`
	UserAgent         string  `json:"user_agent,omitempty"`
	Timeout           int     `json:"timeout,omitempty" validate:"gte=0" jsonschema:"description=request timeout in seconds,default=300"`
	MaxRetries        *int    `json:"max_retries,omitempty" validate:"omitempty,gte=0" jsonschema:"default=5"`
	RequestsPerSecond float64 `json:"requests_per_second,omitempty" validate:"gte=0" jsonschema:"description=client side rate limit; 0 disables it"`

	auth.Config
	StreamConfig

	Streams []*StreamConfig `json:"streams,omitempty" validate:"dive"`
}

// StreamConfig describes one endpoint
type StreamConfig struct {
	Name    string            `json:"name,omitempty"`
	Path    string            `json:"path,omitempty"`
	Params  map[string]any    `json:"params,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`

	RecordsPath       string  `json:"records_path,omitempty" validate:"omitempty,jsonpath" jsonschema:"default=$[*]"`
	NextPageTokenPath *string `json:"next_page_token_path,omitempty" jsonschema:"description=jsonpath of the next page token; empty reads the X-Next-Page header"`

	PaginationRequestStyle  string `json:"pagination_request_style,omitempty" jsonschema:"default=default"`
	PaginationResponseStyle string `json:"pagination_response_style,omitempty" jsonschema:"default=default"`
	PageSize                int    `json:"pagination_page_size,omitempty" validate:"gte=0"`
	ResultsLimit            int    `json:"pagination_results_limit,omitempty" validate:"gte=0"`
	NextPageParam           string `json:"pagination_next_page_param,omitempty"`
	LimitPerPageParam       string `json:"pagination_limit_per_page_param,omitempty"`
	TotalLimitParam         string `json:"pagination_total_limit_param,omitempty" jsonschema:"default=total"`
	InitialOffset           *int   `json:"pagination_initial_offset,omitempty" validate:"omitempty,gte=0" jsonschema:"default=1"`
	HasMorePath             string `json:"pagination_has_more_path,omitempty" validate:"omitempty,jsonpath"`

	PrimaryKeys    []string `json:"primary_keys,omitempty"`
	ReplicationKey string   `json:"replication_key,omitempty"`
	ExceptKeys     []string `json:"except_keys,omitempty"`
	StartDate      string   `json:"start_date,omitempty" jsonschema:"format=date-time"`

	SearchField     string `json:"source_search_field,omitempty"`
	SearchQuery     string `json:"source_search_query,omitempty" jsonschema:"description=filter template; $last_run_date is replaced by the replication start"`
	SearchParameter string `json:"search_parameter,omitempty"`
	SearchPrefix    string `json:"search_prefix,omitempty"`

	UseFakeSince        bool `json:"use_fake_since_parameter,omitempty"`
	UseRequestBody      bool `json:"use_request_body_not_params,omitempty"`
	StoreRawJSONMessage bool `json:"store_raw_json_message,omitempty"`

	NumInferenceRecords int `json:"num_inference_records,omitempty" validate:"gte=0" jsonschema:"default=50"`
	// Schema is an inline json schema object or the path of a schema file
	Schema any `json:"schema,omitempty"`

	backoff.Config
}

func init() {
	err := utils.RegisterValidation("jsonpath", "must be a valid JSONPath expression", func(fl validator.FieldLevel) bool {
		return typeutils.ValidJSONPath(fl.Field().String())
	})
	if err != nil {
		panic(err)
	}
}

func (c *Config) Validate() error {
	if err := utils.Validate(c); err != nil {
		return err
	}
	if _, err := auth.ParseMethod(c.Method); err != nil {
		return err
	}
	_, err := c.Resolve()
	return err
}

func (c *Config) requestTimeout() time.Duration {
	if c.Timeout <= 0 {
		return constants.DefaultRequestTimeout
	}
	return time.Duration(c.Timeout) * time.Second
}

func (c *Config) maxRetries() int {
	if c.MaxRetries == nil {
		return constants.DefaultMaxRetries
	}
	return *c.MaxRetries
}

// authConfig carries the oauth token request headers alongside the auth settings
func (c *Config) authConfig() auth.Config {
	cfg := c.Config
	cfg.Headers = c.StreamConfig.Headers
	return cfg
}

// Resolve returns one settled config per stream; stream values win over the
// top level defaults
func (c *Config) Resolve() ([]*StreamConfig, error) {
	entries := c.Streams
	if len(entries) == 0 {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: no streams configured", constants.ErrConfiguration)
		}
		entries = []*StreamConfig{{}}
	}

	defaults := map[string]any{}
	if err := utils.Unmarshal(c.StreamConfig, &defaults); err != nil {
		return nil, fmt.Errorf("%w: %s", constants.ErrConfiguration, err)
	}
	if len(c.Streams) > 0 {
		// names are never inherited
		delete(defaults, "name")
	}

	seen := map[string]bool{}
	resolved := make([]*StreamConfig, 0, len(entries))
	for idx, entry := range entries {
		overrides := map[string]any{}
		if err := utils.Unmarshal(entry, &overrides); err != nil {
			return nil, fmt.Errorf("%w: stream[%d]: %s", constants.ErrConfiguration, idx, err)
		}
		merged := utils.CopyMap(defaults)
		for key, value := range overrides {
			merged[key] = value
		}

		stream := &StreamConfig{}
		if err := utils.Unmarshal(merged, stream); err != nil {
			return nil, fmt.Errorf("%w: stream[%d]: %s", constants.ErrConfiguration, idx, err)
		}
		if err := stream.settle(); err != nil {
			return nil, fmt.Errorf("stream[%s]: %w", stream.Name, err)
		}
		if seen[stream.Name] {
			return nil, fmt.Errorf("%w: duplicate stream name [%s]", constants.ErrConfiguration, stream.Name)
		}
		seen[stream.Name] = true
		resolved = append(resolved, stream)
	}

	return resolved, nil
}

// settle validates a merged stream and fills its defaults
func (s *StreamConfig) settle() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: stream name is required", constants.ErrConfiguration)
	}
	if len(s.PrimaryKeys) == 0 {
		return fmt.Errorf("%w: primary_keys must not be empty", constants.ErrConfiguration)
	}
	if err := utils.Validate(s); err != nil {
		return err
	}
	if _, err := pagination.ParseStyle(s.PaginationRequestStyle); err != nil {
		return err
	}
	if _, err := request.ParseStyle(s.PaginationResponseStyle); err != nil {
		return err
	}
	if s.StartDate != "" {
		if _, err := typeutils.ParseTimestamp(s.StartDate); err != nil {
			return fmt.Errorf("%w: invalid start_date [%s]: %s", constants.ErrConfiguration, s.StartDate, err)
		}
	}
	switch s.Schema.(type) {
	case nil, string, map[string]any:
	default:
		return fmt.Errorf("%w: schema must be an object or a file path", constants.ErrConfiguration)
	}

	if s.RecordsPath == "" {
		s.RecordsPath = constants.DefaultRecordsPath
	}
	if s.NumInferenceRecords == 0 {
		s.NumInferenceRecords = constants.DefaultInferenceRecords
	}
	return nil
}

// StringParams renders the static params as query values
func (s *StreamConfig) StringParams() map[string]string {
	params := make(map[string]string, len(s.Params))
	for key, value := range s.Params {
		switch v := value.(type) {
		case nil:
			params[key] = ""
		case string:
			params[key] = v
		case float64:
			params[key] = request.FormatCursor(v)
		case bool, int, int64:
			params[key] = fmt.Sprint(v)
		default:
			b, err := json.Marshal(v)
			if err != nil {
				params[key] = fmt.Sprint(v)
				continue
			}
			params[key] = string(b)
		}
	}
	return params
}

// replicationStart is the bookmark when present, else the configured start date
func (s *StreamConfig) replicationStart(bookmark any) any {
	if bookmark != nil {
		return bookmark
	}
	if s.StartDate != "" {
		return s.StartDate
	}
	return nil
}
