// Package backoff computes retry delays from rate limited responses.
package backoff

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Widen/tap-rest-api-msdk/constants"
	"github.com/Widen/tap-rest-api-msdk/pkg/transport"
	"github.com/goccy/go-json"
)

type Type string

const (
	None    Type = ""
	Header  Type = "header"
	Message Type = "message"
)

type Config struct {
	Type          string `json:"backoff_type,omitempty" jsonschema:"enum=header,enum=message"`
	Param         string `json:"backoff_param,omitempty" jsonschema:"description=header name or json field holding the wait"`
	TimeExtension int    `json:"backoff_time_extension,omitempty" jsonschema:"description=seconds added to the computed wait"`
}

type Policy struct {
	typ       Type
	param     string
	extension time.Duration
	now       func() time.Time
}

var integerPattern = regexp.MustCompile(`\d+`)

func New(cfg Config) (*Policy, error) {
	policy := &Policy{
		typ:       Type(strings.ToLower(strings.TrimSpace(cfg.Type))),
		param:     cfg.Param,
		extension: time.Duration(cfg.TimeExtension) * time.Second,
		now:       time.Now,
	}

	switch policy.typ {
	case None:
	case Header:
		if policy.param == "" {
			policy.param = constants.DefaultBackoffHeader
		}
	case Message:
		if policy.param == "" {
			policy.param = constants.DefaultBackoffMessageKey
		}
	default:
		return nil, fmt.Errorf("%w: unknown backoff_type [%s], use header or message", constants.ErrConfiguration, cfg.Type)
	}
	if cfg.TimeExtension < 0 {
		return nil, fmt.Errorf("%w: backoff_time_extension must not be negative", constants.ErrConfiguration)
	}
	return policy, nil
}

// ComputeWait returns the delay before retrying resp. Zero means the transport
// applies its own exponential backoff.
func (p *Policy) ComputeWait(resp *transport.Response) time.Duration {
	if p == nil || resp == nil {
		return 0
	}

	var wait time.Duration
	var found bool
	switch p.typ {
	case Header:
		wait, found = p.fromHeader(resp.Header)
	case Message:
		wait, found = p.fromMessage(resp.Body)
	default:
		return 0
	}
	if !found {
		return 0
	}
	return wait + p.extension
}

// fromHeader reads integer seconds or an HTTP date
func (p *Policy) fromHeader(header http.Header) (time.Duration, bool) {
	value := strings.TrimSpace(header.Get(p.param))
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds * float64(time.Second)), true
	}
	if at, err := http.ParseTime(value); err == nil {
		wait := at.Sub(p.now())
		if wait < 0 {
			wait = 0
		}
		return wait, true
	}
	return 0, false
}

// fromMessage takes the largest integer found in the message text
func (p *Policy) fromMessage(body []byte) (time.Duration, bool) {
	text := string(body)

	var document map[string]any
	if err := json.Unmarshal(body, &document); err == nil {
		if value, ok := document[p.param]; ok {
			switch v := value.(type) {
			case string:
				text = v
			default:
				raw, _ := json.Marshal(v)
				text = string(raw)
			}
		}
	}

	largest := int64(-1)
	for _, match := range integerPattern.FindAllString(text, -1) {
		n, err := strconv.ParseInt(match, 10, 64)
		if err == nil && n > largest {
			largest = n
		}
	}
	if largest < 0 {
		return 0, false
	}
	return time.Duration(largest) * time.Second, true
}
