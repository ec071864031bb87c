// Package request turns a pagination cursor and replication start into the
// parameters, headers and body of the next page request.
package request

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Widen/tap-rest-api-msdk/constants"
	"github.com/Widen/tap-rest-api-msdk/pkg/pagination"
	"github.com/Widen/tap-rest-api-msdk/pkg/transport"
	"github.com/Widen/tap-rest-api-msdk/utils/typeutils"
)

type Style string

const (
	Default     Style = "default"
	Style1      Style = "style1"
	HeaderLink  Style = "header_link"
	HATEOASBody Style = "hateoas_body"
)

// ParseStyle normalizes a pagination_response_style value
func ParseStyle(raw string) (Style, error) {
	switch style := Style(strings.ToLower(strings.TrimSpace(raw))); style {
	case "":
		return Default, nil
	case Default, Style1, HeaderLink, HATEOASBody:
		return style, nil
	default:
		return "", fmt.Errorf("%w: unknown pagination_response_style [%s], use default, style1, header_link or hateoas_body", constants.ErrConfiguration, raw)
	}
}

type Options struct {
	Style             string
	Path              string
	Params            map[string]string
	Headers           map[string]string
	NextPageParam     string
	LimitPerPageParam string
	PageSize          int
	ReplicationKey    string
	SearchField       string
	SearchQuery       string
	SearchParameter   string
	SearchPrefix      string
	UseFakeSince      bool
	UseRequestBody    bool
}

// Spec is the fully parameterized next request
type Spec struct {
	Method  string
	Path    string
	Params  url.Values
	Headers map[string]string
	Body    map[string]any
}

// Request converts s into a transport request
func (s *Spec) Request() *transport.Request {
	req := &transport.Request{
		Method:  s.Method,
		Path:    s.Path,
		Params:  s.Params,
		Headers: s.Headers,
	}
	if s.Body != nil {
		req.Body = s.Body
	}
	return req
}

type Parameterizer struct {
	opts  Options
	style Style
}

func New(opts Options) (*Parameterizer, error) {
	style, err := ParseStyle(opts.Style)
	if err != nil {
		return nil, err
	}

	if opts.NextPageParam == "" {
		opts.NextPageParam = "page"
		if style == Style1 {
			opts.NextPageParam = "offset"
		}
	}
	if opts.LimitPerPageParam == "" {
		opts.LimitPerPageParam = "limit"
		if style == HeaderLink {
			opts.LimitPerPageParam = "per_page"
		}
	}
	if style == HeaderLink && opts.PageSize == 0 {
		opts.PageSize = constants.DefaultPageSize
	}
	if opts.SearchQuery != "" && opts.SearchField == "" {
		return nil, fmt.Errorf("%w: source_search_query requires source_search_field", constants.ErrConfiguration)
	}

	return &Parameterizer{opts: opts, style: style}, nil
}

func (p *Parameterizer) Style() Style { return p.style }

// Build returns the request for cursor. replicationStart is the bookmark or
// configured start date, nil when the stream has no starting point.
func (p *Parameterizer) Build(cursor pagination.Cursor, replicationStart any) (*Spec, error) {
	spec := &Spec{
		Method:  http.MethodGet,
		Path:    p.opts.Path,
		Params:  url.Values{},
		Headers: make(map[string]string, len(p.opts.Headers)),
	}
	for key, value := range p.opts.Headers {
		spec.Headers[key] = value
	}
	for key, value := range p.opts.Params {
		spec.Params.Set(key, value)
	}

	var err error
	switch p.style {
	case Default, Style1:
		err = p.buildPaged(spec, cursor, replicationStart)
	case HeaderLink:
		err = p.buildHeaderLink(spec, cursor, replicationStart)
	case HATEOASBody:
		err = p.buildHATEOAS(spec, cursor, replicationStart)
	}
	if err != nil {
		return nil, err
	}

	if p.opts.UseRequestBody {
		spec.Method = http.MethodPost
		spec.Body = make(map[string]any, len(spec.Params))
		for key := range spec.Params {
			spec.Body[key] = spec.Params.Get(key)
		}
		spec.Params = nil
	}
	return spec, nil
}

func (p *Parameterizer) buildPaged(spec *Spec, cursor pagination.Cursor, replicationStart any) error {
	if token := FormatCursor(cursor); token != "" {
		spec.Params.Set(p.opts.NextPageParam, token)
	}
	if p.opts.PageSize > 0 {
		spec.Params.Set(p.opts.LimitPerPageParam, strconv.Itoa(p.opts.PageSize))
	}
	if p.opts.ReplicationKey == "" {
		return nil
	}

	if p.opts.SearchField != "" && p.opts.SearchQuery != "" && replicationStart != nil {
		spec.Params.Set(p.opts.SearchField, strings.ReplaceAll(p.opts.SearchQuery, constants.LastRunDatePlaceholder, startValue(replicationStart)))
		return nil
	}
	spec.Params.Set("sort", "asc")
	spec.Params.Set("order_by", p.opts.ReplicationKey)
	return nil
}

func (p *Parameterizer) buildHeaderLink(spec *Spec, cursor pagination.Cursor, replicationStart any) error {
	spec.Params.Set(p.opts.LimitPerPageParam, strconv.Itoa(p.opts.PageSize))

	if p.opts.ReplicationKey != "" {
		spec.Params.Set("sort", SortKey(p.opts.ReplicationKey))
		var start *time.Time
		if replicationStart != nil {
			t, err := typeutils.ParseTimestamp(replicationStart)
			if err != nil {
				return fmt.Errorf("%w: replication start [%v] is not a timestamp: %s", constants.ErrConfiguration, replicationStart, err)
			}
			start = &t
			spec.Headers["If-Modified-Since"] = typeutils.HTTPDate(t)
		}

		if p.opts.UseFakeSince {
			spec.Params.Set("direction", "desc")
			if start != nil {
				spec.Params.Set("fake_since", start.UTC().Format(time.RFC3339))
			}
		} else {
			spec.Params.Set("direction", "asc")
			if start != nil {
				spec.Params.Set("since", start.UTC().Format(time.RFC3339))
			}
		}
	}

	if query := FormatCursor(cursor); query != "" {
		values, err := url.ParseQuery(query)
		if err != nil {
			return fmt.Errorf("invalid next link query [%s]: %s", query, err)
		}
		for key := range values {
			spec.Params.Set(key, values.Get(key))
		}
	}
	return nil
}

func (p *Parameterizer) buildHATEOAS(spec *Spec, cursor pagination.Cursor, replicationStart any) error {
	token := FormatCursor(cursor)
	if token == "" {
		spec.Path = p.opts.Path
		if p.opts.ReplicationKey != "" && p.opts.SearchParameter != "" && replicationStart != nil {
			spec.Params.Set(p.opts.SearchParameter, p.opts.SearchPrefix+startValue(replicationStart))
		}
		return nil
	}

	parsed, err := url.Parse(token)
	if err != nil {
		return fmt.Errorf("invalid next page url [%s]: %s", token, err)
	}
	rawQuery := parsed.RawQuery
	if rawQuery == "" {
		rawQuery = parsed.Path
	}
	if values, err := url.ParseQuery(rawQuery); err == nil {
		for key := range values {
			spec.Params.Set(key, values.Get(key))
		}
	}

	// a bare query string carries no path of its own
	if parsed.Path == token {
		spec.Path = ""
	} else {
		spec.Path = parsed.Path
	}
	return nil
}

// SortKey maps replication keys onto the sort values of header link APIs
func SortKey(replicationKey string) string {
	switch replicationKey {
	case "updated_at":
		return "updated"
	case "created_at":
		return "created"
	case "pushed_at":
		return "pushed"
	default:
		return replicationKey
	}
}

// FormatCursor renders a cursor as a query value
func FormatCursor(cursor any) string {
	switch v := cursor.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// startValue renders timestamps as 2006-01-02T15:04:05; other identifiers are
// sent as they are
func startValue(replicationStart any) string {
	switch v := replicationStart.(type) {
	case string:
		if _, err := strconv.ParseInt(v, 10, 64); err == nil {
			return v
		}
	case time.Time, typeutils.Time:
	default:
		return FormatCursor(replicationStart)
	}
	if t, err := typeutils.ParseTimestamp(replicationStart); err == nil {
		return typeutils.FormatISO(t)
	}
	return FormatCursor(replicationStart)
}
