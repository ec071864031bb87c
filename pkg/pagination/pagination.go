// Package pagination decides whether another page exists and which cursor
// requests it, for each supported paging convention.
package pagination

import (
	"fmt"
	"strings"

	"github.com/Widen/tap-rest-api-msdk/constants"
	"github.com/Widen/tap-rest-api-msdk/pkg/transport"
	"github.com/Widen/tap-rest-api-msdk/utils/logger"
	"github.com/Widen/tap-rest-api-msdk/utils/typeutils"
)

type Style string

const (
	JSONPath     Style = "default"
	OffsetLimit  Style = "style1"
	Offset       Style = "offset_paginator"
	PageNumber   Style = "page_number_paginator"
	HeaderLink   Style = "header_link_paginator"
	SimpleOffset Style = "simple_offset_paginator"
	HATEOAS      Style = "hateoas_paginator"
	SinglePage   Style = "single_page_paginator"
	NoPagination Style = "no_pagination"
)

var styleAliases = map[string]Style{
	"":                        JSONPath,
	"default":                 JSONPath,
	"jsonpath_paginator":      JSONPath,
	"style1":                  OffsetLimit,
	"offset_limit_paginator":  OffsetLimit,
	"offset_paginator":        Offset,
	"page_number_paginator":   PageNumber,
	"header_link_paginator":   HeaderLink,
	"simple_offset_paginator": SimpleOffset,
	"hateoas_paginator":       HATEOAS,
	"single_page_paginator":   SinglePage,
	"no_pagination":           NoPagination,
}

// ParseStyle normalizes a pagination_request_style value
func ParseStyle(raw string) (Style, error) {
	style, found := styleAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !found {
		return "", fmt.Errorf("%w: unknown pagination_request_style [%s]", constants.ErrConfiguration, raw)
	}
	return style, nil
}

// Cursor identifies the next page: an offset or page number, a query string or
// a next page url. nil ends the stream.
type Cursor = any

type Options struct {
	Style string
	// NextPageTokenPath nil selects the default path, an empty string the
	// X-Next-Page header
	NextPageTokenPath *string
	HasMorePath       string
	TotalLimitParam   string
	RecordsPath       string
	PageSize          int
	ResultsLimit      int
	// InitialOffset nil starts offset and page styles at 1
	InitialOffset     *int
	ReplicationKey    string
	UseFakeSince      bool
}

type Paginator struct {
	opts      Options
	style     Style
	tokenPath string
	offset    int

	pageCount int
	current   Cursor
}

func New(opts Options) (*Paginator, error) {
	style, err := ParseStyle(opts.Style)
	if err != nil {
		return nil, err
	}
	if opts.PageSize < 0 || opts.ResultsLimit < 0 {
		return nil, fmt.Errorf("%w: page size and results limit must not be negative", constants.ErrConfiguration)
	}

	p := &Paginator{opts: opts, style: style}
	if opts.NextPageTokenPath == nil {
		p.tokenPath = constants.DefaultNextPageTokenPath
	} else {
		p.tokenPath = *opts.NextPageTokenPath
	}
	if p.opts.TotalLimitParam == "" {
		p.opts.TotalLimitParam = "total"
	}
	if p.opts.RecordsPath == "" {
		p.opts.RecordsPath = constants.DefaultRecordsPath
	}
	p.offset = constants.DefaultInitialOffset
	if opts.InitialOffset != nil {
		if *opts.InitialOffset < 0 {
			return nil, fmt.Errorf("%w: pagination_initial_offset must not be negative", constants.ErrConfiguration)
		}
		p.offset = *opts.InitialOffset
	}

	switch style {
	case SimpleOffset, HeaderLink:
		if p.opts.PageSize == 0 {
			p.opts.PageSize = constants.DefaultPageSize
		}
	case Offset:
		if p.opts.PageSize == 0 {
			return nil, fmt.Errorf("%w: pagination_page_size is required for %s", constants.ErrConfiguration, style)
		}
	}

	p.current = p.InitialCursor()
	return p, nil
}

func (p *Paginator) Style() Style { return p.style }

// PageCount is the number of responses advanced over so far
func (p *Paginator) PageCount() int { return p.pageCount }

func (p *Paginator) Current() Cursor { return p.current }

// InitialCursor is the cursor of the first request
func (p *Paginator) InitialCursor() Cursor {
	switch p.style {
	case Offset, SimpleOffset, PageNumber:
		return p.offset
	default:
		return nil
	}
}

// HasMore reports whether resp indicates a following page
func (p *Paginator) HasMore(resp *transport.Response) bool {
	if resp == nil {
		return false
	}

	switch p.style {
	case JSONPath, HATEOAS:
		return p.tokenCursor(resp) != nil
	case OffsetLimit:
		_, ok := OffsetLimitNext(resp.JSON)
		return ok
	case Offset:
		return OffsetHasMore(p.paginationObject(resp.JSON), p.opts.TotalLimitParam)
	case PageNumber:
		return p.pageNumberHasMore(resp.JSON)
	case HeaderLink:
		return p.headerLinkNext(resp) != nil
	case SimpleOffset:
		records, _ := typeutils.ExtractJSONPath(p.opts.RecordsPath, resp.JSON)
		return SimpleOffsetHasMore(len(records), p.opts.PageSize)
	default:
		return false
	}
}

// NextCursor computes the cursor following current from resp
func (p *Paginator) NextCursor(resp *transport.Response, current Cursor) Cursor {
	if resp == nil {
		return nil
	}

	switch p.style {
	case JSONPath, HATEOAS:
		return p.tokenCursor(resp)
	case OffsetLimit:
		next, ok := OffsetLimitNext(resp.JSON)
		if !ok {
			return nil
		}
		return next
	case Offset, SimpleOffset:
		value, ok := toInt(current)
		if !ok {
			value = int64(p.offset)
		}
		return value + int64(p.opts.PageSize)
	case PageNumber:
		value, ok := toInt(current)
		if !ok {
			value = int64(p.offset)
		}
		return value + 1
	case HeaderLink:
		if next := p.headerLinkNext(resp); next != nil {
			return *next
		}
		return nil
	default:
		return nil
	}
}

// Advance consumes resp and returns the next cursor; false ends the stream
func (p *Paginator) Advance(resp *transport.Response) (Cursor, bool) {
	p.pageCount++

	if !p.HasMore(resp) {
		return nil, false
	}
	next := p.NextCursor(resp, p.current)
	if next == nil {
		return nil, false
	}
	if p.current != nil && typeutils.Compare(next, p.current) == 0 {
		logger.Warnf("pagination cursor [%v] repeated the previous one, ending stream", next)
		return nil, false
	}

	p.current = next
	return next, true
}

// tokenCursor reads the next page token from the body or the X-Next-Page header
func (p *Paginator) tokenCursor(resp *transport.Response) Cursor {
	var token any
	if p.tokenPath != "" {
		token, _ = typeutils.FirstJSONPath(p.tokenPath, resp.JSON)
	} else {
		token = resp.Header.Get(constants.NextPageHeader)
	}
	return normalizeToken(token)
}

func (p *Paginator) paginationObject(document any) map[string]any {
	path := constants.DefaultPaginationPath
	if p.opts.NextPageTokenPath != nil && *p.opts.NextPageTokenPath != "" {
		path = *p.opts.NextPageTokenPath
	}
	value, found := typeutils.FirstJSONPath(path, document)
	if !found {
		return nil
	}
	object, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	return UnnestObject(object)
}

func (p *Paginator) pageNumberHasMore(document any) bool {
	var value any
	if p.opts.HasMorePath != "" {
		value, _ = typeutils.FirstJSONPath(p.opts.HasMorePath, document)
	} else if object, ok := document.(map[string]any); ok {
		value = object["hasMore"]
	}
	return truthy(value)
}
