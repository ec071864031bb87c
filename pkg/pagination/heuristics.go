package pagination

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/Widen/tap-rest-api-msdk/pkg/transport"
	"github.com/Widen/tap-rest-api-msdk/utils/logger"
	"github.com/Widen/tap-rest-api-msdk/utils/typeutils"
	"github.com/goccy/go-json"
	"github.com/tomnomnom/linkheader"
)

// commit_timestamp is not part of the record, it lives under commit.committer.date
const commitTimestampKey = "commit_timestamp"

// OffsetLimitNext reads pagination{offset,limit,total} from the body and
// returns offset+limit while it does not pass total
func OffsetLimitNext(document any) (int64, bool) {
	object, ok := document.(map[string]any)
	if !ok {
		return 0, false
	}
	pagination, ok := object["pagination"].(map[string]any)
	if !ok {
		return 0, false
	}

	offset, okOffset := toInt(pagination["offset"])
	limit, okLimit := toInt(pagination["limit"])
	total, okTotal := toInt(pagination["total"])
	if !okOffset || !okLimit || !okTotal {
		return 0, false
	}

	next := offset + limit
	if next > total {
		return 0, false
	}
	return next, true
}

// OffsetHasMore continues while offset+limit does not pass the total field
// named totalParam. A missing total counts as zero.
func OffsetHasMore(pagination map[string]any, totalParam string) bool {
	if pagination == nil {
		return false
	}
	offset, okOffset := toInt(pagination["offset"])
	limit, okLimit := toInt(pagination["limit"])
	if !okOffset || !okLimit {
		return false
	}
	total, ok := toInt(pagination[totalParam])
	if !ok {
		total = 0
	}
	return offset+limit <= total
}

// UnnestObject lifts the leaves of nested objects to the top level
func UnnestObject(object map[string]any) map[string]any {
	result := make(map[string]any, len(object))
	for key, value := range object {
		if nested, ok := value.(map[string]any); ok {
			for nestedKey, nestedValue := range UnnestObject(nested) {
				result[nestedKey] = nestedValue
			}
			continue
		}
		result[key] = value
	}
	return result
}

// SimpleOffsetHasMore treats a short page as the last one
func SimpleOffsetHasMore(records, pageSize int) bool {
	return pageSize > 0 && records == pageSize
}

// headerLinkNext returns the query of the rel="next" link, nil when the
// stream is done
func (p *Paginator) headerLinkNext(resp *transport.Response) *string {
	if p.opts.ResultsLimit > 0 && p.pageCount > 0 && p.pageCount*p.opts.PageSize >= p.opts.ResultsLimit {
		return nil
	}

	nextURL := NextLink(resp.Header.Values("Link"))
	if nextURL == "" {
		return nil
	}

	var results []any
	switch body := resp.JSON.(type) {
	case []any:
		results = body
	case map[string]any:
		results, _ = body["items"].([]any)
	}
	if len(results) == 0 {
		return nil
	}

	if p.opts.ReplicationKey != "" && p.opts.UseFakeSince && FakeSinceReached(resp.RequestURL, results[len(results)-1], p.opts.ReplicationKey) {
		return nil
	}

	parsed, err := url.Parse(nextURL)
	if err != nil || parsed.RawQuery == "" {
		return nil
	}
	return &parsed.RawQuery
}

// NextLink extracts the rel="next" target from Link header values
func NextLink(values []string) string {
	if len(values) == 0 {
		return ""
	}
	links := linkheader.Parse(strings.Join(values, ",")).FilterByRel("next")
	if len(links) == 0 {
		return ""
	}
	return links[0].URL
}

// FakeSinceReached reports whether a descending walk has gone past the
// fake_since parameter of the request. Records without a readable date stop
// the walk too.
func FakeSinceReached(requestURL *url.URL, lastRecord any, replicationKey string) bool {
	if requestURL == nil {
		return false
	}
	query := requestURL.Query()
	// "+" decodes as a space, restore it to keep the offset
	since := strings.ReplaceAll(query.Get("fake_since"), " ", "+")
	if since == "" || query.Get("direction") != "desc" {
		return false
	}

	sinceTime, err := typeutils.ParseTimestamp(since)
	if err != nil {
		logger.Warnf("unreadable fake_since [%s]: %s", since, err)
		return true
	}

	record, ok := lastRecord.(map[string]any)
	if !ok {
		return true
	}
	var value any
	if replicationKey == commitTimestampKey {
		value, _ = typeutils.FirstJSONPath("$.commit.committer.date", record)
	} else {
		value = record[replicationKey]
	}
	replicationDate, err := typeutils.ParseTimestamp(value)
	if err != nil {
		return true
	}
	return replicationDate.Before(sinceTime)
}

func normalizeToken(token any) Cursor {
	switch v := token.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return v
	case bool:
		return nil
	case float64:
		if v == math.Trunc(v) {
			return int64(v)
		}
		return v
	case map[string]any, []any:
		return nil
	default:
		return v
	}
}

func toInt(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		return err == nil && b
	case float64:
		return v != 0
	case map[string]any:
		return len(v) > 0
	case []any:
		return len(v) > 0
	default:
		return true
	}
}
