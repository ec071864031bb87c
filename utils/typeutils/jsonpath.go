package typeutils

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/PaesslerAG/jsonpath"
)

// plural paths select a collection even when a single element matches
var pluralPath = regexp.MustCompile(`\*|\.\.|\?\(|\[[^\]]*[:,][^\]]*\]`)

// compiled jsonpath evaluables by expression
var pathCache sync.Map

type evaluable = func(ctx context.Context, document any) (any, error)

func compileJSONPath(expr string) (evaluable, error) {
	if cached, ok := pathCache.Load(expr); ok {
		return cached.(evaluable), nil
	}
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("empty jsonpath expression")
	}

	eval, err := jsonpath.New(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath[%s]: %s", expr, err)
	}
	fn := evaluable(eval)
	pathCache.Store(expr, fn)
	return fn, nil
}

// ExtractJSONPath returns every value matched by expr in document. A path that
// does not resolve yields no values and no error; only a malformed expression fails.
func ExtractJSONPath(expr string, document any) ([]any, error) {
	eval, err := compileJSONPath(expr)
	if err != nil {
		return nil, err
	}

	value, err := eval(context.Background(), document)
	if err != nil {
		// unknown keys, out of range indexes and type mismatches
		return nil, nil
	}

	if pluralPath.MatchString(expr) {
		if values, ok := value.([]any); ok {
			if len(values) == 0 {
				return nil, nil
			}
			return values, nil
		}
	}
	if value == nil {
		return nil, nil
	}
	return []any{value}, nil
}

// FirstJSONPath returns the first match of expr, found is false on no match
func FirstJSONPath(expr string, document any) (any, bool) {
	values, err := ExtractJSONPath(expr, document)
	if err != nil || len(values) == 0 {
		return nil, false
	}
	return values[0], true
}

// ValidJSONPath reports whether expr compiles
func ValidJSONPath(expr string) bool {
	_, err := compileJSONPath(expr)
	return err == nil
}
