package typeutils

import (
	"fmt"
	"strings"

	"github.com/Widen/tap-rest-api-msdk/constants"
	"github.com/Widen/tap-rest-api-msdk/types"
	"github.com/goccy/go-json"
)

type Flattener interface {
	Flatten(record any) (types.Record, error)
}

// FlattenerImpl turns nested JSON objects into a single level row
type FlattenerImpl struct {
	exceptKeys map[string]struct{}
	keepRaw    bool
}

var keyReplacer = strings.NewReplacer("-", "_", ".", "_")

func NewFlattener(exceptKeys []string, keepRaw bool) *FlattenerImpl {
	except := make(map[string]struct{}, len(exceptKeys))
	for _, key := range exceptKeys {
		except[key] = struct{}{}
	}
	return &FlattenerImpl{
		exceptKeys: except,
		keepRaw:    keepRaw,
	}
}

// Flatten is the functional form of FlattenerImpl.Flatten
func Flatten(record any, exceptKeys []string, keepRaw bool) (types.Record, error) {
	return NewFlattener(exceptKeys, keepRaw).Flatten(record)
}

func getReformattedKey(key string) string {
	return keyReplacer.Replace(key)
}

// Flatten joins nested keys with "_". Arrays and excepted subtrees become JSON strings.
func (f *FlattenerImpl) Flatten(record any) (types.Record, error) {
	object, ok := record.(map[string]any)
	if !ok {
		if r, isRecord := record.(types.Record); isRecord {
			object = r
		} else {
			return nil, fmt.Errorf("%w: record must be a JSON object, got %T", constants.ErrConfiguration, record)
		}
	}

	destination := make(types.Record, len(object))
	if err := f.flatten(object, "", "", destination); err != nil {
		return nil, err
	}

	if f.keepRaw {
		destination[constants.RawJSONKey] = object
	}
	return destination, nil
}

// prefix is the underscore joined path, dotted the same path joined with "."
func (f *FlattenerImpl) flatten(object map[string]any, prefix, dotted string, destination types.Record) error {
	for key, value := range object {
		name := prefix + key
		path := key
		if dotted != "" {
			path = dotted + "." + key
		}

		if f.excepted(name, path) {
			if err := f.assignJSON(name, value, destination); err != nil {
				return err
			}
			continue
		}

		switch v := value.(type) {
		case map[string]any:
			if err := f.flatten(v, name+"_", path, destination); err != nil {
				return err
			}
		case []any:
			if err := f.assignJSON(name, v, destination); err != nil {
				return err
			}
		default:
			destination[getReformattedKey(name)] = v
		}
	}
	return nil
}

func (f *FlattenerImpl) excepted(name, path string) bool {
	if len(f.exceptKeys) == 0 {
		return false
	}
	if _, found := f.exceptKeys[name]; found {
		return true
	}
	_, found := f.exceptKeys[path]
	return found
}

func (f *FlattenerImpl) assignJSON(name string, value any, destination types.Record) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to serialize field[%s]: %s", name, err)
	}
	destination[getReformattedKey(name)] = string(b)
	return nil
}
