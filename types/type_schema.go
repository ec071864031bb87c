package types

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Widen/tap-rest-api-msdk/utils"
	"github.com/goccy/go-json"
	"github.com/parquet-go/parquet-go"
)

// TypeSchema is the JSON-Schema-like description of a flat stream row
type TypeSchema struct {
	mu         sync.Mutex
	Properties sync.Map `json:"-"`
	Required   []string `json:"-"`

	// raw holds a user supplied schema; it is emitted verbatim
	raw map[string]any
}

func NewTypeSchema() *TypeSchema {
	return &TypeSchema{}
}

// MarshalJSON custom marshaller to handle sync.Map encoding
func (t *TypeSchema) MarshalJSON() ([]byte, error) {
	if t.raw != nil {
		return json.Marshal(t.raw)
	}

	propertiesMap := make(map[string]*Property)
	t.Properties.Range(func(key, value any) bool {
		strKey, ok := key.(string)
		if !ok {
			return false
		}
		prop, ok := value.(*Property)
		if !ok {
			return false
		}
		propertiesMap[strKey] = prop
		return true
	})

	required := append([]string{}, t.Required...)
	sort.Strings(required)
	return json.Marshal(&struct {
		Type       string               `json:"type"`
		Properties map[string]*Property `json:"properties"`
		Required   []string             `json:"required,omitempty"`
	}{
		Type:       string(Object),
		Properties: propertiesMap,
		Required:   required,
	})
}

// UnmarshalJSON keeps the raw document and indexes its top level property types
func (t *TypeSchema) UnmarshalJSON(data []byte) error {
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	aux := struct {
		Properties map[string]*Property `json:"properties,omitempty"`
		Required   []string             `json:"required,omitempty"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	for key, value := range aux.Properties {
		t.Properties.Store(key, value)
	}
	t.Required = aux.Required
	t.raw = raw
	return nil
}

// IsUserDefined reports whether the schema was decoded from a supplied document
func (t *TypeSchema) IsUserDefined() bool {
	return t.raw != nil
}

func (t *TypeSchema) GetType(column string) (DataType, error) {
	p, found := t.Properties.Load(column)
	if !found {
		return "", fmt.Errorf("column [%s] missing from type schema", column)
	}

	return p.(*Property).DataType(), nil
}

func (t *TypeSchema) AddTypes(column string, types ...DataType) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, found := t.Properties.Load(column)
	if !found {
		t.Properties.Store(column, &Property{
			Type: NewSet(types...),
		})
		return
	}

	property := p.(*Property)
	property.Type.Insert(types...)
}

func (t *TypeSchema) GetProperty(column string) (bool, *Property) {
	p, found := t.Properties.Load(column)
	if !found {
		return false, nil
	}

	return true, p.(*Property)
}

// Columns returns property names in sorted order
func (t *TypeSchema) Columns() []string {
	var columns []string
	t.Properties.Range(func(key, _ any) bool {
		columns = append(columns, key.(string))
		return true
	})
	sort.Strings(columns)
	return columns
}

func (t *TypeSchema) ToParquet() *parquet.Schema {
	groupNode := parquet.Group{}
	t.Properties.Range(func(key, value any) bool {
		groupNode[key.(string)] = value.(*Property).DataType().ToNewParquet()
		return true
	})

	return parquet.NewSchema("tap_schema", groupNode)
}

// Property is a dto for catalog properties representation
type Property struct {
	Type *Set[DataType] `json:"type,omitempty"`
}

// MarshalJSON writes a single type as a string and several as a sorted list
func (p *Property) MarshalJSON() ([]byte, error) {
	var wire []string
	format := ""
	for _, dt := range p.Type.Array() {
		typ, f := dt.JSONSchemaType()
		if f != "" {
			format = f
		}
		if _, found := utils.ArrayContains(wire, func(elem string) bool { return elem == typ }); !found {
			wire = append(wire, typ)
		}
	}
	sort.Strings(wire)

	out := map[string]any{}
	switch len(wire) {
	case 0:
		out["type"] = string(String)
	case 1:
		out["type"] = wire[0]
	default:
		out["type"] = wire
	}
	if format != "" {
		out["format"] = format
	}
	return json.Marshal(out)
}

func (p *Property) UnmarshalJSON(data []byte) error {
	aux := struct {
		Type   any    `json:"type"`
		Format string `json:"format"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	p.Type = NewSet[DataType]()
	insert := func(typ string) {
		if typ == string(String) && (aux.Format == "date-time" || aux.Format == "date") {
			p.Type.Insert(Timestamp)
			return
		}
		p.Type.Insert(DataType(typ))
	}

	switch v := aux.Type.(type) {
	case string:
		insert(v)
	case []any:
		for _, elem := range v {
			if s, ok := elem.(string); ok {
				insert(s)
			}
		}
	}
	return nil
}

// DataType returns the single non-null type; mixed types widen to string
func (p *Property) DataType() DataType {
	var nonNull []DataType
	for _, elem := range p.Type.Array() {
		if elem != Null {
			nonNull = append(nonNull, elem)
		}
	}

	switch len(nonNull) {
	case 0:
		return Null
	case 1:
		return nonNull[0]
	}
	if len(nonNull) == 2 && p.Type.Exists(Int64) && p.Type.Exists(Float64) {
		return Float64
	}
	return String
}

func (p *Property) Nullable() bool {
	_, found := utils.ArrayContains(p.Type.Array(), func(elem DataType) bool {
		return elem == Null
	})

	return found
}
