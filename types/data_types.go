package types

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/parquet-go/parquet-go"
)

type DataType string

const (
	Null      DataType = "null"
	Int64     DataType = "integer"
	Float64   DataType = "number"
	String    DataType = "string"
	Bool      DataType = "boolean"
	Object    DataType = "object"
	Array     DataType = "array"
	Timestamp DataType = "timestamp"
)

type Record map[string]any

func (r Record) GetStringifiedJSONValue(key string) (string, error) {
	value := r[key]
	switch value.(type) {
	case struct{}, map[string]any, []any:
		s, err := json.Marshal(value)
		return string(s), err
	default:
		return fmt.Sprintf("%v", r[key]), nil
	}
}

// JSONSchemaType maps to the JSON Schema primitive used on the wire
func (d DataType) JSONSchemaType() (string, string) {
	switch d {
	case Timestamp:
		return string(String), "date-time"
	default:
		return string(d), ""
	}
}

// ToNewParquet returns the optional parquet node for the type; timestamps stay ISO strings
func (d DataType) ToNewParquet() parquet.Node {
	var n parquet.Node
	switch d {
	case Int64:
		n = parquet.Int(64)
	case Float64:
		n = parquet.Leaf(parquet.DoubleType)
	case Bool:
		n = parquet.Leaf(parquet.BooleanType)
	case Object, Array:
		n = parquet.JSON()
	default:
		n = parquet.String()
	}
	return parquet.Optional(n)
}
