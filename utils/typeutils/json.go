package typeutils

import (
	"sort"

	"github.com/Widen/tap-rest-api-msdk/types"
)

// InferSchema builds an object schema from sampled flat records. Every type seen
// for a field is kept; fields present in all samples are required.
func InferSchema(records []types.Record) *types.TypeSchema {
	schema := types.NewTypeSchema()
	if len(records) == 0 {
		return schema
	}

	seen := make(map[string]int)
	var order []string
	for _, record := range records {
		for column, value := range record {
			if _, found := seen[column]; !found {
				order = append(order, column)
			}
			seen[column]++
			schema.AddTypes(column, TypeFromValue(value))
		}
	}

	sort.Strings(order)
	for _, column := range order {
		if seen[column] == len(records) {
			schema.Required = append(schema.Required, column)
		}
	}
	return schema
}
