package formdata

import (
	"fmt"
	"sort"
)

// Flatten merges nested objects into a single-level record whose keys join
// the path with underscores. Arrays and scalars are leaves. Map levels are
// visited in sorted key order, Record levels in their own order.
func Flatten(obj any, prefix string) Record {
	var out Record
	flattenInto(&out, obj, prefix)
	return out
}

func flattenInto(out *Record, obj any, prefix string) {
	switch val := obj.(type) {
	case Record:
		for _, e := range val {
			flattenValue(out, e.Value, join(prefix, e.Key))
		}
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flattenValue(out, val[k], join(prefix, k))
		}
	case map[any]any:
		converted := make(map[string]any, len(val))
		for k, v := range val {
			converted[fmt.Sprint(k)] = v
		}
		flattenInto(out, converted, prefix)
	}
}

func flattenValue(out *Record, v any, key string) {
	switch v.(type) {
	case Record, map[string]any, map[any]any:
		flattenInto(out, v, key)
	default:
		out.Set(key, v)
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "_" + key
}
