package store

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Schema maps output field names to stored field names.
type Schema struct {
	Fields map[string]string
	// DefaultLists names output fields that are rendered as an empty list
	// when the stored value is absent or null.
	DefaultLists []string
}

// Project renders doc through the schema. The result holds exactly the mapped
// fields; the identifier is always rendered as its hex string.
func Project(doc Document, s Schema) map[string]any {
	out := make(map[string]any, len(s.Fields))
	for output, stored := range s.Fields {
		v := doc[stored]
		if stored == IDField {
			out[output] = IDString(v)
			continue
		}
		out[output] = v
	}
	for _, field := range s.DefaultLists {
		if out[field] == nil {
			out[field] = []any{}
		}
	}
	return out
}

// IDString renders a stored identifier value as a string.
func IDString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return fmt.Sprint(id)
	}
}

// String reads a string value, returning "" for anything else.
func String(v any) string {
	s, _ := v.(string)
	return s
}

// Float reads a numeric value regardless of how the backend decoded it.
func Float(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Strings reads a list of strings, skipping non-string elements. A missing
// value yields an empty, non-nil slice.
func Strings(v any) []string {
	out := []string{}
	switch list := v.(type) {
	case []string:
		out = append(out, list...)
	case []any:
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	case primitive.A:
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// Time reads a timestamp stored natively (Mongo), as time.Time (memory) or as
// an RFC 3339 string (JSONB).
func Time(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), true
	case primitive.DateTime:
		return t.Time().UTC(), true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed.UTC(), true
	default:
		return time.Time{}, false
	}
}
