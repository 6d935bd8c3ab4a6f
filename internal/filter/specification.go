package filter

import (
	"net/url"
	"strconv"
	"time"
)

// Condition is one field/operator/values triple. Values hold int64 for
// integer fields, string for text and slug fields and UTC time.Time for
// date fields. Only In carries more than one value.
type Condition struct {
	Field    string
	Operator Operator
	Values   []any
}

// Key returns the canonical parameter key for the condition.
func (c Condition) Key() string {
	return c.Field + string(c.Operator)
}

func (c Condition) clone() Condition {
	c.Values = append([]any(nil), c.Values...)
	return c
}

// Specification is an immutable conjunction of conditions, ordered by key.
// It knows nothing about storage.
type Specification struct {
	conditions []Condition
}

// Len returns the number of conditions.
func (s Specification) Len() int {
	return len(s.conditions)
}

// IsEmpty reports whether the specification matches everything.
func (s Specification) IsEmpty() bool {
	return len(s.conditions) == 0
}

// Conditions returns a copy of the conditions in key order.
func (s Specification) Conditions() []Condition {
	out := make([]Condition, len(s.conditions))
	for i, condition := range s.conditions {
		out[i] = condition.clone()
	}
	return out
}

// Values serializes the specification back to query parameters. Building
// the result again yields an identical specification.
func (s Specification) Values() url.Values {
	values := url.Values{}
	for _, condition := range s.conditions {
		key := condition.Key()
		for _, value := range condition.Values {
			values.Add(key, formatValue(value))
		}
	}
	return values
}

func formatValue(value any) string {
	switch v := value.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case string:
		return v
	default:
		return ""
	}
}
