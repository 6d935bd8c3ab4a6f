package filter

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Reserved parameters control paging and ordering and are never filters.
const (
	ParamPage  = "page"
	ParamLimit = "limit"
	ParamSort  = "sort"
	ParamOrder = "order"
)

var reservedKeys = map[string]struct{}{
	ParamPage:  {},
	ParamLimit: {},
	ParamSort:  {},
	ParamOrder: {},
}

// Paging defaults.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	DefaultSort     = "id"
)

// Builder validates query parameters against a field table.
type Builder struct {
	fields map[string]Field
}

// NewBuilder checks the table and returns a builder for it. Every declared
// operator must be compatible with its field's type.
func NewBuilder(fields []Field) (*Builder, error) {
	table, err := validateTable(fields)
	if err != nil {
		return nil, err
	}
	return &Builder{fields: table}, nil
}

// NewTaskBuilder returns the builder for TaskFields.
func NewTaskBuilder() (*Builder, error) {
	return NewBuilder(TaskFields)
}

// FieldNames lists the declared fields in lexical order.
func (b *Builder) FieldNames() []string {
	return sortedNames(b.fields)
}

// Field looks up a declared field.
func (b *Builder) Field(name string) (Field, bool) {
	field, ok := b.fields[name]
	return field, ok
}

// Build turns params into a Specification. Reserved paging keys are
// skipped. When any parameter is rejected the returned error is a
// *ValidationError naming every offending key.
func (b *Builder) Build(params url.Values) (Specification, error) {
	conditions, issues := b.parse(params)
	if len(issues) > 0 {
		return Specification{}, newValidationError(issues)
	}
	return Specification{conditions: conditions}, nil
}

func (b *Builder) parse(params url.Values) ([]Condition, []Issue) {
	keys := make([]string, 0, len(params))
	for key := range params {
		if _, reserved := reservedKeys[key]; reserved {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var (
		conditions []Condition
		issues     []Issue
	)
	claimed := make(map[string]string, len(keys))
	for _, key := range keys {
		field, op, issue := b.resolve(key)
		if issue != nil {
			issues = append(issues, *issue)
			continue
		}

		canonical := field.Name + string(op)
		if previous, taken := claimed[canonical]; taken {
			issues = append(issues, Issue{
				Key:     key,
				Field:   field.Name,
				Reason:  ReasonInvalidValue,
				Message: fmt.Sprintf("repeats the condition already given by %q", previous),
			})
			continue
		}
		claimed[canonical] = key

		values, msg := coerce(field, op, params[key])
		if msg != "" {
			issues = append(issues, Issue{Key: key, Field: field.Name, Reason: ReasonInvalidValue, Message: msg})
			continue
		}
		conditions = append(conditions, Condition{Field: field.Name, Operator: op, Values: values})
	}

	sort.Slice(conditions, func(i, j int) bool { return conditions[i].Key() < conditions[j].Key() })
	return conditions, issues
}

// resolve splits key into field and operator, longest suffix first.
func (b *Builder) resolve(key string) (Field, Operator, *Issue) {
	unknown := ""
	for _, op := range suffixOrder {
		suffix := string(op)
		if len(key) <= len(suffix) || !strings.HasSuffix(key, suffix) {
			continue
		}
		name := key[:len(key)-len(suffix)]
		field, ok := b.fields[name]
		if !ok {
			if unknown == "" {
				unknown = name
			}
			continue
		}
		if !field.allows(op) {
			return Field{}, "", incompatible(key, field, op)
		}
		return field, op, nil
	}

	if field, ok := b.fields[key]; ok {
		if !field.allows(Eq) {
			return Field{}, "", incompatible(key, field, Eq)
		}
		return field, Eq, nil
	}

	if unknown == "" {
		unknown = key
	}
	return Field{}, "", &Issue{
		Key:     key,
		Field:   unknown,
		Reason:  ReasonUnknownField,
		Message: fmt.Sprintf("unknown filter field %q", unknown),
	}
}

func incompatible(key string, field Field, op Operator) *Issue {
	allowed := make([]string, len(field.Operators))
	for i, candidate := range field.Operators {
		allowed[i] = string(candidate)
	}
	return &Issue{
		Key:    key,
		Field:  field.Name,
		Reason: ReasonIncompatibleOperator,
		Message: fmt.Sprintf("operator %s is not supported by %s field %q (allowed: %s)",
			op, field.Type, field.Name, strings.Join(allowed, ", ")),
	}
}

// coerce converts raw values to the field's type. A non-empty message
// means the values were rejected.
func coerce(field Field, op Operator, raw []string) ([]any, string) {
	var parts []string
	if op == In {
		for _, value := range raw {
			for _, part := range strings.Split(value, ",") {
				if part = strings.TrimSpace(part); part != "" {
					parts = append(parts, part)
				}
			}
		}
		if len(parts) == 0 {
			return nil, "expects at least one value"
		}
	} else {
		if len(raw) != 1 {
			return nil, fmt.Sprintf("expects exactly one value, got %d", len(raw))
		}
		parts = raw
	}

	values := make([]any, 0, len(parts))
	for _, part := range parts {
		value, err := coerceOne(field.Type, op, part)
		if err != nil {
			return nil, err.Error()
		}
		values = append(values, value)
	}
	return values, ""
}

func coerceOne(typ FieldType, op Operator, raw string) (any, error) {
	switch typ {
	case Integer:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", raw)
		}
		return n, nil
	case Text:
		if op == Cont && strings.TrimSpace(raw) == "" {
			return nil, fmt.Errorf("search text must not be empty")
		}
		return raw, nil
	case Slug:
		if !validSlug(raw) {
			return nil, fmt.Errorf("%q is not a valid slug", raw)
		}
		return raw, nil
	case Date:
		t, err := parseDate(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%q is not an RFC 3339 timestamp or YYYY-MM-DD date", raw)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unsupported field type %v", typ)
	}
}

func validSlug(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
