package filter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Page selects a window of results. Number is 1-based.
type Page struct {
	Number int
	Size   int
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// Sort orders results by a sortable field.
type Sort struct {
	Field string
	Desc  bool
}

// Query is a fully parsed list request.
type Query struct {
	Spec Specification
	Page Page
	Sort Sort
}

// ParseQuery reads filters together with page, limit, sort and order.
// Problems with paging keys are reported in the same ValidationError as
// problems with filters.
func (b *Builder) ParseQuery(params url.Values) (Query, error) {
	conditions, issues := b.parse(params)

	query := Query{
		Page: Page{Number: 1, Size: DefaultPageSize},
		Sort: Sort{Field: DefaultSort},
	}

	if raw, ok := single(params, ParamPage, &issues); ok {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n < 1 {
			issues = append(issues, Issue{Key: ParamPage, Reason: ReasonInvalidValue, Message: "must be a positive integer"})
		} else {
			query.Page.Number = n
		}
	}

	if raw, ok := single(params, ParamLimit, &issues); ok {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n < 1 || n > MaxPageSize {
			issues = append(issues, Issue{
				Key:     ParamLimit,
				Reason:  ReasonInvalidValue,
				Message: fmt.Sprintf("must be an integer between 1 and %d", MaxPageSize),
			})
		} else {
			query.Page.Size = n
		}
	}

	if raw, ok := single(params, ParamSort, &issues); ok {
		field, known := b.fields[raw]
		switch {
		case !known:
			issues = append(issues, Issue{Key: ParamSort, Field: raw, Reason: ReasonUnknownField, Message: fmt.Sprintf("unknown sort field %q", raw)})
		case !field.Sortable:
			issues = append(issues, Issue{Key: ParamSort, Field: raw, Reason: ReasonInvalidValue, Message: fmt.Sprintf("field %q is not sortable", raw)})
		default:
			query.Sort.Field = field.Name
		}
	}

	if raw, ok := single(params, ParamOrder, &issues); ok {
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "asc":
		case "desc":
			query.Sort.Desc = true
		default:
			issues = append(issues, Issue{Key: ParamOrder, Reason: ReasonInvalidValue, Message: `must be "asc" or "desc"`})
		}
	}

	if len(issues) > 0 {
		return Query{}, newValidationError(issues)
	}
	query.Spec = Specification{conditions: conditions}
	return query, nil
}

// single returns the one value given for key. Repeating a paging key is
// recorded as an issue.
func single(params url.Values, key string, issues *[]Issue) (string, bool) {
	values, ok := params[key]
	if !ok {
		return "", false
	}
	if len(values) != 1 {
		*issues = append(*issues, Issue{Key: key, Reason: ReasonInvalidValue, Message: "expects exactly one value"})
		return "", false
	}
	return values[0], true
}
