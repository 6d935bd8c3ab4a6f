// Package filter turns query-string parameters into a validated,
// storage-agnostic filter specification.
//
// A parameter key is a field name followed by an operator suffix, for
// example titleCont=report or createdAtGte=2024-01-01. A key without a
// suffix means equality. The set of filterable fields, their value types
// and the operators each accepts are declared in a table that is checked
// when the Builder is constructed.
package filter

import (
	"fmt"
	"sort"
)

// FieldType determines how raw values are coerced and which operators apply.
type FieldType int

const (
	Integer FieldType = iota + 1
	Text
	Slug
	Date
)

func (t FieldType) String() string {
	switch t {
	case Integer:
		return "integer"
	case Text:
		return "text"
	case Slug:
		return "slug"
	case Date:
		return "date"
	default:
		return fmt.Sprintf("FieldType(%d)", int(t))
	}
}

// Operator is a comparison named by its key suffix.
type Operator string

const (
	Eq   Operator = "Eq"
	Ne   Operator = "Ne"
	Cont Operator = "Cont"
	Gt   Operator = "Gt"
	Gte  Operator = "Gte"
	Lt   Operator = "Lt"
	Lte  Operator = "Lte"
	In   Operator = "In"
)

// suffixOrder lists operators longest suffix first so Gte wins over Gt.
var suffixOrder = []Operator{Cont, Gte, Lte, Eq, Ne, Gt, Lt, In}

// compatible lists the operators each type can support.
var compatible = map[FieldType]map[Operator]bool{
	Integer: {Eq: true, Ne: true, Gt: true, Gte: true, Lt: true, Lte: true, In: true},
	Text:    {Eq: true, Ne: true, Cont: true, In: true},
	Slug:    {Eq: true, Ne: true, In: true},
	Date:    {Gt: true, Gte: true, Lt: true, Lte: true},
}

// Field declares one filterable attribute.
type Field struct {
	Name      string
	Type      FieldType
	Operators []Operator
	Sortable  bool
}

func (f Field) allows(op Operator) bool {
	for _, candidate := range f.Operators {
		if candidate == op {
			return true
		}
	}
	return false
}

// TaskFields is the filter table for tasks.
var TaskFields = []Field{
	{Name: "id", Type: Integer, Operators: []Operator{Eq, Ne, Gt, Gte, Lt, Lte, In}, Sortable: true},
	{Name: "index", Type: Integer, Operators: []Operator{Eq, Ne, Gt, Gte, Lt, Lte, In}, Sortable: true},
	{Name: "title", Type: Text, Operators: []Operator{Eq, Ne, Cont, In}, Sortable: true},
	{Name: "description", Type: Text, Operators: []Operator{Eq, Ne, Cont}},
	{Name: "status", Type: Slug, Operators: []Operator{Eq, Ne, In}, Sortable: true},
	{Name: "statusId", Type: Integer, Operators: []Operator{Eq, Ne, In}},
	{Name: "assigneeId", Type: Integer, Operators: []Operator{Eq, Ne, In}, Sortable: true},
	{Name: "creatorId", Type: Integer, Operators: []Operator{Eq, Ne, In}, Sortable: true},
	{Name: "labelId", Type: Integer, Operators: []Operator{Eq, Ne, In}},
	{Name: "createdAt", Type: Date, Operators: []Operator{Gt, Gte, Lt, Lte}, Sortable: true},
	{Name: "updatedAt", Type: Date, Operators: []Operator{Gt, Gte, Lt, Lte}, Sortable: true},
}

func validateTable(fields []Field) (map[string]Field, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("filter: empty field table")
	}
	table := make(map[string]Field, len(fields))
	for _, field := range fields {
		if field.Name == "" {
			return nil, fmt.Errorf("filter: field with empty name")
		}
		if _, dup := table[field.Name]; dup {
			return nil, fmt.Errorf("filter: field %q declared twice", field.Name)
		}
		if _, reserved := reservedKeys[field.Name]; reserved {
			return nil, fmt.Errorf("filter: field %q collides with a reserved parameter", field.Name)
		}
		ops, ok := compatible[field.Type]
		if !ok {
			return nil, fmt.Errorf("filter: field %q has unknown type %v", field.Name, field.Type)
		}
		if len(field.Operators) == 0 {
			return nil, fmt.Errorf("filter: field %q declares no operators", field.Name)
		}
		for _, op := range field.Operators {
			if !ops[op] {
				return nil, fmt.Errorf("filter: operator %s is not valid for %s field %q", op, field.Type, field.Name)
			}
		}
		table[field.Name] = field
	}
	return table, nil
}

// sortedNames returns the table's field names in lexical order.
func sortedNames(table map[string]Field) []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
