package repository

import (
	"fmt"
	"strings"

	"github.com/taskforge/task-manager/internal/filter"
)

// taskColumns maps filter fields to SQL expressions over
// tasks t JOIN task_statuses s.
var taskColumns = map[string]string{
	"id":          "t.id",
	"index":       "t.task_index",
	"title":       "t.title",
	"description": "t.description",
	"status":      "s.slug",
	"statusId":    "t.status_id",
	"assigneeId":  "t.assignee_id",
	"creatorId":   "t.creator_id",
	"createdAt":   "t.created_at",
	"updatedAt":   "t.updated_at",
}

// nullableColumns need explicit NULL handling for Ne.
var nullableColumns = map[string]bool{
	"t.assignee_id": true,
}

// labelField is matched through task_labels rather than a column.
const labelField = "labelId"

const taskSelect = `
        SELECT t.id, t.task_index, t.title, t.description, t.status_id, s.slug,
               t.assignee_id, t.creator_id, t.version, t.created_at, t.updated_at
        FROM tasks t
        JOIN task_statuses s ON s.id = t.status_id`

const taskCount = `
        SELECT COUNT(*)
        FROM tasks t
        JOIN task_statuses s ON s.id = t.status_id`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// CheckTaskFields verifies every filter field has a storage mapping.
// Called at startup with the builder's field names.
func CheckTaskFields(fields []string) error {
	var missing []string
	for _, field := range fields {
		if field == labelField {
			continue
		}
		if _, ok := taskColumns[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("repository: no column for task filter fields %s", strings.Join(missing, ", "))
	}
	return nil
}

// compileTaskFilter renders spec as a WHERE clause with ? placeholders.
// An empty spec yields an empty clause.
func compileTaskFilter(spec filter.Specification) (string, []any, error) {
	conditions := spec.Conditions()
	if len(conditions) == 0 {
		return "", nil, nil
	}

	clauses := make([]string, 0, len(conditions))
	var args []any
	for _, condition := range conditions {
		clause, clauseArgs, err := compileCondition(condition)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, clause)
		args = append(args, clauseArgs...)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func compileCondition(condition filter.Condition) (string, []any, error) {
	if len(condition.Values) == 0 {
		return "", nil, fmt.Errorf("repository: condition %s has no values", condition.Key())
	}
	if condition.Field == labelField {
		return compileLabelCondition(condition)
	}

	column, ok := taskColumns[condition.Field]
	if !ok {
		return "", nil, fmt.Errorf("repository: unmapped task filter field %q", condition.Field)
	}
	value := condition.Values[0]

	switch condition.Operator {
	case filter.Eq:
		return column + " = ?", []any{value}, nil
	case filter.Ne:
		if nullableColumns[column] {
			return fmt.Sprintf("(%s <> ? OR %s IS NULL)", column, column), []any{value}, nil
		}
		return column + " <> ?", []any{value}, nil
	case filter.Gt:
		return column + " > ?", []any{value}, nil
	case filter.Gte:
		return column + " >= ?", []any{value}, nil
	case filter.Lt:
		return column + " < ?", []any{value}, nil
	case filter.Lte:
		return column + " <= ?", []any{value}, nil
	case filter.In:
		return fmt.Sprintf("%s IN (%s)", column, placeholders(len(condition.Values))), condition.Values, nil
	case filter.Cont:
		text, ok := value.(string)
		if !ok {
			return "", nil, fmt.Errorf("repository: %s expects text", condition.Key())
		}
		pattern := "%" + likeEscaper.Replace(strings.ToLower(text)) + "%"
		return fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, column), []any{pattern}, nil
	default:
		return "", nil, fmt.Errorf("repository: unsupported operator %s", condition.Operator)
	}
}

func compileLabelCondition(condition filter.Condition) (string, []any, error) {
	const sub = "SELECT 1 FROM task_labels tl WHERE tl.task_id = t.id AND tl.label_id"
	switch condition.Operator {
	case filter.Eq:
		return "EXISTS (" + sub + " = ?)", condition.Values[:1], nil
	case filter.Ne:
		return "NOT EXISTS (" + sub + " = ?)", condition.Values[:1], nil
	case filter.In:
		return fmt.Sprintf("EXISTS (%s IN (%s))", sub, placeholders(len(condition.Values))), condition.Values, nil
	default:
		return "", nil, fmt.Errorf("repository: unsupported label operator %s", condition.Operator)
	}
}

// compileTaskOrder renders ORDER BY with id as the tie-breaker so paging is
// stable.
func compileTaskOrder(sort filter.Sort) (string, error) {
	field := sort.Field
	if field == "" {
		field = filter.DefaultSort
	}
	column, ok := taskColumns[field]
	if !ok {
		return "", fmt.Errorf("repository: unmapped task sort field %q", field)
	}
	direction := "ASC"
	if sort.Desc {
		direction = "DESC"
	}
	if column == "t.id" {
		return " ORDER BY t.id " + direction, nil
	}
	return fmt.Sprintf(" ORDER BY %s %s, t.id ASC", column, direction), nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
