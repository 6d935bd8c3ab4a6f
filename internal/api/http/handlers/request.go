package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/taskforge/task-manager/internal/api/dto"
	"github.com/taskforge/task-manager/internal/auth"
	apperrors "github.com/taskforge/task-manager/pkg/util"
)

// TotalCountHeader mirrors the list total for clients that page by header.
const TotalCountHeader = "X-Total-Count"

func principalOf(c *fiber.Ctx) (auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return auth.Principal{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

// pathID reads the :id route parameter. Anything that is not a positive
// integer cannot name a row, so it is reported as not found.
func pathID(c *fiber.Ctx, resource string) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, apperrors.NewNotFound(resource, map[string]any{"id": c.Params("id")})
	}
	return id, nil
}

// decode parses the JSON body into req and runs its validate tags. A body
// that is not JSON is a 400; values of the wrong type are field issues.
func decode(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return fiber.NewError(http.StatusBadRequest, "invalid payload")
		}
		return apperrors.NewFieldValidationError(typeIssues(c.Body(), req, typeErr))
	}
	if issues := dto.Validate(req); len(issues) > 0 {
		return apperrors.NewFieldValidationError(issues)
	}
	return nil
}

// typeIssues decodes each top-level key of body on its own into a fresh
// value of req's type and reports every key whose value does not fit.
func typeIssues(body []byte, req any, first *json.UnmarshalTypeError) []apperrors.FieldIssue {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return []apperrors.FieldIssue{wholeBodyIssue(first)}
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	target := reflect.TypeOf(req).Elem()
	var issues []apperrors.FieldIssue
	for _, key := range keys {
		single, err := json.Marshal(map[string]json.RawMessage{key: fields[key]})
		if err != nil {
			continue
		}
		var typeErr *json.UnmarshalTypeError
		if err := json.Unmarshal(single, reflect.New(target).Interface()); errors.As(err, &typeErr) {
			issues = append(issues, apperrors.FieldIssue{Field: key, Message: "must be " + jsonKind(typeErr.Type)})
		}
	}
	if len(issues) == 0 {
		issues = append(issues, wholeBodyIssue(first))
	}
	return issues
}

func wholeBodyIssue(err *json.UnmarshalTypeError) apperrors.FieldIssue {
	field := err.Field
	if field == "" {
		field = "body"
	}
	return apperrors.FieldIssue{Field: field, Message: "must be " + jsonKind(err.Type)}
}

func jsonKind(t reflect.Type) string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "a valid value"
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Slice, reflect.Array:
		return "a list"
	default:
		return "an object"
	}
}

func queryValues(c *fiber.Ctx) url.Values {
	values := url.Values{}
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		values.Add(string(key), string(value))
	})
	return values
}

func setTotal(c *fiber.Ctx, total int) {
	c.Set(TotalCountHeader, strconv.Itoa(total))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
