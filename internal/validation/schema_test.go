package validation

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseIssues(t *testing.T, s Schema, raw any) []Issue {
	t.Helper()
	_, err := s.Parse(context.Background(), raw)
	require.Error(t, err)
	verr, ok := AsError(err)
	require.True(t, ok, "expected *validation.Error, got %T", err)
	return verr.Issues
}

func TestObject_ReportsEveryMissingFieldInOrder(t *testing.T) {
	schema := Object(
		Field("a", String()),
		Field("b", Number()),
	)

	issues := parseIssues(t, schema, map[string]any{})

	assert.Equal(t, []Issue{
		{Field: "a", Message: "Required"},
		{Field: "b", Message: "Required"},
	}, issues)
}

func TestObject_NestedFieldPath(t *testing.T) {
	schema := Object(
		Field("name", Name()),
		Field("address", Object(
			Field("street", NonEmpty()),
			Field("city", NonEmpty()),
		)),
	)

	issues := parseIssues(t, schema, map[string]any{
		"name":    "Ada",
		"address": map[string]any{"street": "Main St", "city": ""},
	})

	require.Len(t, issues, 1)
	assert.Equal(t, "address.city", issues[0].Field)
	assert.Equal(t, "String must contain at least 1 character(s)", issues[0].Message)
}

func TestObject_CollectsAllConstraintsOnOneField(t *testing.T) {
	schema := Object(Field("email", String().Max(5).Email()))

	issues := parseIssues(t, schema, map[string]any{"email": "not-an-email"})

	assert.Equal(t, []Issue{
		{Field: "email", Message: "String must contain at most 5 character(s)"},
		{Field: "email", Message: "Invalid email"},
	}, issues)
}

func TestObject_TypeMismatch(t *testing.T) {
	schema := Object(
		Field("name", String()),
		Field("count", Number()),
		Field("active", Bool()),
		Field("tags", Array(String())),
	)

	issues := parseIssues(t, schema, map[string]any{
		"name":   42.0,
		"count":  "seven",
		"active": "yes",
		"tags":   "a,b",
	})

	assert.Equal(t, []Issue{
		{Field: "name", Message: "Expected string, received number"},
		{Field: "count", Message: "Expected number, received string"},
		{Field: "active", Message: "Expected boolean, received string"},
		{Field: "tags", Message: "Expected array, received string"},
	}, issues)
}

func TestObject_RejectsNonObjectPayload(t *testing.T) {
	issues := parseIssues(t, Object(Field("a", String())), []any{1.0})

	assert.Equal(t, []Issue{{Field: "", Message: "Expected object, received array"}}, issues)
}

func TestObject_StripsUnknownKeysAndCoerces(t *testing.T) {
	schema := Object(
		Field("name", String().Trim().Min(1)),
		Field("quantity", Number().Int().Coerce()),
		Field("enabled", Bool().Coerce()),
	)

	got, err := schema.Parse(context.Background(), map[string]any{
		"name":     "  widget ",
		"quantity": "12",
		"enabled":  "true",
		"extra":    "dropped",
	})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name":     "widget",
		"quantity": int64(12),
		"enabled":  true,
	}, got)
}

func TestInt_RejectsUnsafeIntegers(t *testing.T) {
	schema := Object(Field("id", FK()))

	tests := []struct {
		name string
		id   any
	}{
		{"huge float", 1e30},
		{"huge json number", json.Number("1e30")},
		{"two to the 63", float64(1 << 63)},
		{"just past 2^53", json.Number("9007199254740993")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := parseIssues(t, schema, map[string]any{"id": tt.id})

			assert.Equal(t, []Issue{{Field: "id", Message: "Number must be a safe integer"}}, issues)
		})
	}
}

func TestInt_ExactJSONNumber(t *testing.T) {
	got, err := Object(Field("id", FK())).Parse(context.Background(), map[string]any{
		"id": json.Number("9007199254740991"),
	})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": int64(9007199254740991)}, got)
}

func TestPresenceModifiers(t *testing.T) {
	schema := Object(
		Field("nickname", String().Optional()),
		Field("note", NullableString(10)),
		Field("status", Default(String().OneOf("draft", "published"), "draft")),
		Field("parent", NullableFK()),
	)

	t.Run("absent optional and default", func(t *testing.T) {
		got, err := schema.Parse(context.Background(), map[string]any{
			"note":   nil,
			"parent": nil,
		})
		require.NoError(t, err)

		m := got.(map[string]any)
		_, hasNickname := m["nickname"]
		assert.False(t, hasNickname)
		assert.Nil(t, m["note"])
		assert.Contains(t, m, "note")
		assert.Equal(t, "draft", m["status"])
	})

	t.Run("nullable is still required", func(t *testing.T) {
		issues := parseIssues(t, schema, map[string]any{})
		assert.Equal(t, []Issue{
			{Field: "note", Message: "Required"},
			{Field: "parent", Message: "Required"},
		}, issues)
	})

	t.Run("null on non-nullable field", func(t *testing.T) {
		issues := parseIssues(t, schema, map[string]any{
			"nickname": nil,
			"note":     nil,
			"parent":   nil,
		})
		assert.Equal(t, []Issue{{Field: "nickname", Message: "Expected string, received null"}}, issues)
	})

	t.Run("invalid enum", func(t *testing.T) {
		issues := parseIssues(t, schema, map[string]any{
			"note":   nil,
			"parent": nil,
			"status": "archived",
		})
		assert.Equal(t, []Issue{{
			Field:   "status",
			Message: "Invalid enum value. Expected 'draft' | 'published', received 'archived'",
		}}, issues)
	})
}

func TestArray_ElementPaths(t *testing.T) {
	schema := Object(Field("items", Array(Object(
		Field("sku", NonEmpty()),
		Field("qty", FK()),
	)).Min(1)))

	issues := parseIssues(t, schema, map[string]any{
		"items": []any{
			map[string]any{"sku": "A-1", "qty": 2.0},
			map[string]any{"sku": "", "qty": 0.0},
		},
	})

	assert.Equal(t, []Issue{
		{Field: "items.1.sku", Message: "String must contain at least 1 character(s)"},
		{Field: "items.1.qty", Message: "Number must be greater than 0"},
	}, issues)

	issues = parseIssues(t, schema, map[string]any{"items": []any{}})
	assert.Equal(t, []Issue{{Field: "items", Message: "Array must contain at least 1 element(s)"}}, issues)
}

func TestPattern(t *testing.T) {
	schema := Object(Field("code", String().Pattern(regexp.MustCompile(`^[A-Z]{3}$`))))

	_, err := schema.Parse(context.Background(), map[string]any{"code": "ABC"})
	require.NoError(t, err)

	issues := parseIssues(t, schema, map[string]any{"code": "abc"})
	assert.Equal(t, []Issue{{Field: "code", Message: "Invalid"}}, issues)
}

func TestRefine(t *testing.T) {
	calls := 0
	schema := Object(
		Field("password", String().Min(8)),
		Field("confirm", String()),
	).Refine(func(_ context.Context, path Path, v map[string]any) ([]Issue, error) {
		calls++
		if v["password"] != v["confirm"] {
			return []Issue{path.Child("confirm").Issue("Passwords do not match")}, nil
		}
		return nil, nil
	})

	issues := parseIssues(t, schema, map[string]any{"password": "short", "confirm": "other"})
	assert.Equal(t, []Issue{{Field: "password", Message: "String must contain at least 8 character(s)"}}, issues)
	assert.Zero(t, calls, "refinements run only after fields parse cleanly")

	issues = parseIssues(t, schema, map[string]any{"password": "long enough", "confirm": "other"})
	assert.Equal(t, []Issue{{Field: "confirm", Message: "Passwords do not match"}}, issues)
	assert.Equal(t, 1, calls)
}

func TestRefine_EngineFailureIsNotAValidationError(t *testing.T) {
	boom := errors.New("lookup unavailable")
	schema := Object(Field("id", FK())).Refine(func(context.Context, Path, map[string]any) ([]Issue, error) {
		return nil, boom
	})

	_, err := schema.Parse(context.Background(), map[string]any{"id": 3.0})

	require.ErrorIs(t, err, boom)
	_, isValidation := AsError(err)
	assert.False(t, isValidation)
}

func TestRuleFunc_ErrorIsWrappedWithFieldPath(t *testing.T) {
	boom := errors.New("engine defect")
	schema := Object(Field("nested", Object(Field("x", RuleFunc(
		func(context.Context, Path, any) (any, []Issue, error) { return nil, nil, boom },
	)))))

	_, err := schema.Parse(context.Background(), map[string]any{"nested": map[string]any{"x": 1.0}})

	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `"nested.x"`)
}

func TestError_Message(t *testing.T) {
	err := &Error{Issues: []Issue{{Field: "a", Message: "Required"}, {Message: "Invalid JSON"}}}
	assert.Equal(t, "validation failed: a: Required; Invalid JSON", err.Error())
	assert.Equal(t, "validation failed", (&Error{}).Error())
}

func TestObject_Fields(t *testing.T) {
	schema := Object(Field("b", String()), Field("a", String()))
	assert.Equal(t, []string{"b", "a"}, schema.Fields())
}
