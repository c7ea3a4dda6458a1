// Package validation parses and coerces request payloads against declarative
// schemas.
//
// A schema is an ordered set of named field rules. Parsing never stops at the
// first failure: every violated constraint is reported as an Issue, in the
// order the schema declares its fields, with nested paths joined by dots
// (for example "address.city" or "tags.0").
//
//	schema := validation.Object(
//		validation.Field("name", validation.Name()),
//		validation.Field("email", validation.Email()),
//		validation.Field("address", validation.Object(
//			validation.Field("city", validation.NonEmpty()),
//		)),
//	)
//	value, err := schema.Parse(ctx, payload)
//
// Parse returns *Error when the payload violates the schema. Any other error
// is a failure of the engine itself (for example a refinement that could not
// reach its backing store) and must not be reported as a validation failure.
package validation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Schema parses a raw decoded payload into its validated, coerced form.
type Schema interface {
	Parse(ctx context.Context, raw any) (any, error)
}

// Rule validates and coerces a single value located at path. It returns the
// coerced value and any issues found. A non-nil error means the rule could
// not be evaluated at all.
type Rule interface {
	Apply(ctx context.Context, path Path, value any) (any, []Issue, error)
}

// Issue describes one violated constraint.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error reports every issue found while parsing a payload.
type Error struct {
	Issues []Issue
}

func (e *Error) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		if issue.Field == "" {
			parts[i] = issue.Message
			continue
		}
		parts[i] = issue.Field + ": " + issue.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsError returns the *Error in err's chain, if any.
func AsError(err error) (*Error, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// Path locates a value inside a payload.
type Path []string

// Child returns a copy of p extended with key.
func (p Path) Child(key string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, key)
}

// Index returns a copy of p extended with an array index.
func (p Path) Index(i int) Path {
	return p.Child(strconv.Itoa(i))
}

// String joins the path with dots.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Issue builds an issue located at p.
func (p Path) Issue(format string, args ...any) Issue {
	return Issue{Field: p.String(), Message: fmt.Sprintf(format, args...)}
}

// absent marks a field that is not present in its parent object.
type absent struct{}

// Absent is passed to a field's rule when the key is missing. Rules return it
// unchanged to request that the key stay absent in the parsed output.
var Absent any = absent{}

// IsAbsent reports whether v is the Absent marker.
func IsAbsent(v any) bool {
	_, ok := v.(absent)
	return ok
}

// checkPresence reports the issue for a missing or null value that reached a
// rule which accepts neither.
func checkPresence(path Path, value any, expected string) (Issue, bool) {
	if IsAbsent(value) {
		return path.Issue("Required"), false
	}
	if value == nil {
		return path.Issue("Expected %s, received null", expected), false
	}
	return Issue{}, true
}

// typeName names the JSON type of a decoded value for error messages.
func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int32, int64, uint, uint32, uint64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		if isJSONNumber(v) {
			return "number"
		}
		return fmt.Sprintf("%T", v)
	}
}

type optionalRule struct {
	inner      Rule
	hasDefault bool
	def        any
}

// Optional lets the field be missing. A missing field stays absent from the
// parsed output.
func Optional(r Rule) Rule {
	return &optionalRule{inner: r}
}

// Default lets the field be missing and substitutes def when it is.
func Default(r Rule, def any) Rule {
	return &optionalRule{inner: r, hasDefault: true, def: def}
}

func (o *optionalRule) Apply(ctx context.Context, path Path, value any) (any, []Issue, error) {
	if IsAbsent(value) {
		if o.hasDefault {
			return o.def, nil, nil
		}
		return Absent, nil, nil
	}
	return o.inner.Apply(ctx, path, value)
}

type nullableRule struct {
	inner Rule
}

// Nullable lets the field be null. A missing field is still required.
func Nullable(r Rule) Rule {
	return &nullableRule{inner: r}
}

func (n *nullableRule) Apply(ctx context.Context, path Path, value any) (any, []Issue, error) {
	if value == nil {
		return nil, nil, nil
	}
	return n.inner.Apply(ctx, path, value)
}

// RuleFunc adapts a function to the Rule interface. The function only sees
// present, non-null values.
type RuleFunc func(ctx context.Context, path Path, value any) (any, []Issue, error)

// Apply implements Rule.
func (f RuleFunc) Apply(ctx context.Context, path Path, value any) (any, []Issue, error) {
	if issue, ok := checkPresence(path, value, "value"); !ok {
		return nil, []Issue{issue}, nil
	}
	return f(ctx, path, value)
}
