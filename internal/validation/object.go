package validation

import (
	"context"
	"fmt"
)

// FieldSpec binds a key to the rule validating its value.
type FieldSpec struct {
	Name string
	Rule Rule
}

// Field declares a named field of an object schema.
func Field(name string, rule Rule) FieldSpec {
	return FieldSpec{Name: name, Rule: rule}
}

// Refinement is a derived check run against an object whose fields all
// parsed cleanly. It may reach out to other systems, so it receives ctx and
// may return an error when it cannot decide.
type Refinement func(ctx context.Context, path Path, value map[string]any) ([]Issue, error)

// ObjectRule validates a JSON object field by field, in declaration order.
// Keys not declared are dropped from the parsed value.
type ObjectRule struct {
	fields      []FieldSpec
	refinements []Refinement
}

// Object returns an object rule over the given fields.
func Object(fields ...FieldSpec) *ObjectRule {
	return &ObjectRule{fields: fields}
}

// Refine adds a derived check.
func (o *ObjectRule) Refine(fn Refinement) *ObjectRule {
	o.refinements = append(o.refinements, fn)
	return o
}

// Fields returns the declared field names in order.
func (o *ObjectRule) Fields() []string {
	names := make([]string, len(o.fields))
	for i, f := range o.fields {
		names[i] = f.Name
	}
	return names
}

// Optional lets the field be missing.
func (o *ObjectRule) Optional() Rule { return Optional(o) }

// Nullable lets the field be null.
func (o *ObjectRule) Nullable() Rule { return Nullable(o) }

// Parse validates a whole payload. It implements Schema.
func (o *ObjectRule) Parse(ctx context.Context, raw any) (any, error) {
	value, issues, err := o.Apply(ctx, nil, raw)
	if err != nil {
		return nil, err
	}
	if len(issues) > 0 {
		return nil, &Error{Issues: issues}
	}
	return value, nil
}

// Apply implements Rule.
func (o *ObjectRule) Apply(ctx context.Context, path Path, value any) (any, []Issue, error) {
	if issue, ok := checkPresence(path, value, "object"); !ok {
		return nil, []Issue{issue}, nil
	}

	in, ok := value.(map[string]any)
	if !ok {
		return nil, []Issue{path.Issue("Expected object, received %s", typeName(value))}, nil
	}

	out := make(map[string]any, len(o.fields))
	var issues []Issue
	for _, f := range o.fields {
		v, present := in[f.Name]
		if !present {
			v = Absent
		}

		parsed, fieldIssues, err := f.Rule.Apply(ctx, path.Child(f.Name), v)
		if err != nil {
			return nil, nil, fmt.Errorf("field %q: %w", path.Child(f.Name).String(), err)
		}
		issues = append(issues, fieldIssues...)
		if len(fieldIssues) == 0 && !IsAbsent(parsed) {
			out[f.Name] = parsed
		}
	}

	if len(issues) > 0 {
		return nil, issues, nil
	}

	for _, refine := range o.refinements {
		refineIssues, err := refine(ctx, path, out)
		if err != nil {
			return nil, nil, err
		}
		issues = append(issues, refineIssues...)
	}
	if len(issues) > 0 {
		return nil, issues, nil
	}

	return out, nil, nil
}

// ArrayRule validates a JSON array whose elements share one rule.
type ArrayRule struct {
	elem     Rule
	min, max *int
}

// Array returns an array rule over elem.
func Array(elem Rule) *ArrayRule {
	return &ArrayRule{elem: elem}
}

// Min requires at least n elements.
func (a *ArrayRule) Min(n int) *ArrayRule {
	a.min = &n
	return a
}

// Max allows at most n elements.
func (a *ArrayRule) Max(n int) *ArrayRule {
	a.max = &n
	return a
}

// Optional lets the field be missing.
func (a *ArrayRule) Optional() Rule { return Optional(a) }

// Nullable lets the field be null.
func (a *ArrayRule) Nullable() Rule { return Nullable(a) }

// Apply implements Rule.
func (a *ArrayRule) Apply(ctx context.Context, path Path, value any) (any, []Issue, error) {
	if issue, ok := checkPresence(path, value, "array"); !ok {
		return nil, []Issue{issue}, nil
	}

	in, ok := value.([]any)
	if !ok {
		return nil, []Issue{path.Issue("Expected array, received %s", typeName(value))}, nil
	}

	var issues []Issue
	if a.min != nil && len(in) < *a.min {
		issues = append(issues, path.Issue("Array must contain at least %d element(s)", *a.min))
	}
	if a.max != nil && len(in) > *a.max {
		issues = append(issues, path.Issue("Array must contain at most %d element(s)", *a.max))
	}

	out := make([]any, len(in))
	for i, elem := range in {
		parsed, elemIssues, err := a.elem.Apply(ctx, path.Index(i), elem)
		if err != nil {
			return nil, nil, fmt.Errorf("element %q: %w", path.Index(i).String(), err)
		}
		issues = append(issues, elemIssues...)
		out[i] = parsed
	}

	if len(issues) > 0 {
		return nil, issues, nil
	}
	return out, nil, nil
}
