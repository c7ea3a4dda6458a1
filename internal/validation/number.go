package validation

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NumberRule validates numeric values. JSON numbers decode as float64; Int
// narrows the parsed value to int64.
type NumberRule struct {
	integer  bool
	coerce   bool
	min, max *float64
	minExcl  bool

	precision, scale int
}

// Number returns a rule accepting any finite number.
func Number() *NumberRule {
	return &NumberRule{}
}

// Int requires a whole number.
func (n *NumberRule) Int() *NumberRule {
	n.integer = true
	return n
}

// Coerce also accepts numeric strings such as "42".
func (n *NumberRule) Coerce() *NumberRule {
	n.coerce = true
	return n
}

// Min requires value >= v.
func (n *NumberRule) Min(v float64) *NumberRule {
	n.min = &v
	n.minExcl = false
	return n
}

// Max requires value <= v.
func (n *NumberRule) Max(v float64) *NumberRule {
	n.max = &v
	return n
}

// Positive requires value > 0.
func (n *NumberRule) Positive() *NumberRule {
	zero := 0.0
	n.min = &zero
	n.minExcl = true
	return n
}

// Decimal bounds the digits of a decimal value: at most scale fractional
// digits and precision-scale integer digits.
func (n *NumberRule) Decimal(precision, scale int) *NumberRule {
	n.precision = precision
	n.scale = scale
	return n
}

// Optional lets the field be missing.
func (n *NumberRule) Optional() Rule { return Optional(n) }

// Nullable lets the field be null.
func (n *NumberRule) Nullable() Rule { return Nullable(n) }

// maxSafeInteger is the largest integer every JSON consumer can represent
// exactly (2^53-1).
const maxSafeInteger = 1<<53 - 1

// Apply implements Rule.
func (n *NumberRule) Apply(_ context.Context, path Path, value any) (any, []Issue, error) {
	if issue, ok := checkPresence(path, value, "number"); !ok {
		return nil, []Issue{issue}, nil
	}

	f, ok := toFloat(value, n.coerce)
	if !ok {
		return nil, []Issue{path.Issue("Expected number, received %s", typeName(value))}, nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, []Issue{path.Issue("Expected number, received nan")}, nil
	}

	var issues []Issue
	if n.integer {
		if f != math.Trunc(f) {
			issues = append(issues, path.Issue("Expected integer, received float"))
		} else if math.Abs(f) > maxSafeInteger {
			issues = append(issues, path.Issue("Number must be a safe integer"))
		}
	}
	if n.min != nil {
		if n.minExcl && f <= *n.min {
			issues = append(issues, path.Issue("Number must be greater than %s", formatFloat(*n.min)))
		} else if !n.minExcl && f < *n.min {
			issues = append(issues, path.Issue("Number must be greater than or equal to %s", formatFloat(*n.min)))
		}
	}
	if n.max != nil && f > *n.max {
		issues = append(issues, path.Issue("Number must be less than or equal to %s", formatFloat(*n.max)))
	}

	if n.precision > 0 {
		issues = append(issues, n.checkDigits(path, f)...)
	}

	if n.integer && len(issues) == 0 {
		if num, ok := value.(json.Number); ok {
			if i, err := num.Int64(); err == nil {
				return i, nil, nil
			}
		}
		return int64(f), nil, nil
	}
	return f, issues, nil
}

func (n *NumberRule) checkDigits(path Path, f float64) []Issue {
	digits := strconv.FormatFloat(math.Abs(f), 'f', -1, 64)
	whole, frac, _ := strings.Cut(digits, ".")

	var issues []Issue
	if len(frac) > n.scale {
		issues = append(issues, path.Issue("Number must have at most %d decimal place(s)", n.scale))
	}
	if intDigits := n.precision - n.scale; len(strings.TrimLeft(whole, "0")) > intDigits {
		issues = append(issues, path.Issue("Number must have at most %d digit(s) before the decimal point", intDigits))
	}
	return issues
}

func toFloat(v any, coerce bool) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		if !coerce {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func isJSONNumber(v any) bool {
	_, ok := v.(json.Number)
	return ok
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// BoolRule validates boolean values.
type BoolRule struct {
	coerce bool
}

// Bool returns a rule accepting true or false.
func Bool() *BoolRule {
	return &BoolRule{}
}

// Coerce also accepts the strings "true" and "false".
func (b *BoolRule) Coerce() *BoolRule {
	b.coerce = true
	return b
}

// Optional lets the field be missing.
func (b *BoolRule) Optional() Rule { return Optional(b) }

// Nullable lets the field be null.
func (b *BoolRule) Nullable() Rule { return Nullable(b) }

// Apply implements Rule.
func (b *BoolRule) Apply(_ context.Context, path Path, value any) (any, []Issue, error) {
	if issue, ok := checkPresence(path, value, "boolean"); !ok {
		return nil, []Issue{issue}, nil
	}

	switch x := value.(type) {
	case bool:
		return x, nil, nil
	case string:
		if b.coerce {
			if parsed, err := strconv.ParseBool(x); err == nil {
				return parsed, nil, nil
			}
		}
	}
	return nil, []Issue{path.Issue("Expected boolean, received %s", typeName(value))}, nil
}
