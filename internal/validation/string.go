package validation

import (
	"context"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9_'+\-\.]*[A-Za-z0-9_+\-]@([A-Za-z0-9][A-Za-z0-9\-]*\.)+[A-Za-z]{2,}$`)

// StringRule validates string values.
type StringRule struct {
	min, max *int
	trim     bool
	email    bool
	datetime bool
	pattern  *regexp.Regexp
	oneOf    []string
}

// String returns a rule accepting any string.
func String() *StringRule {
	return &StringRule{}
}

// Min requires at least n characters.
func (s *StringRule) Min(n int) *StringRule {
	s.min = &n
	return s
}

// Max allows at most n characters.
func (s *StringRule) Max(n int) *StringRule {
	s.max = &n
	return s
}

// Trim strips surrounding whitespace before length checks.
func (s *StringRule) Trim() *StringRule {
	s.trim = true
	return s
}

// Email requires an e-mail address.
func (s *StringRule) Email() *StringRule {
	s.email = true
	return s
}

// DateTime requires an RFC 3339 timestamp.
func (s *StringRule) DateTime() *StringRule {
	s.datetime = true
	return s
}

// Pattern requires the value to match re.
func (s *StringRule) Pattern(re *regexp.Regexp) *StringRule {
	s.pattern = re
	return s
}

// OneOf restricts the value to the given options.
func (s *StringRule) OneOf(options ...string) *StringRule {
	s.oneOf = options
	return s
}

// Optional lets the field be missing.
func (s *StringRule) Optional() Rule { return Optional(s) }

// Nullable lets the field be null.
func (s *StringRule) Nullable() Rule { return Nullable(s) }

// Apply implements Rule.
func (s *StringRule) Apply(_ context.Context, path Path, value any) (any, []Issue, error) {
	if issue, ok := checkPresence(path, value, "string"); !ok {
		return nil, []Issue{issue}, nil
	}

	str, ok := value.(string)
	if !ok {
		return nil, []Issue{path.Issue("Expected string, received %s", typeName(value))}, nil
	}
	if s.trim {
		str = strings.TrimSpace(str)
	}

	var issues []Issue
	length := utf8.RuneCountInString(str)
	if s.min != nil && length < *s.min {
		issues = append(issues, path.Issue("String must contain at least %d character(s)", *s.min))
	}
	if s.max != nil && length > *s.max {
		issues = append(issues, path.Issue("String must contain at most %d character(s)", *s.max))
	}
	if s.email && !emailPattern.MatchString(str) {
		issues = append(issues, path.Issue("Invalid email"))
	}
	if s.datetime {
		if _, err := time.Parse(time.RFC3339Nano, str); err != nil {
			issues = append(issues, path.Issue("Invalid datetime"))
		}
	}
	if s.pattern != nil && !s.pattern.MatchString(str) {
		issues = append(issues, path.Issue("Invalid"))
	}
	if len(s.oneOf) > 0 && !slices.Contains(s.oneOf, str) {
		issues = append(issues, path.Issue("Invalid enum value. Expected '%s', received '%s'",
			strings.Join(s.oneOf, "' | '"), str))
	}

	return str, issues, nil
}
