package validation

// Reusable field rules shared by the domain schemas. Each call returns a
// fresh rule, so callers may chain further constraints onto the result.

// NonEmpty is a string with at least one character.
func NonEmpty() *StringRule {
	return String().Min(1)
}

// NullableString is a nullable string, capped at maxLength when maxLength > 0.
func NullableString(maxLength int) Rule {
	s := String()
	if maxLength > 0 {
		s.Max(maxLength)
	}
	return s.Nullable()
}

// Name is a display name of 1 to 200 characters.
func Name() *StringRule {
	return String().Min(1).Max(200)
}

// NullableDescription is a free-text description of up to 500 characters.
func NullableDescription() Rule {
	return String().Max(500).Nullable()
}

// Bit is a 0/1 flag stored as an integer.
func Bit() *NumberRule {
	return Number().Int().Min(0).Max(1)
}

// FK is a foreign key: a positive integer.
func FK() *NumberRule {
	return Number().Int().Positive()
}

// NullableFK is an optional reference that may be null.
func NullableFK() Rule {
	return FK().Nullable()
}

// DateString is an RFC 3339 timestamp string.
func DateString() *StringRule {
	return String().DateTime()
}

// Email is an e-mail address.
func Email() *StringRule {
	return String().Email()
}

// Numeric is a decimal column value with the given precision and scale.
func Numeric(precision, scale int) *NumberRule {
	return Number().Decimal(precision, scale)
}

// Price is a monetary amount.
func Price() *NumberRule {
	return Number()
}
