package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// RequiredString fails on empty or whitespace-only values.
func RequiredString(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: ValidationError{
			Field:   field,
			Message: "This field is required",
		},
	}
}

// MinLenString enforces a minimum rune count.
func MinLenString(field, value string, min int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) >= min },
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("Must be at least %d characters long", min),
		},
	}
}

// MaxLenString enforces a maximum rune count.
func MaxLenString(field, value string, max int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) <= max },
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("Must be at most %d characters long", max),
		},
	}
}

// LenString enforces an exact rune count.
func LenString(field, value string, exact int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) == exact },
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("Must be exactly %d characters long", exact),
		},
	}
}

// RequiredSlice fails on empty slices.
func RequiredSlice[T any](field string, value []T) Rule {
	return Rule{
		Check: func() bool { return len(value) > 0 },
		Error: ValidationError{
			Field:   field,
			Message: "At least one value is required",
		},
	}
}
