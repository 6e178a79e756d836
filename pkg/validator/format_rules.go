package validator

import (
	"net/mail"
	"regexp"
	"strings"
)

var numericStringRegex = regexp.MustCompile(`^[0-9]+$`)

// ValidEmail validates an email address with net/mail plus the extra
// constraints typical for web signup forms (single @, dotted domain).
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			if strings.TrimSpace(value) == "" {
				return false
			}

			addr, err := mail.ParseAddress(value)
			if err != nil || addr.Address != value {
				return false
			}

			parts := strings.Split(value, "@")
			if len(parts) != 2 || parts[0] == "" {
				return false
			}

			domain := parts[1]
			return strings.Contains(domain, ".") &&
				!strings.HasPrefix(domain, ".") &&
				!strings.HasSuffix(domain, ".")
		},
		Error: ValidationError{
			Field:   field,
			Message: "Must be a valid email address",
		},
	}
}

// ValidNumericString requires the value to consist only of digits.
func ValidNumericString(field, value string) Rule {
	return Rule{
		Check: func() bool { return numericStringRegex.MatchString(value) },
		Error: ValidationError{
			Field:   field,
			Message: "Must contain only digits",
		},
	}
}
