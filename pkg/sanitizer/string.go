package sanitizer

import (
	"regexp"
	"strings"
)

var (
	dotRegex        = regexp.MustCompile(`\.{2,}`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
	unsafeFileRegex = regexp.MustCompile(`[^\w.-]`)
)

// NormalizeEmail lowercases, trims, and collapses consecutive dots in the
// local part so stored addresses have one canonical form.
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email
	}

	local := dotRegex.ReplaceAllString(parts[0], ".")
	local = strings.Trim(local, ".")

	return local + "@" + parts[1]
}

// CollapseWhitespace trims the string and folds interior whitespace runs
// into single spaces.
func CollapseWhitespace(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

// FileName converts an arbitrary string into a safe storage object name:
// spaces become underscores and anything outside [A-Za-z0-9_.-] is dropped.
func FileName(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
	s = unsafeFileRegex.ReplaceAllString(s, "")
	if s == "" {
		return "file"
	}
	return s
}

// SubjectKey normalizes a subject label into the uppercase underscore form
// used for storage folders ("data structures" -> "DATA_STRUCTURES").
func SubjectKey(s string) string {
	s = CollapseWhitespace(s)
	s = strings.ReplaceAll(s, " ", "_")
	return strings.ToUpper(s)
}
