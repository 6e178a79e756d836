package sanitizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/patshala/backend/pkg/sanitizer"
)

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"  Asha@X.COM ":       "asha@x.com",
		"a..b@example.com":    "a.b@example.com",
		".leading@x.com":      "leading@x.com",
		"already@x.com":       "already@x.com",
		"not-an-email":        "not-an-email",
		"UPPER.Case@Mail.Com": "upper.case@mail.com",
	}
	for input, want := range cases {
		assert.Equal(t, want, sanitizer.NormalizeEmail(input), input)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Asha Rao", sanitizer.CollapseWhitespace("  Asha \t Rao \n"))
	assert.Equal(t, "", sanitizer.CollapseWhitespace("   "))
}

func TestFileName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "lecture_notes-1.pdf", sanitizer.FileName("lecture notes-1.pdf"))
	assert.Equal(t, "notes.pdf", sanitizer.FileName("no/tes!.pdf"))
	assert.Equal(t, "file", sanitizer.FileName("///"))
}

func TestSubjectKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "DATA_STRUCTURES", sanitizer.SubjectKey(" data  structures "))
	assert.Equal(t, "MATHS", sanitizer.SubjectKey("Maths"))
}
