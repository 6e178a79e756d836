package roster

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// Entry is one row of an enrollment roster: the institute-issued ID
// and the name it was issued to.
type Entry struct {
	Enrollment string `json:"enrollment" yaml:"enrollment"`
	Name       string `json:"name" yaml:"name"`
}

// Directory answers whether an enrollment ID is on the roster and
// whether a submitted name plausibly belongs to it. Lookups are
// keyed by the trimmed, upper-cased enrollment ID.
type Directory struct {
	entries map[string]Entry
}

// New builds a Directory from roster entries. Later duplicates of the
// same enrollment ID win.
func New(entries []Entry) *Directory {
	d := &Directory{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		key := normalizeID(e.Enrollment)
		if key == "" {
			continue
		}
		d.entries[key] = e
	}
	return d
}

// LoadFile reads a roster from a YAML or JSON file. YAML is a superset
// of JSON, so one decoder covers both.
func LoadFile(path string) (*Directory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster %s: %w", path, err)
	}

	var entries []Entry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse roster %s: %w", path, err)
	}

	return New(entries), nil
}

// Lookup returns the roster entry for an enrollment ID.
func (d *Directory) Lookup(enrollment string) (Entry, bool) {
	e, ok := d.entries[normalizeID(enrollment)]
	return e, ok
}

// Len returns the number of roster entries.
func (d *Directory) Len() int {
	return len(d.entries)
}

// Matches reports whether the enrollment ID is on the roster under a
// name compatible with the submitted one.
func (d *Directory) Matches(enrollment, name string) bool {
	entry, ok := d.Lookup(enrollment)
	if !ok {
		return false
	}
	return MatchName(entry.Name, name)
}

var foldCaser = cases.Fold()

// MatchName reports whether every token of the submitted name appears
// in the registered one after case folding. "Ravi Kumar" on the roster
// accepts "ravi kumar", "Kumar Ravi" and the partial "Ravi", but
// rejects names carrying tokens the roster never listed.
func MatchName(registered, submitted string) bool {
	subTokens := tokens(submitted)
	if len(subTokens) == 0 {
		return false
	}

	regTokens := make(map[string]bool)
	for _, tok := range tokens(registered) {
		regTokens[tok] = true
	}

	for _, tok := range subTokens {
		if !regTokens[tok] {
			return false
		}
	}
	return true
}

func tokens(s string) []string {
	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, foldCaser.String(f))
	}
	return out
}

func normalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
