// Package schedule defines the named schedule resources (classes, teachers)
// managed by the admin bot and browsed by the student and teacher bots,
// together with the store contract both backends implement.
package schedule

import (
	"strings"
	"unicode"
)

// Kind distinguishes the two resource scopes.
type Kind string

const (
	// KindClass is a school class resource (name like "5A").
	KindClass Kind = "class"
	// KindTeacher is a teacher resource (name like "Aliyev Dilshod").
	KindTeacher Kind = "teacher"
)

// Resource is one named entry with at most one attached schedule image.
type Resource struct {
	Name string
	// ImageKey is the backing key of the attached image.
	// Empty until an image has been ingested.
	ImageKey string
}

// HasImage reports whether an image has been attached.
func (r Resource) HasImage() bool { return r.ImageKey != "" }

// Grade returns the leading numeric token of the name ("5A" -> "5").
// It is recomputed from the name on every call; the name is the only
// source of truth.
func (r Resource) Grade() string {
	i := 0
	for i < len(r.Name) && r.Name[i] >= '0' && r.Name[i] <= '9' {
		i++
	}
	return r.Name[:i]
}

// Parallel returns the alphabetic token following the grade ("5A" -> "A").
func (r Resource) Parallel() string {
	rest := r.Name[len(r.Grade()):]
	var b strings.Builder
	for _, c := range rest {
		if unicode.IsLetter(c) {
			b.WriteRune(c)
			continue
		}
		break
	}
	return b.String()
}

// NormalizeName trims surrounding whitespace from a user-submitted name.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// EqualNames compares two names the way duplicate detection does:
// whitespace-trimmed and case-insensitive.
func EqualNames(a, b string) bool {
	return strings.EqualFold(NormalizeName(a), NormalizeName(b))
}

// NameKey returns the canonical lookup key for a name.
func NameKey(name string) string {
	return strings.ToLower(NormalizeName(name))
}
