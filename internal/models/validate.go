package models

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	titleMinLen       = 3
	titleMaxLen       = 32
	descriptionMaxLen = 4096
)

// Should start from a capital letter and consist only of basic characters.
var titlePattern = regexp.MustCompile(`^[A-Z][a-zA-Z0-9"'\s-]*$`)

// ValidationError collects field-level reasons for rejecting an input.
// It is returned before any storage call is attempted.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError(field, reason string) *ValidationError {
	e := &ValidationError{Fields: map[string][]string{}}
	e.Add(field, reason)
	return e
}

// Add appends a reason for the given field.
func (e *ValidationError) Add(field, reason string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], reason)
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var parts []string
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, strings.Join(e.Fields[f], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Validate checks the post's fields against the domain rules. It returns a
// *ValidationError listing every violation, or nil when the post is valid.
func (p *Post) Validate() error {
	var errs *ValidationError
	add := func(field, reason string) {
		if errs == nil {
			errs = &ValidationError{Fields: map[string][]string{}}
		}
		errs.Add(field, reason)
	}

	title := p.Title
	switch n := utf8.RuneCountInString(title); {
	case n == 0:
		add("title", "is required")
	case n < titleMinLen || n > titleMaxLen:
		add("title", fmt.Sprintf("must be between %d and %d characters", titleMinLen, titleMaxLen))
	}
	if title != "" && !titlePattern.MatchString(title) {
		add("title", "must start with a capital letter and contain only letters, digits, quotes, hyphens and whitespace")
	}

	if utf8.RuneCountInString(p.Description) > descriptionMaxLen {
		add("description", fmt.Sprintf("must be at most %d characters", descriptionMaxLen))
	}

	if errs != nil {
		return errs
	}
	return nil
}
