package validation

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// String builds a string validation rule for the provided field name.
func String(field string) *StringRule {
	return &StringRule{field: field}
}

// StringRule provides fluent helpers for describing string constraints and
// applying them to a concrete value.
type StringRule struct {
	field    string
	required bool
	minLen   int
	hasMin   bool
	maxLen   int
	hasMax   bool
	pattern  *regexp.Regexp
}

// Required enforces that the value must be non-empty.
func (r *StringRule) Required() *StringRule {
	r.required = true
	return r
}

// MinLen enforces a minimum rune length on non-empty values.
func (r *StringRule) MinLen(n int) *StringRule {
	if n < 0 {
		n = 0
	}
	r.hasMin = true
	r.minLen = n
	return r
}

// MaxLen enforces a maximum rune length.
func (r *StringRule) MaxLen(n int) *StringRule {
	if n < 0 {
		n = 0
	}
	r.hasMax = true
	r.maxLen = n
	return r
}

// Matches applies the provided regular expression to non-empty values.
func (r *StringRule) Matches(re *regexp.Regexp) *StringRule {
	r.pattern = re
	return r
}

// Validate applies the rule to value, returning nil or an Errors aggregate.
func (r *StringRule) Validate(value string) error {
	if value == "" {
		if r.required {
			return Errors{{Field: r.field, Message: "cannot be empty"}}
		}
		return nil
	}
	length := utf8.RuneCountInString(value)
	var errs Errors
	if r.hasMin && length < r.minLen {
		errs = append(errs, FieldError{Field: r.field, Message: fmt.Sprintf("must be at least %d characters", r.minLen)})
	}
	if r.hasMax && length > r.maxLen {
		errs = append(errs, FieldError{Field: r.field, Message: fmt.Sprintf("must be at most %d characters", r.maxLen)})
	}
	if r.pattern != nil && !r.pattern.MatchString(value) {
		errs = append(errs, FieldError{Field: r.field, Message: "is invalid"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
