// Package validate provides centralized input validation and sanitization
// utilities for the API. It covers user-supplied text fields and media file
// uploads.
package validate

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"
)

// String validation errors
var (
	ErrStringTooShort = errors.New("string is too short")
	ErrStringTooLong  = errors.New("string is too long")
	ErrEmpty          = errors.New("string is empty")
)

// StringConstraints defines validation constraints for a string.
type StringConstraints struct {
	MinLength  int  // Minimum length (0 = no minimum)
	MaxLength  int  // Maximum length (0 = no maximum)
	AllowEmpty bool // Whether empty strings are allowed
	TrimSpace  bool // Whether to trim whitespace before validation
}

// String validates a string against the given constraints.
// Returns the validated (and optionally trimmed) string and an error if
// validation fails.
func String(s string, constraints StringConstraints) (string, error) {
	if constraints.TrimSpace {
		s = strings.TrimSpace(s)
	}

	if s == "" {
		if !constraints.AllowEmpty {
			return "", ErrEmpty
		}
		return s, nil
	}

	// Character count, not byte count
	length := utf8.RuneCountInString(s)

	if constraints.MinLength > 0 && length < constraints.MinLength {
		return "", fmt.Errorf("%w: got %d chars, need at least %d", ErrStringTooShort, length, constraints.MinLength)
	}

	if constraints.MaxLength > 0 && length > constraints.MaxLength {
		return "", fmt.Errorf("%w: got %d chars, maximum is %d", ErrStringTooLong, length, constraints.MaxLength)
	}

	return s, nil
}

// SanitizeHTML escapes HTML special characters to prevent XSS attacks.
// This should be called on all user-generated text that will be displayed in HTML.
func SanitizeHTML(s string) string {
	return html.EscapeString(s)
}

// SanitizeString performs both validation and HTML sanitization.
// Returns the sanitized string and an error if validation fails.
func SanitizeString(s string, constraints StringConstraints) (string, error) {
	validated, err := String(s, constraints)
	if err != nil {
		return "", err
	}
	return SanitizeHTML(validated), nil
}

// TourTitle validates a tour title:
// - 1-200 characters
func TourTitle(title string) (string, error) {
	return SanitizeString(title, StringConstraints{
		MinLength:  1,
		MaxLength:  200,
		AllowEmpty: false,
		TrimSpace:  true,
	})
}

// Description validates a description field:
// - Optional (can be empty)
// - Max 5000 characters
func Description(desc string) (string, error) {
	return SanitizeString(desc, StringConstraints{
		MinLength:  0,
		MaxLength:  5000,
		AllowEmpty: true,
		TrimSpace:  true,
	})
}

// AnnotationText validates a step annotation:
// - Optional (can be empty)
// - Max 1000 characters
func AnnotationText(text string) (string, error) {
	return SanitizeString(text, StringConstraints{
		MinLength:  0,
		MaxLength:  1000,
		AllowEmpty: true,
		TrimSpace:  true,
	})
}
