// ABOUTME: Field validation helpers for configuration
// ABOUTME: Range, membership and required checks returning ValidationError
package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a field validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ValidateRequired checks that a string field is not empty.
func ValidateRequired(field, value string) *ValidationError {
	if value == "" {
		return &ValidationError{Field: field, Message: fmt.Sprintf("%s is required", field)}
	}
	return nil
}

// ValidateRange checks that an integer is within bounds.
func ValidateRange(field string, value, minVal, maxVal int) *ValidationError {
	if value < minVal || value > maxVal {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s must be between %d and %d, got %d", field, minVal, maxVal, value),
		}
	}
	return nil
}

// ValidateRangeFloat checks that a float64 is within bounds.
func ValidateRangeFloat(field string, value, minVal, maxVal float64) *ValidationError {
	if !(value >= minVal && value <= maxVal) {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s must be between %.1f and %.1f, got %.1f", field, minVal, maxVal, value),
		}
	}
	return nil
}

// ValidateOneOf checks that value is one of allowed.
func ValidateOneOf(field, value string, allowed []string) *ValidationError {
	if !slices.Contains(allowed, value) {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s must be one of %s, got %q", field, strings.Join(allowed, ", "), value),
		}
	}
	return nil
}
