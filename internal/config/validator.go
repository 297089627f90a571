package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Validate checks the semantic rules the schema cannot express.
// Returns nil if valid, or a ValidationErrors listing every problem.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	if d, err := ParseDurationString(c.FlushInterval); err != nil {
		errs.Add("flushInterval", err.Error())
	} else if d <= 0 {
		errs.Add("flushInterval", "must be positive")
	}

	if c.BufferLimit <= 0 {
		errs.Add("bufferLimit", "must be positive")
	}
	if c.MinimumSamples <= 0 {
		errs.Add("minimumSamples", "must be positive")
	}
	if c.DeviationThreshold <= 0 {
		errs.Add("deviationThreshold", "must be positive")
	}

	if len(c.Windows) == 0 {
		errs.Add("windows", "at least one window size is required")
	}
	seen := make(map[string]bool, len(c.Windows))
	for i, w := range c.Windows {
		field := fmt.Sprintf("windows[%d]", i)
		d, err := ParseDurationString(w)
		if err != nil {
			errs.Add(field, err.Error())
			continue
		}
		if d <= 0 {
			errs.Add(field, "must be positive")
		}
		canonical := d.String()
		if seen[canonical] {
			errs.Add(field, fmt.Sprintf("duplicate window size %s", w))
		}
		seen[canonical] = true
	}

	if c.Storage.Path == "" {
		errs.Add("storage.path", "is required")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
