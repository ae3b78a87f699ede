package schema

import (
	"fmt"
	"strings"
)

// ValidationError reports a mismatch between an entity and its table.
type ValidationError struct {
	Table   string
	Column  string
	Message string
	// Breaking indicates that operations on the table will fail.
	Breaking bool
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s.%s: %s", e.Table, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Message)
}

// ValidationResult holds the results of a validation.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Err returns the errors of the result joined, or nil.
func (r *ValidationResult) Err() error {
	if !r.HasErrors() {
		return nil
	}
	return fmt.Errorf("schema: validation failed:\n%s", r)
}

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	write := func(title string, errs []*ValidationError) {
		if len(errs) == 0 {
			return
		}
		sb.WriteString(title)
		sb.WriteString(":\n")
		for _, e := range errs {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			if e.Breaking {
				sb.WriteString(" [BREAKING]")
			}
			sb.WriteString("\n")
		}
	}
	write("Errors", r.Errors)
	write("Warnings", r.Warnings)
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

// Validate checks the properties of an entity against the fields of its
// table. Properties without a column are reported as warnings since they
// are skipped when writing; required columns without a property may make
// inserts fail.
func Validate(table string, properties []string, fields Fields) *ValidationResult {
	result := &ValidationResult{}
	if len(fields) == 0 {
		result.Errors = append(result.Errors, &ValidationError{
			Table:    table,
			Message:  "table has no columns",
			Breaking: true,
		})
		return result
	}
	if fields.Primary() == nil {
		result.Warnings = append(result.Warnings, &ValidationError{
			Table:   table,
			Message: "table has no primary key",
		})
	}

	seen := make(map[string]bool, len(properties))
	matched := 0
	for _, p := range properties {
		key := strings.ToLower(p)
		if seen[key] {
			result.Errors = append(result.Errors, &ValidationError{
				Table:    table,
				Column:   p,
				Message:  "duplicate property",
				Breaking: true,
			})
			continue
		}
		seen[key] = true
		if fields.Find(p) == nil {
			result.Warnings = append(result.Warnings, &ValidationError{
				Table:   table,
				Column:  p,
				Message: "property has no matching column and is skipped",
			})
			continue
		}
		matched++
	}
	if matched == 0 {
		result.Errors = append(result.Errors, &ValidationError{
			Table:    table,
			Message:  "no property matches a column",
			Breaking: true,
		})
	}

	for _, f := range fields {
		if f.IsNullable || f.IsIdentity || seen[strings.ToLower(f.Name)] {
			continue
		}
		result.Warnings = append(result.Warnings, &ValidationError{
			Table:   table,
			Column:  f.Name,
			Message: "NOT NULL column has no matching property; inserts may fail without a default value",
		})
	}
	return result
}
