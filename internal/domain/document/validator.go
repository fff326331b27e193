package document

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedContent means a section's content does not match its declared type.
// It is a caller error and is never recovered by falling back to another renderer.
var ErrMalformedContent = errors.New("malformed document content")

// ValidationError collects every problem found in a document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMalformedContent, strings.Join(e.Problems, "; "))
}

// Unwrap makes errors.Is(err, ErrMalformedContent) hold.
func (e *ValidationError) Unwrap() error {
	return ErrMalformedContent
}

// Validate checks that content can be rendered by either backend.
func Validate(content Content) error {
	var problems []string

	for i, sec := range content.Sections {
		if problem := validateSection(sec); problem != "" {
			problems = append(problems, fmt.Sprintf("section %d: %s", i+1, problem))
		}
	}

	if content.Footer.Manager != nil && strings.TrimSpace(content.Footer.Manager.Name) == "" {
		problems = append(problems, "footer.manager is set but has no name")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func validateSection(sec Section) string {
	switch s := sec.(type) {
	case nil:
		return "section is nil"
	case *FormSection:
		if s == nil {
			return "form section is nil"
		}
	case *ParametersSection:
		if s == nil {
			return "parameters section is nil"
		}
		if s.Parameters == nil {
			return "content.parameters is not a list"
		}
	case *TableSection:
		if s == nil {
			return "table section is nil"
		}
		for r, row := range s.Rows {
			if len(s.Columns) > 0 && len(row) > len(s.Columns) {
				return fmt.Sprintf("table row %d has %d cells for %d columns", r+1, len(row), len(s.Columns))
			}
		}
	case *TextSection:
		if s == nil {
			return "text section is nil"
		}
	}
	return ""
}
