package domain

import (
	"fmt"
	"sort"
	"strings"
)

// FieldErrors collects validation failures keyed by field name, so forms can
// re-render with every problem reported at once instead of stopping at the
// first one.
type FieldErrors map[string][]string

func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

func (fe FieldErrors) HasErrors() bool {
	return len(fe) > 0
}

// ErrOrNil returns the collection as an error when non-empty, nil otherwise.
func (fe FieldErrors) ErrOrNil() error {
	if fe.HasErrors() {
		return fe
	}
	return nil
}

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for field := range fe {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(fe[field], "; ")))
	}
	return strings.Join(parts, ", ")
}
