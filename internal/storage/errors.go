package storage

import "fmt"

// ReferentialError reports a fact that names a dimension value which cannot
// be resolved or created. It fails the row, not the load.
type ReferentialError struct {
	Dimension string
	Name      string
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Dimension, e.Name)
}

// ConstraintViolation reports a storage-boundary invariant breach
// (year range, negative value, inverted bounds, broken foreign key).
type ConstraintViolation struct {
	Constraint string
	Err        error
}

func (e *ConstraintViolation) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("constraint %s violated: %v", e.Constraint, e.Err)
	}
	return fmt.Sprintf("constraint %s violated", e.Constraint)
}

func (e *ConstraintViolation) Unwrap() error {
	return e.Err
}
