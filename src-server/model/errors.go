package model

import "fmt"

// Returned when an entity fails field validation at create/edit time.
// Never produced on the read path.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func Invalid(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}
