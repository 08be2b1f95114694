package pipeline

import (
	"errors"
	"fmt"
)

// FatalInputError reports an input that could not be loaded or normalized.
// It aborts the run.
type FatalInputError struct {
	Path string
	Err  error
}

func (e *FatalInputError) Error() string {
	return fmt.Sprintf("cannot process %s: %v", e.Path, e.Err)
}

func (e *FatalInputError) Unwrap() error { return e.Err }

// UserInputMismatch reports that the uploaded document contradicts what the
// caller declared. It is a rejected request, not a processing failure.
type UserInputMismatch struct {
	Expected  string
	Extracted string
}

func (e *UserInputMismatch) Error() string {
	return fmt.Sprintf("Uploaded marksheet belongs to Semester %s. Please upload Semester %s marksheet.",
		e.Extracted, e.Expected)
}

// IsFatalInput reports whether err is a FatalInputError.
func IsFatalInput(err error) bool {
	var fe *FatalInputError
	return errors.As(err, &fe)
}

// IsUserInputMismatch reports whether err is a UserInputMismatch.
func IsUserInputMismatch(err error) bool {
	var me *UserInputMismatch
	return errors.As(err, &me)
}
