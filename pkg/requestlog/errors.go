package requestlog

import (
	"errors"
	"fmt"
)

// ErrDeclined is returned when the confirmation gate rejects a clear.
// No network call is made.
var ErrDeclined = errors.New("operation declined")

// ActionError reports a failed destructive operation. Local state is left
// unchanged.
type ActionError struct {
	Op  string
	Err error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s bucket data failed: %v", e.Op, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}
