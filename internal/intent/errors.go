package intent

import (
	"errors"
	"fmt"
)

// ExtractionError indicates the model's output could not be parsed into a
// valid calendar action. It is reported to the user as "I didn't understand
// that" and the turn aborts with no mutation attempted; it is never silently
// defaulted.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("intent extraction failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("intent extraction failed: %s", e.Reason)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// IsExtractionError reports whether err is a semantic extraction failure.
func IsExtractionError(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee)
}
