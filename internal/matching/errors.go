package matching

import (
	"errors"
	"strings"
)

// InvalidSubmissionError reports which submission fields failed validation.
// It surfaces to the client as a request error and is never logged as a
// server fault.
type InvalidSubmissionError struct {
	Fields []string
}

func (e *InvalidSubmissionError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid submission"
	}
	return "invalid submission: " + strings.Join(e.Fields, ", ")
}

// IsInvalidSubmission reports whether err is a submission validation failure.
func IsInvalidSubmission(err error) bool {
	var invalid *InvalidSubmissionError
	return errors.As(err, &invalid)
}
