package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("job not found")
	ErrNoInput         = errors.New("no file or url provided")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrJobNotDone      = errors.New("job is not done")
	ErrNotPDF          = errors.New("file is not a PDF")
	ErrAlreadyTracked  = errors.New("job already tracked")
	ErrTrackerClosed   = errors.New("tracker closed")
)

// SubmitError is returned when the remote service rejects or fails a submission.
// Message is safe to show to the user.
type SubmitError struct {
	Status  int
	Message string
	Cause   error
}

func (e *SubmitError) Error() string {
	if e.Cause != nil {
		return "submit: " + e.Message + ": " + e.Cause.Error()
	}
	return "submit: " + e.Message
}

func (e *SubmitError) Unwrap() error { return e.Cause }
