package request

import (
	"errors"
	"fmt"
	"strings"

	"github.com/josephgoksu/concierge/internal/task"
)

// ErrorKind classifies a failed submission for the presentation layer.
type ErrorKind string

const (
	// KindBlankFields is a client-side validation failure. No request was sent.
	KindBlankFields ErrorKind = "blank_fields"
	// KindServerResponseFailure means the create call was rejected or never arrived.
	KindServerResponseFailure ErrorKind = "server_response_failure"
	// KindTimeout means the task was created but never showed up in the task list.
	KindTimeout ErrorKind = "timeout_waiting_for_confirmation"
)

// Indicator is how a failure is shown to the user.
type Indicator string

const (
	IndicatorInline        Indicator = "inline"
	IndicatorTransient     Indicator = "transient"
	IndicatorBlockingAlert Indicator = "blocking_alert"
)

// Indicator maps the kind to its presentation.
func (k ErrorKind) Indicator() Indicator {
	switch k {
	case KindBlankFields:
		return IndicatorInline
	case KindTimeout:
		return IndicatorBlockingAlert
	default:
		return IndicatorTransient
	}
}

// SubmissionError is the only error type Submit resolves with for failures
// of the submission itself.
type SubmissionError struct {
	Kind   ErrorKind
	Fields []string // offending fields for KindBlankFields
	TaskID int64    // created task for KindTimeout
	Err    error
}

func (e *SubmissionError) Error() string {
	switch e.Kind {
	case KindBlankFields:
		return fmt.Sprintf("blank fields: %s", strings.Join(e.Fields, ", "))
	case KindTimeout:
		return fmt.Sprintf("task %d not confirmed in time", e.TaskID)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Is matches another *SubmissionError by kind, so the Err* values below work
// with errors.Is.
func (e *SubmissionError) Is(target error) bool {
	t, ok := target.(*SubmissionError)
	return ok && t.Kind == e.Kind
}

var (
	ErrBlankFields           = &SubmissionError{Kind: KindBlankFields}
	ErrServerResponseFailure = &SubmissionError{Kind: KindServerResponseFailure}
	ErrTimeout               = &SubmissionError{Kind: KindTimeout}
)

// KindOf extracts the kind from err, or "" when err is not a submission error.
func KindOf(err error) ErrorKind {
	var se *SubmissionError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

var (
	ErrSubmissionPending   = errors.New("a submission is already pending")
	ErrSubmissionCancelled = errors.New("submission cancelled")
	ErrUnknownCategory     = errors.New("unknown category")
	ErrNoForm              = errors.New("no form is open")
	ErrHandoffFailed       = errors.New("task created but its conversation could not be opened")
)

// HandoffError reports a confirmed task whose conversation failed to open.
type HandoffError struct {
	Task task.Task
	Err  error
}

func (e *HandoffError) Error() string {
	return fmt.Sprintf("open conversation for task %d: %v", e.Task.ID, e.Err)
}

func (e *HandoffError) Unwrap() error { return e.Err }

func (e *HandoffError) Is(target error) bool { return target == ErrHandoffFailed }
