package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/josephgoksu/concierge/internal/request"
	"github.com/josephgoksu/concierge/internal/task"
	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"blank fields", &request.SubmissionError{Kind: request.KindBlankFields, Fields: []string{"service"}}, ExitBlankFields},
		{"server failure", fmt.Errorf("submit: %w", &request.SubmissionError{Kind: request.KindServerResponseFailure}), ExitServerFailure},
		{"timeout", &request.SubmissionError{Kind: request.KindTimeout, TaskID: 7}, ExitNotConfirmed},
		{"pending", request.ErrSubmissionPending, ExitRequestPending},
		{"chat not opened", &request.HandoffError{Task: task.Task{ID: 9}, Err: errors.New("sdk down")}, ExitHandoffFailed},
		{"other", errors.New("boom"), ExitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestUserMessage(t *testing.T) {
	msg := userMessage(&request.SubmissionError{Kind: request.KindBlankFields, Fields: []string{"legs[0].departureDate", "service"}})
	assert.Contains(t, msg, "legs[0].departureDate, service")

	msg = userMessage(&request.SubmissionError{Kind: request.KindTimeout, TaskID: 42})
	assert.Contains(t, msg, "Request #42")
	assert.Contains(t, msg, "concierge tasks")

	msg = userMessage(fmt.Errorf("submit: %w", &request.HandoffError{Task: task.Task{ID: 9}, Err: errors.New("sdk down")}))
	assert.Contains(t, msg, "Request #9 was created")
	assert.Contains(t, msg, "concierge tasks")
	assert.NotContains(t, msg, "sdk down")

	assert.Contains(t, userMessage(fmt.Errorf("%w: yacht", request.ErrUnknownCategory)), "concierge categories")
	assert.Equal(t, "Cancelled.", userMessage(context.Canceled))
	assert.Equal(t, "Error: boom", userMessage(errors.New("boom")))
}

func TestErrorType(t *testing.T) {
	assert.Equal(t, "timeout_waiting_for_confirmation", errorType(&request.SubmissionError{Kind: request.KindTimeout}))
	assert.Equal(t, "cancelled", errorType(fmt.Errorf("wait: %w", context.Canceled)))
	assert.Equal(t, "unknown_category", errorType(request.ErrUnknownCategory))
	assert.Equal(t, "handoff_failed", errorType(&request.HandoffError{Err: errors.New("sdk down")}))
	assert.Equal(t, "other", errorType(errors.New("boom")))
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	orig := errOut
	errOut = &buf
	t.Cleanup(func() { errOut = orig })

	PrintError("Please try again.", errors.New("dial tcp: refused"))
	assert.Equal(t, "Please try again.\n", buf.String())
}
