package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/josephgoksu/concierge/internal/request"
	"github.com/josephgoksu/concierge/internal/ui"
)

// Exit statuses. Scripts can tell a request that never left the machine from
// one that may already exist.
const (
	ExitError          = 1
	ExitBlankFields    = 2
	ExitServerFailure  = 3
	ExitNotConfirmed   = 4
	ExitRequestPending = 5
	ExitHandoffFailed  = 6
)

// errOut is where PrintError writes; tests replace it.
var errOut io.Writer = os.Stderr

// PrintError prints userMsg, or the full error with --verbose.
func PrintError(userMsg string, technicalErr error) {
	if isVerbose() && technicalErr != nil {
		fmt.Fprintf(errOut, "Error: %v\n", technicalErr)
		return
	}
	fmt.Fprintln(errOut, userMsg)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, request.ErrSubmissionPending):
		return ExitRequestPending
	case errors.Is(err, request.ErrHandoffFailed):
		return ExitHandoffFailed
	}
	switch request.KindOf(err) {
	case request.KindBlankFields:
		return ExitBlankFields
	case request.KindServerResponseFailure:
		return ExitServerFailure
	case request.KindTimeout:
		return ExitNotConfirmed
	}
	return ExitError
}

// userMessage turns err into the text shown without --verbose.
func userMessage(err error) string {
	var se *request.SubmissionError
	if errors.As(err, &se) {
		switch se.Kind.Indicator() {
		case request.IndicatorInline:
			return ui.StyleError.Render("Please fill in: ") + strings.Join(se.Fields, ", ")
		case request.IndicatorTransient:
			return ui.RenderWarningPanel("Not sent", "The request could not be sent. Please try again.")
		case request.IndicatorBlockingAlert:
			return ui.RenderErrorPanel("Not confirmed", fmt.Sprintf(
				"Request #%d was sent but is not confirmed yet.\nCheck `concierge tasks` before sending it again.", se.TaskID))
		}
	}
	var he *request.HandoffError
	if errors.As(err, &he) {
		return ui.RenderWarningPanel("Chat not opened", fmt.Sprintf(
			"Request #%d was created but its chat could not be opened.\nOpen it from `concierge tasks`.", he.Task.ID))
	}
	switch {
	case errors.Is(err, request.ErrSubmissionPending):
		return "A request is already being sent."
	case errors.Is(err, request.ErrUnknownCategory):
		return "Unknown category. Run `concierge categories` to see them."
	case errors.Is(err, context.Canceled):
		return "Cancelled."
	}
	return "Error: " + err.Error()
}

// errorType is the telemetry-safe label for err.
func errorType(err error) string {
	if k := request.KindOf(err); k != "" {
		return string(k)
	}
	switch {
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, request.ErrHandoffFailed):
		return "handoff_failed"
	case errors.Is(err, request.ErrUnknownCategory):
		return "unknown_category"
	}
	return "other"
}
