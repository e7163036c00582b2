package telemetry

// Event names. Properties never carry form contents or message text.
const (
	EventCommandExecuted = "command_executed"
	EventCommandError    = "command_error"

	EventCategorySelected = "category_selected"
	EventRequestSubmitted = "request_submitted"
	EventRequestConfirmed = "request_confirmed"
	EventRequestFailed    = "request_failed"
)
