package errors

// Code identifies a class of failure.
type Code string

const (
	CodeInvalidConfig  Code = "invalid_configuration"
	CodeTelemetryParse Code = "telemetry_parse_failed"
	CodeTransport      Code = "transport_failed"
	CodeSystemControl  Code = "system_control_failed"
	CodeInitFailed     Code = "initialization_failed"
)

var messages = map[Code]string{
	CodeInvalidConfig:  "Invalid configuration",
	CodeTelemetryParse: "Could not parse telemetry",
	CodeTransport:      "Hardware transport failed",
	CodeSystemControl:  "System control failed",
	CodeInitFailed:     "Initialization failed",
}

// Message returns the human readable message for code.
func Message(code Code) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return string(code)
}
