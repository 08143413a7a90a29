package responses

// RequestIDHeader carries the request id on every response. Error bodies
// repeat it so customers can quote it to support.
const RequestIDHeader = "X-Request-Id"

// Envelope wraps every success body.
type Envelope struct {
	Data any `json:"data"`
}

// Problem is the public shape of an error.
type Problem struct {
	Code      string `json:"code"`
	Reason    string `json:"reason,omitempty"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	Retryable bool   `json:"retryable"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorEnvelope struct {
	Error Problem `json:"error"`
}
