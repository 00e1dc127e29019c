package workflow

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyPayload    = errors.New("workflow response has no payload")
	ErrMalformedLayer1 = errors.New("workflow result is malformed")
	ErrMalformedLayer2 = errors.New("workflow message is malformed")
)

// UpstreamError reports a call the workflow itself marked as failed, or a
// non-2xx transport status. Code and Message are kept verbatim.
type UpstreamError struct {
	Code      int
	Message   string
	RequestID string
}

func (e *UpstreamError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("workflow call failed, code: %d, message: %s (request %s)", e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("workflow call failed, code: %d, message: %s", e.Code, e.Message)
}
