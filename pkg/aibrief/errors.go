package aibrief

import (
	"errors"
	"fmt"
)

// ErrNoCredential means the AI service is unusable because no API key is
// configured. Callers degrade to local-only derived state.
var ErrNoCredential = errors.New("aibrief: no API key configured")

// ErrMalformedResponse means the AI output could not be parsed as the
// expected shape. No partial brief is ever committed.
var ErrMalformedResponse = errors.New("aibrief: malformed response")

// UpstreamError is a non-2xx response or transport failure from the AI
// service. Cached state is left unchanged; retry is a distinct explicit
// operation.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("aibrief: upstream error %d: %s", e.Status, e.Message)
}
