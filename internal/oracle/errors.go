package oracle

import (
	"fmt"
	"time"
)

// TimeoutError indicates an oracle call exceeded its deadline. Timeouts are
// treated like any other oracle failure and are not retried.
type TimeoutError struct {
	Oracle  string
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("oracle %s timed out after %s", e.Oracle, e.Elapsed)
}

// UnreachableError indicates the oracle backend could not be reached or
// returned a transport-level failure.
type UnreachableError struct {
	Oracle string
	Cause  error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("oracle %s unreachable: %v", e.Oracle, e.Cause)
}

func (e *UnreachableError) Unwrap() error {
	return e.Cause
}

// MalformedResponseError indicates the oracle returned a response with no
// usable content at all. Responses with decodable-but-messy payloads are
// recovered inside the adapter and never surface as this error.
type MalformedResponseError struct {
	Oracle string
	Detail string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("oracle %s returned malformed response: %s", e.Oracle, e.Detail)
}
