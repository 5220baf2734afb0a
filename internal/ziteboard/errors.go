package ziteboard

import "fmt"

// TransportError means the request did not produce a valid Ziteboard response:
// network failures, timeouts, cancellation, non-2xx statuses and undecodable bodies.
type TransportError struct {
	Method     string
	Path       string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("ziteboard %s %s failed with status %d: %v", e.Method, e.Path, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("ziteboard %s %s failed: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// VendorError means Ziteboard answered but did not report success, or the
// answer lacked the fields the operation needs.
type VendorError struct {
	Path     string
	Reason   string
	Response string
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("ziteboard %s unsuccessful: %s: %s", e.Path, e.Reason, e.Response)
}
