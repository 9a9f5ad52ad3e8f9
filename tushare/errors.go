package tushare

import "fmt"

// The client fails with exactly one of three kinds so callers can branch on
// type instead of message text:
//   - TransportError: HTTP round trip completed with a non-2xx status
//   - UnavailableError: no HTTP status was received (timeout, DNS, reset)
//   - ProtocolError: 2xx transport, but the provider reported a logical error

type TransportError struct {
	StatusCode int
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("tushare http error: %d", e.StatusCode)
}

type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("tushare request failed: %s", e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

type ProtocolError struct {
	Code int
	Msg  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("tushare error %d: %s", e.Code, e.Msg)
}
