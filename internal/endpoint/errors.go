package endpoint

import (
	"errors"
	"fmt"
)

// ErrTicketNotFound is returned when a successful response carries no ticket identifier.
var ErrTicketNotFound = errors.New("cannot extract ticket_id from response")

// InvalidURLError is returned by New when the endpoint URL is unusable.
type InvalidURLError struct {
	URL    string
	Reason string
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid URL %q: %s", e.URL, e.Reason)
}

// Kind distinguishes failures that never reached the service from ones it rejected.
type Kind string

const (
	KindTransport Kind = "transport"
	KindStatus    Kind = "status"
)

// Error describes a failed request to the ticketing endpoint.
// SOAPAction and SOAPPayload are only set for KindStatus errors.
type Error struct {
	Kind        Kind
	URL         string
	Method      string
	Message     string
	StatusCode  int
	SOAPAction  string
	SOAPPayload string
	Err         error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cannot perform '%s' request to '%s': %s", e.Method, e.URL, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// HasSOAPContext reports whether the request action and payload are attached.
func (e *Error) HasSOAPContext() bool {
	return e.SOAPAction != "" || e.SOAPPayload != ""
}
