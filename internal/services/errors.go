package services

import "fmt"

// TransportError is a non-success response from the chat endpoint.
type TransportError struct {
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("API Error (%d): %s", e.StatusCode, e.Body)
}

// StreamDecodeError is a single streamed record that could not be decoded.
// The stream continues past it.
type StreamDecodeError struct {
	Line string
	Err  error
}

func (e *StreamDecodeError) Error() string {
	return fmt.Sprintf("failed to decode stream record %q: %v", e.Line, e.Err)
}

func (e *StreamDecodeError) Unwrap() error {
	return e.Err
}
