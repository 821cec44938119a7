package llm

import (
	"errors"
	"fmt"
)

// ErrNoJSON means no JSON object could be located in a reply.
var ErrNoJSON = errors.New("no JSON object in reply")

// ServiceError is a non-success reply from the text-generation service, carried verbatim.
type ServiceError struct {
	Status int
	Body   string
}

func (e *ServiceError) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300] + "…"
	}
	return fmt.Sprintf("text generation service returned status %d: %s", e.Status, body)
}

// ParseError means the reply held no usable candidate.
type ParseError struct {
	Reply string
	Err   error
}

func (e *ParseError) Error() string { return "parse reply: " + e.Err.Error() }

func (e *ParseError) Unwrap() error { return e.Err }
