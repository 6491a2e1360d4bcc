package core

import "fmt"

// UnreachableError means the daemon did not answer within the configured
// timeout across the whole retry budget.
type UnreachableError struct {
	Endpoint string
	Err      error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("daemon unreachable at %s: %v", e.Endpoint, e.Err)
}

func (e *UnreachableError) Unwrap() error {
	return e.Err
}

// ProtocolError means the daemon answered but the payload did not match the
// expected shape.
type ProtocolError struct {
	Path string
	Err  error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("malformed daemon response from %s: %v", e.Path, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// NotFoundError means an operation referenced a model id the registry does
// not know about. Never retried.
type NotFoundError struct {
	ModelID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("model %s not found in registry", e.ModelID)
}
