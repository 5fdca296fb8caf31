package classifier

import (
	"errors"
	"fmt"
)

// NetworkError indicates that the classifier could not be reached.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("classifier unreachable: %s", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// DecodeError indicates that the classifier response did not match the expected shape.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode classifier response: %s", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ServerError indicates that the classifier responded with a non-success status.
// StatusCode is 0 when the backend does not expose it.
type ServerError struct {
	StatusCode int
	Err        error
}

func (e *ServerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classifier failed: %s", e.Err)
	}

	return fmt.Sprintf("classifier responded with status code %d", e.StatusCode)
}

func (e *ServerError) Unwrap() error {
	return e.Err
}

func IsNetworkError(err error) bool {
	var e *NetworkError
	return errors.As(err, &e)
}

func IsDecodeError(err error) bool {
	var e *DecodeError
	return errors.As(err, &e)
}

func IsServerError(err error) bool {
	var e *ServerError
	return errors.As(err, &e)
}
