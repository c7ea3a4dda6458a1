package database

import (
	"errors"
	"fmt"
	"net/http"
)

// UnavailableMessage is what clients see for a ConnectionError.
const UnavailableMessage = "Database unavailable"

// ErrUnsupportedDriver is returned when the configured driver has no dialect.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// ErrReleasedDuringConnect is returned when connection attempts keep being
// superseded by Release or Reconfigure.
var ErrReleasedDuringConnect = errors.New("pool released while connecting")

// ConnectionError reports that the shared database could not be reached.
// Its Error text names the driver and address and may include driver
// detail, so clients only ever see UnavailableMessage with a 503.
type ConnectionError struct {
	Driver  string
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("database: connect %s %s: %v", e.Driver, e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// PublicMessage implements domain.PublicMessager.
func (e *ConnectionError) PublicMessage() string {
	return UnavailableMessage
}

// HTTPStatusCode implements domain.StatusCoder.
func (e *ConnectionError) HTTPStatusCode() int {
	return http.StatusServiceUnavailable
}

// IsConnectionError reports whether err is, or wraps, a *ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}
