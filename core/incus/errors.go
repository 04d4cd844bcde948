package incus

import (
	"fmt"
	"net/http"
)

// ConnectionError reports that a daemon could not be reached or refused us.
// It is fatal for the host it belongs to.
type ConnectionError struct {
	Host string
	Op   string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("incus %s: %s: %v", e.Host, e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// FetchError reports a failed read from the daemon API.
type FetchError struct {
	Host string
	Path string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("incus %s: fetch %s: %v", e.Host, e.Path, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// APIError is an error envelope or non-2xx status returned by the daemon.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

// DetailError records an instance whose detail could not be fetched.
// The instance is skipped for the current pass.
type DetailError struct {
	Instance string
	Err      error
}

func (e *DetailError) Error() string {
	return fmt.Sprintf("instance %s: %v", e.Instance, e.Err)
}

func (e *DetailError) Unwrap() error {
	return e.Err
}
