package provider

import (
	"errors"
	"fmt"
)

// ErrProviderUnavailable indicates that no usable API credential is
// configured. Callers are expected to check Configured() before issuing
// requests and route to the simulation generator instead.
var ErrProviderUnavailable = errors.New("provider api key is missing or a placeholder")

// RequestError is returned for transport failures and non-2xx responses from
// the provider. It is never retried at this layer.
type RequestError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider request failed: %v", e.Err)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
