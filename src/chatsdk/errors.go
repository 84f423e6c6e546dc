package chatsdk

import (
	"errors"
	"fmt"
	"net/http"
)

// ProviderError is a structured error a provider backend returned. Its
// Message is preferred over generic transport wording when surfacing the
// failure to a user.
type ProviderError struct {
	Provider   string
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s error %d (%s): %s", e.Provider, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// IsRetryable returns true if the error is worth retrying.
func (e *ProviderError) IsRetryable() bool {
	if e.StatusCode >= 500 && e.StatusCode < 600 {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests
}

// IsAuthError returns true if the credential was rejected.
func (e *ProviderError) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized || e.Code == "invalid_api_key"
}

// AsProviderError unwraps err to a *ProviderError when one is present.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
