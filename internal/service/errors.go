package service

import (
	"errors"
	"fmt"
)

var (
	ErrMissingAPIKey    = errors.New("api key not configured")
	ErrInvalidSymbol    = errors.New("invalid ticker symbol")
	ErrUnknownSymbol    = errors.New("unknown ticker symbol")
	ErrQuoteUnavailable = errors.New("quote unavailable")
)

// ProviderError reports a failed call to an upstream HTTP API: either the
// request never completed (Cause is set) or it returned a non-2xx status.
type ProviderError struct {
	Provider   string
	StatusCode int
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s request failed: %v", e.Provider, e.Cause)
	}
	return fmt.Sprintf("%s returned status %d", e.Provider, e.StatusCode)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NormalizationError reports an upstream payload that is malformed or lacks
// the fields needed to build a rate table.
type NormalizationError struct {
	Provider string
	Reason   string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("%s payload rejected: %s", e.Provider, e.Reason)
}
