package integrations

import (
	"calbook/src/types"
	"fmt"
)

type ErrorCode string

const (
	ErrAuthFailed  ErrorCode = "auth_failed"
	ErrRateLimited ErrorCode = "rate_limited"
	ErrUnavailable ErrorCode = "unavailable"
	ErrRejected    ErrorCode = "rejected"
)

// ProviderError wraps any failure crossing the adapter boundary. It is never
// fatal to a booking; the orchestrator records it per provider instead.
type ProviderError struct {
	Provider types.ProviderKind
	Code     ErrorCode
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Code, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func NewProviderError(provider types.ProviderKind, code ErrorCode, err error) *ProviderError {
	return &ProviderError{Provider: provider, Code: code, Err: err}
}
