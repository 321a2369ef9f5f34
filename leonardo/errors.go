package leonardo

import (
	"fmt"
	"strings"
	"time"
)

// PreconditionError reports a session operation called out of order. It is
// a programming error and must never be retried.
type PreconditionError struct {
	Operation string
	Want      Stage
	Got       Stage
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("leonardo: %s requires stage %s but session is at %s", e.Operation, e.Want, e.Got)
}

// SignupRejectedError reports that the provider accepted the signup request
// but dispatched no verification code, which happens when it silently
// blacklists a mailbox domain. A fresh inbox usually resolves it.
type SignupRejectedError struct {
	Email string
}

func (e *SignupRejectedError) Error() string {
	return fmt.Sprintf("leonardo: provider sent no verification code for %s", e.Email)
}

// ProviderGraphQLError carries the provider's GraphQL error payload.
type ProviderGraphQLError struct {
	Operation string
	Messages  []string
}

func (e *ProviderGraphQLError) Error() string {
	return fmt.Sprintf("leonardo: %s failed: %s", e.Operation, strings.Join(e.Messages, "; "))
}

// GenerationFailedError reports a job the provider marked FAILED.
type GenerationFailedError struct {
	GenerationID string
}

func (e *GenerationFailedError) Error() string {
	return fmt.Sprintf("leonardo: generation %s failed on the provider side", e.GenerationID)
}

// GenerationTimeoutError reports a job that never reached a terminal
// status within the polling budget.
type GenerationTimeoutError struct {
	GenerationID string
	Timeout      time.Duration
}

func (e *GenerationTimeoutError) Error() string {
	return fmt.Sprintf("leonardo: generation %s not finished after %s", e.GenerationID, e.Timeout)
}
