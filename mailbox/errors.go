package mailbox

import "fmt"

// ProvisioningError is returned when the provider refuses to create an
// inbox or returns an unusable response.
type ProvisioningError struct {
	StatusCode int
	Body       string
	Cause      error
}

func (e *ProvisioningError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("mailbox: failed to provision inbox: %v", e.Cause)
	}
	return fmt.Sprintf("mailbox: provider refused inbox creation with status %d: %s", e.StatusCode, e.Body)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Cause
}

// CodeNotFoundError is returned when the verification email never arrives
// or carries no 6-digit code within the polling budget.
type CodeNotFoundError struct {
	Email    string
	Attempts int
}

func (e *CodeNotFoundError) Error() string {
	return fmt.Sprintf("mailbox: no verification code found in %s after %d checks", e.Email, e.Attempts)
}
