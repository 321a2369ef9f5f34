package mailbox

import (
	"context"
	"time"

	"wallgen/core"
)

// WaitForCode polls the inbox until a message containing a 6-digit
// verification code arrives, checking every interval up to maxTries times.
// Returns CodeNotFoundError once the attempt budget is exhausted.
func (m *Mailbox) WaitForCode(ctx context.Context, interval time.Duration, maxTries int) (string, error) {
	code, err := core.Retry(ctx, core.RetryOptions{
		MaxTries:    maxTries,
		WaitBetween: interval,
	}, func(lastErr error, fails int) (string, error) {
		messages, err := m.CheckMessages(ctx)
		if err != nil {
			return "", err
		}
		for _, msg := range messages {
			if code, ok := ExtractVerificationCode(msg); ok {
				return code, nil
			}
		}
		return "", &CodeNotFoundError{Email: m.Email, Attempts: fails + 1}
	})
	if err != nil {
		if _, ok := err.(*CodeNotFoundError); ok {
			return "", &CodeNotFoundError{Email: m.Email, Attempts: maxTries}
		}
		return "", err
	}
	return code, nil
}
