package webclient

import "fmt"

// TooManyRedirectsError is returned when a redirect chain exceeds the
// client's cap, which usually means a provider login loop.
type TooManyRedirectsError struct {
	URL   string
	Limit int
}

func (e *TooManyRedirectsError) Error() string {
	return fmt.Sprintf("webclient: more than %d redirects starting from %s", e.Limit, e.URL)
}

// RedirectModeError is returned when a response redirects but the request
// was configured to treat redirects as failures.
type RedirectModeError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *RedirectModeError) Error() string {
	return fmt.Sprintf("webclient: %s responded %d redirecting to %q but redirects are disallowed",
		e.URL, e.StatusCode, e.Location)
}

// RequestFailedError is returned for non-2xx responses when the request was
// made with ThrowOnFail. It carries the response body because provider error
// pages are often the only diagnostic available.
type RequestFailedError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       string
}

func (e *RequestFailedError) Error() string {
	body := e.Body
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return fmt.Sprintf("webclient: %s %s returned %s: %s", e.Method, e.URL, e.Status, body)
}
