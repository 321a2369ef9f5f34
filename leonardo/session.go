// Package leonardo drives the image-generation provider through its web
// login flow and GraphQL API.
//
// The provider has no public API for this flow; the package automates what
// a browser would do: sign up with a disposable address, confirm with the
// emailed code, log in through the credentials callback, then talk GraphQL
// with the session's bearer token. A Session is single-use and tied to one
// generation attempt.
package leonardo

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"

	"go.uber.org/zap"

	"wallgen/logging"
	"wallgen/webclient"
)

const (
	// DefaultAppURL is the provider's web application origin, which hosts
	// the auth endpoints.
	DefaultAppURL = "https://app.leonardo.ai"
	// DefaultAPIURL is the provider's GraphQL endpoint.
	DefaultAPIURL = "https://api.leonardo.ai/v1/graphql"
)

// accountPassword is the fixed password for throwaway accounts. The account
// lives for one generation attempt, so uniqueness buys nothing.
const accountPassword = "abc123ABC!@#"

// usernameLength is the length of the random username set after signup.
const usernameLength = 15

// Stage tracks how far a Session has advanced through the provider's
// mandatory call order. Each operation checks the stage before doing any
// network work; calling out of order is a programming error, not a
// provider failure.
type Stage int

const (
	StageNew Stage = iota
	StageSignedUp
	StageConfirmed
	StageLoggedIn
	StageReady // userID captured, GraphQL operations available
)

// String returns the stage name for logs and errors.
func (s Stage) String() string {
	switch s {
	case StageNew:
		return "NEW"
	case StageSignedUp:
		return "SIGNED_UP"
	case StageConfirmed:
		return "CONFIRMED"
	case StageLoggedIn:
		return "LOGGED_IN"
	case StageReady:
		return "READY"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Options configure a Session. Zero values select the production provider.
type Options struct {
	AppURL string
	APIURL string
	Logger *logging.Logger
}

// Session is one authenticated conversation with the generation provider.
//
// Operations must be called in order: Signup, ConfirmSignup, Login,
// UpdateUsername, then the remaining GraphQL operations in any order.
type Session struct {
	http   *webclient.Client
	appURL string
	apiURL string
	logger *logging.Logger

	stage  Stage
	email  string
	userID string
}

// NewSession creates a Session bound to a fresh cookie-jar client. The
// cookie jar must be empty; reusing a client from a previous session would
// leak the old account's login.
func NewSession(httpClient *webclient.Client, opts Options) *Session {
	appURL := opts.AppURL
	if appURL == "" {
		appURL = DefaultAppURL
	}
	apiURL := opts.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Session{
		http:   httpClient,
		appURL: appURL,
		apiURL: apiURL,
		logger: opts.Logger,
		stage:  StageNew,
	}
}

// Stage returns the session's current lifecycle stage.
func (s *Session) Stage() Stage {
	return s.stage
}

// Email returns the address the session signed up with.
func (s *Session) Email() string {
	return s.email
}

// UserID returns the provider-assigned user id, available from StageReady.
func (s *Session) UserID() string {
	return s.userID
}

func (s *Session) requireStage(operation string, want Stage) error {
	if s.stage != want {
		return &PreconditionError{Operation: operation, Want: want, Got: s.stage}
	}
	return nil
}

func (s *Session) postJSON(ctx context.Context, url string, payload any) (*webclient.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("leonardo: failed to encode request: %w", err)
	}
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	return s.http.Do(ctx, &webclient.Request{
		Method:      http.MethodPost,
		URL:         url,
		Header:      header,
		Body:        body,
		ThrowOnFail: true,
	})
}

// Signup registers a throwaway account under the given email address.
// The provider responds with code-delivery details when it has dispatched
// a verification email; their absence means the address was rejected.
func (s *Session) Signup(ctx context.Context, email string) error {
	if err := s.requireStage("signup", StageNew); err != nil {
		return err
	}

	resp, err := s.postJSON(ctx, s.appURL+"/api/auth/signup", map[string]string{
		"email":    email,
		"password": accountPassword,
	})
	if err != nil {
		return fmt.Errorf("leonardo: signup failed: %w", err)
	}

	var parsed struct {
		CodeDeliveryDetails json.RawMessage `json:"CodeDeliveryDetails"`
	}
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return fmt.Errorf("leonardo: failed to decode signup response: %w", err)
	}
	if len(parsed.CodeDeliveryDetails) == 0 || string(parsed.CodeDeliveryDetails) == "null" {
		return &SignupRejectedError{Email: email}
	}

	s.email = email
	s.stage = StageSignedUp
	if s.logger != nil {
		s.logger.Debug("signed up", zap.String("email", email))
	}
	return nil
}

// ConfirmSignup submits the verification code received by email.
func (s *Session) ConfirmSignup(ctx context.Context, code string) error {
	if err := s.requireStage("confirmSignup", StageSignedUp); err != nil {
		return err
	}

	_, err := s.postJSON(ctx, s.appURL+"/api/auth/confirm-signup", map[string]string{
		"email":             s.email,
		"password":          accountPassword,
		"confirmation_code": code,
	})
	if err != nil {
		return fmt.Errorf("leonardo: signup confirmation failed: %w", err)
	}

	s.stage = StageConfirmed
	return nil
}

// Login authenticates through the provider's credentials callback. The
// callback requires a CSRF token fetched in the same cookie session.
func (s *Session) Login(ctx context.Context) error {
	if err := s.requireStage("login", StageConfirmed); err != nil {
		return err
	}

	csrfResp, err := s.http.Do(ctx, &webclient.Request{
		URL:         s.appURL + "/api/auth/csrf",
		ThrowOnFail: true,
	})
	if err != nil {
		return fmt.Errorf("leonardo: failed to fetch csrf token: %w", err)
	}
	var csrf struct {
		CSRFToken string `json:"csrfToken"`
	}
	if err := json.Unmarshal(csrfResp.Body, &csrf); err != nil {
		return fmt.Errorf("leonardo: failed to decode csrf response: %w", err)
	}

	_, err = s.postJSON(ctx, s.appURL+"/api/auth/callback/credentials", map[string]any{
		"username":    s.email,
		"password":    accountPassword,
		"redirect":    false,
		"csrfToken":   csrf.CSRFToken,
		"callbackUrl": s.appURL + "/api/auth/session",
		"json":        true,
	})
	if err != nil {
		return fmt.Errorf("leonardo: credentials login failed: %w", err)
	}

	// Verify the session actually holds an access token before moving on.
	if _, err := s.accessToken(ctx); err != nil {
		return err
	}

	s.stage = StageLoggedIn
	if s.logger != nil {
		s.logger.Debug("logged in", zap.String("email", s.email))
	}
	return nil
}

// accessToken fetches the current bearer token from the session endpoint.
// Tokens rotate, so every GraphQL call fetches a fresh one.
func (s *Session) accessToken(ctx context.Context) (string, error) {
	resp, err := s.http.Do(ctx, &webclient.Request{
		URL:         s.appURL + "/api/auth/session",
		ThrowOnFail: true,
	})
	if err != nil {
		return "", fmt.Errorf("leonardo: failed to fetch session: %w", err)
	}
	var session struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(resp.Body, &session); err != nil {
		return "", fmt.Errorf("leonardo: failed to decode session response: %w", err)
	}
	if session.AccessToken == "" {
		return "", fmt.Errorf("leonardo: session holds no access token")
	}
	return session.AccessToken, nil
}

// RandomUsername generates a username of the fixed provider-safe length.
func RandomUsername() string {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	buf := make([]byte, usernameLength)
	for i := range buf {
		buf[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(buf)
}
