// Package mailbox provisions disposable email inboxes used to receive
// signup verification codes.
//
// Inboxes are created against a temp-mail style REST provider and expire
// server-side; there is no teardown call. One inbox lives exactly as long
// as one generation attempt.
package mailbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"

	"go.uber.org/zap"

	"wallgen/logging"
	"wallgen/webclient"
)

// DefaultBaseURL is the disposable-mailbox provider endpoint.
const DefaultBaseURL = "https://api.internal.temp-mail.io/api/v3"

// localPartLength is the length of the random local part requested from
// the provider.
const localPartLength = 10

// verificationCodePattern matches the first 6-digit run in a message body.
var verificationCodePattern = regexp.MustCompile(`\d{6}`)

// Client talks to the disposable-mailbox provider.
type Client struct {
	http    *webclient.Client
	baseURL string
	logger  *logging.Logger
}

// NewClient creates a mailbox Client on top of the given HTTP client.
// An empty baseURL selects the production provider.
func NewClient(httpClient *webclient.Client, baseURL string, logger *logging.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    httpClient,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Mailbox is a provisioned disposable inbox.
type Mailbox struct {
	Email string `json:"email"`
	Token string `json:"token"`

	client *Client
}

// Message is one inbox entry. Arrival order is not guaranteed; callers
// must scan rather than assume most-recent-first.
type Message struct {
	ID       string `json:"id"`
	From     string `json:"from"`
	Subject  string `json:"subject"`
	BodyText string `json:"body_text"`
	BodyHTML string `json:"body_html"`
}

// Create provisions a fresh inbox with a random local part.
func (c *Client) Create(ctx context.Context) (*Mailbox, error) {
	payload, err := json.Marshal(map[string]int{
		"max_name_length": localPartLength,
		"min_name_length": localPartLength,
	})
	if err != nil {
		return nil, fmt.Errorf("mailbox: failed to encode provisioning request: %w", err)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	resp, err := c.http.Post(ctx, c.baseURL+"/email/new", header, payload)
	if err != nil {
		return nil, &ProvisioningError{Cause: err}
	}
	if !resp.IsSuccess() {
		return nil, &ProvisioningError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	var mb Mailbox
	if err := json.Unmarshal(resp.Body, &mb); err != nil {
		return nil, &ProvisioningError{Cause: fmt.Errorf("decoding provider response: %w", err)}
	}
	if mb.Email == "" {
		return nil, &ProvisioningError{Cause: fmt.Errorf("provider returned no email address")}
	}
	mb.client = c

	if c.logger != nil {
		c.logger.Debug("provisioned disposable inbox", zap.String("email", mb.Email))
	}
	return &mb, nil
}

// CheckMessages lists the inbox's current contents.
func (m *Mailbox) CheckMessages(ctx context.Context) ([]Message, error) {
	resp, err := m.client.http.Do(ctx, &webclient.Request{
		Method:      http.MethodGet,
		URL:         m.client.baseURL + "/email/" + m.Email + "/messages",
		ThrowOnFail: true,
	})
	if err != nil {
		return nil, fmt.Errorf("mailbox: failed to list messages for %s: %w", m.Email, err)
	}

	var messages []Message
	if err := json.Unmarshal(resp.Body, &messages); err != nil {
		return nil, fmt.Errorf("mailbox: failed to decode message list: %w", err)
	}
	return messages, nil
}

// ExtractVerificationCode pulls the first 6-digit run out of a message
// body, preferring the HTML body the provider actually sends.
func ExtractVerificationCode(msg Message) (string, bool) {
	body := msg.BodyHTML
	if body == "" {
		body = msg.BodyText
	}
	code := verificationCodePattern.FindString(body)
	return code, code != ""
}
