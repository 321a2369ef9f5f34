package imagegen

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"wallgen/core"
	"wallgen/leonardo"
	"wallgen/logging"
	"wallgen/mailbox"
	"wallgen/webclient"
)

// signupAttempts bounds how many fresh inboxes are tried when the
// provider silently rejects an address.
const signupAttempts = 5

// usernameAttempts bounds the post-signup username mutation, which the
// provider refuses until its account replication catches up.
const usernameAttempts = 5

// LeonardoConfig configures the web-provider backend.
type LeonardoConfig struct {
	// AppURL, APIURL, and MailboxURL override the production endpoints,
	// for tests.
	AppURL     string
	APIURL     string
	MailboxURL string

	// MailboxPollInterval and MailboxPollTries bound the verification
	// code wait.
	MailboxPollInterval time.Duration
	MailboxPollTries    int

	// JobPollInterval and JobPollTimeout bound generation polling.
	JobPollInterval time.Duration
	JobPollTimeout  time.Duration

	// HTTPTimeout bounds each HTTP exchange.
	HTTPTimeout time.Duration

	Logger *logging.Logger
}

// LeonardoProvider generates images by driving the web provider end to
// end: disposable inbox, signup, email confirmation, login, profile
// bootstrap, then a generation job. Single-use.
type LeonardoProvider struct {
	config     LeonardoConfig
	checkpoint Checkpoint
	logger     *logging.Logger

	session *leonardo.Session
}

// NewLeonardoFactory returns a Factory producing LeonardoProviders.
func NewLeonardoFactory(config LeonardoConfig) Factory {
	return func(checkpoint Checkpoint) (Provider, error) {
		return &LeonardoProvider{
			config:     config,
			checkpoint: normalizeCheckpoint(checkpoint),
			logger:     config.Logger,
		}, nil
	}
}

// Name implements Provider.
func (p *LeonardoProvider) Name() string {
	return "leonardo"
}

// Initialize provisions a throwaway identity and walks the provider's
// full session bootstrap. Every step is separated by a checkpoint so a
// cancellation lands between network calls, not after the whole phase.
func (p *LeonardoProvider) Initialize(ctx context.Context) error {
	httpClient, err := webclient.NewClient(webclient.Options{
		Timeout: p.config.HTTPTimeout,
		Logger:  p.logger,
	})
	if err != nil {
		return err
	}
	mailboxClient := mailbox.NewClient(httpClient, p.config.MailboxURL, p.logger)
	session := leonardo.NewSession(httpClient, leonardo.Options{
		AppURL: p.config.AppURL,
		APIURL: p.config.APIURL,
		Logger: p.logger,
	})

	// The provider silently rejects some mailbox domains; each retry
	// uses a brand-new inbox.
	var inbox *mailbox.Mailbox
	for attempt := 0; attempt < signupAttempts; attempt++ {
		if err := p.checkpoint(); err != nil {
			return err
		}
		inbox, err = mailboxClient.Create(ctx)
		if err != nil {
			return err
		}
		err = session.Signup(ctx, inbox.Email)
		if err == nil {
			break
		}
		if _, rejected := err.(*leonardo.SignupRejectedError); !rejected {
			return err
		}
		if p.logger != nil {
			p.logger.Warn("signup rejected, retrying with fresh inbox",
				zap.String("email", inbox.Email),
				zap.Int("attempt", attempt+1))
		}
	}
	if session.Stage() != leonardo.StageSignedUp {
		return fmt.Errorf("imagegen: signup rejected %d times", signupAttempts)
	}

	if err := p.checkpoint(); err != nil {
		return err
	}
	code, err := inbox.WaitForCode(ctx, p.config.MailboxPollInterval, p.config.MailboxPollTries)
	if err != nil {
		return err
	}

	if err := p.checkpoint(); err != nil {
		return err
	}
	if err := session.ConfirmSignup(ctx, code); err != nil {
		return err
	}

	if err := p.checkpoint(); err != nil {
		return err
	}
	if err := session.Login(ctx); err != nil {
		return err
	}

	// The username mutation fails until account replication settles.
	if err := p.checkpoint(); err != nil {
		return err
	}
	_, err = core.Retry(ctx, core.RetryOptions{
		MaxTries:    usernameAttempts,
		WaitBetween: time.Second,
	}, func(lastErr error, fails int) (struct{}, error) {
		return struct{}{}, session.UpdateUsername(ctx, leonardo.RandomUsername())
	})
	if err != nil {
		return err
	}

	if err := p.checkpoint(); err != nil {
		return err
	}
	if err := session.UpdateUserDetails(ctx); err != nil {
		return err
	}
	if _, err := session.GetUserDetails(ctx); err != nil {
		return err
	}

	if err := p.checkpoint(); err != nil {
		return err
	}
	if err := session.StartTrial(ctx); err != nil {
		return err
	}

	p.session = session
	return nil
}

// Generate implements Provider. Initialize must have succeeded first.
func (p *LeonardoProvider) Generate(ctx context.Context, prompt string, screenWidth, screenHeight int) ([]byte, error) {
	if p.session == nil {
		return nil, fmt.Errorf("imagegen: leonardo provider not initialized")
	}

	if err := p.checkpoint(); err != nil {
		return nil, err
	}
	generationID, err := p.session.CreateGenerationJob(ctx, prompt, screenWidth, screenHeight)
	if err != nil {
		return nil, err
	}

	if err := p.checkpoint(); err != nil {
		return nil, err
	}
	image, err := p.session.PollJob(ctx, generationID, p.config.JobPollInterval, p.config.JobPollTimeout)
	if err != nil {
		return nil, err
	}

	if err := p.checkpoint(); err != nil {
		return nil, err
	}
	return p.session.FetchImage(ctx, image.URL)
}
