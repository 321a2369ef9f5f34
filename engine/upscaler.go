package engine

import (
	"context"
	"time"

	"wallgen/logging"
	"wallgen/upscale"
	"wallgen/webclient"
)

// PipelineUpscaler runs the external 4x upscale pipeline. Each call builds
// a fresh cookie session; the upscale service's scraped credentials are
// single-use.
type PipelineUpscaler struct {
	pageURL     string
	apiURL      string
	httpTimeout time.Duration
	logger      *logging.Logger
}

// NewPipelineUpscaler creates an Upscaler against the upscale service.
// Empty URLs select the production endpoints.
func NewPipelineUpscaler(pageURL, apiURL string, httpTimeout time.Duration, logger *logging.Logger) *PipelineUpscaler {
	return &PipelineUpscaler{
		pageURL:     pageURL,
		apiURL:      apiURL,
		httpTimeout: httpTimeout,
		logger:      logger,
	}
}

// Upscale implements Upscaler.
func (u *PipelineUpscaler) Upscale(ctx context.Context, image []byte, checkpoint func() error) ([]byte, error) {
	if checkpoint == nil {
		checkpoint = func() error { return nil }
	}

	httpClient, err := webclient.NewClient(webclient.Options{
		Timeout: u.httpTimeout,
		Logger:  u.logger,
	})
	if err != nil {
		return nil, err
	}
	client := upscale.NewClient(httpClient, upscale.Options{
		PageURL: u.pageURL,
		APIURL:  u.apiURL,
		Logger:  u.logger,
	})

	if err := client.Init(ctx); err != nil {
		return nil, err
	}
	if err := checkpoint(); err != nil {
		return nil, err
	}
	if err := client.Upload(ctx, image, "original.jpeg"); err != nil {
		return nil, err
	}
	if err := checkpoint(); err != nil {
		return nil, err
	}
	if err := client.Upscale(ctx); err != nil {
		return nil, err
	}
	if err := checkpoint(); err != nil {
		return nil, err
	}
	if err := client.Process(ctx); err != nil {
		return nil, err
	}
	if err := checkpoint(); err != nil {
		return nil, err
	}
	return client.Download(ctx)
}
