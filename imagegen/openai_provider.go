package imagegen

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider generates images through the OpenAI image API. It is the
// configured alternative when an API key is available, trading the free
// web-provider dance for a paid but far more reliable backend.
type OpenAIProvider struct {
	client     *openai.Client
	model      string
	checkpoint Checkpoint
}

// NewOpenAIFactory returns a Factory producing OpenAIProviders. Model
// defaults to dall-e-3 when empty.
func NewOpenAIFactory(apiKey, model string) Factory {
	if model == "" {
		model = openai.CreateImageModelDallE3
	}
	return func(checkpoint Checkpoint) (Provider, error) {
		if apiKey == "" {
			return nil, fmt.Errorf("imagegen: OpenAI API key is required")
		}
		return &OpenAIProvider{
			client:     openai.NewClient(apiKey),
			model:      model,
			checkpoint: normalizeCheckpoint(checkpoint),
		}, nil
	}
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Initialize implements Provider. The API needs no session bootstrap.
func (p *OpenAIProvider) Initialize(ctx context.Context) error {
	return nil
}

// imageSize maps a screen resolution onto the closest supported API size.
func imageSize(screenWidth, screenHeight int) string {
	switch {
	case screenWidth > screenHeight:
		return openai.CreateImageSize1792x1024
	case screenHeight > screenWidth:
		return openai.CreateImageSize1024x1792
	default:
		return openai.CreateImageSize1024x1024
	}
}

// Generate implements Provider.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, screenWidth, screenHeight int) ([]byte, error) {
	if err := p.checkpoint(); err != nil {
		return nil, err
	}

	resp, err := p.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          p.model,
		N:              1,
		Size:           imageSize(screenWidth, screenHeight),
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("imagegen: OpenAI image request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("imagegen: OpenAI returned no images")
	}

	if err := p.checkpoint(); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("imagegen: failed to decode OpenAI image payload: %w", err)
	}
	return data, nil
}
