package leonardo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"wallgen/webclient"
)

// JobDimension is the fixed long edge of every generation job. The short
// edge is scaled to preserve the screen's aspect ratio.
const JobDimension = 1536

// DefaultPollInterval and DefaultPollTimeout bound job polling when the
// caller passes zero values.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultPollTimeout  = 60 * time.Second
)

// GeneratedImage is one output of a completed generation job.
type GeneratedImage struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// graphql posts one operation and decodes the data envelope into out.
// Provider-side errors arrive as an errors array next to a null data field.
func (s *Session) graphql(ctx context.Context, operationName, query string, variables any, out any) error {
	token, err := s.accessToken(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]any{
		"operationName": operationName,
		"query":         query,
		"variables":     variables,
	})
	if err != nil {
		return fmt.Errorf("leonardo: failed to encode %s: %w", operationName, err)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("Authorization", "Bearer "+token)
	resp, err := s.http.Do(ctx, &webclient.Request{
		Method:      http.MethodPost,
		URL:         s.apiURL,
		Header:      header,
		Body:        payload,
		ThrowOnFail: true,
	})
	if err != nil {
		return fmt.Errorf("leonardo: %s request failed: %w", operationName, err)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return fmt.Errorf("leonardo: failed to decode %s response: %w", operationName, err)
	}
	if len(envelope.Errors) > 0 {
		gqlErr := &ProviderGraphQLError{Operation: operationName}
		for _, e := range envelope.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		return gqlErr
	}
	if out != nil {
		if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
			return fmt.Errorf("leonardo: %s returned no data", operationName)
		}
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("leonardo: failed to decode %s data: %w", operationName, err)
		}
	}
	return nil
}

// UpdateUsername sets a random username on the fresh account and captures
// the provider-assigned user id, unlocking the remaining operations.
func (s *Session) UpdateUsername(ctx context.Context, username string) error {
	if err := s.requireStage("updateUsername", StageLoggedIn); err != nil {
		return err
	}

	const query = `
		mutation UpdateUsername($arg1: UpdateUsernameInput!) {
			updateUsername(arg1: $arg1) {
				id
				__typename
			}
		}`

	var result struct {
		UpdateUsername struct {
			ID string `json:"id"`
		} `json:"updateUsername"`
	}
	err := s.graphql(ctx, "UpdateUsername", query, map[string]any{
		"arg1": map[string]string{"username": username},
	}, &result)
	if err != nil {
		return err
	}
	if result.UpdateUsername.ID == "" {
		return fmt.Errorf("leonardo: updateUsername returned no user id")
	}

	s.userID = result.UpdateUsername.ID
	s.stage = StageReady
	if s.logger != nil {
		s.logger.Debug("username set", zap.String("user_id", s.userID))
	}
	return nil
}

// UpdateUserDetails completes the profile questionnaire a fresh account
// must answer before it may generate.
func (s *Session) UpdateUserDetails(ctx context.Context) error {
	if err := s.requireStage("updateUserDetails", StageReady); err != nil {
		return err
	}

	const query = `
		mutation UpdateUserDetails(
			$where: user_details_bool_exp!
			$_set: user_details_set_input
		) {
			update_user_details(where: $where, _set: $_set) {
				affected_rows
				__typename
			}
		}`

	return s.graphql(ctx, "UpdateUserDetails", query, map[string]any{
		"where": map[string]any{
			"userId": map[string]string{"_eq": s.userID},
		},
		"_set": map[string]any{
			"showNsfw":  true,
			"interests": []string{"OTHER"},
		},
	}, nil)
}

// UserDetails is the subset of profile state the pipeline reads back.
type UserDetails struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// GetUserDetails reads the account profile back, confirming the bootstrap
// mutations landed.
func (s *Session) GetUserDetails(ctx context.Context) (*UserDetails, error) {
	if err := s.requireStage("getUserDetails", StageReady); err != nil {
		return nil, err
	}

	const query = `
		query GetUserDetails($userSub: String) {
			users(where: { user_details: { cognitoId: { _eq: $userSub } } }) {
				id
				username
				__typename
			}
		}`

	var result struct {
		Users []UserDetails `json:"users"`
	}
	err := s.graphql(ctx, "GetUserDetails", query, map[string]any{}, &result)
	if err != nil {
		return nil, err
	}
	if len(result.Users) == 0 {
		return nil, fmt.Errorf("leonardo: getUserDetails returned no users")
	}
	return &result.Users[0], nil
}

// StartTrial activates the free alchemy trial the generation settings rely
// on.
func (s *Session) StartTrial(ctx context.Context) error {
	if err := s.requireStage("startTrial", StageReady); err != nil {
		return err
	}

	const query = `
		mutation StartUserAlchemyTrial {
			startUserAlchemyTrial {
				id
				isInTrialPeriod
				hasReachedDailyLimit
				__typename
			}
		}`

	return s.graphql(ctx, "StartUserAlchemyTrial", query, nil, nil)
}

// JobDimensions scales a screen resolution so the larger edge is exactly
// JobDimension pixels and the other preserves the aspect ratio.
func JobDimensions(screenWidth, screenHeight int) (width, height int) {
	if screenWidth > screenHeight {
		return JobDimension, screenHeight * JobDimension / screenWidth
	}
	if screenHeight > screenWidth {
		return screenWidth * JobDimension / screenHeight, JobDimension
	}
	return JobDimension, JobDimension
}

// CreateGenerationJob submits a generation for the prompt at the screen's
// aspect ratio and returns the provider's generation id.
func (s *Session) CreateGenerationJob(ctx context.Context, prompt string, screenWidth, screenHeight int) (string, error) {
	if err := s.requireStage("createGenerationJob", StageReady); err != nil {
		return "", err
	}

	width, height := JobDimensions(screenWidth, screenHeight)

	const query = `
		mutation CreateSDGenerationJob($arg1: SDGenerationInput!) {
			sdGenerationJob(arg1: $arg1) {
				generationId
			}
		}`

	var result struct {
		SDGenerationJob struct {
			GenerationID string `json:"generationId"`
		} `json:"sdGenerationJob"`
	}
	err := s.graphql(ctx, "CreateSDGenerationJob", query, map[string]any{
		"arg1": map[string]any{
			"negative_prompt":     "",
			"nsfw":                true,
			"num_inference_steps": 10,
			"guidance_scale":      15,
			"sd_version":          "SDXL_0_9",
			"presetStyle":         "CINEMATIC",
			"scheduler":           "LEONARDO",
			"public":              true,
			"tiling":              false,
			"leonardoMagic":       false,
			"alchemy":             true,
			"highResolution":      false,
			"contrastRatio":       0.5,
			"poseToImage":         false,
			"poseToImageType":     "POSE",
			"weighting":           0.75,
			"highContrast":        true,
			"expandedDomain":      true,
			"elements":            []any{},
			"controlnets":         []any{},
			"photoReal":           true,
			"photoRealVersion":    "v2",
			"transparency":        "disabled",
			"modelId":             "aa77f04e-3eec-4034-9c07-d0f619684628",
			"prompt":              prompt,
			"num_images":          1,
			"width":               width,
			"height":              height,
		},
	}, &result)
	if err != nil {
		return "", err
	}
	if result.SDGenerationJob.GenerationID == "" {
		return "", fmt.Errorf("leonardo: sdGenerationJob returned no generation id")
	}

	if s.logger != nil {
		s.logger.Info("generation job submitted",
			zap.String("generation_id", result.SDGenerationJob.GenerationID),
			zap.Int("width", width),
			zap.Int("height", height))
	}
	return result.SDGenerationJob.GenerationID, nil
}

// PollJob polls the generation feed until the job reaches a terminal
// status. interval and timeout default to DefaultPollInterval and
// DefaultPollTimeout when zero. The elapsed budget is counted by attempts,
// not wall clock; an individual slow HTTP call does not shorten it.
func (s *Session) PollJob(ctx context.Context, generationID string, interval, timeout time.Duration) (*GeneratedImage, error) {
	if err := s.requireStage("pollJob", StageReady); err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}

	const query = `
		query GetAIGenerationFeed(
			$where: generations_bool_exp = {}
			$userId: uuid
			$limit: Int
			$offset: Int = 0
		) {
			generations(
				limit: $limit
				offset: $offset
				order_by: [{ createdAt: desc }]
				where: $where
			) {
				id
				status
				generated_images(order_by: [{ url: desc }]) {
					id
					url
				}
			}
		}`

	attempts := int(timeout / interval)
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}

		var result struct {
			Generations []struct {
				Status          string           `json:"status"`
				GeneratedImages []GeneratedImage `json:"generated_images"`
			} `json:"generations"`
		}
		err := s.graphql(ctx, "GetAIGenerationFeed", query, map[string]any{
			"where": map[string]any{
				"userId":       map[string]string{"_eq": s.userID},
				"teamId":       map[string]bool{"_is_null": true},
				"status":       map[string][]string{"_in": {"COMPLETE", "FAILED"}},
				"id":           map[string][]string{"_in": {generationID}},
				"isStoryboard": map[string]bool{"_eq": false},
			},
			"offset": 0,
		}, &result)
		if err != nil {
			// Transient feed errors just consume an attempt.
			if s.logger != nil {
				s.logger.Debug("generation feed poll failed", zap.Error(err))
			}
			continue
		}
		if len(result.Generations) == 0 {
			continue
		}

		generation := result.Generations[0]
		switch generation.Status {
		case "COMPLETE":
			if len(generation.GeneratedImages) == 0 {
				continue
			}
			return &generation.GeneratedImages[0], nil
		case "FAILED":
			return nil, &GenerationFailedError{GenerationID: generationID}
		}
	}

	return nil, &GenerationTimeoutError{GenerationID: generationID, Timeout: timeout}
}

// FetchImage downloads the generated image bytes from the provider's CDN.
func (s *Session) FetchImage(ctx context.Context, url string) ([]byte, error) {
	resp, err := s.http.Do(ctx, &webclient.Request{URL: url, ThrowOnFail: true})
	if err != nil {
		return nil, fmt.Errorf("leonardo: failed to download generated image: %w", err)
	}
	return resp.Body, nil
}
