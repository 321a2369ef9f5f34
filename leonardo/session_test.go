package leonardo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"wallgen/webclient"
)

// fakeProvider mimics the provider's auth endpoints and GraphQL API.
type fakeProvider struct {
	*httptest.Server

	graphqlCalls  []string
	networkHits   atomic.Int64
	feedResponses []string // one raw generations array per poll, last repeats
	feedIndex     int
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	fp := &fakeProvider{}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/signup", func(w http.ResponseWriter, r *http.Request) {
		fp.networkHits.Add(1)
		_, _ = w.Write([]byte(`{"CodeDeliveryDetails":{"Destination":"x"}}`))
	})
	mux.HandleFunc("/api/auth/confirm-signup", func(w http.ResponseWriter, r *http.Request) {
		fp.networkHits.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/auth/csrf", func(w http.ResponseWriter, r *http.Request) {
		fp.networkHits.Add(1)
		_, _ = w.Write([]byte(`{"csrfToken":"csrf-123"}`))
	})
	mux.HandleFunc("/api/auth/callback/credentials", func(w http.ResponseWriter, r *http.Request) {
		fp.networkHits.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/auth/session", func(w http.ResponseWriter, r *http.Request) {
		fp.networkHits.Add(1)
		_, _ = w.Write([]byte(`{"accessToken":"access-token-abc"}`))
	})
	mux.HandleFunc("/graphql", fp.handleGraphQL)

	fp.Server = httptest.NewServer(mux)
	t.Cleanup(fp.Close)
	return fp
}

func (fp *fakeProvider) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	fp.networkHits.Add(1)

	var req struct {
		OperationName string `json:"operationName"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	fp.graphqlCalls = append(fp.graphqlCalls, req.OperationName)

	switch req.OperationName {
	case "UpdateUsername":
		_, _ = w.Write([]byte(`{"data":{"updateUsername":{"id":"user-42"}}}`))
	case "UpdateUserDetails":
		_, _ = w.Write([]byte(`{"data":{"update_user_details":{"affected_rows":1}}}`))
	case "GetUserDetails":
		_, _ = w.Write([]byte(`{"data":{"users":[{"id":"user-42","username":"zxqwe"}]}}`))
	case "StartUserAlchemyTrial":
		_, _ = w.Write([]byte(`{"data":{"startUserAlchemyTrial":{"id":"t"}}}`))
	case "CreateSDGenerationJob":
		_, _ = w.Write([]byte(`{"data":{"sdGenerationJob":{"generationId":"gen-99"}}}`))
	case "GetAIGenerationFeed":
		generations := `[]`
		if len(fp.feedResponses) > 0 {
			generations = fp.feedResponses[fp.feedIndex]
			if fp.feedIndex < len(fp.feedResponses)-1 {
				fp.feedIndex++
			}
		}
		_, _ = w.Write([]byte(`{"data":{"generations":` + generations + `}}`))
	default:
		_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"unknown operation"}]}`))
	}
}

func newTestSession(t *testing.T, fp *fakeProvider) *Session {
	t.Helper()
	httpClient, err := webclient.NewClient(webclient.Options{})
	if err != nil {
		t.Fatalf("webclient.NewClient() error = %v", err)
	}
	return NewSession(httpClient, Options{
		AppURL: fp.URL,
		APIURL: fp.URL + "/graphql",
	})
}

func bootstrapSession(t *testing.T, fp *fakeProvider) *Session {
	t.Helper()
	ctx := context.Background()
	session := newTestSession(t, fp)

	if err := session.Signup(ctx, "box@tempmail.example"); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if err := session.ConfirmSignup(ctx, "482913"); err != nil {
		t.Fatalf("ConfirmSignup() error = %v", err)
	}
	if err := session.Login(ctx); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if err := session.UpdateUsername(ctx, RandomUsername()); err != nil {
		t.Fatalf("UpdateUsername() error = %v", err)
	}
	return session
}

func TestFullSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	fp := newFakeProvider(t)
	session := bootstrapSession(t, fp)

	if session.Stage() != StageReady {
		t.Fatalf("stage = %s, want READY", session.Stage())
	}
	if session.UserID() != "user-42" {
		t.Errorf("UserID() = %q, want user-42", session.UserID())
	}

	if err := session.UpdateUserDetails(ctx); err != nil {
		t.Fatalf("UpdateUserDetails() error = %v", err)
	}
	details, err := session.GetUserDetails(ctx)
	if err != nil {
		t.Fatalf("GetUserDetails() error = %v", err)
	}
	if details.ID != "user-42" {
		t.Errorf("details.ID = %q, want user-42", details.ID)
	}
	if err := session.StartTrial(ctx); err != nil {
		t.Fatalf("StartTrial() error = %v", err)
	}

	generationID, err := session.CreateGenerationJob(ctx, "a city at dusk", 1920, 1080)
	if err != nil {
		t.Fatalf("CreateGenerationJob() error = %v", err)
	}
	if generationID != "gen-99" {
		t.Errorf("generationID = %q, want gen-99", generationID)
	}
}

func TestOperationsOutOfOrderFailWithoutNetworkCall(t *testing.T) {
	ctx := context.Background()
	fp := newFakeProvider(t)
	session := newTestSession(t, fp)

	var precondErr *PreconditionError

	if err := session.ConfirmSignup(ctx, "123456"); !errors.As(err, &precondErr) {
		t.Errorf("ConfirmSignup on fresh session: error = %v, want PreconditionError", err)
	}
	if err := session.UpdateUsername(ctx, "someone"); !errors.As(err, &precondErr) {
		t.Errorf("UpdateUsername on fresh session: error = %v, want PreconditionError", err)
	}
	if _, err := session.CreateGenerationJob(ctx, "p", 1920, 1080); !errors.As(err, &precondErr) {
		t.Errorf("CreateGenerationJob on fresh session: error = %v, want PreconditionError", err)
	}

	if hits := fp.networkHits.Load(); hits != 0 {
		t.Errorf("provider hit %d times, want 0", hits)
	}
}

func TestSignupRejectedWhenNoCodeDelivery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"CodeDeliveryDetails":null}`))
	}))
	defer server.Close()

	httpClient, err := webclient.NewClient(webclient.Options{})
	if err != nil {
		t.Fatalf("webclient.NewClient() error = %v", err)
	}
	session := NewSession(httpClient, Options{AppURL: server.URL, APIURL: server.URL})

	err = session.Signup(context.Background(), "box@tempmail.example")
	var rejected *SignupRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("error = %v, want SignupRejectedError", err)
	}
	if session.Stage() != StageNew {
		t.Errorf("stage after rejected signup = %s, want NEW", session.Stage())
	}
}

func TestGraphQLErrorsJoined(t *testing.T) {
	ctx := context.Background()
	fp := newFakeProvider(t)
	session := bootstrapSession(t, fp)

	// Swap the GraphQL handler for one that always errors.
	fp.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/session" {
			_, _ = w.Write([]byte(`{"accessToken":"access-token-abc"}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"daily limit reached"},{"message":"trial expired"}]}`))
	})

	err := session.StartTrial(ctx)
	var gqlErr *ProviderGraphQLError
	if !errors.As(err, &gqlErr) {
		t.Fatalf("error = %v, want ProviderGraphQLError", err)
	}
	if len(gqlErr.Messages) != 2 {
		t.Fatalf("Messages = %v, want 2 entries", gqlErr.Messages)
	}
	msg := gqlErr.Error()
	if want := "daily limit reached; trial expired"; !strings.Contains(msg, want) {
		t.Errorf("Error() = %q, want to contain %q", msg, want)
	}
}

func TestJobDimensions(t *testing.T) {
	tests := []struct {
		name         string
		screenW      int
		screenH      int
		wantW, wantH int
	}{
		{"landscape 16:9", 1920, 1080, 1536, 864},
		{"portrait 9:16", 1080, 1920, 864, 1536},
		{"square", 1024, 1024, 1536, 1536},
		{"ultrawide", 3440, 1440, 1536, 643},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotW, gotH := JobDimensions(tt.screenW, tt.screenH)
			if gotW != tt.wantW || gotH != tt.wantH {
				t.Errorf("JobDimensions(%d, %d) = %d, %d, want %d, %d",
					tt.screenW, tt.screenH, gotW, gotH, tt.wantW, tt.wantH)
			}
			if gotW != JobDimension && gotH != JobDimension {
				t.Errorf("neither dimension is %d", JobDimension)
			}
		})
	}
}

func TestPollJobComplete(t *testing.T) {
	fp := newFakeProvider(t)
	fp.feedResponses = []string{
		`[]`,
		`[{"status":"PENDING","generated_images":[]}]`,
		`[{"status":"COMPLETE","generated_images":[{"id":"img-1","url":"https://cdn.example/img-1.jpeg"}]}]`,
	}
	session := bootstrapSession(t, fp)

	image, err := session.PollJob(context.Background(), "gen-99", time.Millisecond, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("PollJob() error = %v", err)
	}
	if image.ID != "img-1" {
		t.Errorf("image.ID = %q, want img-1", image.ID)
	}
}

func TestPollJobFailed(t *testing.T) {
	fp := newFakeProvider(t)
	fp.feedResponses = []string{`[{"status":"FAILED","generated_images":[]}]`}
	session := bootstrapSession(t, fp)

	_, err := session.PollJob(context.Background(), "gen-99", time.Millisecond, 100*time.Millisecond)
	var failed *GenerationFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("error = %v, want GenerationFailedError", err)
	}
	if failed.GenerationID != "gen-99" {
		t.Errorf("GenerationID = %q, want gen-99", failed.GenerationID)
	}
}

func TestPollJobTimesOut(t *testing.T) {
	fp := newFakeProvider(t)
	fp.feedResponses = []string{`[{"status":"PENDING","generated_images":[]}]`}
	session := bootstrapSession(t, fp)

	_, err := session.PollJob(context.Background(), "gen-99", time.Millisecond, 10*time.Millisecond)
	var timedOut *GenerationTimeoutError
	if !errors.As(err, &timedOut) {
		t.Fatalf("error = %v, want GenerationTimeoutError", err)
	}
}

func TestRandomUsernameLength(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 16; i++ {
		name := RandomUsername()
		if len(name) != usernameLength {
			t.Fatalf("len(RandomUsername()) = %d, want %d", len(name), usernameLength)
		}
		seen[name] = true
	}
	if len(seen) < 2 {
		t.Error("RandomUsername() produced no variation across 16 calls")
	}
}
