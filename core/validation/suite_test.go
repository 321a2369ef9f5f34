package validation

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wallgen/core"
)

func testConfig(t *testing.T) *core.Config {
	t.Helper()
	dir := t.TempDir()
	return &core.Config{
		DataDir:            dir,
		DatabasePath:       filepath.Join(dir, "wallgen.db"),
		GenerationInterval: 30 * time.Minute,
		MaxAttempts:        3,
		ApplyWallpaper:     false,
	}
}

func TestSuitePassesWithValidConfig(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var out bytes.Buffer
	suite := NewSuite(testConfig(t), []Endpoint{{Name: "Mailbox Service", URL: server.URL}}).
		WithOutput(&out).
		WithTimeout(2 * time.Second)

	result := suite.Validate(context.Background())
	if !result.Success {
		t.Fatalf("Validate() failed: %s\nfirst error: %v", result.Summary(), result.FirstError())
	}
	if result.Failed != 0 || result.Skipped != 0 {
		t.Errorf("result = %+v, want no failures or skips", result)
	}
	if !strings.Contains(out.String(), "Mailbox Service") {
		t.Error("progress output missing the endpoint step")
	}
}

func TestSuiteSkipsNetworkWhenConfigBroken(t *testing.T) {
	cfg := testConfig(t)
	cfg.GenerationInterval = time.Second

	probed := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probed = true
	}))
	defer server.Close()

	suite := NewSuite(cfg, []Endpoint{{Name: "Generation Service", URL: server.URL}}).
		WithShowProgress(false)

	result := suite.Validate(context.Background())
	if result.Success {
		t.Fatal("Validate() passed with a broken interval")
	}
	if probed {
		t.Error("network probe ran despite configuration errors")
	}
	if result.Skipped == 0 {
		t.Error("endpoint step was not marked skipped")
	}
	if result.FirstError() == nil {
		t.Error("FirstError() = nil for a failed run")
	}
}

func TestSuiteFailFastStopsEarly(t *testing.T) {
	cfg := testConfig(t)
	cfg.GenerationInterval = time.Second

	suite := NewSuite(cfg, nil).WithShowProgress(false).WithFailFast(true)
	result := suite.Validate(context.Background())

	last := result.Steps[len(result.Steps)-1]
	if last.Status != StepFailed {
		t.Errorf("last step = %s (%s), want the failing one", last.Name, last.Status)
	}
}

func TestSuiteReportsUnreachableEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	suite := NewSuite(testConfig(t), []Endpoint{{Name: "Upscale Service", URL: url}}).
		WithShowProgress(false).
		WithTimeout(time.Second)

	result := suite.Validate(context.Background())
	if result.Success {
		t.Error("Validate() passed with a dead endpoint")
	}
}

func TestQuickValidationRunsNoNetwork(t *testing.T) {
	suite := NewSuite(testConfig(t), []Endpoint{{Name: "Never", URL: "http://192.0.2.1"}}).
		WithShowProgress(false)

	result := suite.ValidateQuick()
	if !result.Success {
		t.Fatalf("ValidateQuick() failed: %v", result.FirstError())
	}
	for _, step := range result.Steps {
		if step.Name == "Never" {
			t.Error("quick validation probed an endpoint")
		}
	}
}

func TestSummaryString(t *testing.T) {
	result := SuiteResult{
		Steps:   []Step{{Status: StepPassed}, {Status: StepFailed}},
		Passed:  1,
		Failed:  1,
		Success: false,
	}
	summary := result.Summary()
	if !strings.Contains(summary, "1/2") || !strings.Contains(summary, "failed") {
		t.Errorf("Summary() = %q", summary)
	}
}
