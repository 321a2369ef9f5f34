package validation

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wallgen/core"
)

func checkerFor(t *testing.T, mutate func(*core.Config)) *ConfigChecker {
	t.Helper()
	cfg := testConfig(t)
	if mutate != nil {
		mutate(cfg)
	}
	return NewConfigChecker(cfg)
}

func TestCheckDataDirectoryCreatesAndProbes(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "a", "b")
	checker := checkerFor(t, func(cfg *core.Config) { cfg.DataDir = nested })

	result := checker.CheckDataDirectory()
	if !result.Valid {
		t.Fatalf("CheckDataDirectory() failed: %v", result.Error)
	}
}

func TestCheckGenerationInterval(t *testing.T) {
	checker := checkerFor(t, func(cfg *core.Config) { cfg.GenerationInterval = 30 * time.Second })
	if result := checker.CheckGenerationInterval(); result.Valid {
		t.Error("30s interval passed, want failure")
	}

	checker = checkerFor(t, nil)
	if result := checker.CheckGenerationInterval(); !result.Valid {
		t.Errorf("valid interval failed: %v", result.Error)
	}
}

func TestCheckScreenResolution(t *testing.T) {
	checker := checkerFor(t, func(cfg *core.Config) {
		cfg.ScreenOverride = &core.Resolution{Width: 2560, Height: 1440}
	})
	result := checker.CheckScreenResolution()
	if !result.Valid || !strings.Contains(result.Message, "2560x1440") {
		t.Errorf("override result = %+v", result)
	}

	checker = checkerFor(t, nil)
	if result := checker.CheckScreenResolution(); !result.Valid {
		t.Errorf("default resolution failed: %v", result.Error)
	}
}

func TestCheckProviderCredentials(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		wantValid bool
		wantIn    string
	}{
		{"no key uses trial accounts", "", true, "disposable"},
		{"well-formed key selects openai", "sk-abc123", true, "OpenAI"},
		{"malformed key rejected", "not-a-key", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := checkerFor(t, func(cfg *core.Config) {
				cfg.OpenAIAPIKey = tt.key
				cfg.OpenAIImageModel = "dall-e-3"
			})
			result := checker.CheckProviderCredentials()
			if result.Valid != tt.wantValid {
				t.Fatalf("Valid = %v, want %v (error %v)", result.Valid, tt.wantValid, result.Error)
			}
			if tt.wantIn != "" && !strings.Contains(result.Message, tt.wantIn) {
				t.Errorf("Message = %q, want containing %q", result.Message, tt.wantIn)
			}
		})
	}
}

func TestCheckWallpaperCommand(t *testing.T) {
	checker := checkerFor(t, func(cfg *core.Config) {
		cfg.ApplyWallpaper = true
		cfg.WallpaperCommand = "definitely-not-a-real-binary-xyz %s"
	})
	if result := checker.CheckWallpaperCommand(); result.Valid {
		t.Error("missing binary passed")
	}

	checker = checkerFor(t, func(cfg *core.Config) {
		cfg.ApplyWallpaper = true
		cfg.WallpaperCommand = "sh -c true"
	})
	if result := checker.CheckWallpaperCommand(); !result.Valid {
		t.Errorf("sh command failed: %v", result.Error)
	}

	checker = checkerFor(t, func(cfg *core.Config) { cfg.ApplyWallpaper = false })
	if result := checker.CheckWallpaperCommand(); !result.Valid {
		t.Errorf("disabled applying failed: %v", result.Error)
	}
}

func TestCheckDiskSpaceReportsFree(t *testing.T) {
	checker := checkerFor(t, nil)
	result := checker.CheckDiskSpace()
	if !result.Valid {
		t.Skipf("test filesystem below threshold: %v", result.Error)
	}
	if !strings.Contains(result.Message, "free") {
		t.Errorf("Message = %q, want free-space report", result.Message)
	}
}
