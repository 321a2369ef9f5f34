package validation

import (
	"fmt"
	"os/exec"
	"strings"

	"wallgen/core"
)

// CheckResult is the outcome of one configuration check.
type CheckResult struct {
	Valid   bool
	Message string
	Error   error
}

// ConfigChecker inspects a loaded configuration for problems the daemon
// would otherwise only hit mid-generation.
type ConfigChecker struct {
	config *core.Config
}

// NewConfigChecker creates a checker for cfg.
func NewConfigChecker(cfg *core.Config) *ConfigChecker {
	return &ConfigChecker{config: cfg}
}

// CheckDataDirectory verifies the data directory can be created and
// written.
func (c *ConfigChecker) CheckDataDirectory() CheckResult {
	dir := c.config.DataDir
	if err := core.EnsureDataDirectory(dir); err != nil {
		return CheckResult{Message: "Data directory is not usable", Error: err}
	}
	return CheckResult{Valid: true, Message: dir}
}

// CheckGenerationInterval verifies the interval respects the one minute
// floor. LoadConfig enforces this too; the check exists so the validate
// command reports it alongside everything else.
func (c *ConfigChecker) CheckGenerationInterval() CheckResult {
	interval := c.config.GenerationInterval
	if interval < core.MinGenerationInterval {
		return CheckResult{Message: "Interval below minimum", Error: core.ErrIntervalTooShort(interval)}
	}
	return CheckResult{Valid: true, Message: fmt.Sprintf("every %s", interval)}
}

// CheckScreenResolution reports the resolution the pipeline will target.
func (c *ConfigChecker) CheckScreenResolution() CheckResult {
	if c.config.ScreenOverride != nil {
		r := *c.config.ScreenOverride
		if r.Width <= 0 || r.Height <= 0 {
			return CheckResult{Message: "Invalid override", Error: core.ErrInvalidScreenSize(r.Width, r.Height)}
		}
		return CheckResult{Valid: true, Message: fmt.Sprintf("%s (env override)", r)}
	}
	return CheckResult{Valid: true, Message: "from stored settings, default 1920x1080"}
}

// CheckProviderCredentials reports which image provider will be used. An
// absent OpenAI key is not an error: the disposable-account flow needs no
// credentials.
func (c *ConfigChecker) CheckProviderCredentials() CheckResult {
	key := c.config.OpenAIAPIKey
	if key == "" {
		return CheckResult{Valid: true, Message: "no API key, using disposable trial accounts"}
	}
	if !strings.HasPrefix(key, "sk-") {
		return CheckResult{
			Message: "OPENAI_API_KEY does not look like an API key",
			Error:   fmt.Errorf("expected a key starting with sk-, got %d characters", len(key)),
		}
	}
	return CheckResult{Valid: true, Message: fmt.Sprintf("OpenAI (%s)", c.config.OpenAIImageModel)}
}

// CheckWallpaperCommand verifies the configured wallpaper command's binary
// exists on PATH. Without a command on a desktop without a known setter
// the daemon still generates, it just cannot apply.
func (c *ConfigChecker) CheckWallpaperCommand() CheckResult {
	if !c.config.ApplyWallpaper {
		return CheckResult{Valid: true, Message: "applying disabled"}
	}
	command := c.config.WallpaperCommand
	if command == "" {
		return CheckResult{Valid: true, Message: "using desktop default"}
	}

	fields := strings.Fields(command)
	if len(fields) == 0 {
		return CheckResult{Message: "WALLPAPER_COMMAND is blank", Error: fmt.Errorf("wallpaper command contains no words")}
	}
	if _, err := exec.LookPath(fields[0]); err != nil {
		return CheckResult{
			Message: fmt.Sprintf("%q not found on PATH", fields[0]),
			Error:   err,
		}
	}
	return CheckResult{Valid: true, Message: fields[0]}
}

// CheckDiskSpace verifies the data directory's filesystem has room for
// generated images.
func (c *ConfigChecker) CheckDiskSpace() CheckResult {
	if err := CheckDiskSpace(c.config.DataDir, DefaultRequiredBytes); err != nil {
		return CheckResult{Message: "Low disk space", Error: err}
	}
	info, err := GetDiskSpace(c.config.DataDir)
	if err != nil {
		return CheckResult{Message: "Cannot read disk space", Error: err}
	}
	return CheckResult{Valid: true, Message: fmt.Sprintf("%s free", core.FormatBytes(info.Free))}
}
