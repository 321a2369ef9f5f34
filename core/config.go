package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// MinGenerationInterval is the floor for GENERATION_INTERVAL. Anything
// shorter would hammer the free generation provider.
const MinGenerationInterval = time.Minute

// Resolution describes a monitor resolution in pixels.
type Resolution struct {
	Width  int
	Height int
}

// Config holds all configuration values for the wallpaper daemon.
type Config struct {
	// Data layout
	DataDir      string // Root directory for wallpapers and the database
	DatabasePath string // SQLite database file path

	// Generation scheduling
	GenerationInterval time.Duration // How often a new wallpaper is generated
	MaxAttempts        int           // Whole-pipeline retry budget per generation

	// Screen
	ScreenOverride *Resolution // Optional SCREEN_WIDTH/SCREEN_HEIGHT override

	// Provider selection (optional cloud fallback)
	OpenAIAPIKey     string // When set, image generation uses the OpenAI API
	OpenAIImageModel string // Model identifier for the OpenAI image endpoint

	// Pipeline timings
	HTTPTimeout         time.Duration // Default per-request timeout
	MailboxPollInterval time.Duration // Delay between verification-mail polls
	MailboxPollTries    int           // Verification-mail poll budget
	JobPollInterval     time.Duration // Delay between generation-job polls
	JobPollTimeout      time.Duration // Total generation-job poll budget

	// Wallpaper application
	ApplyWallpaper   bool   // Set the desktop background after a generation
	WallpaperCommand string // Optional custom command template for applying

	// Logging
	LogFilePath string
	DevMode     bool
}

// getEnvOrDefault returns the value of an environment variable or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv parses an environment variable as an integer.
// Returns the default value if the variable is not set or cannot be parsed.
func parseIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// parseBoolEnv parses an environment variable as a boolean.
// Accepts case-insensitive: "true", "1", "yes", "on" as true values.
func parseBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

// parseDurationEnv parses an environment variable as a duration in seconds.
func parseDurationEnv(key string, defaultSeconds int) time.Duration {
	return time.Duration(parseIntEnv(key, defaultSeconds)) * time.Second
}

// LoadConfig loads configuration from environment variables with sensible
// defaults for zero-config operation. Nothing is strictly required: without
// an OpenAI key the daemon provisions a disposable trial account per
// generation, and without a screen override the stored settings are used.
func LoadConfig() (*Config, error) {
	dataDir := getEnvOrDefault("WALLGEN_DATA_DIR", DefaultDataDirectory())
	databasePath := getEnvOrDefault("WALLGEN_DB_PATH", filepath.Join(dataDir, "wallgen.db"))

	// 30 minutes keeps the free generation provider under its daily limits
	generationInterval := parseDurationEnv("GENERATION_INTERVAL", 1800)
	if generationInterval < MinGenerationInterval {
		return nil, ErrIntervalTooShort(generationInterval)
	}

	// 3 attempts with a fresh session each covers most transient provider failures
	maxAttempts := parseIntEnv("MAX_ATTEMPTS", 3)
	if maxAttempts < 1 {
		return nil, ErrInvalidValue("MAX_ATTEMPTS", strconv.Itoa(maxAttempts), "must be at least 1")
	}

	var screenOverride *Resolution
	width := parseIntEnv("SCREEN_WIDTH", 0)
	height := parseIntEnv("SCREEN_HEIGHT", 0)
	if width != 0 || height != 0 {
		if width <= 0 || height <= 0 {
			return nil, ErrInvalidScreenSize(width, height)
		}
		screenOverride = &Resolution{Width: width, Height: height}
	}

	cfg := &Config{
		DataDir:      dataDir,
		DatabasePath: databasePath,

		GenerationInterval: generationInterval,
		MaxAttempts:        maxAttempts,

		ScreenOverride: screenOverride,

		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIImageModel: getEnvOrDefault("OPENAI_IMAGE_MODEL", "dall-e-3"),

		HTTPTimeout:         parseDurationEnv("HTTP_TIMEOUT", 30),
		MailboxPollInterval: parseDurationEnv("MAILBOX_POLL_INTERVAL", 2),
		MailboxPollTries:    parseIntEnv("MAILBOX_POLL_TRIES", 10),
		JobPollInterval:     parseDurationEnv("JOB_POLL_INTERVAL", 5),
		JobPollTimeout:      parseDurationEnv("JOB_POLL_TIMEOUT", 60),

		ApplyWallpaper:   parseBoolEnv("APPLY_WALLPAPER", true),
		WallpaperCommand: os.Getenv("WALLPAPER_COMMAND"),

		LogFilePath: getEnvOrDefault("WALLGEN_LOG_FILE", filepath.Join(dataDir, "wallgen.log")),
		DevMode:     parseBoolEnv("DEV_MODE", false),
	}

	return cfg, nil
}

// UsesOpenAI reports whether the cloud OpenAI provider should be used
// instead of the disposable-account generation flow.
func (c *Config) UsesOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// PrimaryResolution returns the target monitor resolution. The env override
// wins; otherwise the caller-supplied stored value is used, falling back to
// 1920x1080 when nothing is configured.
func (c *Config) PrimaryResolution(stored *Resolution) Resolution {
	if c.ScreenOverride != nil {
		return *c.ScreenOverride
	}
	if stored != nil && stored.Width > 0 && stored.Height > 0 {
		return *stored
	}
	return Resolution{Width: 1920, Height: 1080}
}

// String implements fmt.Stringer for Resolution, e.g. "2560x1440".
func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// AspectRatio returns width divided by height.
func (r Resolution) AspectRatio() float64 {
	if r.Height == 0 {
		return 0
	}
	return float64(r.Width) / float64(r.Height)
}
