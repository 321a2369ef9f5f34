// Wallgen is a daemon that periodically generates AI wallpapers from
// templated prompts, upscales them, and applies them as the desktop
// background.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"wallgen/core"
	"wallgen/core/validation"
	"wallgen/engine"
	"wallgen/imagegen"
	"wallgen/leonardo"
	"wallgen/logging"
	"wallgen/mailbox"
	"wallgen/promptengine"
	"wallgen/shutdown"
	"wallgen/store"
	"wallgen/upscale"
	"wallgen/wallpaper"
	"wallgen/webclient"
)

func main() {
	if HandleServiceCommand(os.Args) {
		return
	}

	if err := godotenv.Load(); err != nil {
		fmt.Printf("No .env file loaded: %v\n", err)
	}

	cfg, err := core.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(core.ExitCodeError)
	}

	logger, err := logging.NewLogger(cfg.DevMode, cfg.LogFilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(core.ExitCodeError)
	}
	defer logger.Sync()

	validateOnly := len(os.Args) > 1 && os.Args[1] == "validate"
	if code := runStartupValidation(cfg, logger, validateOnly); code != core.ExitCodeSuccess || validateOnly {
		os.Exit(code)
	}

	os.Exit(run(cfg, logger))
}

// runStartupValidation checks the configuration before anything heavy
// starts. The full suite with network probes runs only for the explicit
// validate command; normal startup does the offline checks so the daemon
// still comes up while a provider is briefly down.
func runStartupValidation(cfg *core.Config, logger *logging.Logger, full bool) int {
	suite := validation.NewSuite(cfg, []validation.Endpoint{
		{Name: "Mailbox Service", URL: mailbox.DefaultBaseURL},
		{Name: "Generation Service", URL: leonardo.DefaultAppURL},
		{Name: "Upscale Service", URL: upscale.DefaultPageURL},
		{Name: "Weather Service", URL: promptengine.DefaultWeatherURL},
	})

	var result validation.SuiteResult
	if full {
		result = suite.Validate(context.Background())
	} else {
		result = suite.ValidateQuick()
	}

	if !result.Success {
		logger.Error("startup validation failed", zap.String("summary", result.Summary()))
		for _, step := range result.Steps {
			if step.Status == validation.StepFailed {
				logger.Error("validation step failed",
					zap.String("step", step.Name),
					zap.String("message", step.Message),
					zap.Error(step.Error))
			}
		}
		return core.ExitCodeError
	}

	logger.Info("startup validation passed", zap.String("summary", result.Summary()))
	return core.ExitCodeSuccess
}

// serviceStopRequests is closed by the Windows service wrapper to stop
// the daemon without an OS signal.
var serviceStopRequests = make(chan struct{})

// run wires the daemon together and blocks until shutdown.
func run(cfg *core.Config, logger *logging.Logger) int {
	logger.Info("configuration loaded",
		zap.String("version", core.VersionInfo()),
		zap.String("data_dir", cfg.DataDir),
		zap.Duration("interval", cfg.GenerationInterval),
		zap.Int("max_attempts", cfg.MaxAttempts),
		zap.Bool("openai", cfg.UsesOpenAI()),
		zap.Bool("apply_wallpaper", cfg.ApplyWallpaper),
		zap.Bool("dev_mode", cfg.DevMode))

	manager := shutdown.NewManager(logger)
	manager.Start()
	go func() {
		<-serviceStopRequests
		manager.Trigger()
	}()

	if err := core.EnsureDataDirectory(cfg.DataDir); err != nil {
		logger.Error("data directory unusable", zap.Error(err))
		return core.ExitCodeError
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to open database", zap.Error(err))
		return core.ExitCodeError
	}
	if err := st.SeedDefaultPrompts(manager.Context()); err != nil {
		logger.Error("failed to seed default prompts", zap.Error(err))
		st.Close()
		return core.ExitCodeError
	}

	artifacts, err := wallpaper.NewArtifactStore(filepath.Join(cfg.DataDir, "wallpapers"))
	if err != nil {
		logger.Error("failed to create artifact store", zap.Error(err))
		st.Close()
		return core.ExitCodeError
	}

	resolver, err := buildResolver(st, cfg, logger)
	if err != nil {
		logger.Error("failed to build prompt resolver", zap.Error(err))
		st.Close()
		return core.ExitCodeError
	}

	eng := engine.New(engine.Config{
		Store:     st,
		Resolver:  resolver,
		Provider:  buildProviderFactory(cfg, logger),
		Upscaler:  engine.NewPipelineUpscaler("", "", cfg.HTTPTimeout, logger),
		Artifacts: artifacts,
		Setter:    buildSetter(cfg, logger),
		Resolution: func(ctx context.Context) core.Resolution {
			return cfg.PrimaryResolution(nil)
		},
		MaxAttempts: cfg.MaxAttempts,
		Logger:      logger,
	})

	registerShutdownHooks(manager, logger, st, artifacts)

	scheduler := NewScheduler(eng, st, cfg.GenerationInterval, manager, logger)
	go scheduler.Run(manager.Context())

	manager.Wait()

	// Ask the in-flight generation, if any, to stop at its next
	// checkpoint so the tracker drains quickly.
	eng.Cancel()

	if err := manager.Shutdown(); err != nil {
		logger.Error("shutdown finished with errors", zap.Error(err))
		return core.ExitCodeError
	}
	return core.ExitCodeSuccess
}

// registerShutdownHooks wires cleanup in dependency order: the artifact
// sweep queries the prompt table, so it must run before the database
// closes, and the log flush runs last to capture what the other hooks
// logged.
func registerShutdownHooks(manager *shutdown.Manager, logger *logging.Logger, st *store.Store, artifacts *wallpaper.ArtifactStore) {
	manager.Register("artifact-sweep", 20, shutdown.PruneOrphanedArtifacts(logger, artifacts, st))
	manager.Register("database", 30, func(ctx context.Context) error {
		return st.Close()
	})
	manager.Register("flush-logs", 90, shutdown.FlushLogs(logger))
}

// storeLocations adapts the persisted location row to the prompt engine.
type storeLocations struct {
	store *store.Store
}

func (s storeLocations) Location(ctx context.Context) (*promptengine.Location, error) {
	location, err := s.store.Location(ctx)
	if err != nil || location == nil {
		return nil, err
	}
	return &promptengine.Location{
		ID:        location.ID,
		Name:      location.Name,
		Country:   location.Country,
		Timezone:  location.Timezone,
		Latitude:  location.Latitude,
		Longitude: location.Longitude,
	}, nil
}

func buildResolver(st *store.Store, cfg *core.Config, logger *logging.Logger) (*promptengine.Engine, error) {
	httpClient, err := webclient.NewClient(webclient.Options{
		Timeout: cfg.HTTPTimeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	resolver := promptengine.NewEngine()
	weather := promptengine.NewWeatherClient(httpClient, "", time.Now)
	promptengine.RegisterStandardVariables(resolver, storeLocations{store: st}, weather, time.Now)
	return resolver, nil
}

// buildProviderFactory selects the image backend: the OpenAI API when a
// key is configured, otherwise the disposable-account web provider.
func buildProviderFactory(cfg *core.Config, logger *logging.Logger) imagegen.Factory {
	if cfg.UsesOpenAI() {
		logger.Info("using OpenAI image provider", zap.String("model", cfg.OpenAIImageModel))
		return imagegen.NewOpenAIFactory(cfg.OpenAIAPIKey, cfg.OpenAIImageModel)
	}

	logger.Info("using disposable-account image provider")
	return imagegen.NewLeonardoFactory(imagegen.LeonardoConfig{
		MailboxPollInterval: cfg.MailboxPollInterval,
		MailboxPollTries:    cfg.MailboxPollTries,
		JobPollInterval:     cfg.JobPollInterval,
		JobPollTimeout:      cfg.JobPollTimeout,
		HTTPTimeout:         cfg.HTTPTimeout,
		Logger:              logger,
	})
}

func buildSetter(cfg *core.Config, logger *logging.Logger) wallpaper.Setter {
	if !cfg.ApplyWallpaper {
		return wallpaper.NopSetter{}
	}
	setter, err := wallpaper.NewCommandSetter(cfg.WallpaperCommand, logger)
	if err != nil {
		logger.Warn("wallpaper applying disabled", zap.Error(err))
		return wallpaper.NopSetter{}
	}
	return setter
}
