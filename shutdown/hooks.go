package shutdown

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"wallgen/core"
	"wallgen/logging"
	"wallgen/store"
	"wallgen/wallpaper"
)

// PromptLister is the slice of persistence the artifact sweep needs.
// *store.Store satisfies it.
type PromptLister interface {
	Prompts(ctx context.Context) ([]store.Prompt, error)
}

// PruneOrphanedArtifacts returns a hook that removes artifact directories
// whose prompt no longer exists. Deleting a prompt leaves its images on
// disk, so the sweep reclaims them at shutdown. Failures are logged and
// never block teardown.
func PruneOrphanedArtifacts(logger *logging.Logger, artifacts *wallpaper.ArtifactStore, prompts PromptLister) core.ShutdownFunc {
	return func(ctx context.Context) error {
		known, err := prompts.Prompts(ctx)
		if err != nil {
			logger.Warn("artifact sweep skipped, prompt listing failed", zap.Error(err))
			return nil
		}
		keep := make(map[string]bool, len(known))
		for _, prompt := range known {
			keep[prompt.ID] = true
		}

		entries, err := os.ReadDir(artifacts.Root())
		if err != nil {
			logger.Warn("artifact sweep skipped, root unreadable", zap.Error(err))
			return nil
		}

		removed := 0
		for _, entry := range entries {
			if !entry.IsDir() || keep[entry.Name()] {
				continue
			}
			select {
			case <-ctx.Done():
				logger.Warn("artifact sweep interrupted", zap.Int("removed", removed))
				return nil
			default:
			}
			if err := os.RemoveAll(filepath.Join(artifacts.Root(), entry.Name())); err != nil {
				logger.Warn("failed to remove orphaned artifacts",
					zap.String("prompt_id", entry.Name()),
					zap.Error(err))
				continue
			}
			removed++
		}
		if removed > 0 {
			logger.Info("removed orphaned artifact directories", zap.Int("removed", removed))
		}
		return nil
	}
}

// FlushLogs returns a hook that flushes buffered log entries. Sync errors
// are swallowed; stderr is not always syncable.
func FlushLogs(logger *logging.Logger) core.ShutdownFunc {
	return func(ctx context.Context) error {
		_ = logger.Sync()
		return nil
	}
}
