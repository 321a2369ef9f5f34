// Package wallpaper stores generated images on disk and applies them as
// the desktop background.
package wallpaper

import (
	"fmt"
	"os"
	"path/filepath"
)

// Artifact file names inside a prompt's directory. The upscaled file is
// preferred when both exist.
const (
	OriginalFilename = "original.jpeg"
	UpscaledFilename = "upscale.jpeg"
)

// ArtifactStore keeps one directory of images per prompt under a root
// directory. A new successful generation overwrites the previous files for
// the same prompt.
type ArtifactStore struct {
	root string
}

// NewArtifactStore creates a store rooted at dir, creating it if needed.
func NewArtifactStore(dir string) (*ArtifactStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("wallpaper: failed to create artifact root: %w", err)
	}
	return &ArtifactStore{root: dir}, nil
}

// Root returns the store's root directory.
func (s *ArtifactStore) Root() string {
	return s.root
}

func (s *ArtifactStore) promptDir(promptID string) string {
	return filepath.Join(s.root, promptID)
}

// Save writes a generation's images into the prompt's directory. The
// upscaled bytes may be nil when upscaling was skipped or failed, in which
// case only the original is written.
func (s *ArtifactStore) Save(promptID string, original, upscaled []byte) error {
	dir := s.promptDir(promptID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("wallpaper: failed to create prompt directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, OriginalFilename), original, 0o644); err != nil {
		return fmt.Errorf("wallpaper: failed to write original image: %w", err)
	}
	if upscaled != nil {
		if err := os.WriteFile(filepath.Join(dir, UpscaledFilename), upscaled, 0o644); err != nil {
			return fmt.Errorf("wallpaper: failed to write upscaled image: %w", err)
		}
	} else {
		// A stale upscale from a previous run must not outlive the
		// original it belonged to.
		if err := os.Remove(filepath.Join(dir, UpscaledFilename)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("wallpaper: failed to remove stale upscale: %w", err)
		}
	}
	return nil
}

// PathOf returns the best stored image for a prompt, preferring the
// upscaled file. Empty string when the prompt has no stored artifact.
func (s *ArtifactStore) PathOf(promptID string) string {
	dir := s.promptDir(promptID)
	for _, name := range []string{UpscaledFilename, OriginalFilename} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Remove deletes a prompt's artifact directory.
func (s *ArtifactStore) Remove(promptID string) error {
	if err := os.RemoveAll(s.promptDir(promptID)); err != nil {
		return fmt.Errorf("wallpaper: failed to remove artifacts for %s: %w", promptID, err)
	}
	return nil
}
