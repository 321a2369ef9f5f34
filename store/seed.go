package store

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type defaultsFile struct {
	Prompts []string `yaml:"prompts"`
}

// SeedDefaultPrompts inserts the built-in starter prompts when the prompts
// table is empty. Idempotent: a database that already holds prompts, even
// user-deleted down to one, is left untouched.
func (s *Store) SeedDefaultPrompts(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prompts`).Scan(&count); err != nil {
		return fmt.Errorf("store: failed to count prompts: %w", err)
	}
	if count > 0 {
		return nil
	}

	var defaults defaultsFile
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		return fmt.Errorf("store: failed to parse default prompts: %w", err)
	}

	var firstID string
	for _, text := range defaults.Prompts {
		prompt, err := s.CreatePrompt(ctx, text)
		if err != nil {
			return err
		}
		if firstID == "" {
			firstID = prompt.ID
		}
	}
	if firstID != "" {
		if err := s.SetSelectedPrompt(ctx, firstID); err != nil {
			return err
		}
	}
	return nil
}
