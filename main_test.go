package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"wallgen/logging"
	"wallgen/shutdown"
	"wallgen/store"
	"wallgen/wallpaper"
)

func TestShutdownHooksSweepArtifactsBeforeDatabaseClose(t *testing.T) {
	logger, err := logging.NewLogger(true, filepath.Join(t.TempDir(), "test.log"))
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	ctx := context.Background()
	prompt, err := st.CreatePrompt(ctx, "still here")
	if err != nil {
		t.Fatalf("CreatePrompt: %v", err)
	}

	artifacts, err := wallpaper.NewArtifactStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewArtifactStore: %v", err)
	}
	if err := artifacts.Save(prompt.ID, []byte("kept"), nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := artifacts.Save("deleted-prompt", []byte("orphan"), nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	manager := shutdown.NewManager(logger)
	registerShutdownHooks(manager, logger, st, artifacts)

	if err := manager.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	// The sweep ran while the database was still open.
	if _, err := os.Stat(filepath.Join(artifacts.Root(), "deleted-prompt")); !os.IsNotExist(err) {
		t.Error("orphaned artifact directory survived shutdown")
	}
	if _, err := os.Stat(filepath.Join(artifacts.Root(), prompt.ID)); err != nil {
		t.Errorf("live prompt's artifacts were removed: %v", err)
	}

	// And the database hook still closed the store.
	if _, err := st.SelectedPromptID(ctx); err == nil {
		t.Error("database still open after shutdown")
	}
}
