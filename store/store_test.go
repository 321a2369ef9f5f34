package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "wallgen.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPromptLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created, err := s.CreatePrompt(ctx, "a view of $LOCATION_NAME")
	if err != nil {
		t.Fatalf("CreatePrompt() error = %v", err)
	}
	if created.ID == "" {
		t.Fatal("CreatePrompt() returned empty id")
	}

	fetched, err := s.Prompt(ctx, created.ID)
	if err != nil {
		t.Fatalf("Prompt() error = %v", err)
	}
	if fetched.Text != "a view of $LOCATION_NAME" {
		t.Errorf("Text = %q", fetched.Text)
	}
	if fetched.GeneratedAt != nil {
		t.Error("GeneratedAt set on fresh prompt")
	}

	if err := s.UpdatePromptText(ctx, created.ID, "updated text"); err != nil {
		t.Fatalf("UpdatePromptText() error = %v", err)
	}

	stamp := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	if err := s.SetGeneratedAt(ctx, created.ID, stamp); err != nil {
		t.Fatalf("SetGeneratedAt() error = %v", err)
	}
	fetched, err = s.Prompt(ctx, created.ID)
	if err != nil {
		t.Fatalf("Prompt() error = %v", err)
	}
	if fetched.Text != "updated text" {
		t.Errorf("Text after update = %q", fetched.Text)
	}
	if fetched.GeneratedAt == nil || !fetched.GeneratedAt.Equal(stamp) {
		t.Errorf("GeneratedAt = %v, want %v", fetched.GeneratedAt, stamp)
	}

	if err := s.DeletePrompt(ctx, created.ID); err != nil {
		t.Fatalf("DeletePrompt() error = %v", err)
	}
	if _, err := s.Prompt(ctx, created.ID); !errors.Is(err, ErrPromptNotFound) {
		t.Errorf("Prompt() after delete: error = %v, want ErrPromptNotFound", err)
	}
}

func TestPromptNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.Prompt(ctx, "missing"); !errors.Is(err, ErrPromptNotFound) {
		t.Errorf("Prompt() error = %v, want ErrPromptNotFound", err)
	}
	if err := s.UpdatePromptText(ctx, "missing", "x"); !errors.Is(err, ErrPromptNotFound) {
		t.Errorf("UpdatePromptText() error = %v, want ErrPromptNotFound", err)
	}
	if err := s.DeletePrompt(ctx, "missing"); !errors.Is(err, ErrPromptNotFound) {
		t.Errorf("DeletePrompt() error = %v, want ErrPromptNotFound", err)
	}
}

func TestPromptsOrderedByCreation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, _ := s.CreatePrompt(ctx, "first")
	second, _ := s.CreatePrompt(ctx, "second")

	prompts, err := s.Prompts(ctx)
	if err != nil {
		t.Fatalf("Prompts() error = %v", err)
	}
	if len(prompts) != 2 {
		t.Fatalf("got %d prompts, want 2", len(prompts))
	}
	if prompts[0].ID != first.ID || prompts[1].ID != second.ID {
		t.Errorf("prompts out of order: %s, %s", prompts[0].Text, prompts[1].Text)
	}
}

func TestSelectedPrompt(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.SelectedPromptID(ctx)
	if err != nil {
		t.Fatalf("SelectedPromptID() error = %v", err)
	}
	if id != "" {
		t.Errorf("SelectedPromptID() on empty store = %q, want empty", id)
	}

	prompt, _ := s.CreatePrompt(ctx, "a prompt")
	if err := s.SetSelectedPrompt(ctx, prompt.ID); err != nil {
		t.Fatalf("SetSelectedPrompt() error = %v", err)
	}
	id, err = s.SelectedPromptID(ctx)
	if err != nil {
		t.Fatalf("SelectedPromptID() error = %v", err)
	}
	if id != prompt.ID {
		t.Errorf("SelectedPromptID() = %q, want %q", id, prompt.ID)
	}

	other, _ := s.CreatePrompt(ctx, "another")
	if err := s.SetSelectedPrompt(ctx, other.ID); err != nil {
		t.Fatalf("SetSelectedPrompt() reselect error = %v", err)
	}
	id, _ = s.SelectedPromptID(ctx)
	if id != other.ID {
		t.Errorf("SelectedPromptID() after reselect = %q, want %q", id, other.ID)
	}
}

func TestLocationRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	location, err := s.Location(ctx)
	if err != nil {
		t.Fatalf("Location() error = %v", err)
	}
	if location != nil {
		t.Errorf("Location() on empty store = %+v, want nil", location)
	}

	saved, err := s.SetLocation(ctx, Location{
		Name: "Lisbon", Country: "Portugal", Timezone: "Europe/Lisbon",
		Latitude: 38.72, Longitude: -9.14,
	})
	if err != nil {
		t.Fatalf("SetLocation() error = %v", err)
	}

	location, err = s.Location(ctx)
	if err != nil {
		t.Fatalf("Location() error = %v", err)
	}
	if location == nil || location.Name != "Lisbon" || location.ID != saved.ID {
		t.Errorf("Location() = %+v, want saved Lisbon row", location)
	}

	// Replacing the location must change the row id.
	replaced, err := s.SetLocation(ctx, Location{
		Name: "Oslo", Country: "Norway", Timezone: "Europe/Oslo",
		Latitude: 59.91, Longitude: 10.75,
	})
	if err != nil {
		t.Fatalf("SetLocation() replace error = %v", err)
	}
	if replaced.ID == saved.ID {
		t.Errorf("replacement kept id %d", replaced.ID)
	}
}

func TestGenerationHistoryCascadesWithPrompt(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	prompt, _ := s.CreatePrompt(ctx, "a prompt")
	err := s.RecordGeneration(ctx, GenerationRecord{
		PromptID: prompt.ID,
		Status:   GenerationSucceeded,
		Attempts: 1,
		Duration: 42 * time.Second,
	})
	if err != nil {
		t.Fatalf("RecordGeneration() error = %v", err)
	}
	err = s.RecordGeneration(ctx, GenerationRecord{
		PromptID:     prompt.ID,
		Status:       GenerationFailed,
		ErrorMessage: "provider down",
		Attempts:     3,
	})
	if err != nil {
		t.Fatalf("RecordGeneration() error = %v", err)
	}

	records, err := s.GenerationHistory(ctx, prompt.ID, 0)
	if err != nil {
		t.Fatalf("GenerationHistory() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Status != GenerationFailed {
		t.Errorf("newest record status = %q, want failed", records[0].Status)
	}
	if records[1].Duration != 42*time.Second {
		t.Errorf("Duration = %v, want 42s", records[1].Duration)
	}

	if err := s.DeletePrompt(ctx, prompt.ID); err != nil {
		t.Fatalf("DeletePrompt() error = %v", err)
	}
	records, err = s.GenerationHistory(ctx, prompt.ID, 0)
	if err != nil {
		t.Fatalf("GenerationHistory() after delete error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("history survived prompt deletion: %d records", len(records))
	}
}

func TestSeedDefaultPromptsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.SeedDefaultPrompts(ctx); err != nil {
		t.Fatalf("SeedDefaultPrompts() error = %v", err)
	}
	prompts, err := s.Prompts(ctx)
	if err != nil {
		t.Fatalf("Prompts() error = %v", err)
	}
	if len(prompts) == 0 {
		t.Fatal("seeding inserted no prompts")
	}
	seeded := len(prompts)

	selected, err := s.SelectedPromptID(ctx)
	if err != nil {
		t.Fatalf("SelectedPromptID() error = %v", err)
	}
	if selected != prompts[0].ID {
		t.Errorf("selected = %q, want first seeded prompt %q", selected, prompts[0].ID)
	}

	// Second run is a no-op, even after deletions.
	if err := s.SeedDefaultPrompts(ctx); err != nil {
		t.Fatalf("SeedDefaultPrompts() second run error = %v", err)
	}
	prompts, _ = s.Prompts(ctx)
	if len(prompts) != seeded {
		t.Errorf("second seed changed prompt count: %d -> %d", seeded, len(prompts))
	}
}
