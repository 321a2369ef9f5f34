package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Prompt is a user-authored wallpaper prompt template.
type Prompt struct {
	ID          string
	Text        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	GeneratedAt *time.Time
}

// Location is the configured place wallpapers are generated for. The id
// changes whenever the location is replaced, which downstream caches key
// on.
type Location struct {
	ID        int64
	Name      string
	Country   string
	Timezone  string
	Latitude  float64
	Longitude float64
}

// GenerationRecord is one row of generation history.
type GenerationRecord struct {
	ID           int64
	PromptID     string
	Status       string
	ErrorMessage string
	Attempts     int
	Duration     time.Duration
	CreatedAt    time.Time
}

// Generation history statuses.
const (
	GenerationSucceeded = "succeeded"
	GenerationFailed    = "failed"
	GenerationCanceled  = "canceled"
)

// ErrPromptNotFound is returned when a prompt id does not exist.
var ErrPromptNotFound = errors.New("store: prompt not found")

// selectedPromptKey is the settings row naming the active prompt.
const selectedPromptKey = "selected_prompt"

// Store is the SQLite-backed persistence layer.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and applies
// pending migrations.
func Open(path string) (*Store, error) {
	db, err := openConnection(DefaultConnectionConfig(path))
	if err != nil {
		return nil, err
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreatePrompt inserts a new prompt and returns it with a generated id.
func (s *Store) CreatePrompt(ctx context.Context, text string) (*Prompt, error) {
	prompt := &Prompt{
		ID:        uuid.NewString(),
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	prompt.UpdatedAt = prompt.CreatedAt

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prompts (id, text, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		prompt.ID, prompt.Text, prompt.CreatedAt, prompt.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: failed to insert prompt: %w", err)
	}
	return prompt, nil
}

// Prompt fetches one prompt by id.
func (s *Store) Prompt(ctx context.Context, id string) (*Prompt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, text, created_at, updated_at, generated_at FROM prompts WHERE id = ?`, id)

	var prompt Prompt
	err := row.Scan(&prompt.ID, &prompt.Text, &prompt.CreatedAt, &prompt.UpdatedAt, &prompt.GeneratedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPromptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: failed to fetch prompt %s: %w", id, err)
	}
	return &prompt, nil
}

// Prompts lists all prompts, oldest first.
func (s *Store) Prompts(ctx context.Context) ([]Prompt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, created_at, updated_at, generated_at FROM prompts ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("store: failed to list prompts: %w", err)
	}
	defer rows.Close()

	var prompts []Prompt
	for rows.Next() {
		var prompt Prompt
		if err := rows.Scan(&prompt.ID, &prompt.Text, &prompt.CreatedAt, &prompt.UpdatedAt, &prompt.GeneratedAt); err != nil {
			return nil, fmt.Errorf("store: failed to scan prompt: %w", err)
		}
		prompts = append(prompts, prompt)
	}
	return prompts, rows.Err()
}

// UpdatePromptText replaces a prompt's template text.
func (s *Store) UpdatePromptText(ctx context.Context, id, text string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE prompts SET text = ?, updated_at = ? WHERE id = ?`,
		text, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("store: failed to update prompt %s: %w", id, err)
	}
	return requireRow(result)
}

// SetGeneratedAt stamps a prompt with its latest successful generation
// time.
func (s *Store) SetGeneratedAt(ctx context.Context, id string, generatedAt time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE prompts SET generated_at = ? WHERE id = ?`, generatedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("store: failed to stamp prompt %s: %w", id, err)
	}
	return requireRow(result)
}

// DeletePrompt removes a prompt and, via cascade, its generation history.
func (s *Store) DeletePrompt(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM prompts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: failed to delete prompt %s: %w", id, err)
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrPromptNotFound
	}
	return nil
}

// SelectedPromptID returns the id of the active prompt, or empty when none
// is selected.
func (s *Store) SelectedPromptID(ctx context.Context) (string, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, selectedPromptKey)

	var id string
	err := row.Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: failed to read selected prompt: %w", err)
	}
	return id, nil
}

// SetSelectedPrompt marks a prompt as the active one.
func (s *Store) SetSelectedPrompt(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		selectedPromptKey, id)
	if err != nil {
		return fmt.Errorf("store: failed to set selected prompt: %w", err)
	}
	return nil
}

// Location returns the configured location, or nil when none is set.
func (s *Store) Location(ctx context.Context) (*Location, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, country, timezone, latitude, longitude
		 FROM location ORDER BY id DESC LIMIT 1`)

	var location Location
	err := row.Scan(&location.ID, &location.Name, &location.Country,
		&location.Timezone, &location.Latitude, &location.Longitude)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: failed to read location: %w", err)
	}
	return &location, nil
}

// SetLocation replaces the configured location. The new row gets a fresh
// id so location-keyed caches invalidate themselves.
func (s *Store) SetLocation(ctx context.Context, location Location) (*Location, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM location`); err != nil {
		return nil, fmt.Errorf("store: failed to clear location: %w", err)
	}
	result, err := tx.ExecContext(ctx,
		`INSERT INTO location (name, country, timezone, latitude, longitude)
		 VALUES (?, ?, ?, ?, ?)`,
		location.Name, location.Country, location.Timezone, location.Latitude, location.Longitude)
	if err != nil {
		return nil, fmt.Errorf("store: failed to insert location: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: failed to read location id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: failed to commit location: %w", err)
	}

	location.ID = id
	return &location, nil
}

// RecordGeneration appends one generation attempt to the history.
func (s *Store) RecordGeneration(ctx context.Context, record GenerationRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generation_history (prompt_id, status, error_message, attempts, duration_ms)
		 VALUES (?, ?, ?, ?, ?)`,
		record.PromptID, record.Status, record.ErrorMessage, record.Attempts,
		record.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("store: failed to record generation: %w", err)
	}
	return nil
}

// GenerationHistory lists a prompt's attempts, newest first.
func (s *Store) GenerationHistory(ctx context.Context, promptID string, limit int) ([]GenerationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, prompt_id, status, error_message, attempts, duration_ms, created_at
		 FROM generation_history WHERE prompt_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`, promptID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: failed to list history: %w", err)
	}
	defer rows.Close()

	var records []GenerationRecord
	for rows.Next() {
		var record GenerationRecord
		var durationMS int64
		if err := rows.Scan(&record.ID, &record.PromptID, &record.Status,
			&record.ErrorMessage, &record.Attempts, &durationMS, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: failed to scan history row: %w", err)
		}
		record.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, record)
	}
	return records, rows.Err()
}
