package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kalambet/draftsmith/internal/apperr"
	"github.com/kalambet/draftsmith/internal/style"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding style profiles, the draft history
// and the learning log.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "draftsmith.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Style profiles ---

// LoadProfile returns the stored profile for userID. A missing profile is
// NotFound; a row that does not decode is CorruptProfile.
func (s *Store) LoadProfile(userID string) (style.Profile, error) {
	var data string
	err := s.db.QueryRow("SELECT data FROM style_profiles WHERE user_id = ?", userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return style.Profile{}, apperr.Wrap(ErrNotFound, apperr.NotFound, "no style profile for %q", userID)
	}
	if err != nil {
		return style.Profile{}, fmt.Errorf("loading profile %s: %w", userID, err)
	}

	var p style.Profile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return style.Profile{}, apperr.Wrap(err, apperr.CorruptProfile, "profile %q is not valid JSON", userID)
	}
	if p.UserID == "" {
		p.UserID = userID
	}
	return p, nil
}

// SaveProfile inserts or replaces the profile stored under p.UserID.
func (s *Store) SaveProfile(p style.Profile) error {
	if p.UserID == "" {
		return apperr.New(apperr.InvalidRequest, "profile has no user id")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	updated := p.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err = s.db.Exec(`
		INSERT INTO style_profiles (user_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		p.UserID, string(data), formatTime(updated),
	)
	return err
}

// DeleteProfile removes a profile. Deleting a missing profile is NotFound.
func (s *Store) DeleteProfile(userID string) error {
	res, err := s.db.Exec("DELETE FROM style_profiles WHERE user_id = ?", userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.Wrap(ErrNotFound, apperr.NotFound, "no style profile for %q", userID)
	}
	return nil
}

// ListProfiles returns the stored user ids in ascending order.
func (s *Store) ListProfiles() ([]string, error) {
	rows, err := s.db.Query("SELECT user_id FROM style_profiles ORDER BY user_id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- Drafts ---

const draftColumns = `id, user_id, created_at, topic, recipient, subject, body, template_id, category, style_adapted, intent_source`

func (s *Store) SaveDraft(d Draft) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO drafts (`+draftColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.UserID, formatTime(d.CreatedAt), d.Topic, d.Recipient, d.Subject, d.Body,
		d.TemplateID, d.Category, d.StyleAdapted, d.IntentSource,
	)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDraft(row scanner) (Draft, error) {
	var d Draft
	var createdAt string
	if err := row.Scan(&d.ID, &d.UserID, &createdAt, &d.Topic, &d.Recipient, &d.Subject, &d.Body,
		&d.TemplateID, &d.Category, &d.StyleAdapted, &d.IntentSource); err != nil {
		return Draft{}, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return Draft{}, fmt.Errorf("parsing created_at: %w", err)
	}
	d.CreatedAt = t
	return d, nil
}

func (s *Store) GetDraft(id string) (Draft, error) {
	d, err := scanDraft(s.db.QueryRow(`SELECT `+draftColumns+` FROM drafts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Draft{}, apperr.Wrap(ErrNotFound, apperr.NotFound, "no draft %q", id)
	}
	return d, err
}

// ListDrafts returns the newest drafts first. An empty userID lists every
// user's drafts.
func (s *Store) ListDrafts(userID string, limit int) ([]Draft, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + draftColumns + ` FROM drafts`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

// --- Learning log ---

func (s *Store) RecordLearning(e LearnEvent) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO learn_events (user_id, created_at, source, applied, skipped)
		VALUES (?, ?, ?, ?, ?)`,
		e.UserID, formatTime(e.CreatedAt), e.Source, e.Applied, e.Skipped,
	)
	return err
}

// LearningHistory returns the newest learning events for userID first.
func (s *Store) LearningHistory(userID string, limit int) ([]LearnEvent, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`
		SELECT user_id, created_at, source, applied, skipped
		FROM learn_events WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []LearnEvent
	for rows.Next() {
		var e LearnEvent
		var createdAt string
		if err := rows.Scan(&e.UserID, &createdAt, &e.Source, &e.Applied, &e.Skipped); err != nil {
			return nil, err
		}
		t, err := parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		e.CreatedAt = t
		results = append(results, e)
	}
	return results, rows.Err()
}
