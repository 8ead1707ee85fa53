package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/safeping/relay/backend/internal/model/user"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for user profiles.
type Store struct {
	sqlDB *sql.DB
}

var _ user.Store = (*Store)(nil)

// Open opens and migrates the profile database at path. ":memory:" gives a
// private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := ":memory:"
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// Each new connection would otherwise see its own empty database.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Get loads a profile by email.
func (s *Store) Get(ctx context.Context, email string) (user.Profile, error) {
	email, err := user.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	profile, found, err := getProfile(ctx, s.sqlDB, email)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, user.ErrNotFound
	}
	return profile, nil
}

// List returns every profile ordered by email.
func (s *Store) List(ctx context.Context) ([]user.Profile, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT profile_json FROM users ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	profiles := make([]user.Profile, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		profile, err := decodeProfile(raw)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return profiles, nil
}

// Upsert merges fields into the profile, inserting it when missing.
func (s *Store) Upsert(ctx context.Context, email string, fields user.Profile) (user.WriteResult, error) {
	return s.write(ctx, email, fields, true)
}

// Update merges fields into an existing profile.
func (s *Store) Update(ctx context.Context, email string, fields user.Profile) (user.WriteResult, error) {
	return s.write(ctx, email, fields, false)
}

func (s *Store) write(ctx context.Context, email string, fields user.Profile, upsert bool) (user.WriteResult, error) {
	email, err := user.NormalizeEmail(email)
	if err != nil {
		return user.WriteResult{}, err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return user.WriteResult{}, fmt.Errorf("begin user write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, found, err := getProfile(ctx, tx, email)
	if err != nil {
		return user.WriteResult{}, err
	}
	if !found && !upsert {
		return user.WriteResult{}, nil
	}

	merged, changed := existing.Merge(email, fields)
	var result user.WriteResult
	switch {
	case !found:
		result = user.WriteResult{UpsertedCount: 1, UpsertedID: email}
	case changed:
		result = user.WriteResult{MatchedCount: 1, ModifiedCount: 1}
	default:
		return user.WriteResult{MatchedCount: 1}, nil
	}

	payload, err := json.Marshal(merged)
	if err != nil {
		return user.WriteResult{}, fmt.Errorf("encode user %s: %w", email, err)
	}
	now := time.Now().UTC().UnixMilli()
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO users (email, profile_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET
		    profile_json = excluded.profile_json,
		    updated_at = excluded.updated_at`,
		email, string(payload), now, now,
	); err != nil {
		return user.WriteResult{}, fmt.Errorf("put user %s: %w", email, err)
	}
	if err := tx.Commit(); err != nil {
		return user.WriteResult{}, fmt.Errorf("commit user %s: %w", email, err)
	}
	return result, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getProfile(ctx context.Context, q queryer, email string) (user.Profile, bool, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT profile_json FROM users WHERE email = ?`, email).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get user %s: %w", email, err)
	}
	profile, err := decodeProfile(raw)
	if err != nil {
		return nil, false, err
	}
	return profile, true, nil
}

func decodeProfile(raw string) (user.Profile, error) {
	var profile user.Profile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, fmt.Errorf("decode user profile: %w", err)
	}
	return profile, nil
}
