// Package store persists video and translation records as JSON documents in
// SQLite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"subtide/internal/config"
	"subtide/internal/media"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; existing databases must be recreated.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store manages record persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the record database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.DataDir, "subtide.db"))
}

// OpenPath connects to the database at the given path and applies the
// schema.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to recreate)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// SaveVideo inserts or replaces the full record for a video.
func (s *Store) SaveVideo(ctx context.Context, video *media.Video) error {
	doc, err := json.Marshal(video)
	if err != nil {
		return fmt.Errorf("marshal video %s: %w", video.ID, err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO videos (id, doc, updated_at) VALUES (?, ?, ?)
         ON CONFLICT (id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		video.ID, string(doc), now,
	)
	if err != nil {
		return fmt.Errorf("save video %s: %w", video.ID, err)
	}
	return nil
}

// GetVideo returns the record for the id, or nil when no record exists.
func (s *Store) GetVideo(ctx context.Context, id string) (*media.Video, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, "SELECT doc FROM videos WHERE id = ?", id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get video %s: %w", id, err)
	}

	var video media.Video
	if err := json.Unmarshal([]byte(doc), &video); err != nil {
		return nil, fmt.Errorf("decode video %s: %w", id, err)
	}
	return &video, nil
}

// ListVideos returns all records ordered by most recently updated.
func (s *Store) ListVideos(ctx context.Context) ([]*media.Video, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT doc FROM videos ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var videos []*media.Video
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan video row: %w", err)
		}
		var video media.Video
		if err := json.Unmarshal([]byte(doc), &video); err != nil {
			return nil, fmt.Errorf("decode video row: %w", err)
		}
		videos = append(videos, &video)
	}
	return videos, rows.Err()
}

// DeleteVideo removes the record and its translations. It reports whether a
// record existed.
func (s *Store) DeleteVideo(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM videos WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete video %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete video %s: %w", id, err)
	}
	return affected > 0, nil
}

// SaveTranslation upserts the translated subtitle set for one video and
// language.
func (s *Store) SaveTranslation(ctx context.Context, videoID string, translation *media.Translation) error {
	lang := strings.ToLower(translation.Language)
	doc, err := json.Marshal(translation)
	if err != nil {
		return fmt.Errorf("marshal translation %s/%s: %w", videoID, lang, err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO translations (video_id, language, doc, updated_at) VALUES (?, ?, ?, ?)
         ON CONFLICT (video_id, language) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		videoID, lang, string(doc), now,
	)
	if err != nil {
		return fmt.Errorf("save translation %s/%s: %w", videoID, lang, err)
	}
	return nil
}

// GetTranslation returns the stored translation for the video and language,
// or nil when none exists.
func (s *Store) GetTranslation(ctx context.Context, videoID, lang string) (*media.Translation, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		"SELECT doc FROM translations WHERE video_id = ? AND language = ?",
		videoID, strings.ToLower(lang),
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get translation %s/%s: %w", videoID, lang, err)
	}

	var translation media.Translation
	if err := json.Unmarshal([]byte(doc), &translation); err != nil {
		return nil, fmt.Errorf("decode translation %s/%s: %w", videoID, lang, err)
	}
	return &translation, nil
}

// ListTranslationLanguages returns the languages with stored translations
// for the video, sorted.
func (s *Store) ListTranslationLanguages(ctx context.Context, videoID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT language FROM translations WHERE video_id = ?", videoID)
	if err != nil {
		return nil, fmt.Errorf("list translations %s: %w", videoID, err)
	}
	defer rows.Close()

	var langs []string
	for rows.Next() {
		var lang string
		if err := rows.Scan(&lang); err != nil {
			return nil, fmt.Errorf("scan translation row: %w", err)
		}
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs, rows.Err()
}
