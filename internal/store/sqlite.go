package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tmparker/opendrill/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

const statsKey = "main"

// SQLite is the durable Store backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*SQLite, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &SQLite{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cards (
			id TEXT PRIMARY KEY,
			opening TEXT NOT NULL,
			state TEXT NOT NULL,
			stability REAL NOT NULL,
			difficulty REAL NOT NULL,
			reps INTEGER NOT NULL,
			lapses INTEGER NOT NULL,
			interval INTEGER NOT NULL,
			last_review TEXT NOT NULL,
			due TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS reviews (
			id INTEGER PRIMARY KEY,
			position_id TEXT NOT NULL,
			opening TEXT NOT NULL,
			san TEXT NOT NULL,
			correct INTEGER NOT NULL,
			at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			mode TEXT NOT NULL,
			opening TEXT NOT NULL,
			rounds INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			wrong INTEGER NOT NULL,
			score INTEGER NOT NULL,
			best_streak INTEGER NOT NULL,
			at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS stats (
			id TEXT PRIMARY KEY,
			high_score INTEGER NOT NULL,
			total_correct INTEGER NOT NULL,
			total_wrong INTEGER NOT NULL,
			total_sessions INTEGER NOT NULL,
			total_reviews INTEGER NOT NULL,
			streak_record INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_cards_opening ON cards(opening);`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_position ON reviews(position_id);`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_opening ON reviews(opening);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_at ON sessions(at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Card returns the stored card for a position id.
func (s *SQLite) Card(ctx context.Context, id string) (model.Card, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, opening, state, stability, difficulty, reps, lapses, interval, last_review, due
		 FROM cards WHERE id = ?`, id)
	card, err := scanCard(row)
	if err == sql.ErrNoRows {
		return model.Card{}, false, nil
	}
	if err != nil {
		return model.Card{}, false, err
	}
	return card, true, nil
}

// PutCard upserts a card by id.
func (s *SQLite) PutCard(ctx context.Context, card model.Card) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cards (id, opening, state, stability, difficulty, reps, lapses, interval, last_review, due)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			opening = excluded.opening,
			state = excluded.state,
			stability = excluded.stability,
			difficulty = excluded.difficulty,
			reps = excluded.reps,
			lapses = excluded.lapses,
			interval = excluded.interval,
			last_review = excluded.last_review,
			due = excluded.due`,
		card.ID, card.Opening, string(card.State), card.Stability, card.Difficulty,
		card.Reps, card.Lapses, card.Interval,
		formatTime(card.LastReview), formatTime(card.Due))
	return err
}

// Cards returns all stored cards.
func (s *SQLite) Cards(ctx context.Context) ([]model.Card, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, opening, state, stability, difficulty, reps, lapses, interval, last_review, due FROM cards`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var cards []model.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cards, nil
}

// DueCards returns all cards eligible for review at the given time.
func (s *SQLite) DueCards(ctx context.Context, now time.Time) ([]model.Card, error) {
	cards, err := s.Cards(ctx)
	if err != nil {
		return nil, err
	}
	return due(cards, now), nil
}

// Stats returns the singleton global stats record, zero when absent.
func (s *SQLite) Stats(ctx context.Context) (model.GlobalStats, error) {
	stats, err := statsTx(ctx, s.db, statsKey)
	if err != nil {
		return model.GlobalStats{}, err
	}
	return stats, nil
}

// PutStats overwrites the singleton global stats record.
func (s *SQLite) PutStats(ctx context.Context, stats model.GlobalStats) error {
	return putStatsTx(ctx, s.db, stats)
}

// AppendReview appends one review-log entry.
func (s *SQLite) AppendReview(ctx context.Context, entry model.ReviewEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reviews (position_id, opening, san, correct, at) VALUES (?, ?, ?, ?, ?)`,
		entry.PositionID, entry.Opening, entry.SAN, boolToInt(entry.Correct), formatTime(entry.At))
	return err
}

// Reviews returns the full review log in insertion order.
func (s *SQLite) Reviews(ctx context.Context) ([]model.ReviewEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, position_id, opening, san, correct, at FROM reviews ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var entries []model.ReviewEntry
	for rows.Next() {
		var entry model.ReviewEntry
		var correct int
		var at string
		if err := rows.Scan(&entry.ID, &entry.PositionID, &entry.Opening, &entry.SAN, &correct, &at); err != nil {
			return nil, err
		}
		entry.Correct = correct != 0
		entry.At, err = parseTime(at)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// AppendSession appends one session record.
func (s *SQLite) AppendSession(ctx context.Context, rec model.SessionRecord) error {
	return appendSessionTx(ctx, s.db, rec)
}

// Sessions returns all session records in insertion order.
func (s *SQLite) Sessions(ctx context.Context) ([]model.SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, opening, rounds, correct, wrong, score, best_streak, at FROM sessions ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var records []model.SessionRecord
	for rows.Next() {
		var rec model.SessionRecord
		var mode, at string
		if err := rows.Scan(&rec.ID, &mode, &rec.Opening, &rec.Rounds, &rec.Correct, &rec.Wrong, &rec.Score, &rec.BestStreak, &at); err != nil {
			return nil, err
		}
		rec.Mode = model.Mode(mode)
		rec.At, err = parseTime(at)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// FinishSession merges the record into global stats and appends it to the
// session log in a single transaction.
func (s *SQLite) FinishSession(ctx context.Context, rec model.SessionRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	stats, err := statsTx(ctx, tx, statsKey)
	if err != nil {
		return err
	}
	stats.Apply(rec)
	if err = putStatsTx(ctx, tx, stats); err != nil {
		return err
	}
	if err = appendSessionTx(ctx, tx, rec); err != nil {
		return err
	}
	return tx.Commit()
}

// ClearAll wipes all four stores.
func (s *SQLite) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	for _, table := range []string{"cards", "reviews", "sessions", "stats"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func statsTx(ctx context.Context, q execQuerier, key string) (model.GlobalStats, error) {
	var stats model.GlobalStats
	row := q.QueryRowContext(ctx,
		`SELECT high_score, total_correct, total_wrong, total_sessions, total_reviews, streak_record
		 FROM stats WHERE id = ?`, key)
	err := row.Scan(&stats.HighScore, &stats.TotalCorrect, &stats.TotalWrong,
		&stats.TotalSessions, &stats.TotalReviews, &stats.StreakRecord)
	if err == sql.ErrNoRows {
		return model.GlobalStats{}, nil
	}
	if err != nil {
		return model.GlobalStats{}, err
	}
	return stats, nil
}

func putStatsTx(ctx context.Context, q execQuerier, stats model.GlobalStats) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO stats (id, high_score, total_correct, total_wrong, total_sessions, total_reviews, streak_record)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			high_score = excluded.high_score,
			total_correct = excluded.total_correct,
			total_wrong = excluded.total_wrong,
			total_sessions = excluded.total_sessions,
			total_reviews = excluded.total_reviews,
			streak_record = excluded.streak_record`,
		statsKey, stats.HighScore, stats.TotalCorrect, stats.TotalWrong,
		stats.TotalSessions, stats.TotalReviews, stats.StreakRecord)
	return err
}

func appendSessionTx(ctx context.Context, q execQuerier, rec model.SessionRecord) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO sessions (mode, opening, rounds, correct, wrong, score, best_streak, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(rec.Mode), rec.Opening, rec.Rounds, rec.Correct, rec.Wrong,
		rec.Score, rec.BestStreak, formatTime(rec.At))
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (model.Card, error) {
	var card model.Card
	var state, lastReview, dueAt string
	if err := row.Scan(&card.ID, &card.Opening, &state, &card.Stability, &card.Difficulty,
		&card.Reps, &card.Lapses, &card.Interval, &lastReview, &dueAt); err != nil {
		return model.Card{}, err
	}
	card.State = model.CardState(state)
	var err error
	card.LastReview, err = parseTime(lastReview)
	if err != nil {
		return model.Card{}, err
	}
	card.Due, err = parseTime(dueAt)
	if err != nil {
		return model.Card{}, err
	}
	return card, nil
}

// Zero times are stored as empty strings so "never reviewed" and
// "immediately due" survive round-trips.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse stored time %q: %w", s, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
