package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flemzord/scalegate/internal/gate"
	"github.com/flemzord/scalegate/internal/policy"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("sqlite: confirmation not found")

// Store persists resolved confirmations. It implements gate.Recorder.
type Store struct {
	db *sql.DB
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	SessionID string
	Status    gate.Status
	Limit     int
}

const defaultListLimit = 100

// Record implements gate.Recorder. Recording the same id twice keeps the
// latest state.
func (s *Store) Record(ctx context.Context, c gate.Confirmation) error {
	args, err := json.Marshal(c.Args)
	if err != nil {
		return fmt.Errorf("sqlite: encode args for %s: %w", c.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO confirmations
			(id, session_id, tool, tier, args, signature, ack_phrase, status, created_at, expires_at, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET status = excluded.status, resolved_at = excluded.resolved_at`,
		c.ID, c.SessionID, c.Tool, c.Tier.String(), string(args), c.Signature, c.AckPhrase,
		string(c.Status), formatTime(c.CreatedAt), formatTime(c.ExpiresAt), formatTime(c.ResolvedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: record %s: %w", c.ID, err)
	}
	return nil
}

// Get returns the recorded confirmation with the given id.
func (s *Store) Get(ctx context.Context, id string) (gate.Confirmation, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	c, err := scanConfirmation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return gate.Confirmation{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c, err
}

// List returns recorded confirmations matching f, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]gate.Confirmation, error) {
	var (
		where []string
		args  []any
	)
	if f.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, f.SessionID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += " ORDER BY created_at DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list confirmations: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only

	var out []gate.Confirmation
	for rows.Next() {
		c, err := scanConfirmation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Prune deletes confirmations resolved before cutoff and returns the count.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM confirmations WHERE resolved_at != '' AND resolved_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

const selectColumns = `SELECT id, session_id, tool, tier, args, signature, ack_phrase, status,
	created_at, expires_at, resolved_at FROM confirmations`

type scanner interface {
	Scan(dest ...any) error
}

func scanConfirmation(s scanner) (gate.Confirmation, error) {
	var (
		c                            gate.Confirmation
		tier, args, status           string
		created, expires, resolvedAt string
	)
	if err := s.Scan(&c.ID, &c.SessionID, &c.Tool, &tier, &args, &c.Signature, &c.AckPhrase,
		&status, &created, &expires, &resolvedAt); err != nil {
		return gate.Confirmation{}, err
	}
	var err error
	if c.Tier, err = policy.ParseRiskTier(tier); err != nil {
		return gate.Confirmation{}, fmt.Errorf("sqlite: %s: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(args), &c.Args); err != nil {
		return gate.Confirmation{}, fmt.Errorf("sqlite: decode args for %s: %w", c.ID, err)
	}
	c.Status = gate.Status(status)
	c.CreatedAt = parseTime(created)
	c.ExpiresAt = parseTime(expires)
	c.ResolvedAt = parseTime(resolvedAt)
	return c, nil
}

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
