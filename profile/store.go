// Package profile persists who talked to which bot: one row per chat
// per persona, upserted on contact, with a start counter for /stats.
package profile

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/schedbot/core/logger"
)

// Profile is one chat's record for one persona.
type Profile struct {
	ChatID     int64     `db:"chat_id" json:"chatId"`
	Persona    string    `db:"persona" json:"-"`
	FirstName  string    `db:"first_name" json:"firstName"`
	LastName   string    `db:"last_name" json:"lastName"`
	Username   string    `db:"username" json:"-"`
	StartCount int       `db:"start_count" json:"startCount"`
	FirstSeen  time.Time `db:"first_seen" json:"-"`
	LastSeen   time.Time `db:"last_seen" json:"-"`
}

// Recorder is the write-and-count side the bot personas need.
type Recorder interface {
	RecordStart(ctx context.Context, p Profile) error
	Touch(ctx context.Context, p Profile) error
	Count(ctx context.Context, persona string) (int, error)
}

// Store is the Postgres-backed profile store.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// RecordStart upserts the profile and bumps its start counter. Called
// from /start; idempotent per the (chat_id, persona) key.
func (s *Store) RecordStart(ctx context.Context, p Profile) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (chat_id, persona, first_name, last_name, username, start_count, first_seen, last_seen)
		VALUES ($1, $2, $3, $4, $5, 1, now(), now())
		ON CONFLICT (chat_id, persona) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			username = EXCLUDED.username,
			start_count = profiles.start_count + 1,
			last_seen = now()`,
		p.ChatID, p.Persona, p.FirstName, p.LastName, p.Username,
	)
	logger.SVCProfiles.Debug("start recorded",
		slog.String("event", "profiles.record_start"),
		slog.Int64("chat_id", p.ChatID),
		slog.String("persona", p.Persona),
		slog.String("status", logger.Status(err)),
		slog.Duration("duration", logger.Took(start)),
	)
	if err != nil {
		return fmt.Errorf("profile: record start: %w", err)
	}
	return nil
}

// Touch upserts the profile without counting a start. Called on any
// inbound message so last_seen stays current.
func (s *Store) Touch(ctx context.Context, p Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (chat_id, persona, first_name, last_name, username, start_count, first_seen, last_seen)
		VALUES ($1, $2, $3, $4, $5, 0, now(), now())
		ON CONFLICT (chat_id, persona) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			username = EXCLUDED.username,
			last_seen = now()`,
		p.ChatID, p.Persona, p.FirstName, p.LastName, p.Username,
	)
	if err != nil {
		return fmt.Errorf("profile: touch: %w", err)
	}
	return nil
}

// List returns all profiles for one persona, most recent contact first.
func (s *Store) List(ctx context.Context, persona string) ([]Profile, error) {
	var out []Profile
	err := s.db.SelectContext(ctx, &out, `
		SELECT chat_id, persona, first_name, last_name, username, start_count, first_seen, last_seen
		FROM profiles WHERE persona = $1 ORDER BY last_seen DESC`,
		persona,
	)
	if err != nil {
		return nil, fmt.Errorf("profile: list: %w", err)
	}
	return out, nil
}

// Count returns how many distinct chats contacted the persona.
func (s *Store) Count(ctx context.Context, persona string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT count(*) FROM profiles WHERE persona = $1`, persona)
	if err != nil {
		return 0, fmt.Errorf("profile: count: %w", err)
	}
	return n, nil
}
