package schedule

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/m3rciful/schedbot/core/logger"
)

// pgUniqueViolation is the Postgres error code for unique constraint hits.
const pgUniqueViolation = "23505"

// PGStore keeps resources in the resources table, one store per kind.
// The unique index on (kind, name_key) enforces duplicate rejection at
// the database rather than by read-then-write.
type PGStore struct {
	db   *sqlx.DB
	kind Kind
}

type resourceRow struct {
	Name     string         `db:"name"`
	ImageExt sql.NullString `db:"image_ext"`
}

// NewPGStore returns a store scoped to one resource kind.
func NewPGStore(db *sqlx.DB, kind Kind) *PGStore {
	return &PGStore{db: db, kind: kind}
}

func (s *PGStore) Create(ctx context.Context, name string) (Resource, error) {
	name = NormalizeName(name)
	if err := validateName(name); err != nil {
		return Resource{}, err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO resources (kind, name, name_key) VALUES ($1, $2, $3)`,
		s.kind, name, NameKey(name),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			return Resource{}, ErrDuplicateName
		}
		return Resource{}, fmt.Errorf("schedule: insert resource: %w", err)
	}
	logger.SVCSchedule.Debug("resource created",
		slog.String("event", "store.create"),
		slog.String("kind", string(s.kind)),
		slog.String("name", name),
	)
	return Resource{Name: name}, nil
}

func (s *PGStore) Find(ctx context.Context, name string) (Resource, error) {
	var row resourceRow
	err := s.db.GetContext(ctx, &row,
		`SELECT name, image_ext FROM resources WHERE kind = $1 AND name_key = $2`,
		s.kind, NameKey(name),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Resource{}, ErrNotFound
	}
	if err != nil {
		return Resource{}, fmt.Errorf("schedule: find resource: %w", err)
	}
	return row.resource(), nil
}

func (s *PGStore) FindByToken(ctx context.Context, token string) ([]Resource, error) {
	var rows []resourceRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT name, image_ext FROM resources
		 WHERE kind = $1 AND name_key LIKE '%' || $2 || '%'
		 ORDER BY name`,
		s.kind, NameKey(token),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule: find by token: %w", err)
	}
	out := make([]Resource, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.resource())
	}
	return out, nil
}

func (s *PGStore) AttachImage(ctx context.Context, name, ext string, src io.Reader) (Resource, error) {
	if ext == "" {
		ext = DefaultImageExt
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return Resource{}, fmt.Errorf("schedule: read image: %w", err)
	}

	var row resourceRow
	err = s.db.GetContext(ctx, &row,
		`UPDATE resources SET image = $3, image_ext = $4, updated_at = now()
		 WHERE kind = $1 AND name_key = $2
		 RETURNING name, image_ext`,
		s.kind, NameKey(name), data, ext,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Resource{}, ErrNotFound
	}
	if err != nil {
		return Resource{}, fmt.Errorf("schedule: attach image: %w", err)
	}
	logger.SVCSchedule.Debug("image attached",
		slog.String("event", "store.attach"),
		slog.String("kind", string(s.kind)),
		slog.String("name", row.Name),
		slog.Int("bytes", len(data)),
	)
	return row.resource(), nil
}

func (s *PGStore) OpenImage(ctx context.Context, name string) (io.ReadCloser, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data,
		`SELECT image FROM resources
		 WHERE kind = $1 AND name_key = $2 AND image IS NOT NULL`,
		s.kind, NameKey(name),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("schedule: open image: %w", err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *PGStore) Rename(ctx context.Context, oldName, newName string) (Resource, error) {
	newName = NormalizeName(newName)
	if err := validateName(newName); err != nil {
		return Resource{}, err
	}

	var row resourceRow
	err := s.db.GetContext(ctx, &row,
		`UPDATE resources SET name = $3, name_key = $4, updated_at = now()
		 WHERE kind = $1 AND name_key = $2
		 RETURNING name, image_ext`,
		s.kind, NameKey(oldName), newName, NameKey(newName),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Resource{}, ErrNotFound
	}
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			return Resource{}, ErrDuplicateName
		}
		return Resource{}, fmt.Errorf("schedule: rename resource: %w", err)
	}
	return row.resource(), nil
}

// Delete removes the row; record and image live in the same row, so a
// single statement removes both.
func (s *PGStore) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM resources WHERE kind = $1 AND name_key = $2`,
		s.kind, NameKey(name),
	)
	if err != nil {
		return fmt.Errorf("schedule: delete resource: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	logger.SVCSchedule.Debug("resource deleted",
		slog.String("event", "store.delete"),
		slog.String("kind", string(s.kind)),
		slog.String("name", name),
	)
	return nil
}

func (s *PGStore) List(ctx context.Context) ([]Resource, error) {
	var rows []resourceRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT name, image_ext FROM resources WHERE kind = $1 ORDER BY name`,
		s.kind,
	)
	if err != nil {
		return nil, fmt.Errorf("schedule: list resources: %w", err)
	}
	out := make([]Resource, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.resource())
	}
	return out, nil
}

func (r resourceRow) resource() Resource {
	res := Resource{Name: r.Name}
	if r.ImageExt.Valid {
		res.ImageKey = r.Name + r.ImageExt.String
	}
	return res
}
