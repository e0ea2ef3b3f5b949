package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// IsDisliked reports whether any record carries the track's URI.
func (dm *DatabaseManager) IsDisliked(ctx context.Context, track Track) (bool, error) {
	if track.URI == "" {
		return false, nil
	}

	var exists int
	err := dm.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM dislikes WHERE uri = ?)", track.URI).Scan(&exists)
	if err != nil {
		return false, dm.fail("is disliked", err, zap.String("uri", track.URI))
	}
	return exists == 1, nil
}

// Set stores a dislike for track. Repeating it refreshes the name and keeps
// the original creation time.
func (dm *DatabaseManager) Set(ctx context.Context, kind Kind, track Track) error {
	if err := validate(kind, track.URI); err != nil {
		return err
	}

	now := dm.now().Unix()
	_, err := dm.DB.ExecContext(ctx, `
		INSERT INTO dislikes (kind, uri, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(kind, uri) DO UPDATE SET
			name = excluded.name,
			updated_at = excluded.updated_at
	`, string(kind), track.URI, track.Name, now, now)
	if err != nil {
		return dm.fail("set", err, zap.String("uri", track.URI))
	}

	dm.logger.Debug("Dislike set", zap.String("kind", string(kind)), zap.String("uri", track.URI), zap.String("name", track.Name))
	return nil
}

// Unset removes the record for (kind, uri). Missing records are not an error.
func (dm *DatabaseManager) Unset(ctx context.Context, kind Kind, uri string) error {
	if err := validate(kind, uri); err != nil {
		return err
	}

	res, err := dm.DB.ExecContext(ctx, "DELETE FROM dislikes WHERE kind = ? AND uri = ?", string(kind), uri)
	if err != nil {
		return dm.fail("unset", err, zap.String("uri", uri))
	}

	if n, err := res.RowsAffected(); err == nil {
		dm.logger.Debug("Dislike unset", zap.String("uri", uri), zap.Int64("removed", n))
	}
	return nil
}

// Find returns one page of records whose name contains name. limit <= 0
// falls back to DefaultFindLimit and page < 1 to the first page.
func (dm *DatabaseManager) Find(ctx context.Context, limit, page int, name string) ([]Entity, error) {
	query, args := NewFindQueryBuilder(name).
		WithCasePolicy(dm.casePolicy).
		WithPage(limit, page).
		Build()

	rows, err := dm.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dm.fail("find", err, zap.String("name", name))
	}
	defer rows.Close()

	var entities []Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, dm.fail("find", err)
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dm.fail("find", err)
	}

	return entities, nil
}

// Count returns how many records match the name filter.
func (dm *DatabaseManager) Count(ctx context.Context, name string) (int, error) {
	query, args := NewFindQueryBuilder(name).WithCasePolicy(dm.casePolicy).BuildCount()

	var n int
	if err := dm.DB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, dm.fail("count", err)
	}
	return n, nil
}

// Get returns the record for (kind, uri), or nil when there is none.
func (dm *DatabaseManager) Get(ctx context.Context, kind Kind, uri string) (*Entity, error) {
	row := dm.DB.QueryRowContext(ctx, `
		SELECT id, kind, uri, name, created_at, COALESCE(updated_at, created_at)
		FROM dislikes
		WHERE kind = ? AND uri = ?
	`, string(kind), uri)

	e, err := scanEntity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, dm.fail("get", err, zap.String("uri", uri))
	}
	return &e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntity(s scanner) (Entity, error) {
	var e Entity
	var kind string
	var created, updated int64
	if err := s.Scan(&e.ID, &kind, &e.URI, &e.Name, &created, &updated); err != nil {
		return Entity{}, err
	}
	e.Kind = Kind(kind)
	e.CreatedAt = time.Unix(created, 0)
	e.UpdatedAt = time.Unix(updated, 0)
	return e, nil
}

func validate(kind Kind, uri string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEntity, kind)
	}
	if uri == "" {
		return fmt.Errorf("%w: empty uri", ErrInvalidEntity)
	}
	return nil
}

func (dm *DatabaseManager) fail(op string, err error, fields ...zap.Field) error {
	dm.logger.Warn("Dislike store operation failed", append(fields, zap.String("op", op), zap.Error(err))...)
	return storeError(op, err)
}
