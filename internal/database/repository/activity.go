package repository

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ActivityRepo handles the activity journal.
type ActivityRepo struct {
	db DBTX
}

func NewActivityRepo(db DBTX) *ActivityRepo { return &ActivityRepo{db: db} }

// WithTx returns a repo bound to tx.
func (r *ActivityRepo) WithTx(tx *sql.Tx) *ActivityRepo { return &ActivityRepo{db: tx} }

func (r *ActivityRepo) Add(ctx context.Context, a Activity) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO activity(id, at, principal, method, target, outcome, message)
	VALUES (?, ?, ?, ?, ?, ?, ?);
	`, a.ID, a.At.UTC(), a.Principal, a.Method, a.Target, string(a.Outcome), a.Message)
	return err
}

// ListRecent returns the newest entries first. An empty principal lists everyone.
func (r *ActivityRepo) ListRecent(ctx context.Context, principal string, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, at, principal, method, target, outcome, message
	FROM activity
	WHERE (? = '' OR principal = ?)
	ORDER BY at DESC, rowid DESC
	LIMIT ?`, principal, principal, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Prune keeps the newest keep rows.
func (r *ActivityRepo) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
	DELETE FROM activity WHERE rowid NOT IN (
		SELECT rowid FROM activity ORDER BY at DESC, rowid DESC LIMIT ?
	)`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanActivity(s scanner) (*Activity, error) {
	var a Activity
	var outcome string
	if err := s.Scan(&a.ID, &a.At, &a.Principal, &a.Method, &a.Target, &outcome, &a.Message); err != nil {
		return nil, err
	}
	a.Outcome = Outcome(outcome)
	return &a, nil
}
