package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Hippes/valentine-duel-bot/internal/models"
)

func (r *Repo) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	q := `
	SELECT id, COALESCE(username, ''), privacy_accepted, created_at
	FROM users
	WHERE id=$1
	`
	err := r.pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.Username, &u.PrivacyAccepted, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

func (r *Repo) GetOrCreateUser(ctx context.Context, id int64, username string) (*models.User, error) {
	q := `
	INSERT INTO users (id, username)
	VALUES ($1, NULLIF($2, ''))
	ON CONFLICT (id)
	DO UPDATE SET username = COALESCE(NULLIF(EXCLUDED.username, ''), users.username)
	`
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, id, username)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return r.GetUser(ctx, id)
}

func (r *Repo) SetPrivacyAccepted(ctx context.Context, id int64) error {
	q := `UPDATE users SET privacy_accepted=TRUE WHERE id=$1`
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, id)
		return err
	})
}

// FindUserByHandle resolves a normalized handle with tolerant matching: the
// exact case-folded match is preferred, then the oldest case-insensitive
// substring match.
func (r *Repo) FindUserByHandle(ctx context.Context, handle string) (*models.User, error) {
	if handle == "" {
		return nil, nil
	}
	var u models.User
	q := `
	SELECT id, COALESCE(username, ''), privacy_accepted, created_at
	FROM users
	WHERE username ILIKE '%' || $1 || '%'
	ORDER BY (LOWER(username) = $1) DESC, created_at ASC
	LIMIT 1
	`
	err := r.pool.QueryRow(ctx, q, handle).Scan(&u.ID, &u.Username, &u.PrivacyAccepted, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by handle: %w", err)
	}
	return &u, nil
}
