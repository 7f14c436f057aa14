package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Hippes/valentine-duel-bot/internal/models"
)

const duelColumns = `id, user_a_id, user_b_id, status, selected_questions, score_a, score_b, created_at, completed_at`

func scanDuel(row pgx.Row) (*models.Duel, error) {
	var d models.Duel
	var selectedJSON []byte
	err := row.Scan(
		&d.ID, &d.UserAID, &d.UserBID, &d.Status, &selectedJSON,
		&d.ScoreA, &d.ScoreB, &d.CreatedAt, &d.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan duel: %w", err)
	}
	if len(selectedJSON) > 0 {
		if err := json.Unmarshal(selectedJSON, &d.SelectedQuestions); err != nil {
			return nil, fmt.Errorf("decode selected questions: %w", err)
		}
	}
	return &d, nil
}

func (r *Repo) CreateDuel(ctx context.Context, d *models.Duel) error {
	q := `
	INSERT INTO duels (id, user_a_id, user_b_id, status, created_at)
	VALUES ($1, $2, $3, $4, $5)
	`
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, d.ID, d.UserAID, d.UserBID, d.Status, d.CreatedAt)
		return err
	})
}

func (r *Repo) GetDuel(ctx context.Context, id uuid.UUID) (*models.Duel, error) {
	q := `SELECT ` + duelColumns + ` FROM duels WHERE id=$1`
	d, err := scanDuel(r.pool.QueryRow(ctx, q, id))
	if err != nil && errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

func (r *Repo) GetActiveDuelForUser(ctx context.Context, userID int64) (*models.Duel, error) {
	q := `
	SELECT ` + duelColumns + `
	FROM duels
	WHERE (user_a_id=$1 OR user_b_id=$1)
	  AND status IN ('pending', 'matched', 'active')
	ORDER BY created_at DESC
	LIMIT 1
	`
	d, err := scanDuel(r.pool.QueryRow(ctx, q, userID))
	if err != nil && errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

func (r *Repo) FindOpenInvitation(ctx context.Context, inviterID int64) (*models.Duel, error) {
	q := `
	SELECT ` + duelColumns + `
	FROM duels
	WHERE user_a_id=$1 AND user_b_id IS NULL AND status='pending'
	ORDER BY created_at DESC
	LIMIT 1
	`
	d, err := scanDuel(r.pool.QueryRow(ctx, q, inviterID))
	if err != nil && errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

// ClaimInvitation is the race-free half of reverse matching: the update only
// lands while the invitation is still pending and unclaimed, so of two
// concurrent claimants exactly one sees a row change.
func (r *Repo) ClaimInvitation(ctx context.Context, duelID uuid.UUID, userBID int64) (bool, error) {
	q := `
	UPDATE duels
	SET user_b_id=$1, status='matched'
	WHERE id=$2 AND status='pending' AND user_b_id IS NULL
	`
	var claimed bool
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, q, userBID, duelID)
		if err != nil {
			return err
		}
		claimed = ct.RowsAffected() == 1
		return nil
	})
	return claimed, err
}

func (r *Repo) ActivateDuel(ctx context.Context, duelID uuid.UUID, questionIDs []int64) (bool, error) {
	selectedJSON, err := json.Marshal(questionIDs)
	if err != nil {
		return false, fmt.Errorf("encode selected questions: %w", err)
	}
	q := `
	UPDATE duels
	SET status='active', selected_questions=$1
	WHERE id=$2 AND status='matched'
	`
	var activated bool
	err = pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, q, selectedJSON, duelID)
		if err != nil {
			return err
		}
		activated = ct.RowsAffected() == 1
		return nil
	})
	return activated, err
}

// CompleteDuel transitions active -> completed. The status predicate makes
// redundant completion attempts no-ops, which is how two racing "last guess"
// events resolve to a single completion.
func (r *Repo) CompleteDuel(ctx context.Context, duelID uuid.UUID, scoreA, scoreB int, completedAt time.Time) (bool, error) {
	q := `
	UPDATE duels
	SET status='completed', score_a=$1, score_b=$2, completed_at=$3
	WHERE id=$4 AND status='active'
	`
	var transitioned bool
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, q, scoreA, scoreB, completedAt, duelID)
		if err != nil {
			return err
		}
		transitioned = ct.RowsAffected() == 1
		return nil
	})
	return transitioned, err
}

func (r *Repo) CancelDuel(ctx context.Context, duelID uuid.UUID) (bool, error) {
	q := `
	UPDATE duels
	SET status='cancelled'
	WHERE id=$1 AND status IN ('pending', 'matched', 'active')
	`
	var cancelled bool
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, q, duelID)
		if err != nil {
			return err
		}
		cancelled = ct.RowsAffected() == 1
		return nil
	})
	return cancelled, err
}

// ListStaleDuels returns non-terminal duels created before the cutoff, for
// the expiry sweep.
func (r *Repo) ListStaleDuels(ctx context.Context, cutoff time.Time) ([]models.Duel, error) {
	q := `
	SELECT ` + duelColumns + `
	FROM duels
	WHERE status IN ('pending', 'matched', 'active') AND created_at < $1
	ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, q, cutoff)
	if err != nil {
		return nil, fmt.Errorf("select stale duels: %w", err)
	}
	defer rows.Close()

	var duels []models.Duel
	for rows.Next() {
		d, err := scanDuel(rows)
		if err != nil {
			return nil, err
		}
		duels = append(duels, *d)
	}
	return duels, rows.Err()
}

func (r *Repo) ListDuelsForUser(ctx context.Context, userID int64) ([]models.Duel, error) {
	q := `
	SELECT ` + duelColumns + `
	FROM duels
	WHERE user_a_id=$1 OR user_b_id=$1
	ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("select duels: %w", err)
	}
	defer rows.Close()

	var duels []models.Duel
	for rows.Next() {
		d, err := scanDuel(rows)
		if err != nil {
			return nil, err
		}
		duels = append(duels, *d)
	}
	return duels, rows.Err()
}
