package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Hippes/valentine-duel-bot/internal/duel"
	"github.com/Hippes/valentine-duel-bot/internal/models"
)

// uniqueViolation is the Postgres error code for a unique constraint breach.
const uniqueViolation = "23505"

// CreateGuess inserts a guess row. The (duel_id, user_id, question_id)
// unique constraint turns a duplicate submission into ErrDuplicateGuess.
func (r *Repo) CreateGuess(ctx context.Context, g *models.DuelGuess) error {
	q := `
	INSERT INTO duel_guesses (id, duel_id, user_id, question_id, guessed_answer)
	VALUES ($1, $2, $3, $4, $5)
	`
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, g.ID, g.DuelID, g.UserID, g.QuestionID, g.GuessedAnswer)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return duel.ErrDuplicateGuess
		}
		return fmt.Errorf("insert guess: %w", err)
	}
	return nil
}

func (r *Repo) GetGuesses(ctx context.Context, duelID uuid.UUID, userID int64) ([]models.DuelGuess, error) {
	q := `
	SELECT id, duel_id, user_id, question_id, guessed_answer, is_correct, points_earned
	FROM duel_guesses
	WHERE duel_id=$1 AND user_id=$2
	ORDER BY id
	`
	rows, err := r.pool.Query(ctx, q, duelID, userID)
	if err != nil {
		return nil, fmt.Errorf("select guesses: %w", err)
	}
	defer rows.Close()

	var guesses []models.DuelGuess
	for rows.Next() {
		var g models.DuelGuess
		err := rows.Scan(&g.ID, &g.DuelID, &g.UserID, &g.QuestionID, &g.GuessedAnswer, &g.IsCorrect, &g.PointsEarned)
		if err != nil {
			return nil, fmt.Errorf("scan guess: %w", err)
		}
		guesses = append(guesses, g)
	}
	return guesses, rows.Err()
}

func (r *Repo) CountGuesses(ctx context.Context, duelID uuid.UUID, userID int64) (int, error) {
	var count int
	q := `SELECT COUNT(*) FROM duel_guesses WHERE duel_id=$1 AND user_id=$2`
	if err := r.pool.QueryRow(ctx, q, duelID, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count guesses: %w", err)
	}
	return count, nil
}

func (r *Repo) ScoreGuess(ctx context.Context, guessID uuid.UUID, correct bool, points int) error {
	q := `
	UPDATE duel_guesses
	SET is_correct=$1, points_earned=$2
	WHERE id=$3
	`
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, correct, points, guessID)
		return err
	})
}
