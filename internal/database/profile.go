package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Hippes/valentine-duel-bot/internal/models"
)

func (r *Repo) SaveProfileAnswer(ctx context.Context, userID, questionID int64, answer string) error {
	q := `
	INSERT INTO profile_answers (user_id, question_id, answer, updated_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (user_id, question_id)
	DO UPDATE SET answer=EXCLUDED.answer, updated_at=NOW()
	`
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, userID, questionID, answer)
		return err
	})
}

func (r *Repo) GetProfileAnswers(ctx context.Context, userID int64) ([]models.ProfileAnswer, error) {
	q := `
	SELECT user_id, question_id, answer, updated_at
	FROM profile_answers
	WHERE user_id=$1
	ORDER BY question_id
	`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("select profile answers: %w", err)
	}
	defer rows.Close()

	var answers []models.ProfileAnswer
	for rows.Next() {
		var a models.ProfileAnswer
		if err := rows.Scan(&a.UserID, &a.QuestionID, &a.Answer, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan profile answer: %w", err)
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

func (r *Repo) GetProfileAnswer(ctx context.Context, userID, questionID int64) (*models.ProfileAnswer, error) {
	var a models.ProfileAnswer
	q := `
	SELECT user_id, question_id, answer, updated_at
	FROM profile_answers
	WHERE user_id=$1 AND question_id=$2
	`
	err := r.pool.QueryRow(ctx, q, userID, questionID).Scan(&a.UserID, &a.QuestionID, &a.Answer, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select profile answer: %w", err)
	}
	return &a, nil
}

func (r *Repo) CountProfileAnswers(ctx context.Context, userID int64) (int, error) {
	var count int
	q := `SELECT COUNT(*) FROM profile_answers WHERE user_id=$1`
	if err := r.pool.QueryRow(ctx, q, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count profile answers: %w", err)
	}
	return count, nil
}
