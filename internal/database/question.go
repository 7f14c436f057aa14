package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Hippes/valentine-duel-bot/internal/models"
)

func (r *Repo) GetActiveQuestions(ctx context.Context) ([]models.Question, error) {
	q := `
	SELECT id, text, options, weight, is_active
	FROM questions
	WHERE is_active = TRUE
	ORDER BY id
	`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("select active questions: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *question)
	}
	return questions, rows.Err()
}

func (r *Repo) GetQuestion(ctx context.Context, id int64) (*models.Question, error) {
	q := `
	SELECT id, text, options, weight, is_active
	FROM questions
	WHERE id=$1
	`
	rows, err := r.pool.Query(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("select question: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("select question: %w", err)
		}
		return nil, nil
	}
	return scanQuestion(rows)
}

func scanQuestion(row pgx.Row) (*models.Question, error) {
	var q models.Question
	var optionsJSON []byte
	if err := row.Scan(&q.ID, &q.Text, &optionsJSON, &q.Weight, &q.IsActive); err != nil {
		return nil, fmt.Errorf("scan question: %w", err)
	}
	if err := json.Unmarshal(optionsJSON, &q.Options); err != nil {
		return nil, fmt.Errorf("decode question options: %w", err)
	}
	return &q, nil
}

// SeedQuestion inserts a catalog question. Used by seeding tooling, not by
// the engine, which treats the catalog as read-only.
func (r *Repo) SeedQuestion(ctx context.Context, text string, options []string, weight int, active bool) (int64, error) {
	optionsJSON, err := json.Marshal(options)
	if err != nil {
		return 0, fmt.Errorf("encode options: %w", err)
	}
	var id int64
	q := `
	INSERT INTO questions (text, options, weight, is_active)
	VALUES ($1, $2, $3, $4)
	RETURNING id
	`
	if err := r.pool.QueryRow(ctx, q, text, optionsJSON, weight, active).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert question: %w", err)
	}
	return id, nil
}
