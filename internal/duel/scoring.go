package duel

import (
	"context"
	"fmt"

	"github.com/Hippes/valentine-duel-bot/internal/models"
)

// scoreSide grades one participant's guesses against the opponent's declared
// profile answers and returns the weighted total.
//
// A guess is correct iff it exactly equals the opponent's stored answer for
// the same question; a missing opponent answer scores zero rather than
// failing, and a missing question record falls back to weight 1. Each graded
// guess row gets its is_correct and points_earned written. The whole
// computation is a pure function of its inputs, so re-running it before the
// duel completes writes the same values.
func (s *Service) scoreSide(ctx context.Context, d *models.Duel, userID, opponentID int64) (int, error) {
	guesses, err := s.repos.Guesses.GetGuesses(ctx, d.ID, userID)
	if err != nil {
		return 0, fmt.Errorf("fetch guesses: %w", err)
	}

	opponentAnswers, err := s.repos.Profile.GetProfileAnswers(ctx, opponentID)
	if err != nil {
		return 0, fmt.Errorf("fetch opponent answers: %w", err)
	}
	answerKey := make(map[int64]string, len(opponentAnswers))
	for _, a := range opponentAnswers {
		answerKey[a.QuestionID] = a.Answer
	}

	total := 0
	for _, g := range guesses {
		truth, ok := answerKey[g.QuestionID]
		correct := ok && g.GuessedAnswer == truth

		points := 0
		if correct {
			points = 1
			if q, err := s.repos.Questions.GetQuestion(ctx, g.QuestionID); err == nil && q != nil && q.Weight > 0 {
				points = q.Weight
			}
			total += points
		}

		if err := s.repos.Guesses.ScoreGuess(ctx, g.ID, correct, points); err != nil {
			return 0, fmt.Errorf("score guess %s: %w", g.ID, err)
		}
	}
	return total, nil
}
