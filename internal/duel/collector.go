package duel

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Hippes/valentine-duel-bot/internal/models"
)

// GuessResult reports a participant's progress after a recorded guess, and
// carries the completed duel when this guess closed it out.
type GuessResult struct {
	NextQuestionIndex int              `json:"next_question_index"`
	NextQuestion      *models.Question `json:"next_question,omitempty"`
	Finished          bool             `json:"finished"`
	DuelCompleted     bool             `json:"duel_completed"`
	Duel              *models.Duel     `json:"duel,omitempty"`
}

// SubmitGuess records one guess for an active duel. A participant's progress
// is exactly their recorded guess count, so questions are answered in the
// duel's fixed order; a repeated (duel, user, question) submission is
// rejected, never overwritten.
//
// After recording, if both sides now have all five guesses, both scores are
// computed and the duel is completed. The completion itself is a conditional
// active -> completed update, so when both final guesses race, exactly one
// submission performs the transition; the scoring writes that both may run
// are idempotent.
func (s *Service) SubmitGuess(ctx context.Context, duelID uuid.UUID, userID, questionID int64, guessedAnswer string) (*GuessResult, error) {
	d, err := s.repos.Duels.GetDuel(ctx, duelID)
	if err != nil {
		return nil, fmt.Errorf("fetch duel: %w", err)
	}
	if d == nil {
		return nil, ErrDuelNotFound
	}
	if !d.IsParticipant(userID) {
		return nil, ErrNotAParticipant
	}
	if d.Status != models.DuelStatusActive {
		return nil, ErrIllegalStateTransition
	}
	if !d.HasQuestion(questionID) {
		return nil, ErrQuestionNotInDuel
	}

	id, _ := uuid.NewV7()
	guess := &models.DuelGuess{
		ID:            id,
		DuelID:        duelID,
		UserID:        userID,
		QuestionID:    questionID,
		GuessedAnswer: guessedAnswer,
	}
	if err := s.repos.Guesses.CreateGuess(ctx, guess); err != nil {
		return nil, err
	}

	count, err := s.repos.Guesses.CountGuesses(ctx, duelID, userID)
	if err != nil {
		return nil, fmt.Errorf("count guesses: %w", err)
	}

	result := &GuessResult{NextQuestionIndex: count, Duel: d}
	if count < models.QuestionsPerDuel {
		next, err := s.repos.Questions.GetQuestion(ctx, d.SelectedQuestions[count])
		if err != nil {
			return nil, fmt.Errorf("fetch next question: %w", err)
		}
		result.NextQuestion = next
		return result, nil
	}

	result.Finished = true
	completed, err := s.checkAndComplete(ctx, d)
	if err != nil {
		return nil, err
	}
	if completed != nil {
		result.DuelCompleted = true
		result.Duel = completed
	}
	return result, nil
}

// checkAndComplete finishes the duel if both participants have all five
// guesses. Returns (nil, nil) when the opponent is still playing or another
// submission already completed the duel.
func (s *Service) checkAndComplete(ctx context.Context, d *models.Duel) (*models.Duel, error) {
	opponentA := d.UserAID
	if d.UserBID == nil {
		return nil, nil
	}
	opponentB := *d.UserBID

	countA, err := s.repos.Guesses.CountGuesses(ctx, d.ID, opponentA)
	if err != nil {
		return nil, fmt.Errorf("count side A guesses: %w", err)
	}
	countB, err := s.repos.Guesses.CountGuesses(ctx, d.ID, opponentB)
	if err != nil {
		return nil, fmt.Errorf("count side B guesses: %w", err)
	}
	if countA < models.QuestionsPerDuel || countB < models.QuestionsPerDuel {
		return nil, nil
	}

	scoreA, err := s.scoreSide(ctx, d, opponentA, opponentB)
	if err != nil {
		return nil, err
	}
	scoreB, err := s.scoreSide(ctx, d, opponentB, opponentA)
	if err != nil {
		return nil, err
	}

	transitioned, err := s.repos.Duels.CompleteDuel(ctx, d.ID, scoreA, scoreB, s.now())
	if err != nil {
		return nil, fmt.Errorf("complete duel: %w", err)
	}
	if !transitioned {
		// The other side's final guess got there first. Benign.
		return nil, nil
	}

	fresh, err := s.repos.Duels.GetDuel(ctx, d.ID)
	if err != nil {
		return nil, fmt.Errorf("refetch duel: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"duel_id": d.ID,
		"score_a": scoreA,
		"score_b": scoreB,
	}).Info("duel completed")
	s.notify(ctx, "completed", fresh)
	return fresh, nil
}
