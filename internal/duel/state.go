package duel

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Hippes/valentine-duel-bot/internal/models"
)

// StartResult tells the caller where the requesting participant resumes: the
// next unanswered question, or Finished when all five guesses are in.
type StartResult struct {
	Duel              *models.Duel     `json:"duel"`
	NextQuestionIndex int              `json:"next_question_index"`
	NextQuestion      *models.Question `json:"next_question,omitempty"`
	Finished          bool             `json:"finished"`
}

// StartDuel moves a matched duel to active, selecting its five questions on
// the first call, and returns the requesting participant's next unanswered
// question. Re-entry on an already active duel is idempotent, so both
// participants join and resume independently and in any order.
func (s *Service) StartDuel(ctx context.Context, duelID uuid.UUID, userID int64) (*StartResult, error) {
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

	switch d.Status {
	case models.DuelStatusMatched:
		if d, err = s.activate(ctx, d); err != nil {
			return nil, err
		}
	case models.DuelStatusActive:
		// resume
	default:
		return nil, ErrIllegalStateTransition
	}

	count, err := s.repos.Guesses.CountGuesses(ctx, duelID, userID)
	if err != nil {
		return nil, fmt.Errorf("count guesses: %w", err)
	}
	result := &StartResult{Duel: d, NextQuestionIndex: count}
	if count >= models.QuestionsPerDuel {
		result.Finished = true
		return result, nil
	}

	question, err := s.repos.Questions.GetQuestion(ctx, d.SelectedQuestions[count])
	if err != nil {
		return nil, fmt.Errorf("fetch question: %w", err)
	}
	result.NextQuestion = question
	return result, nil
}

// activate selects five distinct random active questions and moves the duel
// matched -> active. If a concurrent start won the conditional update, the
// refreshed duel is returned instead.
func (s *Service) activate(ctx context.Context, d *models.Duel) (*models.Duel, error) {
	questions, err := s.repos.Questions.GetActiveQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch active questions: %w", err)
	}
	if len(questions) < models.QuestionsPerDuel {
		return nil, ErrInsufficientQuestions
	}

	selected := s.sampleQuestionIDs(questions, models.QuestionsPerDuel)
	activated, err := s.repos.Duels.ActivateDuel(ctx, d.ID, selected)
	if err != nil {
		return nil, fmt.Errorf("activate duel: %w", err)
	}
	if !activated {
		// The other participant started it first; use their selection.
		fresh, err := s.repos.Duels.GetDuel(ctx, d.ID)
		if err != nil {
			return nil, fmt.Errorf("refetch duel: %w", err)
		}
		if fresh == nil || fresh.Status != models.DuelStatusActive {
			return nil, ErrIllegalStateTransition
		}
		return fresh, nil
	}

	fresh, err := s.repos.Duels.GetDuel(ctx, d.ID)
	if err != nil {
		return nil, fmt.Errorf("refetch duel: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"duel_id":   d.ID,
		"questions": selected,
	}).Info("duel started")
	return fresh, nil
}

// sampleQuestionIDs picks n distinct question ids uniformly at random.
func (s *Service) sampleQuestionIDs(questions []models.Question, n int) []int64 {
	s.rngMu.Lock()
	perm := s.rng.Perm(len(questions))
	s.rngMu.Unlock()

	ids := make([]int64, 0, n)
	for _, idx := range perm[:n] {
		ids = append(ids, questions[idx].ID)
	}
	return ids
}

// CancelDuel cancels a duel from any non-terminal state. Guesses recorded so
// far are retained for audit but never scored.
func (s *Service) CancelDuel(ctx context.Context, duelID uuid.UUID) (*models.Duel, error) {
	d, err := s.repos.Duels.GetDuel(ctx, duelID)
	if err != nil {
		return nil, fmt.Errorf("fetch duel: %w", err)
	}
	if d == nil {
		return nil, ErrDuelNotFound
	}

	cancelled, err := s.repos.Duels.CancelDuel(ctx, duelID)
	if err != nil {
		return nil, fmt.Errorf("cancel duel: %w", err)
	}
	if !cancelled {
		if d.Status == models.DuelStatusCompleted {
			return nil, ErrAlreadyCompleted
		}
		return nil, ErrIllegalStateTransition
	}

	fresh, err := s.repos.Duels.GetDuel(ctx, duelID)
	if err != nil {
		return nil, fmt.Errorf("refetch duel: %w", err)
	}
	s.logger.WithField("duel_id", duelID).Info("duel cancelled")
	s.notify(ctx, "cancelled", fresh)
	return fresh, nil
}
