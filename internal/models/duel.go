package models

import (
	"time"

	"github.com/google/uuid"
)

// Duel statuses. A duel starts pending (side B unknown), becomes matched once
// both sides are known, active once questions are selected, and ends in
// completed or cancelled. The two terminal states are never left.
const (
	DuelStatusPending   = "pending"
	DuelStatusMatched   = "matched"
	DuelStatusActive    = "active"
	DuelStatusCompleted = "completed"
	DuelStatusCancelled = "cancelled"
)

// QuestionsPerDuel is how many catalog questions each duel plays through.
const QuestionsPerDuel = 5

// Duel is the central entity. UserBID is nil until the invitation is claimed.
type Duel struct {
	ID                uuid.UUID  `json:"id"`
	UserAID           int64      `json:"user_a_id"`
	UserBID           *int64     `json:"user_b_id,omitempty"`
	Status            string     `json:"status"`
	SelectedQuestions []int64    `json:"selected_questions,omitempty"`
	ScoreA            int        `json:"score_a"`
	ScoreB            int        `json:"score_b"`
	CreatedAt         time.Time  `json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// IsTerminal reports whether no further transition can leave the duel's state.
func (d *Duel) IsTerminal() bool {
	return d.Status == DuelStatusCompleted || d.Status == DuelStatusCancelled
}

// IsParticipant reports whether userID is one of the duel's two sides.
func (d *Duel) IsParticipant(userID int64) bool {
	if d.UserAID == userID {
		return true
	}
	return d.UserBID != nil && *d.UserBID == userID
}

// OpponentOf returns the other side's user id. Returns false if userID is not
// a participant or side B is not known yet.
func (d *Duel) OpponentOf(userID int64) (int64, bool) {
	if d.UserBID == nil {
		return 0, false
	}
	switch userID {
	case d.UserAID:
		return *d.UserBID, true
	case *d.UserBID:
		return d.UserAID, true
	}
	return 0, false
}

// HasQuestion reports whether questionID is in the duel's selected set.
func (d *Duel) HasQuestion(questionID int64) bool {
	for _, id := range d.SelectedQuestions {
		if id == questionID {
			return true
		}
	}
	return false
}

// Duel outcomes, derived from the final scores and never persisted.
const (
	OutcomeSideAWins = "side_a_wins"
	OutcomeSideBWins = "side_b_wins"
	OutcomeDraw      = "draw"
)

// Outcome derives the winner view for a completed duel.
func (d *Duel) Outcome() string {
	switch {
	case d.ScoreA > d.ScoreB:
		return OutcomeSideAWins
	case d.ScoreB > d.ScoreA:
		return OutcomeSideBWins
	default:
		return OutcomeDraw
	}
}

// DuelGuess records one participant's prediction of the opponent's answer to
// a single question. IsCorrect stays nil until the duel is scored.
type DuelGuess struct {
	ID            uuid.UUID `json:"id"`
	DuelID        uuid.UUID `json:"duel_id"`
	UserID        int64     `json:"user_id"`
	QuestionID    int64     `json:"question_id"`
	GuessedAnswer string    `json:"guessed_answer"`
	IsCorrect     *bool     `json:"is_correct,omitempty"`
	PointsEarned  int       `json:"points_earned"`
}
