package duel

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Hippes/valentine-duel-bot/internal/models"
)

// UserRepository looks up and bootstraps users. Lookups return (nil, nil)
// when no row matches.
type UserRepository interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetOrCreateUser(ctx context.Context, id int64, username string) (*models.User, error)
	SetPrivacyAccepted(ctx context.Context, id int64) error
	// FindUserByHandle resolves a normalized (lowercased, no "@") handle to a
	// user. Matching is tolerant: an exact case-folded match wins, otherwise
	// the first case-insensitive substring match is returned.
	FindUserByHandle(ctx context.Context, handle string) (*models.User, error)
}

// ProfileAnswerRepository stores each user's declared questionnaire answers,
// unique per (user, question) with upsert-on-resubmit.
type ProfileAnswerRepository interface {
	SaveProfileAnswer(ctx context.Context, userID, questionID int64, answer string) error
	GetProfileAnswers(ctx context.Context, userID int64) ([]models.ProfileAnswer, error)
	GetProfileAnswer(ctx context.Context, userID, questionID int64) (*models.ProfileAnswer, error)
	CountProfileAnswers(ctx context.Context, userID int64) (int, error)
}

// QuestionRepository reads the question catalog. The engine never writes it.
type QuestionRepository interface {
	GetActiveQuestions(ctx context.Context) ([]models.Question, error)
	GetQuestion(ctx context.Context, id int64) (*models.Question, error)
}

// DuelRepository persists duels. The Claim/Activate/Complete/Cancel mutations
// are conditional single-statement updates: they report false when the duel
// was no longer in the expected state, which is how concurrent check-then-act
// races are resolved without external locks.
type DuelRepository interface {
	CreateDuel(ctx context.Context, d *models.Duel) error
	GetDuel(ctx context.Context, id uuid.UUID) (*models.Duel, error)
	// GetActiveDuelForUser returns the user's newest non-terminal duel on
	// either side, or (nil, nil).
	GetActiveDuelForUser(ctx context.Context, userID int64) (*models.Duel, error)
	// FindOpenInvitation returns inviter's newest pending duel with side B
	// still unset, or (nil, nil).
	FindOpenInvitation(ctx context.Context, inviterID int64) (*models.Duel, error)
	// ClaimInvitation sets side B and moves pending -> matched, only if the
	// duel is still pending with side B unset.
	ClaimInvitation(ctx context.Context, duelID uuid.UUID, userBID int64) (bool, error)
	// ActivateDuel records the selected questions and moves matched -> active,
	// only if the duel is still matched.
	ActivateDuel(ctx context.Context, duelID uuid.UUID, questionIDs []int64) (bool, error)
	// CompleteDuel records final scores and moves active -> completed, only if
	// the duel is still active. Exactly one of two racing completion attempts
	// observes true.
	CompleteDuel(ctx context.Context, duelID uuid.UUID, scoreA, scoreB int, completedAt time.Time) (bool, error)
	// CancelDuel moves any non-terminal state -> cancelled.
	CancelDuel(ctx context.Context, duelID uuid.UUID) (bool, error)
	ListDuelsForUser(ctx context.Context, userID int64) ([]models.Duel, error)
}

// GuessRepository persists duel guesses. CreateGuess must reject a duplicate
// (duel, user, question) with ErrDuplicateGuess rather than overwrite.
type GuessRepository interface {
	CreateGuess(ctx context.Context, g *models.DuelGuess) error
	GetGuesses(ctx context.Context, duelID uuid.UUID, userID int64) ([]models.DuelGuess, error)
	CountGuesses(ctx context.Context, duelID uuid.UUID, userID int64) (int, error)
	// ScoreGuess sets is_correct and points_earned for one guess row.
	ScoreGuess(ctx context.Context, guessID uuid.UUID, correct bool, points int) error
}

// Notifier delivers duel lifecycle events to the interaction layer (bot
// notifier queue, live websocket feed). Delivery is best-effort: a failed
// notification must never roll back the transition that triggered it.
type Notifier interface {
	DuelMatched(ctx context.Context, d *models.Duel) error
	DuelCompleted(ctx context.Context, d *models.Duel) error
	DuelCancelled(ctx context.Context, d *models.Duel) error
}
