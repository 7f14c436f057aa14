package duel

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Hippes/valentine-duel-bot/internal/models"
)

// MinProfileAnswers is how many questionnaire answers a user needs before
// they can request a duel.
const MinProfileAnswers = 10

// Repositories bundles the storage collaborators the engine runs on.
type Repositories struct {
	Users     UserRepository
	Profile   ProfileAnswerRepository
	Questions QuestionRepository
	Duels     DuelRepository
	Guesses   GuessRepository
}

// Service is the duel lifecycle engine: matching, state machine, answer
// collection and scoring. One instance serves all duels; duels are
// independent units of concurrency.
type Service struct {
	repos    Repositories
	notifier Notifier
	logger   *logrus.Logger

	now func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand

	// locks serializes matchmaking per user so that the "at most one
	// non-terminal duel per user" existence check and the create/claim that
	// follows it run as one unit. Guess submission does not take these; it
	// relies on the conditional updates instead.
	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRand overrides the question-selection randomness source.
func WithRand(r *rand.Rand) Option {
	return func(s *Service) { s.rng = r }
}

func NewService(repos Repositories, notifier Notifier, logger *logrus.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	s := &Service{
		repos:    repos,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		locks:    make(map[int64]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lockUsers acquires the per-user matchmaking locks for the given ids in
// ascending order (stable order prevents deadlock when two users invite each
// other concurrently) and returns the unlock function.
func (s *Service) lockUsers(ids ...int64) func() {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var acquired []*sync.Mutex
	var last int64
	for i, id := range sorted {
		if i > 0 && id == last {
			continue
		}
		last = id
		s.locksMu.Lock()
		mu, ok := s.locks[id]
		if !ok {
			mu = &sync.Mutex{}
			s.locks[id] = mu
		}
		s.locksMu.Unlock()
		mu.Lock()
		acquired = append(acquired, mu)
	}
	return func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			acquired[i].Unlock()
		}
	}
}

// RegisterUser creates the user on first contact or refreshes their handle.
func (s *Service) RegisterUser(ctx context.Context, userID int64, username string) (*models.User, error) {
	return s.repos.Users.GetOrCreateUser(ctx, userID, username)
}

// AcceptPrivacy sets the user's consent flag. Setting it again is a no-op.
func (s *Service) AcceptPrivacy(ctx context.Context, userID int64) error {
	user, err := s.repos.Users.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("fetch user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}
	return s.repos.Users.SetPrivacyAccepted(ctx, userID)
}

// SaveProfileAnswer upserts the user's own answer to a questionnaire item.
func (s *Service) SaveProfileAnswer(ctx context.Context, userID, questionID int64, answer string) error {
	question, err := s.repos.Questions.GetQuestion(ctx, questionID)
	if err != nil {
		return fmt.Errorf("fetch question: %w", err)
	}
	if question == nil {
		return ErrQuestionNotFound
	}
	return s.repos.Profile.SaveProfileAnswer(ctx, userID, questionID, answer)
}

// ListActiveQuestions returns the questionnaire catalog the bot walks a user
// through.
func (s *Service) ListActiveQuestions(ctx context.Context) ([]models.Question, error) {
	questions, err := s.repos.Questions.GetActiveQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch active questions: %w", err)
	}
	return questions, nil
}

// ListProfileAnswers returns the user's own declared answers.
func (s *Service) ListProfileAnswers(ctx context.Context, userID int64) ([]models.ProfileAnswer, error) {
	answers, err := s.repos.Profile.GetProfileAnswers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch profile answers: %w", err)
	}
	return answers, nil
}

// QuestionnaireProgress reports how many items the user has answered and
// whether that satisfies the duel precondition.
func (s *Service) QuestionnaireProgress(ctx context.Context, userID int64) (answered int, complete bool, err error) {
	answered, err = s.repos.Profile.CountProfileAnswers(ctx, userID)
	if err != nil {
		return 0, false, fmt.Errorf("count profile answers: %w", err)
	}
	return answered, answered >= MinProfileAnswers, nil
}

// DuelStatus is the live progress view of a duel for one participant.
type DuelStatus struct {
	Duel             *models.Duel `json:"duel"`
	YourGuesses      int          `json:"your_guesses"`
	OpponentGuesses  int          `json:"opponent_guesses"`
	YouFinished      bool         `json:"you_finished"`
	OpponentFinished bool         `json:"opponent_finished"`
}

// GetDuelStatus returns the duel and both sides' progress counts.
func (s *Service) GetDuelStatus(ctx context.Context, duelID uuid.UUID, userID int64) (*DuelStatus, error) {
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

	status := &DuelStatus{Duel: d}
	status.YourGuesses, err = s.repos.Guesses.CountGuesses(ctx, duelID, userID)
	if err != nil {
		return nil, fmt.Errorf("count guesses: %w", err)
	}
	if opponentID, ok := d.OpponentOf(userID); ok {
		status.OpponentGuesses, err = s.repos.Guesses.CountGuesses(ctx, duelID, opponentID)
		if err != nil {
			return nil, fmt.Errorf("count opponent guesses: %w", err)
		}
	}
	status.YouFinished = status.YourGuesses >= models.QuestionsPerDuel
	status.OpponentFinished = d.UserBID != nil && status.OpponentGuesses >= models.QuestionsPerDuel
	return status, nil
}

// GetUserDuelHistory lists all of the user's duels, newest first.
func (s *Service) GetUserDuelHistory(ctx context.Context, userID int64) ([]models.Duel, error) {
	duels, err := s.repos.Duels.ListDuelsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list duels: %w", err)
	}
	return duels, nil
}

// GuessReview is one line of the per-question result breakdown.
type GuessReview struct {
	QuestionID     int64  `json:"question_id"`
	QuestionText   string `json:"question_text"`
	YourGuess      string `json:"your_guess"`
	OpponentAnswer string `json:"opponent_answer,omitempty"`
	Correct        bool   `json:"correct"`
	PointsEarned   int    `json:"points_earned"`
}

// DuelResult is the final view of a completed duel from one side.
type DuelResult struct {
	Duel          *models.Duel  `json:"duel"`
	Outcome       string        `json:"outcome"`
	YouWon        bool          `json:"you_won"`
	Draw          bool          `json:"draw"`
	YourScore     int           `json:"your_score"`
	OpponentScore int           `json:"opponent_score"`
	Breakdown     []GuessReview `json:"breakdown"`
}

// GetDuelResult returns the scores, outcome and per-question breakdown for a
// completed duel, oriented to the requesting participant.
func (s *Service) GetDuelResult(ctx context.Context, duelID uuid.UUID, userID int64) (*DuelResult, error) {
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
	if d.Status != models.DuelStatusCompleted {
		return nil, ErrIllegalStateTransition
	}

	opponentID, _ := d.OpponentOf(userID)
	result := &DuelResult{Duel: d, Outcome: d.Outcome(), Draw: d.ScoreA == d.ScoreB}
	if userID == d.UserAID {
		result.YourScore, result.OpponentScore = d.ScoreA, d.ScoreB
	} else {
		result.YourScore, result.OpponentScore = d.ScoreB, d.ScoreA
	}
	result.YouWon = result.YourScore > result.OpponentScore

	guesses, err := s.repos.Guesses.GetGuesses(ctx, duelID, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch guesses: %w", err)
	}
	for _, g := range guesses {
		review := GuessReview{
			QuestionID:   g.QuestionID,
			YourGuess:    g.GuessedAnswer,
			Correct:      g.IsCorrect != nil && *g.IsCorrect,
			PointsEarned: g.PointsEarned,
		}
		if q, err := s.repos.Questions.GetQuestion(ctx, g.QuestionID); err == nil && q != nil {
			review.QuestionText = q.Text
		}
		if a, err := s.repos.Profile.GetProfileAnswer(ctx, opponentID, g.QuestionID); err == nil && a != nil {
			review.OpponentAnswer = a.Answer
		}
		result.Breakdown = append(result.Breakdown, review)
	}
	return result, nil
}

// notify dispatches one lifecycle event, logging failures instead of
// propagating them: notification delivery never corrupts or rolls back duel
// state.
func (s *Service) notify(ctx context.Context, event string, d *models.Duel) {
	if s.notifier == nil {
		return
	}
	var err error
	switch event {
	case "matched":
		err = s.notifier.DuelMatched(ctx, d)
	case "completed":
		err = s.notifier.DuelCompleted(ctx, d)
	case "cancelled":
		err = s.notifier.DuelCancelled(ctx, d)
	}
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"duel_id": d.ID,
			"event":   event,
		}).Warnf("notification delivery failed: %v", err)
	}
}
