// Package memstore provides in-memory implementations of the duel engine's
// repositories, used by the engine tests and the no-database dev mode. All
// conditional mutations take the store lock, giving the same atomicity the
// Postgres layer gets from single-statement conditional updates.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Hippes/valentine-duel-bot/internal/duel"
	"github.com/Hippes/valentine-duel-bot/internal/models"
)

type guessKey struct {
	duelID     uuid.UUID
	userID     int64
	questionID int64
}

type answerKey struct {
	userID     int64
	questionID int64
}

// Store holds every entity behind one mutex.
type Store struct {
	mu        sync.Mutex
	now       func() time.Time
	users     map[int64]*models.User
	questions map[int64]*models.Question
	answers   map[answerKey]*models.ProfileAnswer
	duels     map[uuid.UUID]*models.Duel
	guesses   map[guessKey]*models.DuelGuess
	nextQID   int64
}

func New() *Store {
	return &Store{
		now:       time.Now,
		users:     make(map[int64]*models.User),
		questions: make(map[int64]*models.Question),
		answers:   make(map[answerKey]*models.ProfileAnswer),
		duels:     make(map[uuid.UUID]*models.Duel),
		guesses:   make(map[guessKey]*models.DuelGuess),
		nextQID:   1,
	}
}

// WithClock overrides the time source for deterministic tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func copyDuel(d *models.Duel) *models.Duel {
	out := *d
	if d.UserBID != nil {
		b := *d.UserBID
		out.UserBID = &b
	}
	if d.CompletedAt != nil {
		t := *d.CompletedAt
		out.CompletedAt = &t
	}
	out.SelectedQuestions = append([]int64(nil), d.SelectedQuestions...)
	return &out
}

// SeedQuestion adds a catalog question and returns its id. Catalog seeding is
// an external concern in production; this is the dev/test analog.
func (s *Store) SeedQuestion(text string, options []string, weight int, active bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextQID
	s.nextQID++
	s.questions[id] = &models.Question{
		ID:       id,
		Text:     text,
		Options:  append([]string(nil), options...),
		Weight:   weight,
		IsActive: active,
	}
	return id
}

func (s *Store) GetUser(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	out := *u
	return &out, nil
}

func (s *Store) GetOrCreateUser(_ context.Context, id int64, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		if username != "" {
			u.Username = username
		}
		out := *u
		return &out, nil
	}
	u := &models.User{ID: id, Username: username, CreatedAt: s.now()}
	s.users[id] = u
	out := *u
	return &out, nil
}

func (s *Store) SetPrivacyAccepted(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.PrivacyAccepted = true
	}
	return nil
}

func (s *Store) FindUserByHandle(_ context.Context, handle string) (*models.User, error) {
	if handle == "" {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var substrMatch *models.User
	for _, u := range s.users {
		stored := strings.ToLower(u.Username)
		if stored == "" {
			continue
		}
		if stored == handle {
			out := *u
			return &out, nil
		}
		if substrMatch == nil && strings.Contains(stored, handle) {
			substrMatch = u
		}
	}
	if substrMatch == nil {
		return nil, nil
	}
	out := *substrMatch
	return &out, nil
}

func (s *Store) SaveProfileAnswer(_ context.Context, userID, questionID int64, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := answerKey{userID, questionID}
	if existing, ok := s.answers[key]; ok {
		existing.Answer = answer
		existing.UpdatedAt = s.now()
		return nil
	}
	s.answers[key] = &models.ProfileAnswer{
		UserID:     userID,
		QuestionID: questionID,
		Answer:     answer,
		UpdatedAt:  s.now(),
	}
	return nil
}

func (s *Store) GetProfileAnswers(_ context.Context, userID int64) ([]models.ProfileAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ProfileAnswer
	for _, a := range s.answers {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}

func (s *Store) GetProfileAnswer(_ context.Context, userID, questionID int64) (*models.ProfileAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.answers[answerKey{userID, questionID}]
	if !ok {
		return nil, nil
	}
	out := *a
	return &out, nil
}

func (s *Store) CountProfileAnswers(_ context.Context, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, a := range s.answers {
		if a.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *Store) GetActiveQuestions(_ context.Context) ([]models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Question
	for _, q := range s.questions {
		if q.IsActive {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetQuestion(_ context.Context, id int64) (*models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, nil
	}
	out := *q
	return &out, nil
}

func (s *Store) CreateDuel(_ context.Context, d *models.Duel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.duels[d.ID] = copyDuel(d)
	return nil
}

func (s *Store) GetDuel(_ context.Context, id uuid.UUID) (*models.Duel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.duels[id]
	if !ok {
		return nil, nil
	}
	return copyDuel(d), nil
}

func (s *Store) GetActiveDuelForUser(_ context.Context, userID int64) (*models.Duel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var newest *models.Duel
	for _, d := range s.duels {
		if d.IsTerminal() || !d.IsParticipant(userID) {
			continue
		}
		if newest == nil || d.CreatedAt.After(newest.CreatedAt) {
			newest = d
		}
	}
	if newest == nil {
		return nil, nil
	}
	return copyDuel(newest), nil
}

func (s *Store) FindOpenInvitation(_ context.Context, inviterID int64) (*models.Duel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var newest *models.Duel
	for _, d := range s.duels {
		if d.Status != models.DuelStatusPending || d.UserAID != inviterID || d.UserBID != nil {
			continue
		}
		if newest == nil || d.CreatedAt.After(newest.CreatedAt) {
			newest = d
		}
	}
	if newest == nil {
		return nil, nil
	}
	return copyDuel(newest), nil
}

func (s *Store) ClaimInvitation(_ context.Context, duelID uuid.UUID, userBID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.duels[duelID]
	if !ok || d.Status != models.DuelStatusPending || d.UserBID != nil {
		return false, nil
	}
	d.UserBID = &userBID
	d.Status = models.DuelStatusMatched
	return true, nil
}

func (s *Store) ActivateDuel(_ context.Context, duelID uuid.UUID, questionIDs []int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.duels[duelID]
	if !ok || d.Status != models.DuelStatusMatched {
		return false, nil
	}
	d.SelectedQuestions = append([]int64(nil), questionIDs...)
	d.Status = models.DuelStatusActive
	return true, nil
}

func (s *Store) CompleteDuel(_ context.Context, duelID uuid.UUID, scoreA, scoreB int, completedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.duels[duelID]
	if !ok || d.Status != models.DuelStatusActive {
		return false, nil
	}
	d.Status = models.DuelStatusCompleted
	d.ScoreA = scoreA
	d.ScoreB = scoreB
	d.CompletedAt = &completedAt
	return true, nil
}

func (s *Store) CancelDuel(_ context.Context, duelID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.duels[duelID]
	if !ok || d.IsTerminal() {
		return false, nil
	}
	d.Status = models.DuelStatusCancelled
	return true, nil
}

func (s *Store) ListStaleDuels(_ context.Context, cutoff time.Time) ([]models.Duel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Duel
	for _, d := range s.duels {
		if !d.IsTerminal() && d.CreatedAt.Before(cutoff) {
			out = append(out, *copyDuel(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListDuelsForUser(_ context.Context, userID int64) ([]models.Duel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Duel
	for _, d := range s.duels {
		if d.IsParticipant(userID) {
			out = append(out, *copyDuel(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateGuess(_ context.Context, g *models.DuelGuess) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := guessKey{g.DuelID, g.UserID, g.QuestionID}
	if _, ok := s.guesses[key]; ok {
		return duel.ErrDuplicateGuess
	}
	stored := *g
	s.guesses[key] = &stored
	return nil
}

func (s *Store) GetGuesses(_ context.Context, duelID uuid.UUID, userID int64) ([]models.DuelGuess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.DuelGuess
	for _, g := range s.guesses {
		if g.DuelID == duelID && g.UserID == userID {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (s *Store) CountGuesses(_ context.Context, duelID uuid.UUID, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, g := range s.guesses {
		if g.DuelID == duelID && g.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *Store) ScoreGuess(_ context.Context, guessID uuid.UUID, correct bool, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.guesses {
		if g.ID == guessID {
			c := correct
			g.IsCorrect = &c
			g.PointsEarned = points
			return nil
		}
	}
	return nil
}

// Repositories bundles the store as every engine repository.
func (s *Store) Repositories() duel.Repositories {
	return duel.Repositories{
		Users:     s,
		Profile:   s,
		Questions: s,
		Duels:     s,
		Guesses:   s,
	}
}
