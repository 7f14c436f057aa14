package duel_test

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/Hippes/valentine-duel-bot/internal/duel"
	"github.com/Hippes/valentine-duel-bot/internal/memstore"
	"github.com/Hippes/valentine-duel-bot/internal/models"
)

const (
	aliceID int64 = 1001
	bobID   int64 = 1002
	carolID int64 = 1003
)

// recordingNotifier collects lifecycle events instead of delivering them.
type recordingNotifier struct {
	mu        sync.Mutex
	matched   []*models.Duel
	completed []*models.Duel
	cancelled []*models.Duel
	fail      bool
}

func (n *recordingNotifier) DuelMatched(_ context.Context, d *models.Duel) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return fmt.Errorf("notifier unreachable")
	}
	n.matched = append(n.matched, d)
	return nil
}

func (n *recordingNotifier) DuelCompleted(_ context.Context, d *models.Duel) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return fmt.Errorf("notifier unreachable")
	}
	n.completed = append(n.completed, d)
	return nil
}

func (n *recordingNotifier) DuelCancelled(_ context.Context, d *models.Duel) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return fmt.Errorf("notifier unreachable")
	}
	n.cancelled = append(n.cancelled, d)
	return nil
}

func (n *recordingNotifier) completedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.completed)
}

type testEnv struct {
	store    *memstore.Store
	service  *duel.Service
	notifier *recordingNotifier
	// questionIDs holds the seeded catalog in insertion order.
	questionIDs []int64
}

// newTestEnv seeds a ten-question catalog and registers alice, bob and carol
// with full questionnaires (every declared answer is the first option).
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	notifier := &recordingNotifier{}

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	service := duel.NewService(
		store.Repositories(), notifier, logger,
		duel.WithRand(rand.New(rand.NewSource(42))),
	)

	env := &testEnv{store: store, service: service, notifier: notifier}
	for i := 0; i < 10; i++ {
		id := store.SeedQuestion(
			fmt.Sprintf("question %d", i+1),
			[]string{"red", "green", "blue"},
			1+i%3,
			true,
		)
		env.questionIDs = append(env.questionIDs, id)
	}

	for id, name := range map[int64]string{aliceID: "alice", bobID: "bob", carolID: "carol"} {
		_, err := service.RegisterUser(ctx, id, name)
		require.NoError(t, err)
		for _, qid := range env.questionIDs {
			require.NoError(t, service.SaveProfileAnswer(ctx, id, qid, "red"))
		}
	}
	return env
}

// matchAndStart drives alice and bob to an active duel.
func (env *testEnv) matchAndStart(t *testing.T) *models.Duel {
	t.Helper()
	ctx := context.Background()

	outcome, err := env.service.RequestDuel(ctx, aliceID, "bob")
	require.NoError(t, err)
	require.False(t, outcome.Matched)

	outcome, err = env.service.RequestDuel(ctx, bobID, "alice")
	require.NoError(t, err)
	require.True(t, outcome.Matched)

	started, err := env.service.StartDuel(ctx, outcome.Duel.ID, aliceID)
	require.NoError(t, err)
	require.Equal(t, models.DuelStatusActive, started.Duel.Status)
	return started.Duel
}

// answerAll submits a full set of five guesses for one participant.
func (env *testEnv) answerAll(t *testing.T, d *models.Duel, userID int64, guess string) *duel.GuessResult {
	t.Helper()
	var last *duel.GuessResult
	for _, qid := range d.SelectedQuestions {
		result, err := env.service.SubmitGuess(context.Background(), d.ID, userID, qid, guess)
		require.NoError(t, err)
		last = result
	}
	return last
}

func TestRegisterUserIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, err := env.service.RegisterUser(ctx, aliceID, "alice_new")
	require.NoError(t, err)
	require.Equal(t, "alice_new", u.Username)

	again, err := env.service.RegisterUser(ctx, aliceID, "")
	require.NoError(t, err)
	require.Equal(t, "alice_new", again.Username, "empty username must not erase the handle")
}

func TestAcceptPrivacyUnknownUser(t *testing.T) {
	env := newTestEnv(t)
	err := env.service.AcceptPrivacy(context.Background(), 999999)
	require.ErrorIs(t, err, duel.ErrUserNotFound)
}

func TestQuestionnaireProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.RegisterUser(ctx, 2001, "dave")
	require.NoError(t, err)

	answered, complete, err := env.service.QuestionnaireProgress(ctx, 2001)
	require.NoError(t, err)
	require.Zero(t, answered)
	require.False(t, complete)

	for _, qid := range env.questionIDs {
		require.NoError(t, env.service.SaveProfileAnswer(ctx, 2001, qid, "green"))
	}
	answered, complete, err = env.service.QuestionnaireProgress(ctx, 2001)
	require.NoError(t, err)
	require.Equal(t, 10, answered)
	require.True(t, complete)
}

func TestProfileAnswerUpsert(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	qid := env.questionIDs[0]

	require.NoError(t, env.service.SaveProfileAnswer(ctx, aliceID, qid, "blue"))
	answered, _, err := env.service.QuestionnaireProgress(ctx, aliceID)
	require.NoError(t, err)
	require.Equal(t, 10, answered, "resubmitting must not create a second row")
}

func TestGetDuelStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d := env.matchAndStart(t)

	_, err := env.service.SubmitGuess(ctx, d.ID, aliceID, d.SelectedQuestions[0], "red")
	require.NoError(t, err)

	status, err := env.service.GetDuelStatus(ctx, d.ID, aliceID)
	require.NoError(t, err)
	require.Equal(t, 1, status.YourGuesses)
	require.Zero(t, status.OpponentGuesses)
	require.False(t, status.YouFinished)
	require.False(t, status.OpponentFinished)

	_, err = env.service.GetDuelStatus(ctx, d.ID, carolID)
	require.ErrorIs(t, err, duel.ErrNotAParticipant)
}

func TestGetUserDuelHistoryNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.matchAndStart(t)
	env.answerAll(t, first, aliceID, "red")
	env.answerAll(t, first, bobID, "red")

	time.Sleep(2 * time.Millisecond)

	outcome, err := env.service.RequestDuel(ctx, aliceID, "carol")
	require.NoError(t, err)

	history, err := env.service.GetUserDuelHistory(ctx, aliceID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, outcome.Duel.ID, history[0].ID)
	require.Equal(t, first.ID, history[1].ID)
}

func TestGetDuelResult(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d := env.matchAndStart(t)

	// Result is not available while the duel is running.
	_, err := env.service.GetDuelResult(ctx, d.ID, aliceID)
	require.ErrorIs(t, err, duel.ErrIllegalStateTransition)

	// Alice guesses every answer right, Bob guesses every answer wrong.
	env.answerAll(t, d, aliceID, "red")
	env.answerAll(t, d, bobID, "blue")

	result, err := env.service.GetDuelResult(ctx, d.ID, aliceID)
	require.NoError(t, err)
	require.True(t, result.YouWon)
	require.False(t, result.Draw)
	require.Equal(t, models.OutcomeSideAWins, result.Outcome)
	require.Len(t, result.Breakdown, models.QuestionsPerDuel)
	for _, review := range result.Breakdown {
		require.True(t, review.Correct)
		require.Equal(t, "red", review.OpponentAnswer)
		require.NotEmpty(t, review.QuestionText)
	}

	bobView, err := env.service.GetDuelResult(ctx, d.ID, bobID)
	require.NoError(t, err)
	require.False(t, bobView.YouWon)
	require.Equal(t, result.YourScore, bobView.OpponentScore)
	require.Zero(t, bobView.YourScore)
}

func TestNotificationFailureDoesNotAffectState(t *testing.T) {
	env := newTestEnv(t)
	env.notifier.fail = true
	ctx := context.Background()

	d := env.matchAndStart(t)
	env.answerAll(t, d, aliceID, "red")
	last := env.answerAll(t, d, bobID, "red")

	require.True(t, last.DuelCompleted, "completion must survive a failed notification")
	fresh, err := env.service.GetDuelStatus(ctx, d.ID, aliceID)
	require.NoError(t, err)
	require.Equal(t, models.DuelStatusCompleted, fresh.Duel.Status)
}
