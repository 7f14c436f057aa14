package duel_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/Hippes/valentine-duel-bot/internal/duel"
	"github.com/Hippes/valentine-duel-bot/internal/memstore"
	"github.com/Hippes/valentine-duel-bot/internal/models"
)

// newScoringEnv seeds exactly five active questions (so a duel always plays
// the full catalog) with known weights, plus inactive padding so both users
// can meet the questionnaire minimum. Bob leaves the fourth active question
// unanswered.
func newScoringEnv(t *testing.T) (*testEnv, []int64) {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	notifier := &recordingNotifier{}

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	service := duel.NewService(
		store.Repositories(), notifier, logger,
		duel.WithRand(rand.New(rand.NewSource(7))),
	)
	env := &testEnv{store: store, service: service, notifier: notifier}

	weights := []int{2, 3, 1, 0, 2}
	active := make([]int64, 0, len(weights))
	for i, w := range weights {
		id := store.SeedQuestion(fmt.Sprintf("active %d", i+1), []string{"red", "green", "blue"}, w, true)
		active = append(active, id)
		env.questionIDs = append(env.questionIDs, id)
	}
	var padding []int64
	for i := 0; i < 6; i++ {
		id := store.SeedQuestion(fmt.Sprintf("retired %d", i+1), []string{"red", "green", "blue"}, 1, false)
		padding = append(padding, id)
		env.questionIDs = append(env.questionIDs, id)
	}

	for userID, name := range map[int64]string{aliceID: "alice", bobID: "bob"} {
		_, err := service.RegisterUser(ctx, userID, name)
		require.NoError(t, err)
	}
	for _, qid := range env.questionIDs {
		require.NoError(t, service.SaveProfileAnswer(ctx, aliceID, qid, "red"))
	}
	bobAnswered := []int64{active[0], active[1], active[2], active[4]}
	bobAnswered = append(bobAnswered, padding...)
	for _, qid := range bobAnswered {
		require.NoError(t, service.SaveProfileAnswer(ctx, bobID, qid, "red"))
	}

	answered, complete, err := service.QuestionnaireProgress(ctx, bobID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, answered, duel.MinProfileAnswers)
	require.True(t, complete)
	return env, active
}

func TestScoringWeightsExactMatchAndGaps(t *testing.T) {
	env, active := newScoringEnv(t)
	ctx := context.Background()
	d := env.matchAndStart(t)
	require.ElementsMatch(t, active, d.SelectedQuestions)

	// Alice guesses "red" everywhere. Bob never answered the fourth active
	// question, so that guess scores zero even though "red" would match.
	env.answerAll(t, d, aliceID, "red")

	bobGuesses := map[int64]string{
		active[0]: "red",   // correct, weight 2
		active[1]: "Red",   // comparison is exact, case matters
		active[2]: "green", // wrong
		active[3]: "red",   // correct, zero weight falls back to one point
		active[4]: "red",   // correct, weight 2
	}
	var last *duel.GuessResult
	for _, qid := range d.SelectedQuestions {
		result, err := env.service.SubmitGuess(ctx, d.ID, bobID, qid, bobGuesses[qid])
		require.NoError(t, err)
		last = result
	}

	require.True(t, last.DuelCompleted)
	require.Equal(t, 2+3+1+0+2, last.Duel.ScoreA)
	require.Equal(t, 2+0+0+1+2, last.Duel.ScoreB)
	require.Equal(t, models.OutcomeSideAWins, last.Duel.Outcome())
}

func TestScoringGradesEveryGuessRow(t *testing.T) {
	env, active := newScoringEnv(t)
	ctx := context.Background()
	d := env.matchAndStart(t)

	env.answerAll(t, d, aliceID, "red")
	env.answerAll(t, d, bobID, "blue")

	guesses, err := env.store.GetGuesses(ctx, d.ID, aliceID)
	require.NoError(t, err)
	require.Len(t, guesses, models.QuestionsPerDuel)
	for _, g := range guesses {
		require.NotNil(t, g.IsCorrect, "every guess is graded at completion")
		if g.QuestionID == active[3] {
			// Bob's questionnaire has no answer here.
			require.False(t, *g.IsCorrect)
			require.Zero(t, g.PointsEarned)
			continue
		}
		require.True(t, *g.IsCorrect)
		require.Positive(t, g.PointsEarned)
	}

	for _, g := range mustGuesses(t, env, d.ID, bobID) {
		require.NotNil(t, g.IsCorrect)
		require.False(t, *g.IsCorrect)
		require.Zero(t, g.PointsEarned)
	}
}

func mustGuesses(t *testing.T, env *testEnv, duelID uuid.UUID, userID int64) []models.DuelGuess {
	t.Helper()
	guesses, err := env.store.GetGuesses(context.Background(), duelID, userID)
	require.NoError(t, err)
	return guesses
}

// Replaying a completed duel's inputs produces identical scores.
func TestScoringIsDeterministic(t *testing.T) {
	scores := make(map[string]int)
	for round := 0; round < 3; round++ {
		env, _ := newScoringEnv(t)
		d := env.matchAndStart(t)
		env.answerAll(t, d, aliceID, "red")
		last := env.answerAll(t, d, bobID, "red")

		require.True(t, last.DuelCompleted)
		scores[fmt.Sprintf("a%d", round)] = last.Duel.ScoreA
		scores[fmt.Sprintf("b%d", round)] = last.Duel.ScoreB
	}
	require.Equal(t, scores["a0"], scores["a1"])
	require.Equal(t, scores["a1"], scores["a2"])
	require.Equal(t, scores["b0"], scores["b1"])
	require.Equal(t, scores["b1"], scores["b2"])
}
