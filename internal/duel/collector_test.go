package duel_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Hippes/valentine-duel-bot/internal/duel"
	"github.com/Hippes/valentine-duel-bot/internal/models"
)

func TestSubmitGuessAdvancesInOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d := env.matchAndStart(t)

	for i, qid := range d.SelectedQuestions {
		result, err := env.service.SubmitGuess(ctx, d.ID, aliceID, qid, "red")
		require.NoError(t, err)
		require.Equal(t, i+1, result.NextQuestionIndex)
		if i < models.QuestionsPerDuel-1 {
			require.False(t, result.Finished)
			require.Equal(t, d.SelectedQuestions[i+1], result.NextQuestion.ID)
		} else {
			require.True(t, result.Finished)
			require.Nil(t, result.NextQuestion)
			require.False(t, result.DuelCompleted, "opponent has not played yet")
		}
	}
}

func TestSubmitGuessDuplicateRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d := env.matchAndStart(t)
	qid := d.SelectedQuestions[0]

	_, err := env.service.SubmitGuess(ctx, d.ID, aliceID, qid, "red")
	require.NoError(t, err)

	_, err = env.service.SubmitGuess(ctx, d.ID, aliceID, qid, "blue")
	require.ErrorIs(t, err, duel.ErrDuplicateGuess)

	// The original guess must survive, not be overwritten.
	status, err := env.service.GetDuelStatus(ctx, d.ID, aliceID)
	require.NoError(t, err)
	require.Equal(t, 1, status.YourGuesses)
}

func TestSubmitGuessForeignQuestionRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d := env.matchAndStart(t)

	var outside int64
	for _, qid := range env.questionIDs {
		if !d.HasQuestion(qid) {
			outside = qid
			break
		}
	}
	require.NotZero(t, outside)

	_, err := env.service.SubmitGuess(ctx, d.ID, aliceID, outside, "red")
	require.ErrorIs(t, err, duel.ErrQuestionNotInDuel)
}

func TestSubmitGuessRequiresActiveDuel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d := matchOnly(t, env)

	_, err := env.service.SubmitGuess(ctx, d.ID, aliceID, env.questionIDs[0], "red")
	require.ErrorIs(t, err, duel.ErrIllegalStateTransition)
}

func TestSubmitGuessNonParticipantRejected(t *testing.T) {
	env := newTestEnv(t)
	d := env.matchAndStart(t)

	_, err := env.service.SubmitGuess(context.Background(), d.ID, carolID, d.SelectedQuestions[0], "red")
	require.ErrorIs(t, err, duel.ErrNotAParticipant)
}

// Both participants answer in an interleaved order; the
// duel completes when the last guess lands, with weighted scores and a
// completion timestamp.
func TestInterleavedSubmissionsCompleteDuel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d := env.matchAndStart(t)

	var last *duel.GuessResult
	for i := 0; i < models.QuestionsPerDuel; i++ {
		qid := d.SelectedQuestions[i]
		// Alice guesses right, Bob guesses wrong, turn by turn.
		result, err := env.service.SubmitGuess(ctx, d.ID, aliceID, qid, "red")
		require.NoError(t, err)
		require.False(t, result.DuelCompleted)

		last, err = env.service.SubmitGuess(ctx, d.ID, bobID, qid, "green")
		require.NoError(t, err)
	}

	require.True(t, last.DuelCompleted)
	require.Equal(t, models.DuelStatusCompleted, last.Duel.Status)
	require.NotNil(t, last.Duel.CompletedAt)

	wantScore := 0
	for _, qid := range d.SelectedQuestions {
		q, err := env.store.GetQuestion(ctx, qid)
		require.NoError(t, err)
		wantScore += q.Weight
	}
	require.Equal(t, wantScore, last.Duel.ScoreA, "side A scores the sum of the selected weights")
	require.Zero(t, last.Duel.ScoreB)

	require.Equal(t, 1, env.notifier.completedCount())
}

// The two final guesses may race; completion must fire exactly once.
func TestRacingFinalGuessesCompleteOnce(t *testing.T) {
	for round := 0; round < 20; round++ {
		env := newTestEnv(t)
		ctx := context.Background()
		d := env.matchAndStart(t)

		for _, qid := range d.SelectedQuestions[:models.QuestionsPerDuel-1] {
			_, err := env.service.SubmitGuess(ctx, d.ID, aliceID, qid, "red")
			require.NoError(t, err)
			_, err = env.service.SubmitGuess(ctx, d.ID, bobID, qid, "red")
			require.NoError(t, err)
		}

		lastQ := d.SelectedQuestions[models.QuestionsPerDuel-1]
		var wg sync.WaitGroup
		results := make([]*duel.GuessResult, 2)
		errs := make([]error, 2)

		wg.Add(2)
		go func() {
			defer wg.Done()
			results[0], errs[0] = env.service.SubmitGuess(ctx, d.ID, aliceID, lastQ, "red")
		}()
		go func() {
			defer wg.Done()
			results[1], errs[1] = env.service.SubmitGuess(ctx, d.ID, bobID, lastQ, "red")
		}()
		wg.Wait()

		require.NoError(t, errs[0])
		require.NoError(t, errs[1])

		completions := 0
		for _, r := range results {
			if r.DuelCompleted {
				completions++
			}
		}
		require.Equal(t, 1, completions, "exactly one submission performs the completion")
		require.Equal(t, 1, env.notifier.completedCount())

		status, err := env.service.GetDuelStatus(ctx, d.ID, aliceID)
		require.NoError(t, err)
		require.Equal(t, models.DuelStatusCompleted, status.Duel.Status)
	}
}
