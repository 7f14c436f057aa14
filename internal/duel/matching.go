package duel

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Hippes/valentine-duel-bot/internal/models"
)

// MatchOutcome is the result of a duel request: either an immediate match
// against an opponent who had already invited us, or a fresh invitation
// waiting to be claimed.
type MatchOutcome struct {
	Matched bool         `json:"matched"`
	Duel    *models.Duel `json:"duel"`
	// Opponent is the resolved opponent on a match, nil otherwise.
	Opponent *models.User `json:"opponent,omitempty"`
	// OpponentFound reports whether the handle resolved to a known user when
	// no match happened; OpponentReady additionally reports whether that user
	// has a complete questionnaire. The bot uses these for the invite hint.
	OpponentFound bool `json:"opponent_found"`
	OpponentReady bool `json:"opponent_ready"`
}

// NormalizeHandle prepares free-text opponent input for comparison: trims
// whitespace, strips a leading "@" and case-folds.
func NormalizeHandle(raw string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "@"))
}

// RequestDuel turns a free-text opponent handle into either an immediate
// match or a new pending invitation.
//
// If the named opponent has an open invitation of their own (any pending duel
// with side B unset, regardless of whom the original text named — two users
// who each try to invite the other always end up matched), that invitation is
// claimed and both sides are notified. Otherwise a new pending duel is
// created with the requester as side A.
//
// The existence check and the create/claim run under per-user matchmaking
// locks, and the claim itself is a conditional update, so two simultaneous
// reciprocal requests produce exactly one matched duel.
func (s *Service) RequestDuel(ctx context.Context, requesterID int64, opponentHandle string) (*MatchOutcome, error) {
	requester, err := s.repos.Users.GetUser(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("fetch requester: %w", err)
	}
	if requester == nil {
		return nil, ErrUserNotFound
	}

	answered, err := s.repos.Profile.CountProfileAnswers(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("count profile answers: %w", err)
	}
	if answered < MinProfileAnswers {
		return nil, ErrIncompleteProfile
	}

	handle := NormalizeHandle(opponentHandle)
	if requester.Username != "" && strings.ToLower(requester.Username) == handle {
		return nil, ErrSelfDuelNotAllowed
	}

	opponent, err := s.repos.Users.FindUserByHandle(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("resolve opponent handle: %w", err)
	}
	if opponent != nil && opponent.ID == requesterID {
		return nil, ErrSelfDuelNotAllowed
	}

	lockIDs := []int64{requesterID}
	if opponent != nil {
		lockIDs = append(lockIDs, opponent.ID)
	}
	unlock := s.lockUsers(lockIDs...)
	defer unlock()

	if existing, err := s.repos.Duels.GetActiveDuelForUser(ctx, requesterID); err != nil {
		return nil, fmt.Errorf("check active duel: %w", err)
	} else if existing != nil {
		return nil, ErrDuelAlreadyActive
	}

	if opponent != nil {
		outcome, err := s.tryReverseMatch(ctx, requesterID, opponent)
		if err != nil {
			return nil, err
		}
		if outcome != nil {
			return outcome, nil
		}
	}

	id, _ := uuid.NewV7()
	d := &models.Duel{
		ID:        id,
		UserAID:   requesterID,
		Status:    models.DuelStatusPending,
		CreatedAt: s.now(),
	}
	if err := s.repos.Duels.CreateDuel(ctx, d); err != nil {
		return nil, fmt.Errorf("create duel: %w", err)
	}

	outcome := &MatchOutcome{Duel: d, OpponentFound: opponent != nil}
	if opponent != nil {
		opponentAnswered, err := s.repos.Profile.CountProfileAnswers(ctx, opponent.ID)
		if err != nil {
			return nil, fmt.Errorf("count opponent answers: %w", err)
		}
		outcome.OpponentReady = opponentAnswered >= MinProfileAnswers
	}

	s.logger.WithFields(logrus.Fields{
		"duel_id":   d.ID,
		"requester": requesterID,
		"handle":    handle,
		"found":     outcome.OpponentFound,
	}).Info("duel invitation created")
	return outcome, nil
}

// tryReverseMatch claims the opponent's open invitation if they have one.
// Returns (nil, nil) when there is nothing to claim or the claim was lost to
// a concurrent actor.
func (s *Service) tryReverseMatch(ctx context.Context, requesterID int64, opponent *models.User) (*MatchOutcome, error) {
	invitation, err := s.repos.Duels.FindOpenInvitation(ctx, opponent.ID)
	if err != nil {
		return nil, fmt.Errorf("find open invitation: %w", err)
	}
	if invitation == nil {
		return nil, nil
	}

	claimed, err := s.repos.Duels.ClaimInvitation(ctx, invitation.ID, requesterID)
	if err != nil {
		return nil, fmt.Errorf("claim invitation: %w", err)
	}
	if !claimed {
		// Someone else took it between lookup and claim. Fall back to a
		// fresh invitation.
		return nil, nil
	}

	d, err := s.repos.Duels.GetDuel(ctx, invitation.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch matched duel: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"duel_id": d.ID,
		"side_a":  d.UserAID,
		"side_b":  requesterID,
	}).Info("reverse match completed")
	s.notify(ctx, "matched", d)

	return &MatchOutcome{Matched: true, Duel: d, Opponent: opponent, OpponentFound: true, OpponentReady: true}, nil
}
