package duel

import "errors"

// Domain errors returned by the engine. All of these are recoverable,
// user-facing conditions; the interaction layer decides wording. Storage
// failures are wrapped and propagated as-is, never converted into one of
// these, so a database outage is never reported as a domain outcome.
var (
	// ErrUserNotFound means the acting user has never contacted the service.
	ErrUserNotFound = errors.New("user not found")
	// ErrIncompleteProfile means the requester has not answered enough
	// questionnaire items to duel.
	ErrIncompleteProfile = errors.New("questionnaire not complete")
	// ErrDuelAlreadyActive means the user already has a pending, matched or
	// active duel and must finish or cancel it first.
	ErrDuelAlreadyActive = errors.New("user already has an active duel")
	// ErrSelfDuelNotAllowed means the opponent handle resolves to the requester.
	ErrSelfDuelNotAllowed = errors.New("cannot duel yourself")
	// ErrDuelNotFound means no duel exists with the given id.
	ErrDuelNotFound = errors.New("duel not found")
	// ErrNotAParticipant means the acting user is neither side of the duel.
	ErrNotAParticipant = errors.New("user is not a participant of this duel")
	// ErrIllegalStateTransition means the requested operation is not legal in
	// the duel's current state, e.g. starting a completed duel.
	ErrIllegalStateTransition = errors.New("illegal duel state transition")
	// ErrInsufficientQuestions means the catalog has fewer active questions
	// than a duel needs.
	ErrInsufficientQuestions = errors.New("not enough active questions")
	// ErrDuplicateGuess means a guess for this (duel, user, question) was
	// already recorded. Each question is asked exactly once per participant.
	ErrDuplicateGuess = errors.New("guess already recorded for this question")
	// ErrQuestionNotInDuel means the guessed question is not one of the
	// duel's selected questions.
	ErrQuestionNotInDuel = errors.New("question is not part of this duel")
	// ErrQuestionNotFound means no catalog question exists with the given id.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrAlreadyCompleted signals a benign redundant completion attempt.
	ErrAlreadyCompleted = errors.New("duel already completed")
)
