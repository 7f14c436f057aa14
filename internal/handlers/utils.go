package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Hippes/valentine-duel-bot/internal/auth"
	"github.com/Hippes/valentine-duel-bot/internal/duel"
)

// extractCookieToken extracts a named cookie value from the "Cookie" header,
// or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

// authenticate pulls the user id out of the auth_token cookie. Writes the
// response itself and returns false on failure.
func authenticate(w http.ResponseWriter, r *http.Request) (int64, bool) {
	cookieHeader := r.Header.Get("Cookie")
	if !strings.Contains(cookieHeader, "auth_token=") {
		http.Error(w, "missing auth_token", http.StatusUnauthorized)
		return 0, false
	}
	userID, err := auth.AuthenticateJWT(extractCookieToken(cookieHeader, "auth_token"))
	if err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return 0, false
	}
	return userID, true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// domainErrors maps each engine sentinel to its wire kind and status code,
// keeping every failure kind distinguishable for the bot layer.
var domainErrors = []struct {
	err    error
	kind   string
	status int
}{
	{duel.ErrUserNotFound, "user_not_found", http.StatusNotFound},
	{duel.ErrIncompleteProfile, "incomplete_profile", http.StatusBadRequest},
	{duel.ErrDuelAlreadyActive, "duel_already_active", http.StatusConflict},
	{duel.ErrSelfDuelNotAllowed, "self_duel_not_allowed", http.StatusBadRequest},
	{duel.ErrDuelNotFound, "duel_not_found", http.StatusNotFound},
	{duel.ErrNotAParticipant, "not_a_participant", http.StatusForbidden},
	{duel.ErrIllegalStateTransition, "illegal_state_transition", http.StatusConflict},
	{duel.ErrInsufficientQuestions, "insufficient_questions", http.StatusConflict},
	{duel.ErrDuplicateGuess, "duplicate_guess", http.StatusConflict},
	{duel.ErrQuestionNotInDuel, "question_not_in_duel", http.StatusBadRequest},
	{duel.ErrQuestionNotFound, "question_not_found", http.StatusNotFound},
	{duel.ErrAlreadyCompleted, "already_completed", http.StatusConflict},
}

// writeDomainError translates an engine error into a typed JSON failure.
// Anything that is not a known domain sentinel is an infrastructure failure
// and surfaces as a bare 500, never as a domain outcome.
func writeDomainError(w http.ResponseWriter, err error) {
	for _, entry := range domainErrors {
		if errors.Is(err, entry.err) {
			writeJSON(w, entry.status, errorResponse{Error: entry.kind, Message: entry.err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal", Message: "storage failure"})
}
