package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

type requestDuelRequest struct {
	OpponentHandle string `json:"opponent_handle"`
}

// RequestDuelHandler resolves the opponent handle into a match or a fresh
// invitation for the authenticated user.
func (s *Server) RequestDuelHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticate(w, r)
	if !ok {
		return
	}

	var req requestDuelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.OpponentHandle == "" {
		http.Error(w, "missing opponent_handle", http.StatusBadRequest)
		return
	}

	outcome, err := s.Service.RequestDuel(r.Context(), userID, req.OpponentHandle)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, outcome)
}

// parseDuelID reads the duel_id field of a JSON body.
func parseDuelID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var req struct {
		DuelID string `json:"duel_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return uuid.Nil, false
	}
	duelID, err := uuid.Parse(req.DuelID)
	if err != nil {
		http.Error(w, "invalid duel_id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return duelID, true
}

// parseDuelIDQuery reads ?duel_id= from the URL.
func parseDuelIDQuery(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	duelID, err := uuid.Parse(r.URL.Query().Get("duel_id"))
	if err != nil {
		http.Error(w, "invalid duel_id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return duelID, true
}

// StartDuelHandler starts or resumes an active duel for the authenticated
// participant and returns their next unanswered question.
func (s *Server) StartDuelHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticate(w, r)
	if !ok {
		return
	}
	duelID, ok := parseDuelID(w, r)
	if !ok {
		return
	}

	result, err := s.Service.StartDuel(r.Context(), duelID, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type submitGuessRequest struct {
	DuelID     string `json:"duel_id"`
	QuestionID int64  `json:"question_id"`
	Guess      string `json:"guess"`
}

// SubmitGuessHandler records one guess and reports progress; the response
// carries the completed duel when this guess finished it.
func (s *Server) SubmitGuessHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticate(w, r)
	if !ok {
		return
	}

	var req submitGuessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	duelID, err := uuid.Parse(req.DuelID)
	if err != nil {
		http.Error(w, "invalid duel_id", http.StatusBadRequest)
		return
	}
	if req.Guess == "" {
		http.Error(w, "missing guess", http.StatusBadRequest)
		return
	}

	result, err := s.Service.SubmitGuess(r.Context(), duelID, userID, req.QuestionID, req.Guess)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CancelDuelHandler cancels the duel if it is still running.
func (s *Server) CancelDuelHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticate(w, r)
	if !ok {
		return
	}
	duelID, ok := parseDuelID(w, r)
	if !ok {
		return
	}

	// Only a participant may cancel.
	if _, err := s.Service.GetDuelStatus(r.Context(), duelID, userID); err != nil {
		writeDomainError(w, err)
		return
	}

	d, err := s.Service.CancelDuel(r.Context(), duelID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// DuelStatusHandler returns the duel and both sides' progress.
func (s *Server) DuelStatusHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticate(w, r)
	if !ok {
		return
	}
	duelID, ok := parseDuelIDQuery(w, r)
	if !ok {
		return
	}

	status, err := s.Service.GetDuelStatus(r.Context(), duelID, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// DuelHistoryHandler lists the authenticated user's duels, newest first.
func (s *Server) DuelHistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticate(w, r)
	if !ok {
		return
	}
	history, err := s.Service.GetUserDuelHistory(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// DuelResultHandler returns the final scores, outcome and breakdown of a
// completed duel.
func (s *Server) DuelResultHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticate(w, r)
	if !ok {
		return
	}
	duelID, ok := parseDuelIDQuery(w, r)
	if !ok {
		return
	}

	result, err := s.Service.GetDuelResult(r.Context(), duelID, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
