package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Hippes/valentine-duel-bot/internal/auth"
)

type registerUserRequest struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// RegisterUserHandler creates (or refreshes) a user on first contact and
// issues the session cookie. The bot gateway is trusted to supply the
// platform-assigned user id.
func (s *Server) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.ID == 0 {
		http.Error(w, "missing user id", http.StatusBadRequest)
		return
	}

	user, err := s.Service.RegisterUser(r.Context(), req.ID, req.Username)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	token, err := auth.CreateJWT(user.ID)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to create session: %v", err), http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})

	writeJSON(w, http.StatusCreated, user)
}

// AcceptPrivacyHandler sets the consent flag for the authenticated user.
func (s *Server) AcceptPrivacyHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticate(w, r)
	if !ok {
		return
	}
	if err := s.Service.AcceptPrivacy(r.Context(), userID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("privacy accepted"))
}

type saveAnswerRequest struct {
	QuestionID int64  `json:"question_id"`
	Answer     string `json:"answer"`
}

// SaveProfileAnswerHandler upserts one questionnaire answer for the
// authenticated user.
func (s *Server) SaveProfileAnswerHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticate(w, r)
	if !ok {
		return
	}

	var req saveAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.Answer == "" {
		http.Error(w, "missing answer", http.StatusBadRequest)
		return
	}

	if err := s.Service.SaveProfileAnswer(r.Context(), userID, req.QuestionID, req.Answer); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("answer saved"))
}

// ListQuestionsHandler returns the active questionnaire catalog.
func (s *Server) ListQuestionsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := authenticate(w, r); !ok {
		return
	}
	questions, err := s.Service.ListActiveQuestions(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

// ListProfileAnswersHandler returns the user's own declared answers.
func (s *Server) ListProfileAnswersHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticate(w, r)
	if !ok {
		return
	}
	answers, err := s.Service.ListProfileAnswers(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answers)
}

// QuestionnaireProgressHandler reports how far the user's questionnaire is.
func (s *Server) QuestionnaireProgressHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticate(w, r)
	if !ok {
		return
	}

	answered, complete, err := s.Service.QuestionnaireProgress(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"answered": answered,
		"complete": complete,
	})
}
