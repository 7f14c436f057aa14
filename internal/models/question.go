package models

import "time"

// Question is a questionnaire item from the catalog. The catalog is seeded
// externally and treated as read-only; Weight is the points awarded for a
// correct guess during a duel.
type Question struct {
	ID       int64    `json:"id"`
	Text     string   `json:"text"`
	Options  []string `json:"options"`
	Weight   int      `json:"weight"`
	IsActive bool     `json:"is_active"`
}

// ProfileAnswer is a user's own declared answer to a catalog question. It is
// the answer key their opponent guesses against, unique per (user, question).
type ProfileAnswer struct {
	UserID     int64     `json:"user_id"`
	QuestionID int64     `json:"question_id"`
	Answer     string    `json:"answer"`
	UpdatedAt  time.Time `json:"updated_at"`
}
