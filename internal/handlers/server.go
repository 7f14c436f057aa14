package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Hippes/valentine-duel-bot/internal/duel"
	"github.com/Hippes/valentine-duel-bot/internal/middleware"
	"github.com/Hippes/valentine-duel-bot/internal/notify"
)

// Server holds the engine and the live event hub behind the HTTP surface.
// The surface is consumed by the bot gateway, not by end users directly.
type Server struct {
	Service *duel.Service
	Hub     *notify.Hub
	Logger  *logrus.Logger
}

func NewServer(service *duel.Service, hub *notify.Hub, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}
	return &Server{Service: service, Hub: hub, Logger: logger}
}

// Mux wires every endpoint with request logging.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	logged := middleware.LogMiddleware(s.Logger)

	mux.Handle("/user/register", logged(http.HandlerFunc(s.RegisterUserHandler)))
	mux.Handle("/user/privacy/accept", logged(http.HandlerFunc(s.AcceptPrivacyHandler)))

	mux.Handle("/questions", logged(http.HandlerFunc(s.ListQuestionsHandler)))
	mux.Handle("/questionnaire/answer", logged(http.HandlerFunc(s.SaveProfileAnswerHandler)))
	mux.Handle("/questionnaire/answers", logged(http.HandlerFunc(s.ListProfileAnswersHandler)))
	mux.Handle("/questionnaire/progress", logged(http.HandlerFunc(s.QuestionnaireProgressHandler)))

	mux.Handle("/duel/request", logged(http.HandlerFunc(s.RequestDuelHandler)))
	mux.Handle("/duel/start", logged(http.HandlerFunc(s.StartDuelHandler)))
	mux.Handle("/duel/guess", logged(http.HandlerFunc(s.SubmitGuessHandler)))
	mux.Handle("/duel/cancel", logged(http.HandlerFunc(s.CancelDuelHandler)))
	mux.Handle("/duel/status", logged(http.HandlerFunc(s.DuelStatusHandler)))
	mux.Handle("/duel/history", logged(http.HandlerFunc(s.DuelHistoryHandler)))
	mux.Handle("/duel/result", logged(http.HandlerFunc(s.DuelResultHandler)))
	mux.Handle("/duel/ws/", logged(http.HandlerFunc(s.DuelWSHandler)))

	return mux
}
