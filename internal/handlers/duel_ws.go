package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/Hippes/valentine-duel-bot/internal/notify"
)

// DuelWSHandler streams duel lifecycle events (matched, completed,
// cancelled) to a connected participant over a websocket. The connection is
// read-only for the client; it closes when the client disconnects or the
// subscription is torn down.
func (s *Server) DuelWSHandler(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/duel/ws/"), "/")
	if len(pathParts) < 1 || pathParts[0] == "" {
		http.Error(w, "missing duel_id", http.StatusBadRequest)
		return
	}
	duelID, err := uuid.Parse(pathParts[0])
	if err != nil {
		http.Error(w, "invalid duel_id", http.StatusBadRequest)
		return
	}

	userID, ok := authenticate(w, r)
	if !ok {
		return
	}

	// Subscription is limited to participants.
	if _, err := s.Service.GetDuelStatus(r.Context(), duelID, userID); err != nil {
		writeDomainError(w, err)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{"duel"},
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.Logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	if c.Subprotocol() != "duel" {
		c.Close(websocket.StatusPolicyViolation, "client must speak the duel subprotocol")
		return
	}

	events, cancel := s.Hub.Subscribe(duelID)
	defer cancel()

	s.Logger.Infof("user %d subscribed to duel %v events (%s)", userID, duelID, r.RemoteAddr)

	ctx := r.Context()
	go func() {
		// Drain client frames so pings are answered; client input is ignored.
		for {
			if _, _, err := c.Read(ctx); err != nil {
				cancel()
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			c.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case ev, open := <-events:
			if !open {
				c.Close(websocket.StatusNormalClosure, "subscription ended")
				return
			}
			if err := writeEvent(ctx, c, ev); err != nil {
				s.Logger.Warnf("failed to write duel event: %v", err)
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, c *websocket.Conn, ev notify.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return c.Write(ctx, websocket.MessageText, data)
}
