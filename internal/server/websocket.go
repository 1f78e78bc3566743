package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/michaelbrown/runpad/internal/relay"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // same policy as CORS on /run
	},
}

// wsIncoming is a message from the client.
type wsIncoming struct {
	Type     string `json:"type"`
	Language string `json:"language"`
	Code     string `json:"code"`
	Input    string `json:"input"`
}

// wsOutgoing is a message to the client.
type wsOutgoing struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Output  string `json:"output,omitempty"`
	Content string `json:"content,omitempty"`
	Failed  bool   `json:"failed,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade error", "err", err)
		return
	}

	c := s.conns.Add(uuid.NewString(), conn)
	defer func() {
		s.conns.Remove(c.ID)
		conn.Close()
	}()

	// Read loop
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("websocket read error", "conn", c.ID, "err", err)
			}
			return
		}

		var msg wsIncoming
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "run" {
			s.send(c, wsOutgoing{Type: "error", Content: "invalid message"})
			continue
		}

		if !c.busy.CompareAndSwap(false, true) {
			s.send(c, wsOutgoing{Type: "busy"})
			continue
		}

		go s.processRun(c, relay.RunRequest{
			Language: msg.Language,
			Code:     msg.Code,
			Input:    msg.Input,
		})
	}
}

func (s *Server) processRun(c *wsConn, req relay.RunRequest) {
	id := uuid.NewString()
	out := wsOutgoing{Type: "result", ID: id}

	res, err := s.runner.Run(context.Background(), req)
	if err != nil {
		out.Output = relay.FailureMessage
		out.Failed = true
	} else {
		out.Output = res.Output
	}

	// Clear before replying so the client may submit again as soon as it
	// sees the result.
	c.busy.Store(false)
	s.send(c, out)
}

func (s *Server) send(c *wsConn, msg wsOutgoing) {
	if err := c.writeJSON(msg); err != nil {
		s.log.Debug("websocket write error", "conn", c.ID, "err", err)
	}
}
