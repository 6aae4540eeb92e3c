package gateway

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Champion2005/amicooked/pkg/agent"
	"github.com/Champion2005/amicooked/pkg/logger"
)

const wsReadLimit = 32 * 1024

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsInbound is one chat turn from the socket client.
type wsInbound struct {
	Text string `json:"text"`
	Mode string `json:"mode"`
}

// wsFrame is one server event. Type is "delta" while streaming, then one
// "done" with the full response, or "error".
type wsFrame struct {
	Type   string              `json:"type"`
	Text   string              `json:"text,omitempty"`
	Memory *agent.MemoryStatus `json:"memory,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	uid := r.URL.Query().Get("uid")
	if uid == "" {
		writeError(w, http.StatusBadRequest, "uid query parameter is required")
		return
	}

	a, err := s.gw.Session(r.Context(), uid, r.URL.Query().Get("name"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session unavailable")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnC("ws", fmt.Sprintf("Upgrade for %s: %v", uid, err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	logger.InfoC("ws", fmt.Sprintf("Chat open for %s", uid))

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.WarnC("ws", fmt.Sprintf("Chat for %s: %v", uid, err))
			}
			return
		}
		if in.Text == "" {
			continue
		}

		// All frames for a turn come from this loop, so writes never race.
		sink := func(delta string) {
			conn.WriteJSON(wsFrame{Type: "delta", Text: delta})
		}

		res, err := a.ProcessMessage(r.Context(), in.Text, agent.ParseMode(in.Mode), sink, "")
		if err != nil {
			conn.WriteJSON(wsFrame{Type: "error", Text: agent.FormatUserError(err)})
			continue
		}

		status := res.MemoryStatus
		conn.WriteJSON(wsFrame{Type: "done", Text: res.Response, Memory: &status})
	}
}
