package ws

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/fathima-sithara/conversation-service/internal/service"
)

// Server is the real-time delivery edge: it upgrades participants onto
// the hub and replays message events read back from kafka.
type Server struct {
	hub   *Hub
	convs *service.ConversationService
	log   *zap.SugaredLogger
}

func NewServer(convs *service.ConversationService, log *zap.SugaredLogger) *Server {
	return &Server{hub: NewHub(), convs: convs, log: log}
}

// HandleWS is used with websocket.New(); locals set by the JWT middleware
// survive the upgrade.
func (s *Server) HandleWS(wsConn *websocket.Conn) {
	userID, _ := wsConn.Locals("user_id").(string)
	conversationID := wsConn.Query("conversation_id")
	if userID == "" || conversationID == "" {
		_ = wsConn.Close()
		return
	}

	// participant check before joining the fan-out
	if _, err := s.convs.GetByID(context.Background(), conversationID, userID); err != nil {
		_ = wsConn.Close()
		return
	}

	conn := &Connection{
		ws:             wsConn,
		send:           make(chan []byte, 256),
		hub:            s.hub,
		conversationID: conversationID,
		userID:         userID,
	}
	s.hub.Register(conversationID, conn)
	go conn.writePump()
	conn.readPump()
}

// HandleEventMessage is the kafka consumer callback; the key is the
// conversation id the event was published under.
func (s *Server) HandleEventMessage(key string, value []byte) {
	s.hub.Broadcast(key, value)
}
