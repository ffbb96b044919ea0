package ws

import (
	"encoding/json"
	"log"
	"net/http"

	"marketplace-server/services"
	"marketplace-server/utils"

	"github.com/gorilla/websocket"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server owns the room hub and translates socket events into chat service
// calls. Handshake authentication happens in the iris JWT middleware before
// the upgrade; an invalid token never reaches this code.
type Server struct {
	hub  *Hub
	chat *services.ChatService
}

func NewServer(hub *Hub, chat *services.ChatService) *Server {
	return &Server{hub: hub, chat: chat}
}

// HandleConnection upgrades an authenticated request into a chat socket.
// Registered behind the access-token verifier with a `token` URL-parameter
// extractor, since browsers cannot set headers on a WebSocket handshake.
func HandleConnection(server *Server) iris.Handler {
	return func(ctx iris.Context) {
		claims := jwt.Get(ctx).(*utils.AccessToken)

		conn, err := upgrader.Upgrade(ctx.ResponseWriter(), ctx.Request(), nil)
		if err != nil {
			log.Printf("ws: upgrade failed for user %d: %v", claims.ID, err)
			return
		}

		client := newClient(server, conn, claims.ID, claims.Email)
		log.Printf("ws: user %d connected (%s)", client.userID, client.email)

		go client.writePump()
		client.readPump()
	}
}

// dispatch routes one decoded client event. Handler failures are emitted as
// `error` events; the connection stays alive.
func (s *Server) dispatch(c *Client, ev Event) {
	switch ev.Event {
	case eventJoinRoom:
		var p joinRoomPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil || p.ConversationID == 0 {
			c.emitError("Invalid join_room payload")
			return
		}
		s.handleJoinRoom(c, p.ConversationID)

	case eventMarkRead:
		var p markReadPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil || p.ConversationID == 0 {
			c.emitError("Invalid mark_read payload")
			return
		}
		s.handleMarkRead(c, p.ConversationID)

	case eventSendMessage:
		var p sendMessagePayload
		if err := json.Unmarshal(ev.Data, &p); err != nil || p.ConversationID == 0 {
			c.emitError("Invalid send_message payload")
			return
		}
		s.handleSendMessage(c, p)

	case eventTyping:
		var p typingPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil || p.ConversationID == 0 {
			return
		}
		s.hub.broadcastExcept(p.ConversationID, c, services.EventUserTyping,
			userTypingPayload{UserID: c.userID, UserName: p.UserName})

	case eventStoppedTyping:
		var p typingPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil || p.ConversationID == 0 {
			return
		}
		s.hub.broadcastExcept(p.ConversationID, c, services.EventUserStoppedTyping,
			userTypingPayload{UserID: c.userID})

	default:
		c.emitError("Unknown event: " + ev.Event)
	}
}

// handleJoinRoom verifies participation, joins the room, and tells the rest
// of the room that this user has read their messages: joining implies
// viewing.
func (s *Server) handleJoinRoom(c *Client, conversationID uint) {
	if !s.chat.IsParticipant(conversationID, c.userID) {
		c.emitError("Not authorized to join this conversation")
		return
	}

	s.hub.join(conversationID, c)

	if err := s.chat.MarkRead(conversationID, c.userID); err != nil {
		log.Printf("ws: implicit mark read failed for user %d: %v", c.userID, err)
	}
	s.hub.broadcastExcept(conversationID, c, services.EventMessagesRead,
		messagesReadPayload{ConversationID: conversationID, ReaderID: c.userID})
}

func (s *Server) handleMarkRead(c *Client, conversationID uint) {
	if err := s.chat.MarkRead(conversationID, c.userID); err != nil {
		log.Printf("ws: mark read failed for user %d: %v", c.userID, err)
		return
	}
	s.hub.broadcastExcept(conversationID, c, services.EventMessagesRead,
		messagesReadPayload{ConversationID: conversationID, ReaderID: c.userID})
}

// handleSendMessage persists via the ledger; the service broadcasts
// receive_message to the whole room, sender included, so the sender's other
// tabs update too.
func (s *Server) handleSendMessage(c *Client, p sendMessagePayload) {
	_, err := s.chat.SendMessage(p.ConversationID, c.userID, services.SendMessageInput{
		Content:   p.Content,
		Image:     p.Image,
		Video:     p.Video,
		ProductID: p.ProductID,
	})
	switch err {
	case nil:
	case services.ErrEmptyMessage:
		c.emitError(err.Error())
	case services.ErrNotParticipant:
		c.emitError("Not authorized to send message to this conversation")
	default:
		log.Printf("ws: send message failed for user %d: %v", c.userID, err)
		c.emitError("Failed to send message")
	}
}
