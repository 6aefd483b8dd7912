package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"mentor_chat/internal/domain"
	"mentor_chat/internal/middleware"
	"mentor_chat/internal/service"
	apperrors "mentor_chat/pkg/errors"
	"mentor_chat/pkg/logger"
)

const (
	PushTypeSnapshot = "snapshot"
	PushTypeRooms    = "rooms"
	PushTypeMessages = "messages"
	PushTypeActive   = "active_room"
	PushTypeNotice   = "notice"
	PushTypeReset    = "reset"

	pushReadLimit = 512
)

// PushEvent is one frame sent to the presentation layer.
type PushEvent struct {
	Type         string            `json:"type"`
	RoomID       string            `json:"room_id,omitempty"`
	ActiveRoomID string            `json:"active_room_id,omitempty"`
	Snapshot     *service.Snapshot `json:"snapshot,omitempty"`
	Rooms        []domain.Room     `json:"rooms,omitempty"`
	Room         *domain.Room      `json:"room,omitempty"`
	Messages     []domain.Message  `json:"messages,omitempty"`
	Notice       *domain.Notice    `json:"notice,omitempty"`
}

// WebSocketHandler pushes room store changes of the caller's session.
type WebSocketHandler struct {
	chatService service.ChatService
	upgrader    websocket.Upgrader
	writeWait   time.Duration
	pongWait    time.Duration
	log         logger.Logger
}

func NewWebSocketHandler(chatService service.ChatService, allowedOrigins []string, writeWait, pongWait time.Duration, log logger.Logger) *WebSocketHandler {
	if writeWait <= 0 {
		writeWait = 10 * time.Second
	}
	if pongWait <= 0 {
		pongWait = 60 * time.Second
	}
	return &WebSocketHandler{
		chatService: chatService,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(allowedOrigins, r.Header.Get("Origin"), r.Host)
			},
		},
		writeWait: writeWait,
		pongWait:  pongWait,
		log:       log,
	}
}

func (h *WebSocketHandler) HandleChat(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		_ = c.Error(apperrors.ErrUnauthorized)
		return
	}

	session, err := h.chatService.Session(identity.UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "user_id", identity.UserID, "error", err)
		return
	}
	defer conn.Close()

	store := session.Store()
	changes, cancel := store.Subscribe()
	defer cancel()

	closed := make(chan struct{})
	go h.readPump(conn, closed)

	snap := store.Snapshot()
	if err := h.write(conn, PushEvent{Type: PushTypeSnapshot, Snapshot: &snap}); err != nil {
		return
	}

	ticker := time.NewTicker(h.pongWait * 9 / 10)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case change, ok := <-changes:
			if !ok {
				h.writeClose(conn)
				return
			}
			if err := h.write(conn, h.eventFor(store, change)); err != nil {
				h.log.Debug("Push write failed", "user_id", identity.UserID, "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeWait)); err != nil {
				return
			}
		}
	}
}

// readPump only watches for close and pong frames; the push channel is one-way.
func (h *WebSocketHandler) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadLimit(pushReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WebSocketHandler) eventFor(store *service.RoomStore, change domain.Change) PushEvent {
	switch change.Kind {
	case domain.ChangeRooms:
		return PushEvent{Type: PushTypeRooms, Rooms: store.Rooms(), ActiveRoomID: store.ActiveRoomID()}
	case domain.ChangeMessages:
		event := PushEvent{Type: PushTypeMessages, RoomID: change.RoomID}
		if room, ok := store.Room(change.RoomID); ok {
			event.Room = &room
		}
		event.Messages, _ = store.Messages(change.RoomID)
		return event
	case domain.ChangeActiveRoom:
		return PushEvent{Type: PushTypeActive, RoomID: change.RoomID, ActiveRoomID: change.RoomID, Rooms: store.Rooms()}
	case domain.ChangeNotice:
		return PushEvent{Type: PushTypeNotice, RoomID: change.RoomID, Notice: change.Notice}
	default:
		return PushEvent{Type: PushTypeReset}
	}
}

func (h *WebSocketHandler) write(conn *websocket.Conn, event PushEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(h.writeWait))
	return conn.WriteJSON(event)
}

func (h *WebSocketHandler) writeClose(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
		time.Now().Add(h.writeWait))
}
