package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mentor_chat/internal/domain"
	"mentor_chat/internal/middleware"
	"mentor_chat/internal/service"
	apperrors "mentor_chat/pkg/errors"
	"mentor_chat/pkg/logger"
)

type ChatHandler struct {
	chatService service.ChatService
	log         logger.Logger
}

func NewChatHandler(chatService service.ChatService, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		log:         log,
	}
}

type StartSessionRequest struct {
	MentorshipID domain.FlexID `json:"mentorship_id"`
}

type SessionResponse struct {
	service.Snapshot
	Connection ConnectionResponse `json:"connection"`
}

type ConnectionResponse struct {
	State  string `json:"state"`
	RoomID string `json:"room_id,omitempty"`
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type RoomResponse struct {
	Room     domain.Room      `json:"room"`
	Messages []domain.Message `json:"messages"`
}

func newSessionResponse(session *service.ChatSession) SessionResponse {
	state, roomID := session.Connection().State()
	return SessionResponse{
		Snapshot:   session.Store().Snapshot(),
		Connection: ConnectionResponse{State: state.String(), RoomID: roomID},
	}
}

// session returns the caller's session and refreshes its credential.
func (h *ChatHandler) session(c *gin.Context) (*service.ChatSession, bool) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		_ = c.Error(apperrors.ErrUnauthorized)
		return nil, false
	}

	session, err := h.chatService.Session(identity.UserID)
	if err != nil {
		_ = c.Error(err)
		return nil, false
	}
	session.SetCredential(identity.Credential)
	return session, true
}

// StartSession initializes the caller's chat, opening the deep-linked
// mentorship first when one is given.
func (h *ChatHandler) StartSession(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		_ = c.Error(apperrors.ErrUnauthorized)
		return
	}

	var req StartSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apperrors.ErrBadRequest)
			return
		}
	}
	if req.MentorshipID == "" {
		req.MentorshipID = domain.FlexID(c.Query("mentorshipId"))
	}

	session, err := h.chatService.Initialize(c.Request.Context(), identity, req.MentorshipID.String())
	if err != nil {
		h.log.Warn("Chat initialization failed", "user_id", identity.UserID, "error", err)
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, newSessionResponse(session))
}

func (h *ChatHandler) GetSession(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(session))
}

func (h *ChatHandler) EndSession(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		_ = c.Error(apperrors.ErrUnauthorized)
		return
	}

	if err := h.chatService.Logout(identity.UserID); err != nil && !errors.Is(err, apperrors.ErrSessionNotFound) {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) ListRooms(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rooms":          session.Store().Rooms(),
		"active_room_id": session.Store().ActiveRoomID(),
	})
}

func (h *ChatHandler) GetMessages(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	messages, err := session.Store().Messages(c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// ReloadHistory refetches a room's history after a failed or stale load.
func (h *ChatHandler) ReloadHistory(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	messages, err := session.ReloadHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *ChatHandler) ListNotices(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.Store().Notices())
}

func (h *ChatHandler) SelectRoom(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	roomID := c.Param("id")
	if err := session.SelectRoom(c.Request.Context(), roomID); err != nil {
		_ = c.Error(err)
		return
	}

	h.respondRoom(c, session, roomID)
}

func (h *ChatHandler) OpenMentorship(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	room, err := session.OpenMentorship(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.respondRoom(c, session, room.ID)
}

func (h *ChatHandler) respondRoom(c *gin.Context, session *service.ChatSession, roomID string) {
	room, found := session.Store().Room(roomID)
	if !found {
		_ = c.Error(apperrors.ErrRoomNotFound)
		return
	}
	messages, err := session.Store().Messages(roomID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, RoomResponse{Room: room, Messages: messages})
}

// SendMessage answers 201 when the message went out on the live connection
// and 202 when it is pending locally.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.ErrBadRequest)
		return
	}

	result, err := session.SendMessage(c.Request.Context(), req.Content)
	if err != nil {
		_ = c.Error(err)
		return
	}

	status := http.StatusCreated
	if result.Deferred {
		status = http.StatusAccepted
	}
	c.JSON(status, result)
}
