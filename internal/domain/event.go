package domain

import "time"

const (
	NoticeLevelInfo    = "info"
	NoticeLevelWarning = "warning"
	NoticeLevelError   = "error"
)

const (
	NoticeResolutionFailed = "resolution_failed"
	NoticeTransportError   = "transport_error"
	NoticeDeliveryDeferred = "delivery_deferred"
	NoticeSendFailed       = "send_failed"
	NoticeHistoryFailed    = "history_failed"
)

// Notice is a user-visible, non-blocking notification.
type Notice struct {
	Level     string    `json:"level"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	RoomID    string    `json:"room_id,omitempty"`
	Retryable bool      `json:"retryable"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	ChangeRooms      = "rooms"
	ChangeMessages   = "messages"
	ChangeActiveRoom = "active_room"
	ChangeNotice     = "notice"
	ChangeReset      = "reset"
)

// Change is published by the room store after every mutation.
type Change struct {
	Kind   string  `json:"kind"`
	RoomID string  `json:"room_id,omitempty"`
	Notice *Notice `json:"notice,omitempty"`
}
