package domain

import "strings"

// Relationship is a mentorship record as returned by the job platform.
// The platform only attaches ConversationID to the mentee-side record.
type Relationship struct {
	ID             string  `json:"id"`
	MentorID       string  `json:"mentor_id"`
	MentorUsername string  `json:"mentor_username"`
	MenteeID       string  `json:"mentee_id"`
	MenteeUsername string  `json:"mentee_username"`
	RequestStatus  string  `json:"request_status"`
	ReviewStatus   string  `json:"review_status,omitempty"`
	ConversationID *string `json:"conversation_id,omitempty"`
	ResumeReviewID *string `json:"resume_review_id,omitempty"`
}

const (
	RequestStatusPending   = "PENDING"
	RequestStatusAccepted  = "ACCEPTED"
	RequestStatusActive    = "ACTIVE"
	RequestStatusCompleted = "COMPLETED"
	RequestStatusRejected  = "REJECTED"
	RequestStatusCancelled = "CANCELLED"
)

// IsChattable reports whether the relationship yields a chat room.
// Completed mentorships stay chattable.
func (r Relationship) IsChattable() bool {
	switch strings.ToUpper(strings.TrimSpace(r.RequestStatus)) {
	case RequestStatusAccepted, RequestStatusActive, RequestStatusCompleted:
		return true
	}
	return false
}

func (r Relationship) HasConversation() bool {
	return r.ConversationID != nil && *r.ConversationID != ""
}
