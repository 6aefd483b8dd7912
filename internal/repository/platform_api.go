package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"mentor_chat/internal/domain"
	apperrors "mentor_chat/pkg/errors"
	"mentor_chat/pkg/logger"
)

// PlatformAPI reads mentorships, profiles and conversation history from the
// job-platform REST API, forwarding the caller's bearer credential.
type PlatformAPI struct {
	baseURL    string
	httpClient *http.Client
	log        logger.Logger
}

func NewPlatformAPI(baseURL string, httpClient *http.Client, log logger.Logger) *PlatformAPI {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &PlatformAPI{
		baseURL:    baseURL,
		httpClient: httpClient,
		log:        log,
	}
}

type apiRelationship struct {
	ID             domain.FlexID `json:"id"`
	MentorID       domain.FlexID `json:"mentor_id"`
	MentorUsername string        `json:"mentor_username"`
	MenteeID       domain.FlexID `json:"mentee_id"`
	MenteeUsername string        `json:"mentee_username"`
	RequestStatus  string        `json:"request_status"`
	ReviewStatus   string        `json:"review_status"`
	ConversationID domain.FlexID `json:"conversation_id"`
	ResumeReviewID domain.FlexID `json:"resume_review_id"`
}

func (r apiRelationship) toDomain() domain.Relationship {
	return domain.Relationship{
		ID:             r.ID.String(),
		MentorID:       r.MentorID.String(),
		MentorUsername: r.MentorUsername,
		MenteeID:       r.MenteeID.String(),
		MenteeUsername: r.MenteeUsername,
		RequestStatus:  r.RequestStatus,
		ReviewStatus:   r.ReviewStatus,
		ConversationID: r.ConversationID.Ptr(),
		ResumeReviewID: r.ResumeReviewID.Ptr(),
	}
}

type apiMessage struct {
	ID             domain.FlexID `json:"id"`
	ConversationID domain.FlexID `json:"conversation_id"`
	SenderID       domain.FlexID `json:"sender_id"`
	SenderName     string        `json:"sender_name"`
	Content        string        `json:"content"`
	Timestamp      time.Time     `json:"timestamp"`
	Read           bool          `json:"read"`
}

type apiProfile struct {
	UserID    domain.FlexID `json:"user_id"`
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	ImageURL  string        `json:"image_url"`
}

func (a *PlatformAPI) GetMenteeRelationships(ctx context.Context, userID string) ([]domain.Relationship, error) {
	return a.relationships(ctx, "/api/mentorships/mentee/"+url.PathEscape(userID))
}

func (a *PlatformAPI) GetMentorRelationships(ctx context.Context, userID string) ([]domain.Relationship, error) {
	return a.relationships(ctx, "/api/mentorships/mentor/"+url.PathEscape(userID))
}

func (a *PlatformAPI) relationships(ctx context.Context, path string) ([]domain.Relationship, error) {
	var payload []apiRelationship
	if err := a.getJSON(ctx, path, &payload); err != nil {
		return nil, err
	}

	out := make([]domain.Relationship, 0, len(payload))
	for _, r := range payload {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (a *PlatformAPI) GetConversationHistory(ctx context.Context, conversationID string) ([]domain.Message, error) {
	var payload []apiMessage
	path := "/api/chat/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := a.getJSON(ctx, path, &payload); err != nil {
		return nil, err
	}

	out := make([]domain.Message, 0, len(payload))
	for _, m := range payload {
		out = append(out, domain.Message{
			ID:         m.ID.String(),
			RoomID:     conversationID,
			SenderID:   m.SenderID.String(),
			SenderName: m.SenderName,
			Content:    m.Content,
			Timestamp:  m.Timestamp,
			Read:       m.Read,
		})
	}
	return out, nil
}

func (a *PlatformAPI) GetPublicProfile(ctx context.Context, userID string) (*domain.PublicProfile, error) {
	var payload apiProfile
	if err := a.getJSON(ctx, "/api/users/"+url.PathEscape(userID)+"/public-profile", &payload); err != nil {
		return nil, err
	}

	profile := &domain.PublicProfile{
		UserID:    payload.UserID.String(),
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		ImageURL:  payload.ImageURL,
	}
	if profile.UserID == "" {
		profile.UserID = userID
	}
	return profile, nil
}

func (a *PlatformAPI) getJSON(ctx context.Context, path string, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if credential, ok := CredentialFromContext(ctx); ok {
		httpReq.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", path, apperrors.ErrNotFound)
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", path, apperrors.ErrUnauthorized)
	default:
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("platform returned status %d for %s: %s", resp.StatusCode, path, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		a.log.Warn("Failed to decode platform response", "path", path, "error", err)
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
