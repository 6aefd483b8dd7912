package service

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"mentor_chat/internal/domain"
	"mentor_chat/internal/repository"
	apperrors "mentor_chat/pkg/errors"
	"mentor_chat/pkg/logger"
)

type RoomResolver interface {
	// Resolve derives the deduplicated room list for userID.
	Resolve(ctx context.Context, userID string) ([]domain.Room, error)
	// Provisional builds a placeholder room for a deep link carrying only a mentorship id.
	Provisional(mentorshipID string) domain.Room
}

type roomResolver struct {
	mentorships repository.MentorshipRepository
	profiles    repository.ProfileRepository
	concurrency int
	log         logger.Logger
}

func NewRoomResolver(mentorships repository.MentorshipRepository, profiles repository.ProfileRepository, concurrency int, log logger.Logger) RoomResolver {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &roomResolver{
		mentorships: mentorships,
		profiles:    profiles,
		concurrency: concurrency,
		log:         log,
	}
}

// candidate is a room before profile decoration.
type candidate struct {
	room     domain.Room
	username string
}

func (r *roomResolver) Resolve(ctx context.Context, userID string) ([]domain.Room, error) {
	var (
		menteeRels, mentorRels []domain.Relationship
		menteeErr, mentorErr   error
	)

	// Each query keeps its own error so one side failing does not cancel the other.
	var g errgroup.Group
	g.Go(func() error {
		menteeRels, menteeErr = r.mentorships.GetMenteeRelationships(ctx, userID)
		return nil
	})
	g.Go(func() error {
		mentorRels, mentorErr = r.mentorships.GetMentorRelationships(ctx, userID)
		return nil
	})
	_ = g.Wait()

	if menteeErr != nil && mentorErr != nil {
		r.log.Error("Failed to resolve rooms", "user_id", userID, "mentee_error", menteeErr, "mentor_error", mentorErr)
		return nil, fmt.Errorf("%w: mentee side: %v; mentor side: %v", apperrors.ErrResolutionFailed, menteeErr, mentorErr)
	}
	if menteeErr != nil {
		r.log.Warn("Mentee relationships unavailable", "user_id", userID, "error", menteeErr)
	}
	if mentorErr != nil {
		r.log.Warn("Mentor relationships unavailable", "user_id", userID, "error", mentorErr)
	}

	candidates := make([]candidate, 0, len(menteeRels)+len(mentorRels))
	for _, rel := range menteeRels {
		if !rel.IsChattable() {
			continue
		}
		candidates = append(candidates, menteeSideCandidate(rel, rel.ConversationID))
	}
	candidates = append(candidates, r.mentorSideCandidates(ctx, mentorRels)...)

	candidates = dedupeCandidates(candidates)
	rooms := r.decorate(ctx, candidates)

	r.log.Info("Rooms resolved", "user_id", userID, "rooms", len(rooms))
	return rooms, nil
}

// mentorSideCandidates looks up the mentee's record of every chattable
// mentor-side relationship, since only that record carries the conversation id.
// A failed lookup drops that relationship alone.
func (r *roomResolver) mentorSideCandidates(ctx context.Context, rels []domain.Relationship) []candidate {
	results := make([]*candidate, len(rels))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, rel := range rels {
		if !rel.IsChattable() {
			continue
		}
		i, rel := i, rel
		g.Go(func() error {
			menteeView, err := r.mentorships.GetMenteeRelationships(ctx, rel.MenteeID)
			if err != nil {
				r.log.Warn("Skipping mentorship, conversation lookup failed",
					"mentorship_id", rel.ID, "mentee_id", rel.MenteeID, "error", err)
				return nil
			}

			conversationID := rel.ConversationID
			for _, mv := range menteeView {
				if mv.ID == rel.ID && mv.HasConversation() {
					conversationID = mv.ConversationID
					break
				}
			}

			c := mentorSideCandidate(rel, conversationID)
			results[i] = &c
			return nil
		})
	}
	_ = g.Wait()

	out := make([]candidate, 0, len(rels))
	for _, c := range results {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}

func menteeSideCandidate(rel domain.Relationship, conversationID *string) candidate {
	return candidate{
		room:     newRoom(rel, conversationID, rel.MentorID, domain.ParticipantRoleMentor),
		username: rel.MentorUsername,
	}
}

func mentorSideCandidate(rel domain.Relationship, conversationID *string) candidate {
	return candidate{
		room:     newRoom(rel, conversationID, rel.MenteeID, domain.ParticipantRoleMentee),
		username: rel.MenteeUsername,
	}
}

func newRoom(rel domain.Relationship, conversationID *string, participantID, role string) domain.Room {
	id := domain.ProvisionalRoomID(rel.ID)
	if conversationID != nil && *conversationID != "" {
		id = *conversationID
	}
	return domain.Room{
		ID:              id,
		ParticipantID:   participantID,
		ParticipantRole: role,
		MentorshipID:    rel.ID,
		Status:          domain.RoomStatusOpen,
	}
}

// dedupeCandidates keeps one room per conversation. A provisional room is
// dropped when the same mentorship also resolved to a real conversation.
func dedupeCandidates(candidates []candidate) []candidate {
	resolved := make(map[string]bool)
	for _, c := range candidates {
		if !c.room.IsProvisional() {
			resolved[c.room.MentorshipID] = true
		}
	}

	seen := make(map[string]bool, len(candidates))
	out := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.room.IsProvisional() && resolved[c.room.MentorshipID] {
			continue
		}
		if seen[c.room.ID] {
			continue
		}
		seen[c.room.ID] = true
		out = append(out, c)
	}
	return out
}

// decorate fills display names and avatars. A missing profile falls back to
// the counterpart's username and never drops the room.
func (r *roomResolver) decorate(ctx context.Context, candidates []candidate) []domain.Room {
	var mu sync.Mutex
	profiles := make(map[string]*domain.PublicProfile)

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	requested := make(map[string]bool)
	for _, c := range candidates {
		participantID := c.room.ParticipantID
		if participantID == "" || requested[participantID] {
			continue
		}
		requested[participantID] = true
		g.Go(func() error {
			profile, err := r.profiles.GetPublicProfile(ctx, participantID)
			if err != nil {
				r.log.Debug("Profile unavailable, using placeholder", "user_id", participantID, "error", err)
				return nil
			}
			mu.Lock()
			profiles[participantID] = profile
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	rooms := make([]domain.Room, len(candidates))
	for i, c := range candidates {
		room := c.room
		profile := profiles[room.ParticipantID]
		room.ParticipantName = profile.DisplayName(c.username)
		if profile != nil {
			room.ParticipantAvatar = profile.ImageURL
		}
		rooms[i] = room
	}
	return rooms
}

func (r *roomResolver) Provisional(mentorshipID string) domain.Room {
	return domain.Room{
		ID:              domain.ProvisionalRoomID(mentorshipID),
		ParticipantName: domain.UnknownUserName,
		MentorshipID:    mentorshipID,
		Status:          domain.RoomStatusOpen,
	}
}
