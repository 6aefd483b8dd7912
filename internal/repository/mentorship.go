package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"mentor_chat/internal/domain"
	"mentor_chat/pkg/logger"
)

type mentorshipRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewMentorshipRepository(db *pgxpool.Pool, log logger.Logger) MentorshipRepository {
	return &mentorshipRepository{db: db, log: log}
}

const relationshipColumns = `
	m.id::text, m.mentor_id::text, mentor.username, m.mentee_id::text, mentee.username,
	m.request_status, COALESCE(m.review_status, ''), m.conversation_id::text, m.resume_review_id::text
`

func (r *mentorshipRepository) GetMenteeRelationships(ctx context.Context, userID string) ([]domain.Relationship, error) {
	query := `
		SELECT ` + relationshipColumns + `
		FROM mentorships m
		JOIN users mentor ON mentor.id = m.mentor_id
		JOIN users mentee ON mentee.id = m.mentee_id
		WHERE m.mentee_id::text = $1
		ORDER BY m.created_at ASC
	`
	return r.list(ctx, query, userID)
}

// GetMentorRelationships mirrors the platform API: the mentor-side view never
// carries the conversation id.
func (r *mentorshipRepository) GetMentorRelationships(ctx context.Context, userID string) ([]domain.Relationship, error) {
	query := `
		SELECT ` + relationshipColumns + `
		FROM mentorships m
		JOIN users mentor ON mentor.id = m.mentor_id
		JOIN users mentee ON mentee.id = m.mentee_id
		WHERE m.mentor_id::text = $1
		ORDER BY m.created_at ASC
	`
	rels, err := r.list(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	for i := range rels {
		rels[i].ConversationID = nil
	}
	return rels, nil
}

func (r *mentorshipRepository) list(ctx context.Context, query, userID string) ([]domain.Relationship, error) {
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.log.Error("Failed to query mentorships", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to query mentorships: %w", err)
	}
	defer rows.Close()

	var rels []domain.Relationship
	for rows.Next() {
		var rel domain.Relationship
		if err := rows.Scan(
			&rel.ID, &rel.MentorID, &rel.MentorUsername, &rel.MenteeID, &rel.MenteeUsername,
			&rel.RequestStatus, &rel.ReviewStatus, &rel.ConversationID, &rel.ResumeReviewID,
		); err != nil {
			r.log.Error("Failed to scan mentorship", "user_id", userID, "error", err)
			return nil, fmt.Errorf("failed to scan mentorship: %w", err)
		}
		rels = append(rels, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mentorships: %w", err)
	}

	return rels, nil
}
