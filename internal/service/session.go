package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/graphdesk/server/internal/domain"
	"github.com/graphdesk/server/internal/policy"
)

// CreateSessionInput carries the client-supplied fields of a new session.
type CreateSessionInput struct {
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	ConversationID string           `json:"conversation_id"`
	TranscriptID   string           `json:"transcript_id"`
	Messages       []domain.Message `json:"messages"`
	GraphData      domain.GraphData `json:"graph_data"`
}

func newSessionID() string {
	return "sess_" + uuid.New().String()[:8]
}

// CreateSession persists a new session at version 1. The new session starts
// its own lineage.
func (s *Service) CreateSession(ctx context.Context, input CreateSessionInput) (*domain.Session, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, domain.NewValidationError("name", "must not be empty")
	}

	now := time.Now().UTC()
	session := &domain.Session{
		SessionID:      newSessionID(),
		Name:           input.Name,
		Description:    input.Description,
		ConversationID: input.ConversationID,
		TranscriptID:   input.TranscriptID,
		Messages:       input.Messages,
		GraphData:      input.GraphData,
		Version:        1,
		IsCurrent:      true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	session.LineageID = session.SessionID
	if session.Messages == nil {
		session.Messages = []domain.Message{}
	}

	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// GetSession fetches a full session by id.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session *domain.Session
	err := readRetry(ctx, func() error {
		var err error
		session, err = s.store.GetSession(ctx, sessionID)
		return err
	})
	return session, err
}

// ListSessions returns summaries of all sessions, most recently updated first.
func (s *Service) ListSessions(ctx context.Context) ([]domain.SessionSummary, error) {
	var summaries []domain.SessionSummary
	err := readRetry(ctx, func() error {
		var err error
		summaries, err = s.store.ListSessions(ctx)
		return err
	})
	return summaries, err
}

// UpdateSession applies a patch to the mutable fields of a session and
// refreshes updated_at. Only the current version of a lineage accepts
// updates; frozen versions reject them. The version number never changes
// here.
func (s *Service) UpdateSession(ctx context.Context, sessionID string, patch domain.SessionPatch) (*domain.Session, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, domain.NewValidationError("name", "must not be empty")
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(session.LineageID)
	defer unlock()

	// Re-read under the lock so concurrent updates compose instead of
	// overwriting each other.
	session, err = s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsCurrent {
		return nil, domain.NewValidationError("session_id",
			fmt.Sprintf("version %d is frozen; only the current version accepts updates", session.Version))
	}

	if patch.Name != nil {
		session.Name = *patch.Name
	}
	if patch.Description != nil {
		session.Description = *patch.Description
	}
	if patch.ConversationID != nil {
		session.ConversationID = *patch.ConversationID
	}
	if patch.TranscriptID != nil {
		session.TranscriptID = *patch.TranscriptID
	}
	if patch.Messages != nil {
		session.Messages = *patch.Messages
	}
	if patch.GraphData != nil {
		session.GraphData = *patch.GraphData
	}
	session.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// DeleteSession removes a session and its entire version lineage. Deleting
// any version of a lineage deletes them all.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if s.policy != nil {
		decision, err := s.policy.Evaluate(ctx, policy.Input{
			Action:    "delete",
			SessionID: session.SessionID,
			Name:      session.Name,
			Version:   session.Version,
		})
		if err != nil {
			return fmt.Errorf("policy evaluation failed: %w", err)
		}
		if decision != policy.DecisionAllow {
			return &domain.PolicyError{Action: "delete", Reason: "session is locked"}
		}
	}

	unlock := s.locks.lock(session.LineageID)
	defer unlock()

	_, err = s.store.DeleteLineage(ctx, session.LineageID)
	return err
}
