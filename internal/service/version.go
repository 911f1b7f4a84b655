package service

import (
	"context"
	"time"

	"github.com/graphdesk/server/internal/domain"
)

// CreateVersion snapshots the lineage's current session into a new record
// with the next version number, freezes the prior record, and advances the
// current pointer. The prior version stays retrievable by its own id.
func (s *Service) CreateVersion(ctx context.Context, sessionID string) (*domain.Session, error) {
	base, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(base.LineageID)
	defer unlock()

	// Snapshot from the lineage's current record, not the addressed one:
	// versioning an old id must still branch off the latest state.
	current, err := s.store.CurrentSession(ctx, base.LineageID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	next := *current
	next.SessionID = newSessionID()
	next.Version = current.Version + 1
	next.IsCurrent = true
	next.CreatedAt = now
	next.UpdatedAt = now

	if err := s.store.InsertVersion(ctx, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

// History returns the version chain of the lineage containing sessionID,
// ascending by version. The sequence is contiguous from 1: versions are
// never renumbered and never deleted individually.
func (s *Service) History(ctx context.Context, sessionID string) ([]domain.VersionInfo, error) {
	var versions []domain.VersionInfo
	err := readRetry(ctx, func() error {
		session, err := s.store.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		versions, err = s.store.ListVersions(ctx, session.LineageID)
		return err
	})
	return versions, err
}
