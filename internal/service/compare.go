package service

import (
	"context"

	"github.com/graphdesk/server/internal/diff"
	"github.com/graphdesk/server/internal/domain"
)

// Compare loads two sessions and computes their structural differences and
// similarity score, with the first session as baseline. The operation is
// read-only and the result is never persisted.
func (s *Service) Compare(ctx context.Context, sessionID1, sessionID2 string) (*domain.ComparisonResult, error) {
	var s1, s2 *domain.Session
	err := readRetry(ctx, func() error {
		var err error
		if s1, err = s.store.GetSession(ctx, sessionID1); err != nil {
			return err
		}
		s2, err = s.store.GetSession(ctx, sessionID2)
		return err
	})
	if err != nil {
		return nil, err
	}

	onlyIn1, onlyIn2 := diff.Messages(s1.Messages, s2.Messages)
	return &domain.ComparisonResult{
		Session1:         domain.SessionRef{ID: s1.SessionID, Name: s1.Name},
		Session2:         domain.SessionRef{ID: s2.SessionID, Name: s2.Name},
		SimilarityScore:  diff.Score(s1, s2),
		MessagesOnlyIn1:  onlyIn1,
		MessagesOnlyIn2:  onlyIn2,
		GraphDifferences: diff.Graphs(s1.GraphData, s2.GraphData),
	}, nil
}
