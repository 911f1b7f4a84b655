package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/graphdesk/server/internal/domain"
	"github.com/graphdesk/server/internal/policy"
	"github.com/graphdesk/server/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:", 5*time.Second)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("failed to create policy engine: %v", err)
	}
	return New(st, engine)
}

func sampleInput(name string) CreateSessionInput {
	return CreateSessionInput{
		Name:        name,
		Description: "sample",
		Messages: []domain.Message{
			{ID: "1", Sender: "user", Text: "hi", Timestamp: time.Now().UTC()},
		},
		GraphData: domain.GraphData{
			Nodes: []domain.Node{{ID: "n1", Type: "Requirement"}, {ID: "n2", Type: "Feature"}},
			Links: []domain.Link{{SourceID: "n1", TargetID: "n2", Type: "depends"}},
		},
	}
}

func TestCreateSessionAssignsLineage(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, sampleInput("review"))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if session.SessionID == "" {
		t.Fatal("expected assigned session id")
	}
	if session.LineageID != session.SessionID {
		t.Fatalf("lineage must equal session id for a fresh session: %+v", session)
	}
	if session.Version != 1 || !session.IsCurrent {
		t.Fatalf("new session must be current version 1: %+v", session)
	}
	if !session.CreatedAt.Equal(session.UpdatedAt) {
		t.Fatalf("created_at and updated_at must match at creation: %+v", session)
	}
}

func TestCreateSessionEmptyName(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.CreateSession(context.Background(), CreateSessionInput{Name: "   "})
	if !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestUpdateSessionPatchesFields(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, sampleInput("review"))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	desc := "updated description"
	updated, err := svc.UpdateSession(ctx, session.SessionID, domain.SessionPatch{Description: &desc})
	if err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}
	if updated.Description != desc {
		t.Fatalf("patch not applied: %+v", updated)
	}
	if updated.Name != "review" {
		t.Fatalf("unpatched field changed: %+v", updated)
	}
	if updated.Version != 1 {
		t.Fatalf("update must not change version: %+v", updated)
	}
	if updated.UpdatedAt.Before(session.UpdatedAt) {
		t.Fatalf("updated_at not refreshed: %v vs %v", updated.UpdatedAt, session.UpdatedAt)
	}
}

func TestUpdateSessionEmptyName(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, sampleInput("review"))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	empty := ""
	if _, err := svc.UpdateSession(ctx, session.SessionID, domain.SessionPatch{Name: &empty}); !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestUpdateSessionNotFound(t *testing.T) {
	svc := newTestService(t)
	name := "x"
	_, err := svc.UpdateSession(context.Background(), "missing", domain.SessionPatch{Name: &name})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestUpdateFrozenVersionRejected(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	v1, err := svc.CreateSession(ctx, sampleInput("review"))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := svc.CreateVersion(ctx, v1.SessionID); err != nil {
		t.Fatalf("CreateVersion failed: %v", err)
	}

	name := "edit of frozen"
	if _, err := svc.UpdateSession(ctx, v1.SessionID, domain.SessionPatch{Name: &name}); !domain.IsValidation(err) {
		t.Fatalf("expected frozen version to reject update, got %v", err)
	}
}

func TestConcurrentUpdatesNoLostWrite(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, sampleInput("review"))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	name := "renamed"
	desc := "new description"
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := svc.UpdateSession(ctx, session.SessionID, domain.SessionPatch{Name: &name})
		errs <- err
	}()
	go func() {
		defer wg.Done()
		_, err := svc.UpdateSession(ctx, session.SessionID, domain.SessionPatch{Description: &desc})
		errs <- err
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent update failed: %v", err)
		}
	}

	got, err := svc.GetSession(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Name != name || got.Description != desc {
		t.Fatalf("lost update: %+v", got)
	}
}

func TestDeleteSessionRemovesLineage(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	v1, err := svc.CreateSession(ctx, sampleInput("review"))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	v2, err := svc.CreateVersion(ctx, v1.SessionID)
	if err != nil {
		t.Fatalf("CreateVersion failed: %v", err)
	}

	if err := svc.DeleteSession(ctx, v1.SessionID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := svc.GetSession(ctx, v1.SessionID); !domain.IsNotFound(err) {
		t.Fatalf("expected v1 gone, got %v", err)
	}
	if _, err := svc.GetSession(ctx, v2.SessionID); !domain.IsNotFound(err) {
		t.Fatalf("expected v2 gone with its lineage, got %v", err)
	}
}

func TestDeleteSessionNotFound(t *testing.T) {
	svc := newTestService(t)
	if err := svc.DeleteSession(context.Background(), "missing"); !domain.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestDeleteSessionBlockedByPolicy(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, sampleInput("locked: release baseline"))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	err = svc.DeleteSession(ctx, session.SessionID)
	var pe *domain.PolicyError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PolicyError, got %v", err)
	}
	if _, err := svc.GetSession(ctx, session.SessionID); err != nil {
		t.Fatalf("blocked delete must leave session intact: %v", err)
	}
}
