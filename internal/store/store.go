// Package store defines the persistence interface and its backends.
package store

import (
	"context"

	"github.com/graphdesk/server/internal/domain"
)

// Store is the persistence boundary for sessions, version lineages, and
// saved views. All mutations are durable before the call returns.
// Implementations run every call under a bounded deadline and wrap transient
// failures with domain.ErrStorageTimeout or domain.ErrStorageUnavailable.
type Store interface {
	// Session operations
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	ListSessions(ctx context.Context) ([]domain.SessionSummary, error)
	UpdateSession(ctx context.Context, session *domain.Session) error

	// Version operations. InsertVersion persists a new version record and
	// moves the lineage's current pointer to it in one atomic step.
	CurrentSession(ctx context.Context, lineageID string) (*domain.Session, error)
	InsertVersion(ctx context.Context, session *domain.Session) error
	ListVersions(ctx context.Context, lineageID string) ([]domain.VersionInfo, error)

	// DeleteLineage removes every version of a lineage and reports how many
	// records were deleted.
	DeleteLineage(ctx context.Context, lineageID string) (int, error)

	// View operations
	CreateView(ctx context.Context, view *domain.CustomView) error
	GetView(ctx context.Context, viewID string) (*domain.CustomView, error)
	ListViews(ctx context.Context) ([]domain.CustomView, error)
	DeleteView(ctx context.Context, viewID string) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}
