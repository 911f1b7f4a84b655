package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/graphdesk/server/internal/domain"
)

const (
	sessionKeyPrefix = "session:"
	lineageKeyPrefix = "lineage:"
	currentKeyPrefix = "lineage_current:"
	viewKeyPrefix    = "view:"
	sessionIndexKey  = "sessions"
	viewIndexKey     = "views"
)

// RedisStore implements Store with JSON blobs in Redis. Session records live
// at session:<id> with set indexes for listing and per-lineage membership.
// Writers on the same lineage are serialized by the service layer; this
// store only guarantees that each blob write is atomic.
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisStore connects to Redis at url (redis:// form) and verifies the
// connection with a ping.
func NewRedisStore(ctx context.Context, url string, opTimeout time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return &RedisStore{client: client, timeout: opTimeout}, nil
}

func (r *RedisStore) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

func classifyRedis(err error) error {
	if err == nil || errors.Is(err, redis.Nil) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrStorageTimeout, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
}

func (r *RedisStore) writeSession(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+session.SessionID, data, 0)
	pipe.SAdd(ctx, sessionIndexKey, session.SessionID)
	pipe.SAdd(ctx, lineageKeyPrefix+session.LineageID, session.SessionID)
	if session.IsCurrent {
		pipe.Set(ctx, currentKeyPrefix+session.LineageID, session.SessionID, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return classifyRedis(err)
	}
	return nil
}

func (r *RedisStore) readSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	data, err := r.client.Get(ctx, sessionKeyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.NewNotFoundError("session", sessionID)
	}
	if err != nil {
		return nil, classifyRedis(err)
	}
	var session domain.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

func (r *RedisStore) CreateSession(ctx context.Context, session *domain.Session) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()
	return r.writeSession(ctx, session)
}

func (r *RedisStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()
	return r.readSession(ctx, sessionID)
}

func (r *RedisStore) ListSessions(ctx context.Context) ([]domain.SessionSummary, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	ids, err := r.client.SMembers(ctx, sessionIndexKey).Result()
	if err != nil {
		return nil, classifyRedis(err)
	}
	summaries := make([]domain.SessionSummary, 0, len(ids))
	for _, id := range ids {
		session, err := r.readSession(ctx, id)
		if domain.IsNotFound(err) {
			// Index can lag a concurrent delete.
			continue
		}
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summarize(session))
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

func (r *RedisStore) UpdateSession(ctx context.Context, session *domain.Session) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	if _, err := r.readSession(ctx, session.SessionID); err != nil {
		return err
	}
	return r.writeSession(ctx, session)
}

func (r *RedisStore) CurrentSession(ctx context.Context, lineageID string) (*domain.Session, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	id, err := r.client.Get(ctx, currentKeyPrefix+lineageID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.NewNotFoundError("lineage", lineageID)
	}
	if err != nil {
		return nil, classifyRedis(err)
	}
	return r.readSession(ctx, id)
}

func (r *RedisStore) InsertVersion(ctx context.Context, session *domain.Session) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	prevID, err := r.client.Get(ctx, currentKeyPrefix+session.LineageID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return classifyRedis(err)
	}
	if prevID != "" {
		prev, err := r.readSession(ctx, prevID)
		if err != nil && !domain.IsNotFound(err) {
			return err
		}
		if prev != nil {
			prev.IsCurrent = false
			if err := r.writeSession(ctx, prev); err != nil {
				return err
			}
		}
	}
	return r.writeSession(ctx, session)
}

func (r *RedisStore) ListVersions(ctx context.Context, lineageID string) ([]domain.VersionInfo, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	ids, err := r.client.SMembers(ctx, lineageKeyPrefix+lineageID).Result()
	if err != nil {
		return nil, classifyRedis(err)
	}
	if len(ids) == 0 {
		return nil, domain.NewNotFoundError("lineage", lineageID)
	}
	versions := make([]domain.VersionInfo, 0, len(ids))
	for _, id := range ids {
		session, err := r.readSession(ctx, id)
		if domain.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		versions = append(versions, domain.VersionInfo{
			SessionID: session.SessionID,
			Version:   session.Version,
			IsCurrent: session.IsCurrent,
			CreatedAt: session.CreatedAt,
		})
	}
	if len(versions) == 0 {
		return nil, domain.NewNotFoundError("lineage", lineageID)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].Version < versions[j].Version })
	return versions, nil
}

func (r *RedisStore) DeleteLineage(ctx context.Context, lineageID string) (int, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	ids, err := r.client.SMembers(ctx, lineageKeyPrefix+lineageID).Result()
	if err != nil {
		return 0, classifyRedis(err)
	}
	if len(ids) == 0 {
		return 0, domain.NewNotFoundError("lineage", lineageID)
	}
	pipe := r.client.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, sessionKeyPrefix+id)
		pipe.SRem(ctx, sessionIndexKey, id)
	}
	pipe.Del(ctx, lineageKeyPrefix+lineageID)
	pipe.Del(ctx, currentKeyPrefix+lineageID)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, classifyRedis(err)
	}
	return len(ids), nil
}

func (r *RedisStore) CreateView(ctx context.Context, view *domain.CustomView) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to marshal view: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, viewKeyPrefix+view.ViewID, data, 0)
	pipe.SAdd(ctx, viewIndexKey, view.ViewID)
	if _, err := pipe.Exec(ctx); err != nil {
		return classifyRedis(err)
	}
	return nil
}

func (r *RedisStore) GetView(ctx context.Context, viewID string) (*domain.CustomView, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	data, err := r.client.Get(ctx, viewKeyPrefix+viewID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.NewNotFoundError("view", viewID)
	}
	if err != nil {
		return nil, classifyRedis(err)
	}
	var view domain.CustomView
	if err := json.Unmarshal([]byte(data), &view); err != nil {
		return nil, fmt.Errorf("failed to unmarshal view: %w", err)
	}
	return &view, nil
}

func (r *RedisStore) ListViews(ctx context.Context) ([]domain.CustomView, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	ids, err := r.client.SMembers(ctx, viewIndexKey).Result()
	if err != nil {
		return nil, classifyRedis(err)
	}
	views := make([]domain.CustomView, 0, len(ids))
	for _, id := range ids {
		view, err := r.GetView(ctx, id)
		if domain.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].UpdatedAt.After(views[j].UpdatedAt) })
	return views, nil
}

func (r *RedisStore) DeleteView(ctx context.Context, viewID string) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	n, err := r.client.Del(ctx, viewKeyPrefix+viewID).Result()
	if err != nil {
		return classifyRedis(err)
	}
	if n == 0 {
		return domain.NewNotFoundError("view", viewID)
	}
	if err := r.client.SRem(ctx, viewIndexKey, viewID).Err(); err != nil {
		return classifyRedis(err)
	}
	return nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()
	return classifyRedis(r.client.Ping(ctx).Err())
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func summarize(session *domain.Session) domain.SessionSummary {
	return domain.SessionSummary{
		SessionID:    session.SessionID,
		LineageID:    session.LineageID,
		Name:         session.Name,
		Description:  session.Description,
		Version:      session.Version,
		IsCurrent:    session.IsCurrent,
		MessageCount: len(session.Messages),
		NodeCount:    len(session.GraphData.Nodes),
		CreatedAt:    session.CreatedAt,
		UpdatedAt:    session.UpdatedAt,
	}
}
