// Package service implements the session engine: CRUD, version lineages,
// comparisons, saved views, and exports over a Store.
package service

import (
	"sync"

	"github.com/graphdesk/server/internal/policy"
	"github.com/graphdesk/server/internal/store"
)

type Service struct {
	store  store.Store
	policy *policy.Engine
	locks  lineageLocks
}

// New builds a Service. policyEngine may be nil, in which case destructive
// operations are not policy-gated.
func New(st store.Store, policyEngine *policy.Engine) *Service {
	return &Service{
		store:  st,
		policy: policyEngine,
		locks:  lineageLocks{entries: make(map[string]*sync.Mutex)},
	}
}

// lineageLocks serializes mutations per lineage. Updates, version creation,
// and deletion on the same lineage run one at a time; different lineages
// never contend.
type lineageLocks struct {
	mu      sync.Mutex
	entries map[string]*sync.Mutex
}

// lock acquires the mutex for a lineage and returns its release func.
func (l *lineageLocks) lock(lineageID string) func() {
	l.mu.Lock()
	m, ok := l.entries[lineageID]
	if !ok {
		m = &sync.Mutex{}
		l.entries[lineageID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
