// Package policy evaluates access rules for destructive session operations.
package policy

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/open-policy-agent/opa/rego"
	"github.com/rs/zerolog/log"
)

// Decision values returned by the policy.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Input describes the operation under evaluation.
type Input struct {
	Action    string `json:"action"` // "delete"
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	Version   int    `json:"version"`
}

// Engine is the OPA policy engine. Evaluate is safe for concurrent use;
// Reload swaps the prepared query under a write lock.
type Engine struct {
	mu      sync.RWMutex
	query   rego.PreparedEvalQuery
	watcher *fsnotify.Watcher
	path    string
}

// NewEngine compiles a policy engine from rego source.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	e := &Engine{}
	if err := e.compile(ctx, policyContent); err != nil {
		return nil, err
	}
	return e, nil
}

// NewEngineFromFile loads the policy from path and watches the file,
// recompiling whenever it changes. A broken edit keeps the previous policy
// in place.
func NewEngineFromFile(ctx context.Context, path string) (*Engine, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	e, err := NewEngine(ctx, string(content))
	if err != nil {
		return nil, err
	}
	e.path = path

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to watch policy file: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch policy file: %w", err)
	}
	e.watcher = watcher
	go e.watch(ctx)
	return e, nil
}

func (e *Engine) compile(ctx context.Context, policyContent string) error {
	r := rego.New(
		rego.Query("data.session_policy.decision"),
		rego.Module("session_policy.rego", policyContent),
	)
	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return fmt.Errorf("failed to prepare rego: %w", err)
	}
	e.mu.Lock()
	e.query = query
	e.mu.Unlock()
	return nil
}

func (e *Engine) watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-e.watcher.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			content, err := os.ReadFile(e.path)
			if err != nil {
				log.Warn().Err(err).Str("path", e.path).Msg("failed to reload policy file")
				continue
			}
			if err := e.compile(ctx, string(content)); err != nil {
				log.Warn().Err(err).Str("path", e.path).Msg("rejected updated policy")
				continue
			}
			log.Info().Str("path", e.path).Msg("policy reloaded")
		case err, ok := <-e.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("policy watcher error")
		}
	}
}

// Evaluate returns the policy decision for the given operation. Policies
// that produce no result fall back to allow.
func (e *Engine) Evaluate(ctx context.Context, input Input) (string, error) {
	e.mu.RLock()
	query := e.query
	e.mu.RUnlock()

	results, err := query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, nil
	}
	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return DecisionAllow, nil
}

// Close stops the file watcher if one is running.
func (e *Engine) Close() error {
	if e.watcher != nil {
		return e.watcher.Close()
	}
	return nil
}

// DefaultPolicy allows everything except deleting a session whose name
// carries the "locked:" prefix.
const DefaultPolicy = `
package session_policy

import rego.v1

default decision := "allow"

decision := "block" if {
	input.action == "delete"
	startswith(input.name, "locked:")
}
`
