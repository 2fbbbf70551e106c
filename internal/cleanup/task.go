package cleanup

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ghga-de/dcs-go/internal/core"
	"github.com/ghga-de/dcs-go/internal/eventbus"
)

// repository is the subset of *core.DataRepository the outbox sweep needs.
type repository interface {
	CleanupOutbox(ctx context.Context, alias string) error
}

// lock is satisfied by *eventbus.CleanupLock: a Redis SETNX-based mutex so
// only one Download Controller replica runs a given alias's sweep at a time.
type lock interface {
	TryAcquire(ctx context.Context, lease time.Duration) (bool, error)
	Release(ctx context.Context) error
}

// Task is the outbox cleanup sweep named in spec.md §4.7/§8: for every
// configured storage alias, evict outbox objects whose DAO last_accessed
// has aged past the repository's cache_timeout.
type Task struct {
	repo    repository
	aliases []string
	lock    lock
	lease   time.Duration
}

// NewTask builds the outbox cleanup Task. aliases should list every
// configured object storage alias, since the sweep is defined per-alias.
func NewTask(repo *core.DataRepository, aliases []string, cleanupLock *eventbus.CleanupLock, lease time.Duration) *Task {
	return &Task{repo: repo, aliases: aliases, lock: cleanupLock, lease: lease}
}

// Run executes one sweep across every configured alias. It acquires the
// distributed cleanup lock first so a multi-replica deployment doesn't race
// the same alias's sweep concurrently; a replica that loses the race simply
// skips this tick, by design.
func (t *Task) Run(ctx context.Context) error {
	acquired, err := t.lock.TryAcquire(ctx, t.lease)
	if err != nil {
		return fmt.Errorf("acquire cleanup lock: %w", err)
	}
	if !acquired {
		log.Println("[Cleanup] another replica holds the outbox cleanup lock, skipping this tick")
		return nil
	}
	defer func() {
		if relErr := t.lock.Release(ctx); relErr != nil {
			log.Printf("[Cleanup] failed to release cleanup lock: %v", relErr)
		}
	}()

	var firstErr error
	for _, alias := range t.aliases {
		if err := t.repo.CleanupOutbox(ctx, alias); err != nil {
			log.Printf("[Cleanup] sweep failed for alias %q: %v", alias, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		log.Printf("[Cleanup] sweep completed for alias %q", alias)
	}

	return firstErr
}

// Handler adapts Run to the Scheduler's Handler signature.
func (t *Task) Handler() Handler {
	return t.Run
}
