package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/movesync/internal/common"
	"github.com/dmitrijs2005/movesync/internal/logging"
	"github.com/dmitrijs2005/movesync/internal/models"
)

// Orchestrator is the engine surface. It owns the adapter table and
// sequences the adapters: within one (entity type, scope) pass pushes run
// strictly before pulls, and concurrent passes over the same pair are
// serialized by a keyed mutex.
//
// The meaning of a scope key is per entity type (renter email for rentals,
// rental id for payments, owner email for vehicles).
type Orchestrator struct {
	adapters map[models.EntityType]Adapter
	names    *NameResolver
	log      logging.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewOrchestrator builds the orchestrator over the given adapters.
func NewOrchestrator(adapters []Adapter, names *NameResolver, log logging.Logger) *Orchestrator {
	table := make(map[models.EntityType]Adapter, len(adapters))
	for _, a := range adapters {
		table[a.EntityType()] = a
	}
	return &Orchestrator{
		adapters: table,
		names:    names,
		log:      log.With("component", "orchestrator"),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (o *Orchestrator) adapter(et models.EntityType) (Adapter, error) {
	a, ok := o.adapters[et]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownEntityType, et)
	}
	return a, nil
}

// scopeLock returns the mutex serializing passes over one (type, scope) pair.
func (o *Orchestrator) scopeLock(et models.EntityType, scope string) *sync.Mutex {
	key := string(et) + "\x00" + scope
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[key]
	if !ok {
		l = &sync.Mutex{}
		o.locks[key] = l
	}
	return l
}

// PushUnsynced pushes every dirty record of the entity type within the scope.
func (o *Orchestrator) PushUnsynced(ctx context.Context, et models.EntityType, scope string) (PushStats, error) {
	a, err := o.adapter(et)
	if err != nil {
		return PushStats{}, err
	}
	l := o.scopeLock(et, scope)
	l.Lock()
	defer l.Unlock()
	return a.PushUnsynced(ctx, scope)
}

// PushSingle pushes one record by business key.
func (o *Orchestrator) PushSingle(ctx context.Context, et models.EntityType, id string) error {
	a, err := o.adapter(et)
	if err != nil {
		return err
	}
	return a.PushSingle(ctx, id)
}

// PullForScope pulls and reconciles remote documents for the scope.
func (o *Orchestrator) PullForScope(ctx context.Context, et models.EntityType, scopeKey string) error {
	a, err := o.adapter(et)
	if err != nil {
		return err
	}
	l := o.scopeLock(et, scopeKey)
	l.Lock()
	defer l.Unlock()
	return a.PullForScope(ctx, scopeKey)
}

// ResolveDisplayName maps an account email to a display name.
func (o *Orchestrator) ResolveDisplayName(ctx context.Context, email string) (string, error) {
	return o.names.ResolveDisplayName(ctx, email)
}

// SyncScope runs one full pass over the given entity types for the scope,
// concurrently across types. Within each type local changes are pushed
// before remote state is pulled, so a dirty local record cannot be clobbered
// by its own stale remote copy. With no explicit types the pass covers every
// registered adapter.
func (o *Orchestrator) SyncScope(ctx context.Context, scope string, types ...models.EntityType) error {
	if len(types) == 0 {
		types = models.AllEntityTypes
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, et := range types {
		a, err := o.adapter(et)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return o.syncOne(ctx, a, scope)
		})
	}
	return g.Wait()
}

func (o *Orchestrator) syncOne(ctx context.Context, a Adapter, scope string) error {
	l := o.scopeLock(a.EntityType(), scope)
	l.Lock()
	defer l.Unlock()

	stats, err := a.PushUnsynced(ctx, scope)
	if err != nil {
		return fmt.Errorf("push %s: %w", a.EntityType(), err)
	}
	if stats.Failed > 0 {
		o.log.Warn(ctx, "push finished with failures", "entity", a.EntityType(),
			"pushed", stats.Pushed, "failed", stats.Failed)
	}

	if err := a.PullForScope(ctx, scope); err != nil {
		return fmt.Errorf("pull %s: %w", a.EntityType(), err)
	}
	return nil
}

// Run loops SyncScope on the interval until the context is cancelled. A
// failed pass is logged and retried on the next tick.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration, scope string, types ...models.EntityType) {
	o.log.Info(ctx, "sync loop started", "interval", interval, "scope", scope)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := o.SyncScope(ctx, scope, types...); err != nil {
			o.log.Error(ctx, "sync pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			o.log.Info(ctx, "sync loop stopped")
			return
		case <-ticker.C:
		}
	}
}
