package store

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"tenant-notes/models"
)

// TenantCache holds tenant records keyed by id. Misses return ErrNotFound.
type TenantCache interface {
	GetTenant(ctx context.Context, id string) (*models.Tenant, error)
	SetTenant(ctx context.Context, t *models.Tenant) error
	InvalidateTenant(ctx context.Context, id string) error
}

// CachedStore serves tenant lookups from a TenantCache. Cache failures fall
// through to the wrapped store. Quota decisions in CreateNoteGuarded always
// read the plan from the wrapped store.
//
// A fill that read the wrapped store before a SetPlan completed is dropped,
// so a stale plan is never written back over the new one.
type CachedStore struct {
	TenantStore
	cache TenantCache
	log   *zap.Logger

	mu  sync.Mutex
	gen map[string]uint64
}

func NewCachedStore(inner TenantStore, cache TenantCache, log *zap.Logger) *CachedStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedStore{TenantStore: inner, cache: cache, log: log, gen: make(map[string]uint64)}
}

func (s *CachedStore) TenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	return s.TenantByID(ctx, slug)
}

func (s *CachedStore) TenantByID(ctx context.Context, id string) (*models.Tenant, error) {
	t, err := s.cache.GetTenant(ctx, id)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, ErrNotFound) {
		s.log.Warn("tenant cache get failed", zap.String("tenant", id), zap.Error(err))
	}

	s.mu.Lock()
	gen := s.gen[id]
	s.mu.Unlock()

	t, err = s.TenantStore.TenantByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen[id] != gen {
		return t, nil
	}
	if err := s.cache.SetTenant(ctx, t); err != nil {
		s.log.Warn("tenant cache set failed", zap.String("tenant", id), zap.Error(err))
	}
	return t, nil
}

// SetPlan updates the wrapped store and then writes the fresh tenant through
// to the cache, invalidating the entry if that write fails.
func (s *CachedStore) SetPlan(ctx context.Context, slug string, plan models.Plan) error {
	if err := s.TenantStore.SetPlan(ctx, slug, plan); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen[slug]++

	t, err := s.TenantStore.TenantByID(ctx, slug)
	if err == nil {
		err = s.cache.SetTenant(ctx, t)
	}
	if err == nil {
		return nil
	}
	if err := s.cache.InvalidateTenant(ctx, slug); err != nil {
		s.log.Warn("tenant cache invalidate failed", zap.String("tenant", slug), zap.Error(err))
	}
	return nil
}
