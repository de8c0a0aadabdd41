package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tenant-notes/models"
)

type noteRecord struct {
	note models.Note
	seq  uint64
}

// MemoryStore keeps everything in process memory. Reads share a read lock;
// every mutation, including the guarded create, holds the write lock.
type MemoryStore struct {
	mu      sync.RWMutex
	tenants map[string]models.Tenant
	users   map[string]models.User
	notes   map[string]*noteRecord
	seq     uint64
	now     func() time.Time
	miss    missHash
}

type MemoryOption func(*MemoryStore)

func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		tenants: make(map[string]models.Tenant),
		users:   make(map[string]models.User),
		notes:   make(map[string]*noteRecord),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Seed(ctx context.Context, data SeedData, bcryptCost int) error {
	users, err := data.hashUsers(bcryptCost)
	if err != nil {
		return err
	}
	if err := s.miss.setCost(bcryptCost); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range data.Tenants {
		if _, ok := s.tenants[t.ID]; !ok {
			s.tenants[t.ID] = t
		}
	}
	for _, u := range users {
		if _, ok := s.users[u.ID]; !ok {
			s.users[u.ID] = u
		}
	}
	return nil
}

func (s *MemoryStore) Authenticate(ctx context.Context, email, password string) (*models.User, *models.Tenant, error) {
	s.mu.RLock()
	var (
		user   models.User
		found  bool
		tenant models.Tenant
		hasT   bool
	)
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			user, found = u, true
			break
		}
	}
	if found {
		tenant, hasT = s.tenants[user.TenantID]
	}
	s.mu.RUnlock()

	if !found {
		s.miss.burn(password)
		return nil, nil, ErrInvalidCredential
	}
	if !checkPassword(user.PasswordHash, password) || !hasT {
		return nil, nil, ErrInvalidCredential
	}
	return &user, &tenant, nil
}

func (s *MemoryStore) TenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	return s.TenantByID(ctx, slug)
}

func (s *MemoryStore) TenantByID(ctx context.Context, id string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *MemoryStore) SetPlan(ctx context.Context, slug string, plan models.Plan) error {
	if !plan.Valid() {
		return ErrInvalidPlan
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tenants[slug]; ok {
		t.Plan = plan
		s.tenants[slug] = t
	}
	return nil
}

func (s *MemoryStore) ListNotes(ctx context.Context, tenantID string) ([]models.Note, error) {
	s.mu.RLock()
	recs := make([]*noteRecord, 0)
	for _, r := range s.notes {
		if r.note.TenantID == tenantID {
			recs = append(recs, r)
		}
	}
	notes := make([]models.Note, len(recs))
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if !a.note.CreatedAt.Equal(b.note.CreatedAt) {
			return a.note.CreatedAt.After(b.note.CreatedAt)
		}
		return a.seq > b.seq
	})
	for i, r := range recs {
		notes[i] = r.note
	}
	s.mu.RUnlock()
	return notes, nil
}

func (s *MemoryStore) CountNotes(ctx context.Context, tenantID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countLocked(tenantID), nil
}

func (s *MemoryStore) countLocked(tenantID string) int {
	n := 0
	for _, r := range s.notes {
		if r.note.TenantID == tenantID {
			n++
		}
	}
	return n
}

func (s *MemoryStore) GetNote(ctx context.Context, tenantID, id string) (*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.notes[id]
	if !ok || r.note.TenantID != tenantID {
		return nil, ErrNotFound
	}
	n := r.note
	return &n, nil
}

func (s *MemoryStore) CreateNote(ctx context.Context, tenantID, title, content string) (*models.Note, error) {
	return s.CreateNoteGuarded(ctx, tenantID, title, content, nil)
}

func (s *MemoryStore) CreateNoteGuarded(ctx context.Context, tenantID, title, content string, guard Guard) (*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[tenantID]
	if !ok {
		return nil, ErrNotFound
	}
	if guard != nil {
		if err := guard(t, s.countLocked(tenantID)); err != nil {
			return nil, err
		}
	}

	now := s.now()
	s.seq++
	n := models.Note{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.notes[n.ID] = &noteRecord{note: n, seq: s.seq}
	return &n, nil
}

func (s *MemoryStore) UpdateNote(ctx context.Context, tenantID, id, title, content string) (*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.notes[id]
	if !ok || r.note.TenantID != tenantID {
		return nil, ErrNotFound
	}

	now := s.now()
	if now.Before(r.note.UpdatedAt) {
		now = r.note.UpdatedAt
	}
	r.note.Title = title
	r.note.Content = content
	r.note.UpdatedAt = now
	n := r.note
	return &n, nil
}

func (s *MemoryStore) DeleteNote(ctx context.Context, tenantID, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.notes[id]
	if !ok || r.note.TenantID != tenantID {
		return false, nil
	}
	delete(s.notes, id)
	return true, nil
}
