// Package store is the single source of truth for tenants, users and notes.
//
// Every note operation is scoped by tenant id. A note that exists under a
// different tenant is reported exactly like a note that does not exist.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"tenant-notes/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrInvalidPlan       = errors.New("invalid plan")
)

// Guard decides whether a note may be created for tenant, which currently
// holds count notes. A non-nil error aborts the create and is returned as is.
type Guard func(tenant models.Tenant, count int) error

type TenantStore interface {
	Authenticate(ctx context.Context, email, password string) (*models.User, *models.Tenant, error)

	TenantBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	TenantByID(ctx context.Context, id string) (*models.Tenant, error)
	// SetPlan is a no-op for unknown tenants.
	SetPlan(ctx context.Context, slug string, plan models.Plan) error

	ListNotes(ctx context.Context, tenantID string) ([]models.Note, error)
	CountNotes(ctx context.Context, tenantID string) (int, error)
	GetNote(ctx context.Context, tenantID, id string) (*models.Note, error)
	CreateNote(ctx context.Context, tenantID, title, content string) (*models.Note, error)
	// CreateNoteGuarded runs guard and the insert as one step: no other
	// create or plan change for the tenant can happen in between.
	CreateNoteGuarded(ctx context.Context, tenantID, title, content string, guard Guard) (*models.Note, error)
	UpdateNote(ctx context.Context, tenantID, id, title, content string) (*models.Note, error)
	DeleteNote(ctx context.Context, tenantID, id string) (bool, error)
}

// Seeder is implemented by stores that can be populated at startup.
type Seeder interface {
	Seed(ctx context.Context, data SeedData, bcryptCost int) error
}

const missPassword = "no-such-user"

var defaultMissHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte(missPassword), bcrypt.DefaultCost)
	return h
})

// missHash is compared against when the email is unknown so a miss costs
// the same as a wrong password. Seed rebuilds it at the seed's bcrypt cost.
type missHash struct {
	mu   sync.RWMutex
	hash []byte
}

func (m *missHash) setCost(cost int) error {
	h, err := bcrypt.GenerateFromPassword([]byte(missPassword), cost)
	if err != nil {
		return fmt.Errorf("hash miss placeholder: %w", err)
	}
	m.mu.Lock()
	m.hash = h
	m.mu.Unlock()
	return nil
}

func (m *missHash) current() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.hash == nil {
		return defaultMissHash()
	}
	return m.hash
}

func (m *missHash) burn(password string) {
	_ = bcrypt.CompareHashAndPassword(m.current(), []byte(password))
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
