// Package service applies note quotas, roles and tenant ownership on top of
// a store.TenantStore. The tenant of every call comes from verified token
// claims, never from request input.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tenant-notes/models"
	"tenant-notes/store"
	"tenant-notes/token"
)

// FreeNoteLimit is the most notes a tenant on the free plan may hold.
const FreeNoteLimit = 3

var (
	ErrQuotaExceeded = errors.New("free plan note limit reached")
	ErrForbidden     = errors.New("forbidden")
	ErrValidation    = errors.New("validation failed")
)

// CanCreate reports whether a tenant on plan holding count notes may add one.
func CanCreate(plan models.Plan, count int) bool {
	return plan == models.PlanPro || count < FreeNoteLimit
}

func quotaGuard(t models.Tenant, count int) error {
	if !CanCreate(t.Plan, count) {
		return ErrQuotaExceeded
	}
	return nil
}

type Service struct {
	store  store.TenantStore
	tokens *token.Service
}

func New(s store.TenantStore, tokens *token.Service) *Service {
	return &Service{store: s, tokens: tokens}
}

type Session struct {
	Token  string
	User   models.User
	Tenant models.Tenant
}

// Login checks credentials and issues a token for the user's tenant.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, store.ErrInvalidCredential
	}
	user, tenant, err := s.store.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	tok, err := s.tokens.Issue(token.Identity{
		UserID:     user.ID,
		Email:      user.Email,
		Role:       user.Role,
		TenantID:   tenant.ID,
		TenantSlug: tenant.ID,
	}, 0)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{Token: tok, User: *user, Tenant: *tenant}, nil
}

type NoteList struct {
	Items      []models.Note
	TenantPlan models.Plan
	CanCreate  bool
	Limit      int
}

func (s *Service) ListNotes(ctx context.Context, c *token.Claims) (*NoteList, error) {
	tenant, err := s.store.TenantByID(ctx, c.TenantID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListNotes(ctx, c.TenantID)
	if err != nil {
		return nil, err
	}
	return &NoteList{
		Items:      items,
		TenantPlan: tenant.Plan,
		CanCreate:  CanCreate(tenant.Plan, len(items)),
		Limit:      FreeNoteLimit,
	}, nil
}

func (s *Service) GetNote(ctx context.Context, c *token.Claims, id string) (*models.Note, error) {
	return s.store.GetNote(ctx, c.TenantID, id)
}

// CreateNote adds a note for the caller's tenant, enforcing the free plan
// limit atomically with the insert. A tenant at its limit gets
// ErrQuotaExceeded even when the title is missing.
func (s *Service) CreateNote(ctx context.Context, c *token.Claims, title, content string) (*models.Note, error) {
	return s.store.CreateNoteGuarded(ctx, c.TenantID, title, content, func(t models.Tenant, count int) error {
		if err := quotaGuard(t, count); err != nil {
			return err
		}
		if strings.TrimSpace(title) == "" {
			return fmt.Errorf("%w: title required", ErrValidation)
		}
		return nil
	})
}

func (s *Service) UpdateNote(ctx context.Context, c *token.Claims, id, title, content string) (*models.Note, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: title required", ErrValidation)
	}
	return s.store.UpdateNote(ctx, c.TenantID, id, title, content)
}

func (s *Service) DeleteNote(ctx context.Context, c *token.Claims, id string) error {
	ok, err := s.store.DeleteNote(ctx, c.TenantID, id)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrNotFound
	}
	return nil
}

// UpgradeTenant moves the caller's own tenant to the pro plan. Only admins
// may upgrade, and only their own tenant.
func (s *Service) UpgradeTenant(ctx context.Context, c *token.Claims, slug string) (*models.Tenant, error) {
	if c.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	tenant, err := s.store.TenantBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if tenant.ID != c.TenantID {
		return nil, ErrForbidden
	}
	if err := s.store.SetPlan(ctx, slug, models.PlanPro); err != nil {
		return nil, err
	}
	return s.store.TenantBySlug(ctx, slug)
}
