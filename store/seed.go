package store

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"tenant-notes/models"
)

type SeedUser struct {
	ID       string
	Email    string
	Password string
	Role     models.Role
	TenantID string
}

type SeedData struct {
	Tenants []models.Tenant
	Users   []SeedUser
}

// DemoSeed returns the two demo tenants and their users. Every password is
// "password".
func DemoSeed() SeedData {
	return SeedData{
		Tenants: []models.Tenant{
			{ID: "acme", Name: "Acme", Plan: models.PlanFree},
			{ID: "globex", Name: "Globex", Plan: models.PlanFree},
		},
		Users: []SeedUser{
			{ID: "u1", Email: "admin@acme.test", Password: "password", Role: models.RoleAdmin, TenantID: "acme"},
			{ID: "u2", Email: "user@acme.test", Password: "password", Role: models.RoleMember, TenantID: "acme"},
			{ID: "u3", Email: "admin@globex.test", Password: "password", Role: models.RoleAdmin, TenantID: "globex"},
			{ID: "u4", Email: "user@globex.test", Password: "password", Role: models.RoleMember, TenantID: "globex"},
		},
	}
}

// hashUsers validates the seed and turns it into stored user records.
func (d SeedData) hashUsers(cost int) ([]models.User, error) {
	tenants := make(map[string]bool, len(d.Tenants))
	for _, t := range d.Tenants {
		if !t.Plan.Valid() {
			return nil, fmt.Errorf("seed tenant %s: %w", t.ID, ErrInvalidPlan)
		}
		tenants[t.ID] = true
	}

	emails := make(map[string]bool, len(d.Users))
	users := make([]models.User, 0, len(d.Users))
	for _, u := range d.Users {
		if !tenants[u.TenantID] {
			return nil, fmt.Errorf("seed user %s: unknown tenant %q", u.ID, u.TenantID)
		}
		key := strings.ToLower(u.Email)
		if emails[key] {
			return nil, fmt.Errorf("seed user %s: duplicate email %q", u.ID, u.Email)
		}
		emails[key] = true

		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), cost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", u.ID, err)
		}
		users = append(users, models.User{
			ID:           u.ID,
			Email:        u.Email,
			PasswordHash: string(hash),
			Role:         u.Role,
			TenantID:     u.TenantID,
		})
	}
	return users, nil
}
