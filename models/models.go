package models

import (
	"encoding/json"
	"time"
)

type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

func (p Plan) Valid() bool {
	return p == PlanFree || p == PlanPro
}

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

type Tenant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Plan Plan   `json:"plan"`
}

type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
	TenantID     string `json:"tenantId"`
}

// Note timestamps go over the wire as Unix milliseconds.
type Note struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

type noteJSON struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenantId"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

func (n Note) MarshalJSON() ([]byte, error) {
	return json.Marshal(noteJSON{
		ID:        n.ID,
		TenantID:  n.TenantID,
		Title:     n.Title,
		Content:   n.Content,
		CreatedAt: n.CreatedAt.UnixMilli(),
		UpdatedAt: n.UpdatedAt.UnixMilli(),
	})
}

func (n *Note) UnmarshalJSON(data []byte) error {
	var v noteJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Note{
		ID:        v.ID,
		TenantID:  v.TenantID,
		Title:     v.Title,
		Content:   v.Content,
		CreatedAt: time.UnixMilli(v.CreatedAt),
		UpdatedAt: time.UnixMilli(v.UpdatedAt),
	}
	return nil
}
