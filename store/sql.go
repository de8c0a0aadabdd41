package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tenant-notes/db"
	"tenant-notes/models"
)

const noteColumns = "id, tenant_id, title, content, created_at, updated_at"

// SQLStore implements TenantStore on MySQL or PostgreSQL. Guarded creates
// lock the tenant row for the duration of the count and insert.
type SQLStore struct {
	db      *sql.DB
	dialect db.Dialect
	now     func() time.Time
	miss    missHash
}

func NewSQLStore(conn *sql.DB, d db.Dialect) *SQLStore {
	return &SQLStore{db: conn, dialect: d, now: time.Now}
}

func (s *SQLStore) q(query string) string {
	return s.dialect.Rebind(query)
}

// stamp returns the current time at the precision both dialects store.
func (s *SQLStore) stamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *SQLStore) Seed(ctx context.Context, data SeedData, bcryptCost int) error {
	users, err := data.hashUsers(bcryptCost)
	if err != nil {
		return err
	}
	if err := s.miss.setCost(bcryptCost); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	for _, t := range data.Tenants {
		var n int
		if err := tx.QueryRowContext(ctx, s.q("SELECT COUNT(*) FROM tenants WHERE id = ?"), t.ID).Scan(&n); err != nil {
			return fmt.Errorf("seed tenant %s: %w", t.ID, err)
		}
		if n > 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, s.q("INSERT INTO tenants (id, name, plan) VALUES (?, ?, ?)"), t.ID, t.Name, string(t.Plan)); err != nil {
			return fmt.Errorf("seed tenant %s: %w", t.ID, err)
		}
	}
	for _, u := range users {
		var n int
		if err := tx.QueryRowContext(ctx, s.q("SELECT COUNT(*) FROM users WHERE id = ?"), u.ID).Scan(&n); err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
		if n > 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			s.q("INSERT INTO users (id, email, password_hash, role, tenant_id) VALUES (?, ?, ?, ?, ?)"),
			u.ID, u.Email, u.PasswordHash, string(u.Role), u.TenantID,
		); err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) Authenticate(ctx context.Context, email, password string) (*models.User, *models.Tenant, error) {
	var u models.User
	var t models.Tenant
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT u.id, u.email, u.password_hash, u.role, u.tenant_id, t.id, t.name, t.plan
		FROM users u JOIN tenants t ON t.id = u.tenant_id
		WHERE LOWER(u.email) = LOWER(?)`), email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.TenantID, &t.ID, &t.Name, &t.Plan)
	if errors.Is(err, sql.ErrNoRows) {
		s.miss.burn(password)
		return nil, nil, ErrInvalidCredential
	}
	if err != nil {
		return nil, nil, fmt.Errorf("authenticate: %w", err)
	}
	if !checkPassword(u.PasswordHash, password) {
		return nil, nil, ErrInvalidCredential
	}
	return &u, &t, nil
}

func (s *SQLStore) TenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	return s.TenantByID(ctx, slug)
}

func (s *SQLStore) TenantByID(ctx context.Context, id string) (*models.Tenant, error) {
	var t models.Tenant
	err := s.db.QueryRowContext(ctx, s.q("SELECT id, name, plan FROM tenants WHERE id = ?"), id).
		Scan(&t.ID, &t.Name, &t.Plan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

func (s *SQLStore) SetPlan(ctx context.Context, slug string, plan models.Plan) error {
	if !plan.Valid() {
		return ErrInvalidPlan
	}
	if _, err := s.db.ExecContext(ctx, s.q("UPDATE tenants SET plan = ? WHERE id = ?"), string(plan), slug); err != nil {
		return fmt.Errorf("set plan: %w", err)
	}
	return nil
}

func (s *SQLStore) ListNotes(ctx context.Context, tenantID string) ([]models.Note, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q("SELECT "+noteColumns+" FROM notes WHERE tenant_id = ? ORDER BY created_at DESC, seq DESC"), tenantID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := []models.Note{}
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.TenantID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

func (s *SQLStore) CountNotes(ctx context.Context, tenantID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, s.q("SELECT COUNT(*) FROM notes WHERE tenant_id = ?"), tenantID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	return n, nil
}

func (s *SQLStore) GetNote(ctx context.Context, tenantID, id string) (*models.Note, error) {
	var n models.Note
	err := s.db.QueryRowContext(ctx,
		s.q("SELECT "+noteColumns+" FROM notes WHERE id = ? AND tenant_id = ?"), id, tenantID,
	).Scan(&n.ID, &n.TenantID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return &n, nil
}

func (s *SQLStore) CreateNote(ctx context.Context, tenantID, title, content string) (*models.Note, error) {
	return s.CreateNoteGuarded(ctx, tenantID, title, content, nil)
}

func (s *SQLStore) CreateNoteGuarded(ctx context.Context, tenantID, title, content string, guard Guard) (*models.Note, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create note: %w", err)
	}
	defer tx.Rollback()

	var t models.Tenant
	err = tx.QueryRowContext(ctx, s.q("SELECT id, name, plan FROM tenants WHERE id = ? FOR UPDATE"), tenantID).
		Scan(&t.ID, &t.Name, &t.Plan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock tenant: %w", err)
	}

	if guard != nil {
		var count int
		if err := tx.QueryRowContext(ctx, s.q("SELECT COUNT(*) FROM notes WHERE tenant_id = ?"), tenantID).Scan(&count); err != nil {
			return nil, fmt.Errorf("count notes: %w", err)
		}
		if err := guard(t, count); err != nil {
			return nil, err
		}
	}

	now := s.stamp()
	n := models.Note{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := tx.ExecContext(ctx,
		s.q("INSERT INTO notes ("+noteColumns+") VALUES (?, ?, ?, ?, ?, ?)"),
		n.ID, n.TenantID, n.Title, n.Content, n.CreatedAt, n.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit note: %w", err)
	}
	return &n, nil
}

func (s *SQLStore) UpdateNote(ctx context.Context, tenantID, id, title, content string) (*models.Note, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update note: %w", err)
	}
	defer tx.Rollback()

	var n models.Note
	err = tx.QueryRowContext(ctx,
		s.q("SELECT "+noteColumns+" FROM notes WHERE id = ? AND tenant_id = ? FOR UPDATE"), id, tenantID,
	).Scan(&n.ID, &n.TenantID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}

	now := s.stamp()
	if now.Before(n.UpdatedAt) {
		now = n.UpdatedAt
	}
	n.Title, n.Content, n.UpdatedAt = title, content, now

	if _, err := tx.ExecContext(ctx,
		s.q("UPDATE notes SET title = ?, content = ?, updated_at = ? WHERE id = ? AND tenant_id = ?"),
		n.Title, n.Content, n.UpdatedAt, id, tenantID,
	); err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return &n, nil
}

func (s *SQLStore) DeleteNote(ctx context.Context, tenantID, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.q("DELETE FROM notes WHERE id = ? AND tenant_id = ?"), id, tenantID)
	if err != nil {
		return false, fmt.Errorf("delete note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete note: %w", err)
	}
	return affected > 0, nil
}
