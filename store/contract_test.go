package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-notes/models"
)

var errQuota = errors.New("quota")

func freeLimit(limit int) Guard {
	return func(t models.Tenant, count int) error {
		if t.Plan == models.PlanPro || count < limit {
			return nil
		}
		return errQuota
	}
}

// runContract exercises the TenantStore behaviour every implementation must
// share. newStore must return a store seeded with DemoSeed.
func runContract(t *testing.T, newStore func(t *testing.T) TenantStore) {
	ctx := context.Background()

	t.Run("authenticate is case insensitive", func(t *testing.T) {
		s := newStore(t)
		user, tenant, err := s.Authenticate(ctx, "ADMIN@ACME.TEST", "password")
		require.NoError(t, err)
		assert.Equal(t, "u1", user.ID)
		assert.Equal(t, "acme", user.TenantID)
		assert.Equal(t, models.RoleAdmin, user.Role)
		assert.Equal(t, "acme", tenant.ID)
	})

	t.Run("authenticate failures are indistinguishable", func(t *testing.T) {
		s := newStore(t)
		_, _, errWrongPass := s.Authenticate(ctx, "admin@acme.test", "nope")
		_, _, errNoUser := s.Authenticate(ctx, "ghost@acme.test", "password")
		_, _, errEmpty := s.Authenticate(ctx, "", "")
		assert.ErrorIs(t, errWrongPass, ErrInvalidCredential)
		assert.ErrorIs(t, errNoUser, ErrInvalidCredential)
		assert.ErrorIs(t, errEmpty, ErrInvalidCredential)
		assert.Equal(t, errWrongPass.Error(), errNoUser.Error())
	})

	t.Run("unknown email costs like a wrong password", func(t *testing.T) {
		s := newStore(t)
		const rounds = 10
		timeIt := func(email, password string) time.Duration {
			start := time.Now()
			for i := 0; i < rounds; i++ {
				_, _, err := s.Authenticate(ctx, email, password)
				require.ErrorIs(t, err, ErrInvalidCredential)
			}
			return time.Since(start)
		}
		wrongPass := timeIt("admin@acme.test", "nope")
		noUser := timeIt("ghost@acme.test", "password")
		assert.Less(t, noUser, 3*wrongPass+20*time.Millisecond,
			"unknown email took %v, wrong password took %v", noUser, wrongPass)
	})

	t.Run("tenant lookups", func(t *testing.T) {
		s := newStore(t)
		tn, err := s.TenantBySlug(ctx, "globex")
		require.NoError(t, err)
		assert.Equal(t, models.Tenant{ID: "globex", Name: "Globex", Plan: models.PlanFree}, *tn)

		tn, err = s.TenantByID(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, "Acme", tn.Name)

		_, err = s.TenantBySlug(ctx, "initech")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("set plan", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SetPlan(ctx, "acme", models.PlanPro))
		require.NoError(t, s.SetPlan(ctx, "acme", models.PlanPro))
		tn, err := s.TenantByID(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, models.PlanPro, tn.Plan)

		other, err := s.TenantByID(ctx, "globex")
		require.NoError(t, err)
		assert.Equal(t, models.PlanFree, other.Plan)

		assert.NoError(t, s.SetPlan(ctx, "initech", models.PlanPro))
		assert.ErrorIs(t, s.SetPlan(ctx, "acme", models.Plan("enterprise")), ErrInvalidPlan)
	})

	t.Run("notes are tenant scoped", func(t *testing.T) {
		s := newStore(t)
		a, err := s.CreateNote(ctx, "acme", "acme note", "body")
		require.NoError(t, err)
		g, err := s.CreateNote(ctx, "globex", "globex note", "")
		require.NoError(t, err)

		acmeNotes, err := s.ListNotes(ctx, "acme")
		require.NoError(t, err)
		require.Len(t, acmeNotes, 1)
		for _, n := range acmeNotes {
			assert.Equal(t, "acme", n.TenantID)
		}

		_, err = s.GetNote(ctx, "acme", g.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetNote(ctx, "acme", "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = s.UpdateNote(ctx, "acme", g.ID, "hijack", "")
		assert.ErrorIs(t, err, ErrNotFound)

		deleted, err := s.DeleteNote(ctx, "acme", g.ID)
		require.NoError(t, err)
		assert.False(t, deleted)

		still, err := s.GetNote(ctx, "globex", g.ID)
		require.NoError(t, err)
		assert.Equal(t, "globex note", still.Title)

		got, err := s.GetNote(ctx, "acme", a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
		assert.Equal(t, "body", got.Content)
	})

	t.Run("empty list is not nil", func(t *testing.T) {
		s := newStore(t)
		notes, err := s.ListNotes(ctx, "globex")
		require.NoError(t, err)
		assert.NotNil(t, notes)
		assert.Empty(t, notes)
	})

	t.Run("create stamps timestamps and ids", func(t *testing.T) {
		s := newStore(t)
		n1, err := s.CreateNote(ctx, "acme", "one", "")
		require.NoError(t, err)
		n2, err := s.CreateNote(ctx, "acme", "two", "")
		require.NoError(t, err)

		assert.NotEmpty(t, n1.ID)
		assert.NotEqual(t, n1.ID, n2.ID)
		assert.True(t, n1.CreatedAt.Equal(n1.UpdatedAt))
		assert.False(t, n2.CreatedAt.Before(n1.CreatedAt))

		_, err = s.CreateNote(ctx, "initech", "orphan", "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update and delete", func(t *testing.T) {
		s := newStore(t)
		n, err := s.CreateNote(ctx, "acme", "draft", "v1")
		require.NoError(t, err)

		up, err := s.UpdateNote(ctx, "acme", n.ID, "final", "v2")
		require.NoError(t, err)
		assert.Equal(t, "final", up.Title)
		assert.Equal(t, "v2", up.Content)
		assert.True(t, up.CreatedAt.Equal(n.CreatedAt))
		assert.False(t, up.UpdatedAt.Before(n.UpdatedAt))

		got, err := s.GetNote(ctx, "acme", n.ID)
		require.NoError(t, err)
		assert.Equal(t, "final", got.Title)

		deleted, err := s.DeleteNote(ctx, "acme", n.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = s.DeleteNote(ctx, "acme", n.ID)
		require.NoError(t, err)
		assert.False(t, deleted)

		_, err = s.GetNote(ctx, "acme", n.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("quota then upgrade", func(t *testing.T) {
		s := newStore(t)
		guard := freeLimit(3)
		for i := 0; i < 3; i++ {
			_, err := s.CreateNoteGuarded(ctx, "acme", "n", "", guard)
			require.NoError(t, err)
		}

		_, err := s.CreateNoteGuarded(ctx, "acme", "fourth", "", guard)
		assert.ErrorIs(t, err, errQuota)
		count, err := s.CountNotes(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		require.NoError(t, s.SetPlan(ctx, "acme", models.PlanPro))
		fourth, err := s.CreateNoteGuarded(ctx, "acme", "fourth", "", guard)
		require.NoError(t, err)

		notes, err := s.ListNotes(ctx, "acme")
		require.NoError(t, err)
		require.Len(t, notes, 4)
		assert.Equal(t, fourth.ID, notes[0].ID)
	})

	t.Run("guard sees the tenant and its count", func(t *testing.T) {
		s := newStore(t)
		_, err := s.CreateNote(ctx, "globex", "existing", "")
		require.NoError(t, err)

		var seen models.Tenant
		seenCount := -1
		_, err = s.CreateNoteGuarded(ctx, "globex", "next", "", func(t models.Tenant, count int) error {
			seen, seenCount = t, count
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "globex", seen.ID)
		assert.Equal(t, 1, seenCount)
	})

	t.Run("concurrent creates never exceed the limit", func(t *testing.T) {
		s := newStore(t)
		guard := freeLimit(3)
		for i := 0; i < 2; i++ {
			_, err := s.CreateNoteGuarded(ctx, "acme", "seed", "", guard)
			require.NoError(t, err)
		}

		const workers = 8
		var wg sync.WaitGroup
		results := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.CreateNoteGuarded(ctx, "acme", "race", "", guard)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		ok, rejected := 0, 0
		for err := range results {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, errQuota):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, workers-1, rejected)

		count, err := s.CountNotes(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})
}
