package analysis

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/uxlens/uxlens-backend/internal/data/repos/testutil"
	types "github.com/uxlens/uxlens-backend/internal/domain"
	"github.com/uxlens/uxlens-backend/internal/platform/dbctx"
)

func TestSessionRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewSessionRepo(db, testutil.Logger(t))

	owner := uuid.New()
	s := &types.Session{
		ID:          uuid.New(),
		OwnerUserID: owner,
		Persona:     "strategic",
		Mode:        "single",
		Intent:      "improve onboarding",
		Status:      string(types.StatusDraft),
	}
	if _, err := repo.Create(dbc, []*types.Session{s}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(dbc, s.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.Persona != "strategic" {
		t.Fatalf("GetByID returned %+v", got)
	}

	if missing, err := repo.GetByID(dbc, uuid.New()); err != nil || missing != nil {
		t.Fatalf("GetByID missing: got=%+v err=%v", missing, err)
	}

	rows, err := repo.ListByOwner(dbc, owner, 10)
	if err != nil || len(rows) != 1 {
		t.Fatalf("ListByOwner: err=%v len=%d", err, len(rows))
	}
}

func TestSessionRepoTransitionStatus(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewSessionRepo(db, testutil.Logger(t))

	s := testutil.SeedSession(t, ctx, tx, uuid.New(), "clarity")

	ok, err := repo.TransitionStatus(dbc, s.ID, types.StatusDraft, types.StatusProcessing, nil)
	if err != nil {
		t.Fatalf("draft -> processing: %v", err)
	}
	if !ok {
		t.Fatalf("draft -> processing should win on a draft row")
	}

	// Second attempt loses the guard: the row is no longer draft.
	ok, err = repo.TransitionStatus(dbc, s.ID, types.StatusDraft, types.StatusProcessing, nil)
	if err != nil {
		t.Fatalf("second draft -> processing: %v", err)
	}
	if ok {
		t.Fatalf("second draft -> processing must be a no-op")
	}

	// Illegal moves are rejected before touching the row.
	if _, err := repo.TransitionStatus(dbc, s.ID, types.StatusCompleted, types.StatusProcessing, nil); err == nil {
		t.Fatalf("completed -> processing must be rejected")
	}
	if !IsConflict(func() error {
		_, err := repo.TransitionStatus(dbc, s.ID, types.StatusFailed, types.StatusCompleted, nil)
		return err
	}()) {
		t.Fatalf("failed -> completed must be a conflict")
	}

	ok, err = repo.TransitionStatus(dbc, s.ID, types.StatusProcessing, types.StatusCompleted, map[string]interface{}{
		"stage": "",
		"error": "",
	})
	if err != nil || !ok {
		t.Fatalf("processing -> completed: ok=%v err=%v", ok, err)
	}

	got, err := repo.GetByID(dbc, s.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != string(types.StatusCompleted) {
		t.Fatalf("status = %q, want completed", got.Status)
	}
}

func TestSessionRepoSoftDelete(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewSessionRepo(db, testutil.Logger(t))

	s := testutil.SeedSession(t, ctx, tx, uuid.New(), "mirror")

	if err := repo.SoftDeleteByIDs(dbc, []uuid.UUID{s.ID}); err != nil {
		t.Fatalf("SoftDeleteByIDs: %v", err)
	}
	if got, err := repo.GetByID(dbc, s.ID); err != nil || got != nil {
		t.Fatalf("after soft delete GetByID: got=%+v err=%v", got, err)
	}

	// The row survives physically.
	var count int64
	if err := tx.WithContext(ctx).Unscoped().Model(&types.Session{}).Where("id = ?", s.ID).Count(&count).Error; err != nil {
		t.Fatalf("unscoped count: %v", err)
	}
	if count != 1 {
		t.Fatalf("soft-deleted session should still exist unscoped, count=%d", count)
	}
}
