package analysis

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/uxlens/uxlens-backend/internal/data/repos/testutil"
	"github.com/uxlens/uxlens-backend/internal/platform/dbctx"
)

func TestSessionImageRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewSessionImageRepo(db, testutil.Logger(t))

	s := testutil.SeedSession(t, ctx, tx, uuid.New(), "executive")

	if pos, err := repo.MaxPosition(dbc, s.ID); err != nil || pos != -1 {
		t.Fatalf("MaxPosition on empty session: pos=%d err=%v", pos, err)
	}

	// Seed out of order; reads must come back by position.
	img2 := testutil.SeedSessionImage(t, ctx, tx, s.ID, 2)
	img0 := testutil.SeedSessionImage(t, ctx, tx, s.ID, 0)
	img1 := testutil.SeedSessionImage(t, ctx, tx, s.ID, 1)

	rows, err := repo.GetBySessionID(dbc, s.ID)
	if err != nil {
		t.Fatalf("GetBySessionID: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("GetBySessionID len=%d, want 3", len(rows))
	}
	for i, want := range []uuid.UUID{img0.ID, img1.ID, img2.ID} {
		if rows[i].ID != want {
			t.Fatalf("row %d = %s, want %s", i, rows[i].ID, want)
		}
	}

	if pos, err := repo.MaxPosition(dbc, s.ID); err != nil || pos != 2 {
		t.Fatalf("MaxPosition: pos=%d err=%v", pos, err)
	}

	if err := repo.SetClassification(dbc, img1.ID, "dashboard", 0.92, ""); err != nil {
		t.Fatalf("SetClassification: %v", err)
	}
	if err := repo.SetClassification(dbc, img2.ID, "interface", 0, "vision call timed out"); err != nil {
		t.Fatalf("SetClassification fallback: %v", err)
	}

	rows, err = repo.GetByIDs(dbc, []uuid.UUID{img1.ID, img2.ID})
	if err != nil || len(rows) != 2 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(rows))
	}
	for _, row := range rows {
		switch row.ID {
		case img1.ID:
			if row.ScreenType != "dashboard" || row.Confidence != 0.92 || row.ClassifyError != "" {
				t.Fatalf("img1 classification = %+v", row)
			}
		case img2.ID:
			if row.ScreenType != "interface" || row.Confidence != 0 || row.ClassifyError == "" {
				t.Fatalf("img2 fallback classification = %+v", row)
			}
		}
	}

	if err := repo.FullDeleteBySessionIDs(dbc, []uuid.UUID{s.ID}); err != nil {
		t.Fatalf("FullDeleteBySessionIDs: %v", err)
	}
	if rows, err := repo.GetBySessionID(dbc, s.ID); err != nil || len(rows) != 0 {
		t.Fatalf("after delete GetBySessionID: err=%v len=%d", err, len(rows))
	}
}
