package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uxlens/uxlens-backend/internal/data/repos/testutil"
	types "github.com/uxlens/uxlens-backend/internal/domain"
	"github.com/uxlens/uxlens-backend/internal/platform/dbctx"
	"gorm.io/datatypes"
)

func TestAnalysisResultRepoLatestWins(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewAnalysisResultRepo(db, testutil.Logger(t))

	s := testutil.SeedSession(t, ctx, tx, uuid.New(), "strategic")

	if latest, err := repo.GetLatestBySessionID(dbc, s.ID); err != nil || latest != nil {
		t.Fatalf("latest on empty session: got=%+v err=%v", latest, err)
	}

	first := &types.AnalysisResult{
		ID:          uuid.New(),
		SessionID:   s.ID,
		Persona:     "strategic",
		Summary:     "first run",
		Annotations: datatypes.JSON([]byte("[]")),
		CreatedAt:   time.Now().Add(-time.Minute),
	}
	second := &types.AnalysisResult{
		ID:          uuid.New(),
		SessionID:   s.ID,
		Persona:     "strategic",
		Summary:     "second run",
		Annotations: datatypes.JSON([]byte("[]")),
		CreatedAt:   time.Now(),
	}
	if _, err := repo.Create(dbc, []*types.AnalysisResult{first, second}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	latest, err := repo.GetLatestBySessionID(dbc, s.ID)
	if err != nil {
		t.Fatalf("GetLatestBySessionID: %v", err)
	}
	if latest == nil || latest.ID != second.ID {
		t.Fatalf("latest = %+v, want second run", latest)
	}

	all, err := repo.GetBySessionID(dbc, s.ID)
	if err != nil || len(all) != 2 {
		t.Fatalf("GetBySessionID: err=%v len=%d", err, len(all))
	}
	if all[0].ID != second.ID {
		t.Fatalf("results not ordered newest first")
	}
}
