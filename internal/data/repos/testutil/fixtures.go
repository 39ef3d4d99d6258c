package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	types "github.com/uxlens/uxlens-backend/internal/domain"
	"gorm.io/gorm"
)

func SeedSession(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerUserID uuid.UUID, persona string) *types.Session {
	tb.Helper()
	s := &types.Session{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		Persona:     persona,
		Mode:        "single",
		Intent:      "increase signups",
		Status:      string(types.StatusDraft),
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return s
}

func SeedSessionImage(tb testing.TB, ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, position int) *types.SessionImage {
	tb.Helper()
	img := &types.SessionImage{
		ID:         uuid.New(),
		SessionID:  sessionID,
		StorageKey: fmt.Sprintf("sessions/%s/%d.png", sessionID, position),
		URL:        fmt.Sprintf("https://storage.example.com/sessions/%s/%d.png", sessionID, position),
		Position:   position,
	}
	if err := tx.WithContext(ctx).Create(img).Error; err != nil {
		tb.Fatalf("seed session image: %v", err)
	}
	return img
}
