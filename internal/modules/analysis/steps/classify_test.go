package steps

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/uxlens/uxlens-backend/internal/data/repos"
	"github.com/uxlens/uxlens-backend/internal/data/repos/testutil"
	types "github.com/uxlens/uxlens-backend/internal/domain"
	da "github.com/uxlens/uxlens-backend/internal/domain/analysis"
	"github.com/uxlens/uxlens-backend/internal/platform/dbctx"
)

type fakeVision struct {
	labels map[string][]types.LabelScore
	fail   map[string]error
}

func (f *fakeVision) LabelImageURL(ctx context.Context, imageURL string) ([]types.LabelScore, error) {
	if err, ok := f.fail[imageURL]; ok {
		return nil, err
	}
	return f.labels[imageURL], nil
}

func (f *fakeVision) Close() error { return nil }

func TestScreenTypeFromLabels(t *testing.T) {
	cases := []struct {
		labels    []types.LabelScore
		wantType  string
		wantScore float64
	}{
		{
			labels:    []types.LabelScore{{Label: "Dashboard", Score: 0.92}, {Label: "Chart", Score: 0.85}},
			wantType:  da.ScreenDashboard,
			wantScore: 0.92,
		},
		{
			// Highest-scoring matching label wins, not table order.
			labels:    []types.LabelScore{{Label: "Screenshot", Score: 0.99}, {Label: "Shopping cart", Score: 0.81}},
			wantType:  da.ScreenCheckout,
			wantScore: 0.81,
		},
		{
			labels:    []types.LabelScore{{Label: "Smartphone", Score: 0.77}},
			wantType:  da.ScreenMobile,
			wantScore: 0.77,
		},
		{
			labels:    []types.LabelScore{{Label: "Abstract art", Score: 0.9}},
			wantType:  da.ScreenFallback,
			wantScore: 0,
		},
		{
			labels:    nil,
			wantType:  da.ScreenFallback,
			wantScore: 0,
		},
	}
	for _, tc := range cases {
		gotType, gotScore := ScreenTypeFromLabels(tc.labels)
		if gotType != tc.wantType || gotScore != tc.wantScore {
			t.Fatalf("ScreenTypeFromLabels(%v) = (%q, %v), want (%q, %v)", tc.labels, gotType, gotScore, tc.wantType, tc.wantScore)
		}
	}
}

func TestScreenClassifyAbsorbsFailures(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	imagesRepo := repos.NewSessionImageRepo(db, log)

	ctx := context.Background()
	sess := testutil.SeedSession(t, ctx, db, uuid.New(), string(da.PersonaClarity))
	img0 := testutil.SeedSessionImage(t, ctx, db, sess.ID, 0)
	img1 := testutil.SeedSessionImage(t, ctx, db, sess.ID, 1)
	img2 := testutil.SeedSessionImage(t, ctx, db, sess.ID, 2)

	vision := &fakeVision{
		labels: map[string][]types.LabelScore{
			img0.URL: {{Label: "Dashboard", Score: 0.92}},
			img2.URL: {{Label: "Login form", Score: 0.66}},
		},
		fail: map[string]error{
			img1.URL: fmt.Errorf("vision deadline exceeded"),
		},
	}

	out, err := ScreenClassify(ctx, ScreenClassifyDeps{
		Log:    log,
		Images: imagesRepo,
		Vision: vision,
	}, ScreenClassifyInput{Images: []*types.SessionImage{img0, img1, img2}})
	if err != nil {
		t.Fatalf("ScreenClassify: %v", err)
	}

	if len(out.Detections) != 3 {
		t.Fatalf("expected exactly 3 detections, got %d", len(out.Detections))
	}
	if out.Fallbacks != 1 {
		t.Fatalf("expected 1 fallback, got %d", out.Fallbacks)
	}

	if d := out.Detections[0]; d.ScreenType != da.ScreenDashboard || d.Confidence != 0.92 || d.Failed() {
		t.Fatalf("unexpected detection for image 0: %+v", d)
	}
	if d := out.Detections[1]; d.ScreenType != da.ScreenFallback || d.Confidence != 0 || !d.Failed() {
		t.Fatalf("failed image should yield fallback detection, got %+v", d)
	}
	if !strings.Contains(out.Detections[1].Error, "deadline") {
		t.Fatalf("fallback detection should carry the error, got %q", out.Detections[1].Error)
	}
	if d := out.Detections[2]; d.ScreenType != da.ScreenForm {
		t.Fatalf("unexpected detection for image 2: %+v", d)
	}

	// Outcomes are persisted onto the image rows, failure included.
	rows, err := imagesRepo.GetBySessionID(dbctx.Context{Ctx: ctx}, sess.ID)
	if err != nil {
		t.Fatalf("GetBySessionID: %v", err)
	}
	if rows[1].ClassifyError == "" || rows[1].Confidence != 0 {
		t.Fatalf("image row 1 should record the classification failure, got %+v", rows[1])
	}
	if rows[0].ScreenType != da.ScreenDashboard {
		t.Fatalf("image row 0 should record the screen type, got %+v", rows[0])
	}
}
