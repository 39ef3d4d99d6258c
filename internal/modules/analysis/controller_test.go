package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/uxlens/uxlens-backend/internal/data/repos"
	"github.com/uxlens/uxlens-backend/internal/data/repos/testutil"
	types "github.com/uxlens/uxlens-backend/internal/domain"
	da "github.com/uxlens/uxlens-backend/internal/domain/analysis"
	"github.com/uxlens/uxlens-backend/internal/modules/analysis/steps"
	"github.com/uxlens/uxlens-backend/internal/platform/dbctx"
	"github.com/uxlens/uxlens-backend/internal/platform/errs"
	"github.com/uxlens/uxlens-backend/internal/platform/logger"
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

type fakeAnalyzer struct {
	name    string
	payload map[string]any
	err     error
}

func (f *fakeAnalyzer) Name() string { return f.name }

func (f *fakeAnalyzer) Analyze(ctx context.Context, req steps.AnalyzerRequest) (steps.AnalyzerResult, error) {
	if f.err != nil {
		return steps.AnalyzerResult{}, f.err
	}
	return steps.AnalyzerResult{Backend: f.name, Payload: f.payload}, nil
}

func analyzerPayload() map[string]any {
	return map[string]any{
		"summary": "Clear layout, weak call to action.",
		"score":   68.0,
		"priorities": map[string]any{
			"works": []any{"navigation"},
			"hurts": []any{"cta placement"},
			"next":  []any{"raise the cta"},
		},
		"feedback": []any{
			map[string]any{
				"image_index": 1.0,
				"severity":    "high",
				"category":    "conversion",
				"text":        "Primary CTA is below the fold.",
				"x":           50.0,
				"y":           88.0,
				"width":       nil,
				"height":      nil,
			},
		},
	}
}

type controllerEnv struct {
	db       *gorm.DB
	log      *logger.Logger
	sessions repos.SessionRepo
	images   repos.SessionImageRepo
	results  repos.AnalysisResultRepo
}

func newControllerEnv(t *testing.T) controllerEnv {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return controllerEnv{
		db:       db,
		log:      log,
		sessions: repos.NewSessionRepo(db, log),
		images:   repos.NewSessionImageRepo(db, log),
		results:  repos.NewAnalysisResultRepo(db, log),
	}
}

func (e controllerEnv) controller(t *testing.T, vision *fakeVision, analyzers ...steps.Analyzer) Controller {
	t.Helper()
	c, err := NewController(ControllerDeps{
		DB:        e.db,
		Log:       e.log,
		Sessions:  e.sessions,
		Images:    e.images,
		Results:   e.results,
		Vision:    vision,
		Analyzers: analyzers,
	})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return c
}

func (e controllerEnv) session(t *testing.T, ctx context.Context, mode string, imageCount int) (*types.Session, []*types.SessionImage) {
	t.Helper()
	sess := testutil.SeedSession(t, ctx, e.db, uuid.New(), string(da.PersonaStrategic))
	if mode != sess.Mode {
		if err := e.db.WithContext(ctx).Model(sess).Update("mode", mode).Error; err != nil {
			t.Fatalf("set mode: %v", err)
		}
		sess.Mode = mode
	}
	images := make([]*types.SessionImage, 0, imageCount)
	for i := 0; i < imageCount; i++ {
		images = append(images, testutil.SeedSessionImage(t, ctx, e.db, sess.ID, i))
	}
	return sess, images
}

func (e controllerEnv) sessionRow(t *testing.T, ctx context.Context, id uuid.UUID) *types.Session {
	t.Helper()
	row, err := e.sessions.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	return row
}

func dashboardVision(images []*types.SessionImage) *fakeVision {
	labels := map[string][]types.LabelScore{}
	for _, img := range images {
		labels[img.URL] = []types.LabelScore{{Label: "Dashboard", Score: 0.92}}
	}
	return &fakeVision{labels: labels}
}

// Scenario: one image, one analyzer, everything succeeds.
func TestControllerCompletesSingleAnalyzer(t *testing.T) {
	env := newControllerEnv(t)
	ctx := context.Background()
	sess, images := env.session(t, ctx, "single", 1)

	ctrl := env.controller(t, dashboardVision(images), &fakeAnalyzer{name: "openai", payload: analyzerPayload()})
	out, err := ctrl.Start(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !out.Started || out.Status != da.StatusCompleted {
		t.Fatalf("expected started+completed, got %+v", out)
	}
	if out.ResultID == uuid.Nil {
		t.Fatalf("expected a result id")
	}

	row := env.sessionRow(t, ctx, sess.ID)
	if row.Status != string(da.StatusCompleted) || row.Stage != "" || row.Error != "" {
		t.Fatalf("session row not completed cleanly: %+v", row)
	}
	if row.StartedAt == nil || row.CompletedAt == nil {
		t.Fatalf("expected started/completed timestamps: %+v", row)
	}

	result, err := env.results.GetLatestBySessionID(dbctx.Context{Ctx: ctx}, sess.ID)
	if err != nil {
		t.Fatalf("GetLatestBySessionID: %v", err)
	}
	var anns []types.Annotation
	if err := json.Unmarshal(result.Annotations, &anns); err != nil {
		t.Fatalf("decode annotations: %v", err)
	}
	if len(anns) == 0 {
		t.Fatalf("expected at least one annotation")
	}
	for _, ann := range anns {
		if ann.Agreement != 1.0 {
			t.Fatalf("single source must have no agreement ambiguity, got %v", ann.Agreement)
		}
	}
	if result.Degraded {
		t.Fatalf("clean run should not be degraded")
	}
}

// Scenario: classifier fails on the middle image only; the run still
// completes with all three outcomes recorded.
func TestControllerAbsorbsClassifierFailure(t *testing.T) {
	env := newControllerEnv(t)
	ctx := context.Background()
	sess, images := env.session(t, ctx, "single", 3)

	vision := dashboardVision(images)
	vision.fail = map[string]error{images[1].URL: fmt.Errorf("vision unavailable")}

	ctrl := env.controller(t, vision, &fakeAnalyzer{name: "openai", payload: analyzerPayload()})
	out, err := ctrl.Start(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if out.Status != da.StatusCompleted {
		t.Fatalf("classifier failure must not fail the session, got %+v", out)
	}

	rows, err := env.images.GetBySessionID(dbctx.Context{Ctx: ctx}, sess.ID)
	if err != nil {
		t.Fatalf("GetBySessionID: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 image rows, got %d", len(rows))
	}
	if rows[1].ClassifyError == "" || rows[1].Confidence != 0 || rows[1].ScreenType != da.ScreenFallback {
		t.Fatalf("image 2 should carry the fallback outcome: %+v", rows[1])
	}
	if rows[0].ClassifyError != "" || rows[2].ClassifyError != "" {
		t.Fatalf("other images should classify cleanly")
	}

	result, err := env.results.GetLatestBySessionID(dbctx.Context{Ctx: ctx}, sess.ID)
	if err != nil {
		t.Fatalf("GetLatestBySessionID: %v", err)
	}
	var meta types.ResultMetadata
	if err := json.Unmarshal(result.Metadata, &meta); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if meta.ClassifierErrors != 1 {
		t.Fatalf("metadata should count the classifier fallback, got %+v", meta)
	}
}

// Scenario: two analyzers configured, one fails; the session completes
// degraded with a single model used.
func TestControllerDegradesWhenOneAnalyzerFails(t *testing.T) {
	env := newControllerEnv(t)
	ctx := context.Background()
	sess, images := env.session(t, ctx, "multi", 1)

	ctrl := env.controller(t, dashboardVision(images),
		&fakeAnalyzer{name: "openai", payload: analyzerPayload()},
		&fakeAnalyzer{name: "gemini", err: context.DeadlineExceeded},
	)
	out, err := ctrl.Start(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if out.Status != da.StatusCompleted {
		t.Fatalf("expected degraded completion, got %+v", out)
	}

	result, err := env.results.GetLatestBySessionID(dbctx.Context{Ctx: ctx}, sess.ID)
	if err != nil {
		t.Fatalf("GetLatestBySessionID: %v", err)
	}
	var meta types.ResultMetadata
	if err := json.Unmarshal(result.Metadata, &meta); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if len(meta.ModelsConfigured) != 2 || len(meta.ModelsUsed) != 1 {
		t.Fatalf("expected 2 configured / 1 used, got %+v", meta)
	}
	if !result.Degraded {
		t.Fatalf("losing an analyzer should mark the result degraded")
	}
	if len(meta.Warnings) == 0 {
		t.Fatalf("expected a warning naming the failed analyzer")
	}
}

// Scenario: every analyzer fails; the session fails at the analysis stage.
func TestControllerFailsWhenAllAnalyzersFail(t *testing.T) {
	env := newControllerEnv(t)
	ctx := context.Background()
	sess, images := env.session(t, ctx, "multi", 1)

	ctrl := env.controller(t, dashboardVision(images),
		&fakeAnalyzer{name: "openai", err: fmt.Errorf("rate limited")},
		&fakeAnalyzer{name: "gemini", err: context.DeadlineExceeded},
	)
	out, err := ctrl.Start(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Start should not error past its boundary: %v", err)
	}
	if out.Status != da.StatusFailed || out.Stage != da.StageAnalyze {
		t.Fatalf("expected failed at analysis, got %+v", out)
	}

	row := env.sessionRow(t, ctx, sess.ID)
	if row.Status != string(da.StatusFailed) || row.Stage != da.StageAnalyze || row.Error == "" {
		t.Fatalf("failure not recorded on the session row: %+v", row)
	}
}

// Scenario: zero images; start rejects before leaving draft.
func TestControllerRejectsEmptySession(t *testing.T) {
	env := newControllerEnv(t)
	ctx := context.Background()
	sess, _ := env.session(t, ctx, "single", 0)

	ctrl := env.controller(t, &fakeVision{}, &fakeAnalyzer{name: "openai", payload: analyzerPayload()})
	_, err := ctrl.Start(ctx, sess.ID)
	if !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}

	row := env.sessionRow(t, ctx, sess.ID)
	if row.Status != string(da.StatusDraft) {
		t.Fatalf("session must stay draft, got %q", row.Status)
	}
}

func TestControllerStartIsIdempotent(t *testing.T) {
	env := newControllerEnv(t)
	ctx := context.Background()
	sess, images := env.session(t, ctx, "single", 1)

	ctrl := env.controller(t, dashboardVision(images), &fakeAnalyzer{name: "openai", payload: analyzerPayload()})
	first, err := ctrl.Start(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if first.Status != da.StatusCompleted {
		t.Fatalf("setup run should complete, got %+v", first)
	}

	second, err := ctrl.Start(ctx, sess.ID)
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if second.Started {
		t.Fatalf("second Start must not run the pipeline")
	}
	if second.Status != da.StatusCompleted {
		t.Fatalf("second Start should report the terminal status, got %+v", second)
	}

	results, err := env.results.GetBySessionID(dbctx.Context{Ctx: ctx}, sess.ID)
	if err != nil {
		t.Fatalf("GetBySessionID: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly one result, got %d", len(results))
	}
}

func TestControllerUnknownSession(t *testing.T) {
	env := newControllerEnv(t)
	ctrl := env.controller(t, &fakeVision{}, &fakeAnalyzer{name: "openai", payload: analyzerPayload()})
	if _, err := ctrl.Start(context.Background(), uuid.New()); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
