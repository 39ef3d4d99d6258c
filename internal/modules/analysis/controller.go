package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/uxlens/uxlens-backend/internal/clients/gcp"
	"github.com/uxlens/uxlens-backend/internal/data/repos"
	types "github.com/uxlens/uxlens-backend/internal/domain"
	da "github.com/uxlens/uxlens-backend/internal/domain/analysis"
	"github.com/uxlens/uxlens-backend/internal/modules/analysis/prompts"
	"github.com/uxlens/uxlens-backend/internal/modules/analysis/steps"
	"github.com/uxlens/uxlens-backend/internal/observability"
	"github.com/uxlens/uxlens-backend/internal/platform/ctxutil"
	"github.com/uxlens/uxlens-backend/internal/platform/dbctx"
	"github.com/uxlens/uxlens-backend/internal/platform/errs"
	"github.com/uxlens/uxlens-backend/internal/platform/logger"
	"github.com/uxlens/uxlens-backend/internal/services"
)

// Controller owns the session state machine and sequences the pipeline
// stages. It is the only component with durable side effects, and the only
// place that decides whether a stage failure is absorbed or fatal.
type Controller interface {
	Start(ctx context.Context, sessionID uuid.UUID) (StartOutcome, error)
}

// StartOutcome is what callers observe instead of exceptions: the terminal
// (or current) status plus failure detail when the run ended in failed.
type StartOutcome struct {
	SessionID uuid.UUID    `json:"session_id"`
	Status    types.Status `json:"status"`
	Started   bool         `json:"started"`
	Stage     string       `json:"stage,omitempty"`
	Error     string       `json:"error,omitempty"`
	ResultID  uuid.UUID    `json:"result_id,omitempty"`
}

type ControllerDeps struct {
	DB        *gorm.DB
	Log       *logger.Logger
	Sessions  repos.SessionRepo
	Images    repos.SessionImageRepo
	Results   repos.AnalysisResultRepo
	Vision    gcp.Vision
	Analyzers []steps.Analyzer
	Notifier  services.SessionNotifier
}

type controller struct {
	deps ControllerDeps
	log  *logger.Logger
}

func NewController(deps ControllerDeps) (Controller, error) {
	if deps.DB == nil || deps.Log == nil || deps.Sessions == nil || deps.Images == nil || deps.Results == nil || deps.Vision == nil {
		return nil, fmt.Errorf("analysis controller: missing deps")
	}
	if len(deps.Analyzers) == 0 {
		return nil, fmt.Errorf("analysis controller: no analyzers configured")
	}
	return &controller{
		deps: deps,
		log:  deps.Log.With("service", "AnalysisController"),
	}, nil
}

// Start runs the full pipeline for a draft session. Preconditions (session
// exists, has images, is draft) fail fast without leaving draft. Everything
// after the draft->processing transition resolves to a terminal status
// rather than an error: callers observe status, not exceptions.
func (c *controller) Start(ctx context.Context, sessionID uuid.UUID) (StartOutcome, error) {
	ctx = ctxutil.Default(ctx)
	out := StartOutcome{SessionID: sessionID}

	if sessionID == uuid.Nil {
		return out, fmt.Errorf("%w: missing session id", errs.ErrInvalidArgument)
	}

	sess, err := c.deps.Sessions.GetByIDWithImages(dbctx.Context{Ctx: ctx}, sessionID)
	if err != nil {
		return out, err
	}
	if sess == nil {
		return out, fmt.Errorf("%w: session %s", errs.ErrNotFound, sessionID)
	}
	if len(sess.Images) == 0 {
		return out, fmt.Errorf("%w: session has no images", errs.ErrInvalidArgument)
	}
	if types.Status(sess.Status) != da.StatusDraft {
		// Idempotent: report where the session already is, start nothing.
		out.Status = types.Status(sess.Status)
		out.Stage = sess.Stage
		out.Error = sess.Error
		return out, nil
	}

	now := time.Now().UTC()
	won, err := c.deps.Sessions.TransitionStatus(dbctx.Context{Ctx: ctx}, sessionID, da.StatusDraft, da.StatusProcessing, map[string]interface{}{
		"stage":      "",
		"error":      "",
		"started_at": now,
	})
	if err != nil {
		return out, err
	}
	if !won {
		// A concurrent Start won the guard; this call is a no-op.
		out.Status = da.StatusProcessing
		if current, gerr := c.deps.Sessions.GetByID(dbctx.Context{Ctx: ctx}, sessionID); gerr == nil && current != nil {
			out.Status = types.Status(current.Status)
		}
		return out, nil
	}
	out.Started = true

	resultID, runErr := c.run(ctx, sess)
	if runErr != nil {
		stage := errs.StageOf(runErr, da.StageAnalyze)
		c.log.Error("analysis pipeline failed",
			"session_id", sessionID,
			"stage", stage,
			"error", runErr,
		)
		c.markFailed(ctx, sess, stage, runErr.Error())
		out.Status = da.StatusFailed
		out.Stage = stage
		out.Error = runErr.Error()
		return out, nil
	}

	out.Status = da.StatusCompleted
	out.ResultID = resultID
	if c.deps.Notifier != nil {
		c.deps.Notifier.SessionCompleted(ctx, sess.OwnerUserID, sess.ID, resultID)
	}
	return out, nil
}

// run executes the stages in order and returns a StageError identifying the
// first stage that could not be absorbed.
func (c *controller) run(ctx context.Context, sess *types.Session) (uuid.UUID, error) {
	pipelineStart := time.Now()
	durations := map[string]int64{}
	observeStage := func(stage string, start time.Time, failed bool) {
		elapsed := time.Since(start)
		durations[stage] = elapsed.Milliseconds()
		status := "ok"
		if failed {
			status = "failed"
		}
		if m := observability.Current(); m != nil {
			m.ObserveStage(stage, status, elapsed)
		}
	}
	progress := func(stage string) {
		if c.deps.Notifier != nil {
			c.deps.Notifier.SessionProgress(ctx, sess.OwnerUserID, sess.ID, stage)
		}
	}

	images := make([]*types.SessionImage, 0, len(sess.Images))
	for i := range sess.Images {
		images = append(images, &sess.Images[i])
	}

	// Classification: per-image failures are absorbed inside the step; only
	// a structural failure (no images, missing deps) escalates.
	progress(da.StageClassify)
	stageStart := time.Now()
	classified, err := steps.ScreenClassify(ctx, steps.ScreenClassifyDeps{
		Log:    c.deps.Log,
		Images: c.deps.Images,
		Vision: c.deps.Vision,
	}, steps.ScreenClassifyInput{Images: images})
	observeStage(da.StageClassify, stageStart, err != nil)
	if err != nil {
		return uuid.Nil, errs.Stage(da.StageClassify, err)
	}

	progress(da.StagePrompt)
	stageStart = time.Now()
	prompt, err := prompts.Build(prompts.Input{
		Persona:        types.Persona(sess.Persona),
		Mode:           types.Mode(sess.Mode),
		Intent:         sess.Intent,
		GoalConfidence: sess.GoalConfidence,
		Detections:     classified.Detections,
	})
	observeStage(da.StagePrompt, stageStart, err != nil)
	if err != nil {
		return uuid.Nil, errs.Stage(da.StagePrompt, err)
	}

	analyzers := c.analyzersFor(types.Mode(sess.Mode))
	imageURLs := make([]string, 0, len(images))
	for _, img := range images {
		imageURLs = append(imageURLs, img.URL)
	}

	progress(da.StageAnalyze)
	stageStart = time.Now()
	analyzed, err := steps.Analyze(ctx, steps.AnalyzeDeps{
		Log:       c.deps.Log,
		Analyzers: analyzers,
	}, steps.AnalyzeInput{Request: steps.AnalyzerRequest{
		System:     prompt.System,
		Prompt:     prompt.User,
		SchemaName: prompt.SchemaName,
		Schema:     prompt.Schema,
		ImageURLs:  imageURLs,
		Persona:    types.Persona(sess.Persona),
	}})
	allFailed := err == nil && len(analyzed.Results) == 0
	observeStage(da.StageAnalyze, stageStart, err != nil || allFailed)
	if err != nil {
		return uuid.Nil, errs.Stage(da.StageAnalyze, err)
	}
	if allFailed {
		return uuid.Nil, errs.Stage(da.StageAnalyze, analyzerFailureError(analyzed.Failures))
	}

	progress(da.StageSynthesize)
	stageStart = time.Now()
	synth, err := steps.Synthesize(steps.SynthesizeDeps{Log: c.deps.Log}, steps.SynthesizeInput{
		Results:    analyzed.Results,
		Detections: classified.Detections,
		Persona:    types.Persona(sess.Persona),
	})
	observeStage(da.StageSynthesize, stageStart, err != nil)
	if err != nil {
		return uuid.Nil, errs.Stage(da.StageSynthesize, err)
	}

	progress(da.StagePersist)
	stageStart = time.Now()
	resultID, err := c.persist(ctx, sess, analyzers, classified, analyzed, synth, durations, pipelineStart)
	observeStage(da.StagePersist, stageStart, err != nil)
	if err != nil {
		return uuid.Nil, errs.Stage(da.StagePersist, err)
	}
	return resultID, nil
}

func (c *controller) persist(
	ctx context.Context,
	sess *types.Session,
	analyzers []steps.Analyzer,
	classified steps.ScreenClassifyOutput,
	analyzed steps.AnalyzeOutput,
	synth steps.SynthesizeOutput,
	durations map[string]int64,
	pipelineStart time.Time,
) (uuid.UUID, error) {
	configured := make([]string, 0, len(analyzers))
	for _, a := range analyzers {
		configured = append(configured, a.Name())
	}
	used := make([]string, 0, len(analyzed.Results))
	for _, r := range analyzed.Results {
		used = append(used, r.Backend)
	}

	warnings := append([]string(nil), synth.Warnings...)
	for _, f := range analyzed.Failures {
		warnings = append(warnings, fmt.Sprintf("%s analyzer failed: %v", f.Backend, f.Err))
	}
	degraded := synth.Degraded || len(analyzed.Failures) > 0

	meta := types.ResultMetadata{
		ModelsConfigured: configured,
		ModelsUsed:       used,
		StageDurationsMS: durations,
		ClassifierErrors: classified.Fallbacks,
		Warnings:         warnings,
	}

	row := &types.AnalysisResult{
		ID:              uuid.New(),
		SessionID:       sess.ID,
		Persona:         sess.Persona,
		Summary:         synth.Summary,
		PersonaFeedback: jsonColumn(synth.PersonaFeedback),
		Priorities:      jsonColumn(synth.Priorities),
		Annotations:     jsonColumn(synth.Annotations),
		Metadata:        jsonColumn(meta),
		Degraded:        degraded,
		ProcessingMS:    time.Since(pipelineStart).Milliseconds(),
		Score:           synth.Score,
	}

	now := time.Now().UTC()
	err := c.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := c.deps.Results.Create(dbc, []*types.AnalysisResult{row}); err != nil {
			return err
		}
		won, err := c.deps.Sessions.TransitionStatus(dbc, sess.ID, da.StatusProcessing, da.StatusCompleted, map[string]interface{}{
			"stage":        "",
			"error":        "",
			"completed_at": now,
		})
		if err != nil {
			return err
		}
		if !won {
			return fmt.Errorf("session %s left processing during the run", sess.ID)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return row.ID, nil
}

// markFailed is best-effort: if even the failure write fails there is
// nothing left to do but log.
func (c *controller) markFailed(ctx context.Context, sess *types.Session, stage, message string) {
	now := time.Now().UTC()
	won, err := c.deps.Sessions.TransitionStatus(dbctx.Context{Ctx: ctx}, sess.ID, da.StatusProcessing, da.StatusFailed, map[string]interface{}{
		"stage":        stage,
		"error":        message,
		"completed_at": now,
	})
	if err != nil || !won {
		c.log.Error("failed to record session failure", "session_id", sess.ID, "stage", stage, "error", err)
	}
	if c.deps.Notifier != nil {
		c.deps.Notifier.SessionFailed(ctx, sess.OwnerUserID, sess.ID, stage, message)
	}
}

// analyzersFor picks the backend set for the session's mode: single mode
// runs only the primary backend, multi mode fans out to every configured
// one.
func (c *controller) analyzersFor(mode types.Mode) []steps.Analyzer {
	if mode == da.ModeMulti {
		return c.deps.Analyzers
	}
	return c.deps.Analyzers[:1]
}

func analyzerFailureError(failures []steps.AnalyzerFailure) error {
	if len(failures) == 0 {
		return fmt.Errorf("no analyzers produced output")
	}
	parts := make([]string, 0, len(failures))
	for _, f := range failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Backend, f.Err))
	}
	return fmt.Errorf("all %d analyzer(s) failed (%s)", len(failures), strings.Join(parts, "; "))
}

func jsonColumn(v any) datatypes.JSON {
	b, _ := json.Marshal(v)
	return datatypes.JSON(b)
}
