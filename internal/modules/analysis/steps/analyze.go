package steps

import (
	"context"
	"fmt"
	"sync"
	"time"

	types "github.com/uxlens/uxlens-backend/internal/domain"
	"github.com/uxlens/uxlens-backend/internal/platform/envutil"
	"github.com/uxlens/uxlens-backend/internal/platform/logger"
)

// AnalyzerRequest is the backend-independent shape handed to every analyzer.
type AnalyzerRequest struct {
	System     string
	Prompt     string
	SchemaName string
	Schema     map[string]any
	ImageURLs  []string
	Persona    types.Persona
}

// AnalyzerResult is one backend's raw structured payload. The synthesizer
// never reads it directly; a per-backend normalization adapter does.
type AnalyzerResult struct {
	Backend string
	Payload map[string]any
}

// AnalyzerFailure records a backend that errored or timed out. Failures are
// data here; whether they are fatal is the controller's call.
type AnalyzerFailure struct {
	Backend string
	Err     error
}

// Analyzer is one vision-model backend. A single call is the unit of
// failure: calls for the same session share no state and may run
// concurrently.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, req AnalyzerRequest) (AnalyzerResult, error)
}

type AnalyzeDeps struct {
	Log       *logger.Logger
	Analyzers []Analyzer
}

type AnalyzeInput struct {
	Request AnalyzerRequest
}

type AnalyzeOutput struct {
	Results  []AnalyzerResult
	Failures []AnalyzerFailure
}

// Analyze fans the built prompt out to every configured analyzer and joins
// before returning. Each backend gets its own bounded timeout; a timed-out
// call is indistinguishable from a failed one. At least one result or the
// full failure list comes back; deciding between degrade and abort is left
// to the caller.
func Analyze(ctx context.Context, deps AnalyzeDeps, in AnalyzeInput) (AnalyzeOutput, error) {
	out := AnalyzeOutput{}
	if deps.Log == nil || len(deps.Analyzers) == 0 {
		return out, fmt.Errorf("analyze: missing deps")
	}

	timeout := envutil.Duration("ANALYZER_TIMEOUT", 3*time.Minute)

	type slot struct {
		result AnalyzerResult
		err    error
	}
	slots := make([]slot, len(deps.Analyzers))

	var wg sync.WaitGroup
	for i, a := range deps.Analyzers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			start := time.Now()
			res, err := a.Analyze(callCtx, in.Request)
			elapsed := time.Since(start)
			if err != nil {
				deps.Log.Warn("analyzer failed",
					"backend", a.Name(),
					"elapsed_ms", elapsed.Milliseconds(),
					"error", err,
				)
				slots[i] = slot{err: err}
				return
			}
			deps.Log.Info("analyzer finished",
				"backend", a.Name(),
				"elapsed_ms", elapsed.Milliseconds(),
			)
			slots[i] = slot{result: res}
		}()
	}
	wg.Wait()

	for i, s := range slots {
		if s.err != nil {
			out.Failures = append(out.Failures, AnalyzerFailure{Backend: deps.Analyzers[i].Name(), Err: s.err})
			continue
		}
		out.Results = append(out.Results, s.result)
	}
	return out, nil
}
