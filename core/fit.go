package core

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/blackhat-astro/blackhat/core/source"
	"github.com/blackhat-astro/blackhat/internal/contract"
	"github.com/blackhat-astro/blackhat/schema"
)

// fitJob is one input file queued for the worker pool.
type fitJob struct {
	index int
	path  string
}

// fitted pairs a fit result with the Source it was computed on and the error behind a
// failed result. src is nil when the input could not be loaded.
type fitted struct {
	src    *source.Source
	result schema.FitResult
	err    error
}

// fitAll loads and fits every path using cfg.Workers goroutines. Results keep the input order
// and a failing input never stops the others.
func fitAll(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, catalog *Catalog, paths []string) []fitted {
	jobCh := make(chan fitJob, len(paths))
	out := make([]fitted, len(paths))
	var wg sync.WaitGroup

	for range max(cfg.Workers, 1) {
		wg.Go(func() {
			for job := range jobCh {
				out[job.index] = loadAndFit(ctx, cfg, mgr, catalog, job.path)
			}
		})
	}

	for i, path := range paths {
		jobCh <- fitJob{index: i, path: path}
	}
	close(jobCh)
	wg.Wait()

	return out
}

// loadAndFit reads one input and fits it. Load failures become failed results.
func loadAndFit(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, catalog *Catalog, path string) fitted {
	metaPath := ""
	if len(cfg.InputPaths) <= 1 {
		metaPath = cfg.SourceMeta
	}
	src, err := catalog.Load(cfg, path, metaPath)
	if err != nil {
		return fitted{result: schema.FitResult{Path: path, Status: schema.FitFailed, Err: err.Error()}, err: err}
	}
	result, err := fitSource(ctx, cfg, mgr, src, path)
	return fitted{src: src, result: result, err: err}
}

// fitSource conditions one Source, warm-starting from the fit cache and recording the run.
// A failed fit is still described by the returned result.
func fitSource(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, src *source.Source, path string) (schema.FitResult, error) {
	start := time.Now()
	result := schema.FitResult{SourceID: src.ID, Path: path}

	summary, err := src.PassbandSummary()
	if err != nil {
		result.Status = schema.FitFailed
		result.Err = err.Error()
		return result, err
	}
	result.Passbands = summary
	for _, info := range summary {
		result.NObs += info.NObs
	}

	obs := src.Observations()
	settings := settingsFromConfig(cfg)
	guess := initialGuess(cfg, obs)

	var fitCache contract.CacheStore
	var runs contract.RunStore
	if mgr != nil {
		fitCache = mgr.GetFitCache()
		runs = mgr.GetRunStore()
	}

	key := fitCacheKey(obs, src.Method, settings)
	if cfg.Replace || !src.Conditioned() {
		if cached, ok := lookupCachedFit(fitCache, key, start); ok {
			guess = cached.Params
			result.WarmStart = true
		}
	}

	runID := beginRun(runs, src.ID, start, cfg)
	result.RunID = runID

	cond, err := src.Condition(ctx, guess, cfg.Replace)
	end := time.Now()
	result.DurationMs = end.Sub(start).Milliseconds()

	switch {
	case err != nil:
		result.Status = schema.FitFailed
		result.Err = err.Error()
	case cond.Reused:
		result.Status = schema.FitReused
		result.WarmStart = false
	default:
		result.Status = schema.FitSucceeded
	}
	if err == nil {
		result.Params = cond.Params
		result.LogLikelihood = cond.Process.LogLikelihood()
		if !cond.Reused {
			storeCachedFit(fitCache, key, cachedFit{Params: cond.Params, LogLikelihood: result.LogLikelihood}, end)
		}
	}

	endRun(runs, runID, end, result)
	return result, err
}

// beginRun starts run tracking when a run store is configured. Failures only warn.
func beginRun(runs contract.RunStore, sourceID string, start time.Time, cfg *contract.Config) string {
	if runs == nil {
		return ""
	}
	runID, err := runs.BeginRun(sourceID, start, cfg.ConfigParams())
	if err != nil {
		contract.LogWarn(fmt.Sprintf("Run tracking failed to start for %s", sourceID), err)
		return ""
	}
	return runID
}

// endRun records the outcome and passband statistics of a tracked run.
func endRun(runs contract.RunStore, runID string, end time.Time, result schema.FitResult) {
	if runs == nil || runID == "" {
		return
	}
	if len(result.Passbands) > 0 {
		if err := runs.RecordPassbandStats(runID, sortedPassbands(result.Passbands)); err != nil {
			contract.LogWarn(fmt.Sprintf("Run tracking failed to record passbands for %s", result.SourceID), err)
		}
	}
	if err := runs.EndRun(runID, end, result.Status, result); err != nil {
		contract.LogWarn(fmt.Sprintf("Run tracking failed to finish for %s", result.SourceID), err)
	}
}

// sortedPassbands flattens a passband summary in name order.
func sortedPassbands(summary map[string]schema.PassbandInfo) []schema.PassbandInfo {
	out := make([]schema.PassbandInfo, 0, len(summary))
	for _, name := range slices.Sorted(maps.Keys(summary)) {
		out = append(out, summary[name])
	}
	return out
}

// GetFitResults fits every configured input and returns one result per input, in order.
func GetFitResults(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, catalog *Catalog) []schema.FitResult {
	fits := fitAll(ctx, cfg, mgr, catalog, cfg.InputPaths)
	results := make([]schema.FitResult, len(fits))
	for i, f := range fits {
		results[i] = f.result
	}
	return results
}

// countFailed returns how many fits failed.
func countFailed(results []schema.FitResult) int {
	n := 0
	for _, r := range results {
		if r.Failed() {
			n++
		}
	}
	return n
}
