// Package core has the orchestration of light-curve summaries, fits and predictions.
package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/blackhat-astro/blackhat/internal/contract"
	"github.com/blackhat-astro/blackhat/internal/outwriter"
	"github.com/blackhat-astro/blackhat/schema"
)

// ErrFitsFailed is returned after output when at least one input could not be fit.
var ErrFitsFailed = errors.New("some fits failed")

// ExecutorFunc defines the function signature for executing the commands that fit.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error

// ExecuteSummary prints the passband summary of every input without fitting.
func ExecuteSummary(ctx context.Context, cfg *contract.Config) error {
	summaries, err := GetSummaries(ctx, cfg, nil)
	if err != nil {
		return err
	}
	return outwriter.PrintSummaries(summaries, cfg)
}

// GetSummaries returns the passband summary of every input. A nil catalog loads the inputs
// with the configured registry.
func GetSummaries(ctx context.Context, cfg *contract.Config, catalog *Catalog) ([]schema.SourceSummary, error) {
	catalog, err := ensureCatalog(cfg, catalog)
	if err != nil {
		return nil, err
	}

	summaries := make([]schema.SourceSummary, 0, len(cfg.InputPaths))
	for _, path := range cfg.InputPaths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		metaPath := ""
		if len(cfg.InputPaths) == 1 {
			metaPath = cfg.SourceMeta
		}
		src, err := catalog.Load(cfg, path, metaPath)
		if err != nil {
			return nil, err
		}
		summary, err := src.PassbandSummary()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		summaries = append(summaries, schema.SourceSummary{
			SourceID:  src.ID,
			Path:      path,
			Passbands: sortedPassbands(summary),
		})
	}
	return summaries, nil
}

// ExecuteFit fits every input in a worker pool and prints one row per input.
func ExecuteFit(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	start := time.Now()
	catalog, err := ensureCatalog(cfg, nil)
	if err != nil {
		return err
	}
	if !shouldSuppressHeader(ctx) {
		outwriter.LogRunHeader(os.Stderr, "Fit", cfg)
	}

	results := GetFitResults(ctx, cfg, mgr, catalog)
	if err := outwriter.PrintFitResults(results, cfg, time.Since(start)); err != nil {
		return err
	}
	if n := countFailed(results); n > 0 {
		return fmt.Errorf("%w: %d of %d", ErrFitsFailed, n, len(results))
	}
	return nil
}

// ExecutePredict fits every input and prints its posterior on the configured grid.
func ExecutePredict(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	start := time.Now()
	catalog, err := ensureCatalog(cfg, nil)
	if err != nil {
		return err
	}
	if !shouldSuppressHeader(ctx) {
		outwriter.LogRunHeader(os.Stderr, "Predict", cfg)
	}

	preds, err := GetPredictions(ctx, cfg, mgr, catalog)
	if err != nil {
		return err
	}
	return outwriter.PrintPredictions(preds, cfg, time.Since(start))
}

// GetPredictions fits every input and samples its posterior. The first input that cannot be
// fit or predicted aborts with its error.
func GetPredictions(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, catalog *Catalog) ([]schema.SourcePredictions, error) {
	catalog, err := ensureCatalog(cfg, catalog)
	if err != nil {
		return nil, err
	}

	fits := fitAll(ctx, cfg, mgr, catalog, cfg.InputPaths)
	out := make([]schema.SourcePredictions, 0, len(fits))
	for i, f := range fits {
		if f.err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.InputPaths[i], f.err)
		}
		preds, err := predictSource(cfg, f.src, f.result)
		if err != nil {
			return nil, err
		}
		out = append(out, preds)
	}
	return out, nil
}

func ensureCatalog(cfg *contract.Config, catalog *Catalog) (*Catalog, error) {
	if catalog != nil {
		return catalog, nil
	}
	registry, err := LoadRegistry(cfg)
	if err != nil {
		return nil, err
	}
	return NewCatalog(registry), nil
}
