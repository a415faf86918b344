package core

import (
	"fmt"
	"maps"
	"slices"

	"github.com/blackhat-astro/blackhat/core/gp"
	"github.com/blackhat-astro/blackhat/core/source"
	"github.com/blackhat-astro/blackhat/internal/contract"
	"github.com/blackhat-astro/blackhat/schema"
	"gonum.org/v1/gonum/floats"
)

// predictSource samples the posterior of a conditioned Source on the configured grid.
// Without configured passbands every observed passband is predicted.
func predictSource(cfg *contract.Config, src *source.Source, result schema.FitResult) (schema.SourcePredictions, error) {
	bands := cfg.PredictPassbands
	if len(bands) == 0 {
		bands = slices.Sorted(maps.Keys(result.Passbands))
	}
	times, err := predictionTimes(cfg, src)
	if err != nil {
		return schema.SourcePredictions{}, fmt.Errorf("%s: %w", src.ID, err)
	}

	preds := make([]schema.Prediction, 0, len(bands)*len(times))
	for _, band := range bands {
		for _, t := range times {
			p, err := src.Predict(t, band)
			if err != nil {
				return schema.SourcePredictions{}, fmt.Errorf("%s: predicting %s at %v: %w", src.ID, band, t, err)
			}
			preds = append(preds, p)
		}
	}
	return schema.SourcePredictions{SourceID: src.ID, Params: result.Params, Predictions: preds}, nil
}

// predictionTimes returns explicit times when configured, otherwise an evenly spaced grid
// whose open ends default to the first and last observed epochs.
func predictionTimes(cfg *contract.Config, src *source.Source) ([]float64, error) {
	if len(cfg.PredictTimes) > 0 {
		return slices.Clone(cfg.PredictTimes), nil
	}

	first, last, ok := src.TimeSpan()
	if !ok && (cfg.PredictStart == nil || cfg.PredictEnd == nil) {
		return nil, fmt.Errorf("%w: cannot infer the prediction range", gp.ErrNoObservations)
	}
	start, end := first, last
	if cfg.PredictStart != nil {
		start = *cfg.PredictStart
	}
	if cfg.PredictEnd != nil {
		end = *cfg.PredictEnd
	}
	if end < start {
		return nil, fmt.Errorf("prediction range is empty: start %v is after end %v", start, end)
	}

	points := cfg.PredictPoints
	if points <= 0 {
		points = contract.DefaultPredictPoints
	}
	if points == 1 || start == end {
		return []float64{start}, nil
	}
	return floats.Span(make([]float64, points), start, end), nil
}
