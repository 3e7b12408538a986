// Package engine orchestrates the analyzers over a segmented manuscript.
// Segmentation happens once per call; the analyzers share the result.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"narrative_engine/internal/duplicates"
	"narrative_engine/internal/report"
	"narrative_engine/internal/segment"
	"narrative_engine/internal/templates"
	"narrative_engine/internal/temporal"
)

// ErrInvalidInput marks parameter validation failures so the API layer can
// map them to 400 instead of 500.
var ErrInvalidInput = errors.New("invalid input")

type Engine struct {
	log     *slog.Logger
	workers int
}

func New(log *slog.Logger, workers int) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{log: log, workers: workers}
}

// DuplicateParams are the request-tunable knobs of the duplicate pass.
// Zero values take the analyzer defaults.
type DuplicateParams struct {
	SentenceThreshold  float64
	ParagraphThreshold float64
	MinSentenceLength  int
}

func (p DuplicateParams) validate() error {
	if p.SentenceThreshold != 0 && (p.SentenceThreshold < 0.5 || p.SentenceThreshold > 1.0) {
		return fmt.Errorf("%w: sentence_threshold %.2f outside [0.5, 1.0]", ErrInvalidInput, p.SentenceThreshold)
	}
	if p.ParagraphThreshold != 0 && (p.ParagraphThreshold < 0.5 || p.ParagraphThreshold > 1.0) {
		return fmt.Errorf("%w: paragraph_threshold %.2f outside [0.5, 1.0]", ErrInvalidInput, p.ParagraphThreshold)
	}
	if p.MinSentenceLength < 0 {
		return fmt.Errorf("%w: min_sentence_length must not be negative", ErrInvalidInput)
	}
	return nil
}

func validateConfidence(min float64) error {
	if min != 0 && (min < 0.3 || min > 1.0) {
		return fmt.Errorf("%w: min_confidence %.2f outside [0.3, 1.0]", ErrInvalidInput, min)
	}
	return nil
}

func (e *Engine) Duplicates(chapters []segment.Chapter, p DuplicateParams) (report.DuplicatesReport, error) {
	if err := p.validate(); err != nil {
		return report.DuplicatesReport{}, err
	}
	seg := segment.Split(chapters)
	var rep report.DuplicatesReport
	err := e.guard("duplicates", func() {
		rep = report.Duplicates(duplicates.Detect(seg, duplicates.Options{
			SentenceThreshold:  p.SentenceThreshold,
			ParagraphThreshold: p.ParagraphThreshold,
			MinSentenceLength:  p.MinSentenceLength,
			Workers:            e.workers,
		}))
	})
	return rep, err
}

func (e *Engine) Structure(chapters []segment.Chapter, minConfidence float64) (report.StructureReport, error) {
	if err := validateConfidence(minConfidence); err != nil {
		return report.StructureReport{}, err
	}
	seg := segment.Split(chapters)
	var rep report.StructureReport
	err := e.guard("structure", func() {
		rep = report.Structure(temporal.Detect(seg, minConfidence))
	})
	return rep, err
}

func (e *Engine) Templates(chapters []segment.Chapter) (templates.Analysis, error) {
	seg := segment.Split(chapters)
	var rep templates.Analysis
	err := e.guard("templates", func() {
		rep = templates.Analyze(seg)
	})
	return rep, err
}

// FullReport bundles the three analyses, produced at ingest time so later
// reads can come from cache.
type FullReport struct {
	Duplicates report.DuplicatesReport `json:"duplicates"`
	Structure  report.StructureReport  `json:"structure"`
	Templates  templates.Analysis      `json:"templates"`
}

// Full runs the three analyzers concurrently over one shared segmentation.
// A panic in one analyzer fails the whole call without taking down the
// process.
func (e *Engine) Full(chapters []segment.Chapter, p DuplicateParams, minConfidence float64) (FullReport, error) {
	if err := p.validate(); err != nil {
		return FullReport{}, err
	}
	if err := validateConfidence(minConfidence); err != nil {
		return FullReport{}, err
	}
	seg := segment.Split(chapters)

	var full FullReport
	errs := make([]error, 3)
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		errs[0] = e.guard("duplicates", func() {
			full.Duplicates = report.Duplicates(duplicates.Detect(seg, duplicates.Options{
				SentenceThreshold:  p.SentenceThreshold,
				ParagraphThreshold: p.ParagraphThreshold,
				MinSentenceLength:  p.MinSentenceLength,
				Workers:            e.workers,
			}))
		})
	}()
	go func() {
		defer wg.Done()
		errs[1] = e.guard("structure", func() {
			full.Structure = report.Structure(temporal.Detect(seg, minConfidence))
		})
	}()
	go func() {
		defer wg.Done()
		errs[2] = e.guard("templates", func() {
			full.Templates = templates.Analyze(seg)
		})
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return FullReport{}, err
		}
	}
	return full, nil
}

// guard runs one analyzer, converting a panic into an error and logging
// timing either way.
func (e *Engine) guard(name string, fn func()) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("analysis failed", "analyzer", name, "panic", r)
			err = fmt.Errorf("%s analysis failed internally: %v", name, r)
			return
		}
		e.log.Info("analysis complete", "analyzer", name, "elapsed", time.Since(start))
	}()
	fn()
	return nil
}
