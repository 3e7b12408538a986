package engine

import (
	"errors"
	"testing"

	"narrative_engine/internal/segment"
)

var sample = []segment.Chapter{
	{Number: 1, Text: "El cielo estaba oscuro esa noche sobre los tejados. Marta cerró la ventana con cuidado."},
	{Number: 2, Text: "Años después recordaría aquella tormenta como el aviso que nadie quiso escuchar."},
	{Number: 3, Text: "El cielo estaba oscuro esa noche sobre los tejados. Nadie salió a la calle."},
}

func TestDuplicatesValidatesThresholds(t *testing.T) {
	e := New(nil, 2)
	for _, p := range []DuplicateParams{
		{SentenceThreshold: 0.2},
		{SentenceThreshold: 1.5},
		{ParagraphThreshold: 0.49},
		{MinSentenceLength: -1},
	} {
		if _, err := e.Duplicates(sample, p); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("params %+v should fail validation, got %v", p, err)
		}
	}
}

func TestStructureValidatesConfidence(t *testing.T) {
	e := New(nil, 2)
	if _, err := e.Structure(sample, 0.1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("min_confidence 0.1 should fail validation")
	}
	if _, err := e.Structure(sample, 1.2); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("min_confidence 1.2 should fail validation")
	}
	if _, err := e.Structure(sample, 0.7); err != nil {
		t.Fatalf("valid min_confidence rejected: %v", err)
	}
}

func TestDuplicatesEndToEnd(t *testing.T) {
	e := New(nil, 2)
	rep, err := e.Duplicates(sample, DuplicateParams{})
	if err != nil {
		t.Fatal(err)
	}
	if rep.TotalDuplicates == 0 {
		t.Fatalf("expected the repeated sentence to be reported")
	}
	if rep.BySeverity["critical"] == 0 {
		t.Fatalf("expected a critical exact duplicate, got %+v", rep.BySeverity)
	}
}

func TestFullRunsAllAnalyzers(t *testing.T) {
	e := New(nil, 2)
	full, err := e.Full(sample, DuplicateParams{SentenceThreshold: 0.90, ParagraphThreshold: 0.85, MinSentenceLength: 30}, 0.7)
	if err != nil {
		t.Fatal(err)
	}
	if full.Duplicates.SentencesAnalyzed == 0 {
		t.Fatalf("duplicate analysis missing from full report")
	}
	if full.Structure.ChaptersAnalyzed != 3 {
		t.Fatalf("structure analysis missing from full report")
	}
	if len(full.Templates.Matches) != 5 {
		t.Fatalf("template analysis missing from full report")
	}
}

func TestFullValidatesParams(t *testing.T) {
	e := New(nil, 2)
	if _, err := e.Full(sample, DuplicateParams{SentenceThreshold: 0.2}, 0.7); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad thresholds should fail validation, got %v", err)
	}
	if _, err := e.Full(sample, DuplicateParams{}, 1.2); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad min_confidence should fail validation, got %v", err)
	}
}

func TestGuardRecoversPanics(t *testing.T) {
	e := New(nil, 1)
	err := e.guard("boom", func() { panic("kaput") })
	if err == nil {
		t.Fatalf("expected an error from a panicking analyzer")
	}
	if errors.Is(err, ErrInvalidInput) {
		t.Fatalf("a panic is not a validation failure: %v", err)
	}
}
