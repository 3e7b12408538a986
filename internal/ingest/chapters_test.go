package ingest

import (
	"strings"
	"testing"
)

func TestSplitChaptersByHeading(t *testing.T) {
	text := strings.Join([]string{
		"Capítulo 1",
		"",
		"Elena vivía junto al río.",
		"",
		"CAPÍTULO 2 — La tormenta",
		"",
		"Llovió toda la noche.",
		"",
		"Capítulo 3",
		"",
		"Amaneció despejado.",
	}, "\n")

	chapters := SplitChapters(text)
	if len(chapters) != 3 {
		t.Fatalf("expected 3 chapters, got %d: %+v", len(chapters), chapters)
	}
	for i, ch := range chapters {
		if ch.Number != i+1 {
			t.Fatalf("chapter numbering broken at %d: %d", i, ch.Number)
		}
		if strings.Contains(strings.ToLower(ch.Text), "capítulo") {
			t.Fatalf("heading leaked into chapter body: %q", ch.Text)
		}
	}
	if !strings.Contains(chapters[1].Text, "Llovió") {
		t.Fatalf("chapter 2 body wrong: %q", chapters[1].Text)
	}
}

func TestSplitChaptersFrontMatterJoinsFirst(t *testing.T) {
	text := "Para mi madre.\n\nCapítulo 1\n\nHabía una vez.\n\nCapítulo 2\n\nFin."
	chapters := SplitChapters(text)
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
	if !strings.Contains(chapters[0].Text, "Para mi madre.") {
		t.Fatalf("dedication lost: %q", chapters[0].Text)
	}
}

func TestSplitChaptersFallbackWindows(t *testing.T) {
	para := strings.Repeat("palabra ", 500)
	text := strings.TrimSpace(strings.Repeat(para+"\n\n", 10))

	chapters := SplitChapters(text)
	if len(chapters) < 2 {
		t.Fatalf("heading-less long text should split into windows, got %d chapters", len(chapters))
	}
	for i, ch := range chapters {
		if ch.Number != i+1 {
			t.Fatalf("chapter numbering broken: %+v", ch)
		}
		if strings.TrimSpace(ch.Text) == "" {
			t.Fatalf("empty windowed chapter at %d", i)
		}
	}
}

func TestSplitChaptersShortTextSingleChapter(t *testing.T) {
	chapters := SplitChapters("Una sola frase sin encabezados.")
	if len(chapters) != 1 || chapters[0].Number != 1 {
		t.Fatalf("expected one chapter, got %+v", chapters)
	}
}

func TestSplitChaptersEmptyText(t *testing.T) {
	chapters := SplitChapters("   \n  ")
	if len(chapters) != 1 || chapters[0].Text != "" {
		t.Fatalf("empty input must yield one empty chapter, got %+v", chapters)
	}
}
