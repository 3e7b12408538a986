package similarity

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	got := Normalize("  ¡Hola,   MUNDO!  ¿Qué tal?  ")
	if got != "hola mundo qué tal" {
		t.Fatalf("unexpected normalization: %q", got)
	}
}

func TestScoreIdenticalIsOne(t *testing.T) {
	a := Normalize("El cielo estaba oscuro esa noche.")
	b := Normalize("El cielo estaba oscuro esa noche.")
	if s := Score(a, b); s != 1.0 {
		t.Fatalf("identical normalized text must score exactly 1.0, got %f", s)
	}
}

func TestScoreSymmetric(t *testing.T) {
	a := Normalize("El viento soplaba con fuerza sobre las colinas del norte.")
	b := Normalize("El viento soplaba con fuerza sobre las montañas del norte.")
	s1 := Score(a, b)
	s2 := Score(b, a)
	if math.Abs(s1-s2) > 1e-12 {
		t.Fatalf("score not symmetric: %f vs %f", s1, s2)
	}
	if s1 <= 0.5 || s1 >= 1.0 {
		t.Fatalf("near-duplicate should score high but below 1.0, got %f", s1)
	}
}

func TestScoreUnrelatedIsLow(t *testing.T) {
	a := Normalize("La nave cruzó el cinturón de asteroides.")
	b := Normalize("Abuela preparaba pan cada domingo por la mañana.")
	if s := Score(a, b); s > 0.5 {
		t.Fatalf("unrelated sentences scored %f", s)
	}
}

func TestCandidatePairsFindsNearDuplicates(t *testing.T) {
	texts := []string{
		Normalize("El cielo estaba oscuro esa noche de invierno."),
		Normalize("Abuela preparaba pan cada domingo por la mañana."),
		Normalize("El cielo estaba oscuro esa noche de invierno."),
	}
	pairs := CandidatePairs(texts)
	found := false
	for _, p := range pairs {
		if p.I == 0 && p.J == 2 {
			found = true
		}
		if p.I >= p.J {
			t.Fatalf("pair not ordered: %+v", p)
		}
	}
	if !found {
		t.Fatalf("expected candidate pair (0,2), got %+v", pairs)
	}
}

func TestCandidatePairsDeterministic(t *testing.T) {
	texts := []string{
		Normalize("uno dos tres cuatro cinco"),
		Normalize("uno dos tres cuatro seis"),
		Normalize("uno dos tres cuatro siete"),
		Normalize("uno dos tres cuatro ocho"),
	}
	first := CandidatePairs(texts)
	for run := 0; run < 5; run++ {
		again := CandidatePairs(texts)
		if len(again) != len(first) {
			t.Fatalf("nondeterministic pair count: %d vs %d", len(again), len(first))
		}
		for i := range first {
			if first[i] != again[i] {
				t.Fatalf("nondeterministic order at %d: %+v vs %+v", i, first[i], again[i])
			}
		}
	}
}

func TestCosineOfHashedVectors(t *testing.T) {
	a := Vectorize(Normalize("la tormenta destruyó el puente del pueblo aquella madrugada"))
	b := Vectorize(Normalize("aquella madrugada la tormenta destruyó el puente del pueblo"))
	if c := Cosine(a, b); c < 0.99 {
		t.Fatalf("word-order permutation should keep cosine near 1, got %f", c)
	}

	c := Vectorize(Normalize("ella compró flores en el mercado"))
	if got := Cosine(a, c); got > 0.5 {
		t.Fatalf("unrelated paragraphs cosine too high: %f", got)
	}

	var zero Vector
	if Cosine(zero, a) != 0 {
		t.Fatalf("zero vector must yield 0")
	}
}

func TestContentTokensDropStopwordsAndShortTokens(t *testing.T) {
	got := ContentTokens("La boda de Clara se celebró en la catedral.")
	want := []string{"boda", "clara", "celebró", "catedral"}
	if len(got) != len(want) {
		t.Fatalf("unexpected tokens: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("at %d: got %q want %q", i, got[i], want[i])
		}
	}
}
