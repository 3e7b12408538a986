// Package duplicates finds near and exact duplicate sentence and paragraph
// pairs across a segmented manuscript.
package duplicates

import (
	"sort"

	"narrative_engine/internal/pipeline"
	"narrative_engine/internal/segment"
	"narrative_engine/internal/similarity"
)

type Type string

const (
	ExactSentence     Type = "exact_sentence"
	NearSentence      Type = "near_sentence"
	ExactParagraph    Type = "exact_paragraph"
	NearParagraph     Type = "near_paragraph"
	SemanticParagraph Type = "semantic_paragraph"
)

type Severity string

const (
	Critical Severity = "critical"
	High     Severity = "high"
	Medium   Severity = "medium"
)

// Pair is one detected duplicate. Location1 always precedes Location2 in
// manuscript order.
type Pair struct {
	Location1  segment.Span `json:"location1"`
	Location2  segment.Span `json:"location2"`
	Similarity float64      `json:"similarity"`
	Type       Type         `json:"duplicate_type"`
	Severity   Severity     `json:"severity"`
}

type Options struct {
	SentenceThreshold  float64
	ParagraphThreshold float64
	MinSentenceLength  int
	Workers            int
}

const (
	DefaultSentenceThreshold  = 0.90
	DefaultParagraphThreshold = 0.85
	DefaultMinSentenceLength  = 30

	highSimilarity    = 0.95
	semanticThreshold = 0.80
)

type Result struct {
	Pairs              []Pair
	SentencesAnalyzed  int
	ParagraphsAnalyzed int
}

// Detect runs the sentence pass, the paragraph pass and the semantic
// paragraph pass. Fewer than two qualifying segments yields an empty pair
// list, never an error.
func Detect(seg segment.Segmented, opts Options) Result {
	if opts.SentenceThreshold == 0 {
		opts.SentenceThreshold = DefaultSentenceThreshold
	}
	if opts.ParagraphThreshold == 0 {
		opts.ParagraphThreshold = DefaultParagraphThreshold
	}
	if opts.MinSentenceLength == 0 {
		opts.MinSentenceLength = DefaultMinSentenceLength
	}

	res := Result{
		SentencesAnalyzed:  len(seg.Sentences),
		ParagraphsAnalyzed: len(seg.Paragraphs),
	}

	sentences := filterSpans(seg.Sentences, opts.MinSentenceLength)
	res.Pairs = append(res.Pairs, lexicalPass(sentences, opts.SentenceThreshold, opts.Workers, ExactSentence, NearSentence)...)

	paragraphs := filterSpans(seg.Paragraphs, opts.MinSentenceLength)
	lexical := lexicalPass(paragraphs, opts.ParagraphThreshold, opts.Workers, ExactParagraph, NearParagraph)
	res.Pairs = append(res.Pairs, lexical...)
	res.Pairs = append(res.Pairs, semanticPass(paragraphs, lexical, opts.Workers)...)

	// A single-sentence paragraph covers the same extent as its sentence; the
	// pair is reported once regardless of which pass found it.
	res.Pairs = dedupePairs(res.Pairs)
	sortPairs(res.Pairs)
	return res
}

func dedupePairs(pairs []Pair) []Pair {
	seen := make(map[[6]int]struct{}, len(pairs))
	out := pairs[:0]
	for _, p := range pairs {
		key := [6]int{
			p.Location1.Chapter, p.Location1.StartChar, p.Location1.EndChar,
			p.Location2.Chapter, p.Location2.StartChar, p.Location2.EndChar,
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

func filterSpans(spans []segment.Span, minLen int) []segment.Span {
	out := make([]segment.Span, 0, len(spans))
	for _, s := range spans {
		if len(s.Text) >= minLen {
			out = append(out, s)
		}
	}
	return out
}

type scored struct {
	pair  similarity.Pair
	score float64
}

func lexicalPass(spans []segment.Span, threshold float64, workers int, exactType, nearType Type) []Pair {
	if len(spans) < 2 {
		return nil
	}
	normalized := make([]string, len(spans))
	for i, s := range spans {
		normalized[i] = similarity.Normalize(s.Text)
	}

	candidates := similarity.CandidatePairs(normalized)
	results := pipeline.Map(candidates, workers, func(p similarity.Pair) scored {
		return scored{pair: p, score: similarity.Score(normalized[p.I], normalized[p.J])}
	})

	var out []Pair
	for _, r := range results {
		// Inclusive bound: a score exactly at the threshold is reported.
		if r.score < threshold {
			continue
		}
		a, b := orderSpans(spans[r.pair.I], spans[r.pair.J])
		dupType := nearType
		sev := Medium
		switch {
		// Exact means equality after normalization, not merely a perfect
		// token-overlap score.
		case normalized[r.pair.I] == normalized[r.pair.J]:
			dupType = exactType
			sev = Critical
		case r.score >= highSimilarity:
			sev = High
		}
		out = append(out, Pair{
			Location1:  a,
			Location2:  b,
			Similarity: r.score,
			Type:       dupType,
			Severity:   sev,
		})
	}
	return out
}

// semanticPass catches paragraph pairs that narrate the same content in
// different words. It only considers pairs the lexical pass did not flag,
// prefiltered by shared rare content tokens to bound cost.
func semanticPass(spans []segment.Span, alreadyFlagged []Pair, workers int) []Pair {
	if len(spans) < 2 {
		return nil
	}

	flagged := make(map[[4]int]struct{}, len(alreadyFlagged))
	for _, p := range alreadyFlagged {
		flagged[pairKey(p.Location1, p.Location2)] = struct{}{}
	}

	tokens := make([][]string, len(spans))
	for i, s := range spans {
		tokens[i] = similarity.ContentTokens(s.Text)
	}

	candidates := rareTokenPairs(tokens)
	vectors := make([]similarity.Vector, len(spans))
	for i, s := range spans {
		vectors[i] = similarity.Vectorize(similarity.Normalize(s.Text))
	}

	results := pipeline.Map(candidates, workers, func(p similarity.Pair) scored {
		return scored{pair: p, score: similarity.Cosine(vectors[p.I], vectors[p.J])}
	})

	var out []Pair
	for _, r := range results {
		if r.score < semanticThreshold {
			continue
		}
		a, b := orderSpans(spans[r.pair.I], spans[r.pair.J])
		if _, ok := flagged[pairKey(a, b)]; ok {
			continue
		}
		out = append(out, Pair{
			Location1:  a,
			Location2:  b,
			Similarity: r.score,
			Type:       SemanticParagraph,
			Severity:   Medium,
		})
	}
	return out
}

// rareTokenPairs builds candidate pairs from content tokens that appear in
// few paragraphs; ubiquitous tokens carry no pairing signal.
func rareTokenPairs(tokens [][]string) []similarity.Pair {
	df := make(map[string][]int)
	for i, toks := range tokens {
		seen := make(map[string]struct{}, len(toks))
		for _, t := range toks {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t] = append(df[t], i)
		}
	}

	limit := len(tokens)/4 + 2
	pairSet := make(map[int64]struct{})
	var pairs []similarity.Pair
	for _, docs := range df {
		if len(docs) < 2 || len(docs) > limit {
			continue
		}
		for x := 0; x < len(docs); x++ {
			for y := x + 1; y < len(docs); y++ {
				key := int64(docs[x])<<32 | int64(docs[y])
				if _, ok := pairSet[key]; ok {
					continue
				}
				pairSet[key] = struct{}{}
				pairs = append(pairs, similarity.Pair{I: docs[x], J: docs[y]})
			}
		}
	}
	sort.Slice(pairs, func(x, y int) bool {
		if pairs[x].I != pairs[y].I {
			return pairs[x].I < pairs[y].I
		}
		return pairs[x].J < pairs[y].J
	})
	return pairs
}

func orderSpans(a, b segment.Span) (segment.Span, segment.Span) {
	if b.Chapter < a.Chapter || (b.Chapter == a.Chapter && b.StartChar < a.StartChar) {
		return b, a
	}
	return a, b
}

func pairKey(a, b segment.Span) [4]int {
	return [4]int{a.Chapter, a.StartChar, b.Chapter, b.StartChar}
}

var severityRank = map[Severity]int{Critical: 0, High: 1, Medium: 2}

func sortPairs(pairs []Pair) {
	sort.Slice(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if severityRank[a.Severity] != severityRank[b.Severity] {
			return severityRank[a.Severity] < severityRank[b.Severity]
		}
		if a.Location1.Chapter != b.Location1.Chapter {
			return a.Location1.Chapter < b.Location1.Chapter
		}
		if a.Location1.StartChar != b.Location1.StartChar {
			return a.Location1.StartChar < b.Location1.StartChar
		}
		if a.Location2.Chapter != b.Location2.Chapter {
			return a.Location2.Chapter < b.Location2.Chapter
		}
		if a.Location2.StartChar != b.Location2.StartChar {
			return a.Location2.StartChar < b.Location2.StartChar
		}
		return a.Type < b.Type
	})
}
