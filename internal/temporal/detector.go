// Package temporal detects narrative anomalies: prolepsis (anticipation of
// a future event) and analepsis (flashback to an earlier one). Detection is
// lexical — conditional-tense verbs, temporal direction markers and
// past-perfect framing — with local context raising confidence.
package temporal

import (
	"fmt"
	"regexp"
	"sort"

	"narrative_engine/internal/segment"
	"narrative_engine/internal/similarity"
)

type Kind string

const (
	Prolepsis Kind = "prolepsis"
	Analepsis Kind = "analepsis"
)

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Anomaly is one detected temporal anomaly. ResolvedEventChapter is only
// populated for prolepsis, and always points at the anomaly's chapter or a
// later one.
type Anomaly struct {
	Kind                 Kind         `json:"anomaly_type"`
	Location             segment.Span `json:"location"`
	Description          string       `json:"description"`
	Confidence           float64      `json:"confidence"`
	Severity             Severity     `json:"severity"`
	Evidence             []string     `json:"evidence"`
	ResolvedEventChapter *int         `json:"resolved_event_chapter"`
	ResolvedEventText    *string      `json:"resolved_event_text"`
}

type Result struct {
	Prolepsis        []Anomaly
	Analepsis        []Anomaly
	ChaptersAnalyzed int
}

const (
	DefaultMinConfidence = 0.7

	highConfidence   = 0.85
	mediumConfidence = 0.7

	// Minimum fraction of event keywords a later sentence must contain.
	resolutionThreshold = 0.55

	contextBoost = 0.05
)

type patternRule struct {
	re         *regexp.Regexp
	confidence float64
}

// Prolepsis: future-direction marker plus conditional-tense payload.
var prolepsisRules = []patternRule{
	{regexp.MustCompile(`(?i)(un\s+año\s+después|años?\s+más\s+tarde|tiempo\s+después|meses?\s+después|semanas?\s+después)[,\s].*\b(recordaría|sabría|vendría|sería|estaría|tendría|haría|diría|vería|pensaría|conocería|descubriría|comprendería|entendería|olvidaría)(n|s)?\b`), 0.95},
	{regexp.MustCompile(`(?i)(mucho\s+tiempo\s+después|años?\s+después|con\s+el\s+tiempo|más\s+adelante|en\s+el\s+futuro|pasado\s+el\s+tiempo|algún\s+día)[,\s].*\b\p{L}+ría(n|s)?\b`), 0.85},
	{regexp.MustCompile(`(?i)\bcuando\s+.{20,100}\b(recordaría|sabría|comprendería|entendería|vería)\b`), 0.80},
	{regexp.MustCompile(`(?i)\b(pero\s+eso\s+sería|eso\s+vendría|eso\s+ocurriría|eso\s+pasaría|todo\s+cambiaría)\b`), 0.90},
	{regexp.MustCompile(`(?i)\blo\s+que\s+no\s+sabía(\s+\p{L}+)?\s+entonces\s+era\s+que\b`), 0.90},
}

// Analepsis: retrospective marker, optionally backed by past-perfect framing.
var analepsisRules = []patternRule{
	{regexp.MustCompile(`(?i)\b(recordó|recordaba|rememoró|evocó|revivió)\b`), 0.75},
	{regexp.MustCompile(`(?i)\b(años|meses|semanas|tiempo|días)\s+atrás\b`), 0.85},
	{regexp.MustCompile(`(?i)\b(en\s+aquella\s+época|en\s+aquellos\s+(días|años|tiempos)|de\s+niñ[oa]|en\s+su\s+(infancia|juventud)|mucho\s+antes)\b`), 0.80},
	{regexp.MustCompile(`(?i)\baquel\s+(día|verano|invierno|año)\s+.{0,60}\bhabía\s+\p{L}+(ado|ido)\b`), 0.80},
}

var conditionalVerb = regexp.MustCompile(`(?i)\b\p{L}+(aría|ería|iría)(n|s)?\b`)
var futureMarker = regexp.MustCompile(`(?i)\b(un\s+año\s+después|(años?|meses?|semanas?)\s+(después|más\s+tarde)|más\s+adelante|con\s+el\s+tiempo|mucho\s+tiempo\s+después|pasado\s+el\s+tiempo|en\s+el\s+futuro|algún\s+día|tiempo\s+después)\b`)
var pastPerfect = regexp.MustCompile(`(?i)\bhabía(n)?\s+\p{L}+(ado|ido)\b`)
var retroMarker = regexp.MustCompile(`(?i)\b(recordó|recordaba|atrás|aquella\s+época|aquellos\s+(días|años)|infancia)\b`)

var highSeverityCue = regexp.MustCompile(`(?i)\b(muerte|moriría|muerto|final|acabaría|terminaría|revelaría|todo\s+cambiaría|nunca\s+volvería|última\s+vez)\b`)

// Detect scans every sentence of the manuscript. Only candidates at or
// above minConfidence are kept; chapters without markers simply contribute
// nothing.
func Detect(seg segment.Segmented, minConfidence float64) Result {
	if minConfidence == 0 {
		minConfidence = DefaultMinConfidence
	}

	res := Result{ChaptersAnalyzed: len(seg.Chapters)}

	byChapter := make(map[int][]segment.Span)
	for _, s := range seg.Sentences {
		byChapter[s.Chapter] = append(byChapter[s.Chapter], s)
	}

	var prolepsis, analepsis []Anomaly
	for _, ch := range seg.Chapters {
		sentences := byChapter[ch.Number]
		for i, sent := range sentences {
			if a, ok := detectProlepsis(sent, neighbors(sentences, i)); ok {
				prolepsis = append(prolepsis, a)
			}
			if a, ok := detectAnalepsis(sent, neighbors(sentences, i)); ok {
				analepsis = append(analepsis, a)
			}
		}
	}

	prolepsis = dedupeNearby(prolepsis)
	analepsis = dedupeNearby(analepsis)

	for i := range prolepsis {
		resolve(&prolepsis[i], seg)
	}

	res.Prolepsis = keepConfident(prolepsis, minConfidence)
	res.Analepsis = keepConfident(analepsis, minConfidence)
	return res
}

func neighbors(sentences []segment.Span, i int) string {
	ctx := ""
	if i > 0 {
		ctx += sentences[i-1].Text + " "
	}
	if i+1 < len(sentences) {
		ctx += sentences[i+1].Text
	}
	return ctx
}

func detectProlepsis(sent segment.Span, context string) (Anomaly, bool) {
	best := 0.0
	for _, rule := range prolepsisRules {
		if rule.re.MatchString(sent.Text) && rule.confidence > best {
			best = rule.confidence
		}
	}
	if best == 0 {
		return Anomaly{}, false
	}

	var evidence []string
	confidence := best
	if conditionalVerb.MatchString(sent.Text) {
		confidence = clamp1(confidence + contextBoost)
		evidence = append(evidence, "Uso de condicional (futuro hipotético)")
	}
	if futureMarker.MatchString(sent.Text) {
		confidence = clamp1(confidence + contextBoost)
		evidence = append(evidence, "Marcador temporal de anticipación")
	}
	if conditionalVerb.MatchString(context) || futureMarker.MatchString(context) {
		confidence = clamp1(confidence + contextBoost)
		evidence = append(evidence, "Contexto circundante con marcadores de anticipación")
	}

	return Anomaly{
		Kind:       Prolepsis,
		Location:   sent,
		Confidence: confidence,
		Severity:   severityFor(sent.Text, confidence),
		Evidence:   evidence,
	}, true
}

func detectAnalepsis(sent segment.Span, context string) (Anomaly, bool) {
	best := 0.0
	for _, rule := range analepsisRules {
		if rule.re.MatchString(sent.Text) && rule.confidence > best {
			best = rule.confidence
		}
	}
	if best == 0 {
		return Anomaly{}, false
	}

	var evidence []string
	confidence := best
	if retroMarker.MatchString(sent.Text) {
		evidence = append(evidence, "Marcador retrospectivo")
	}
	if pastPerfect.MatchString(sent.Text) {
		confidence = clamp1(confidence + contextBoost)
		evidence = append(evidence, "Pluscuamperfecto (marco temporal anterior)")
	}
	if pastPerfect.MatchString(context) || retroMarker.MatchString(context) {
		confidence = clamp1(confidence + contextBoost)
		evidence = append(evidence, "Contexto circundante en marco retrospectivo")
	}

	return Anomaly{
		Kind:        Analepsis,
		Location:    sent,
		Description: fmt.Sprintf("Analepsis en capítulo %d: la narración retrocede a un momento anterior", sent.Chapter),
		Confidence:  confidence,
		Severity:    severityFor(sent.Text, confidence),
		Evidence:    evidence,
	}, true
}

func severityFor(text string, confidence float64) Severity {
	if highSeverityCue.MatchString(text) || confidence >= highConfidence {
		return SeverityHigh
	}
	if confidence >= mediumConfidence {
		return SeverityMedium
	}
	return SeverityLow
}

// resolve searches chapters at or after the anomaly's own for narration
// matching the anticipated event. The score is containment: the fraction
// of the event's keywords present in a candidate sentence.
func resolve(a *Anomaly, seg segment.Segmented) {
	keywords := eventKeywords(a.Location.Text)
	// One keyword is too little signal to claim a resolution on.
	if len(keywords) < 2 {
		a.Description = fallbackDescription(a.Location.Chapter)
		return
	}

	bestScore := 0.0
	var bestSpan segment.Span
	found := false
	for _, sent := range seg.Sentences {
		if sent.Chapter < a.Location.Chapter {
			continue
		}
		if sent.Chapter == a.Location.Chapter && sent.StartChar == a.Location.StartChar {
			continue
		}
		score := containment(keywords, similarity.ContentTokens(sent.Text))
		if score >= resolutionThreshold && score > bestScore {
			bestScore = score
			bestSpan = sent
			found = true
		}
	}

	if !found {
		a.Description = fallbackDescription(a.Location.Chapter)
		return
	}

	chapter := bestSpan.Chapter
	text := bestSpan.Clip(200)
	a.ResolvedEventChapter = &chapter
	a.ResolvedEventText = &text
	a.Evidence = append(a.Evidence, fmt.Sprintf("Evento encontrado en capítulo %d", chapter))
	a.Description = fmt.Sprintf("Prolepsis en capítulo %d: anticipa evento que ocurre en capítulo %d", a.Location.Chapter, chapter)
}

func fallbackDescription(chapter int) string {
	return fmt.Sprintf("Posible prolepsis en capítulo %d: uso de condicional con marcador temporal futuro", chapter)
}

func containment(keywords, sentence []string) float64 {
	if len(keywords) == 0 || len(sentence) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(sentence))
	for _, t := range sentence {
		set[t] = struct{}{}
	}
	shared := 0
	for _, k := range keywords {
		if _, ok := set[k]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(keywords))
}

// Words that belong to the anticipation framing, not to the event itself.
var markerWords = map[string]struct{}{
	"años": {}, "año": {}, "meses": {}, "semanas": {}, "días": {},
	"después": {}, "tarde": {}, "tiempo": {}, "adelante": {}, "futuro": {},
	"entonces": {}, "aquella": {}, "aquel": {}, "aquellos": {}, "aquellas": {},
	"todo": {}, "nada": {}, "cuando": {}, "mucho": {}, "algún": {},
}

// eventKeywords pulls the content tokens of the anticipated event, dropping
// the conditional verbs and temporal markers that signal the anticipation
// itself.
func eventKeywords(text string) []string {
	var out []string
	for _, tok := range similarity.ContentTokens(text) {
		if conditionalVerb.MatchString(tok) {
			continue
		}
		if _, ok := markerWords[tok]; ok {
			continue
		}
		if len(tok) >= 4 {
			out = append(out, tok)
		}
	}
	if len(out) > 8 {
		out = out[:8]
	}
	return out
}

// dedupeNearby drops anomalies within 100 chars of a stronger one in the
// same chapter, keeping the higher confidence.
func dedupeNearby(list []Anomaly) []Anomaly {
	if len(list) == 0 {
		return nil
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Location.Chapter != list[j].Location.Chapter {
			return list[i].Location.Chapter < list[j].Location.Chapter
		}
		return list[i].Location.StartChar < list[j].Location.StartChar
	})

	out := []Anomaly{list[0]}
	for _, a := range list[1:] {
		last := &out[len(out)-1]
		sameChapter := a.Location.Chapter == last.Location.Chapter
		if sameChapter && a.Location.StartChar-last.Location.EndChar <= 100 {
			if a.Confidence > last.Confidence {
				*last = a
			}
			continue
		}
		out = append(out, a)
	}
	return out
}

func keepConfident(list []Anomaly, min float64) []Anomaly {
	out := make([]Anomaly, 0, len(list))
	for _, a := range list {
		if a.Confidence >= min {
			out = append(out, a)
		}
	}
	return out
}

func clamp1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
