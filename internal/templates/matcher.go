package templates

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"narrative_engine/internal/segment"
	"narrative_engine/internal/similarity"
)

type BeatStatus string

const (
	StatusDetected BeatStatus = "detected"
	StatusPossible BeatStatus = "possible"
	StatusMissing  BeatStatus = "missing"
	StatusNA       BeatStatus = "n_a"
)

// BeatResult is the evaluation of one template beat against the manuscript.
// DetectedChapter and DetectedPosition are only set when Status is detected
// or possible.
type BeatResult struct {
	BeatID           string     `json:"beat_id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	ExpectedPosition float64    `json:"expected_position"`
	Status           BeatStatus `json:"status"`
	DetectedChapter  *int       `json:"detected_chapter"`
	DetectedPosition *float64   `json:"detected_position"`
	Confidence       float64    `json:"confidence"`
	Evidence         string     `json:"evidence"`
}

type Match struct {
	TemplateType        Type         `json:"template_type"`
	TemplateName        string       `json:"template_name"`
	TemplateDescription string       `json:"template_description"`
	FitScore            int          `json:"fit_score"`
	TotalBeats          int          `json:"total_beats"`
	Beats               []BeatResult `json:"beats"`
	Detected            int          `json:"detected_count"`
	Possible            int          `json:"possible_count"`
	Missing             int          `json:"missing_count"`
	Gaps                []string     `json:"gaps"`
	Strengths           []string     `json:"strengths"`
	Suggestions         []string     `json:"suggestions"`
}

type Analysis struct {
	Matches           []Match `json:"matches"`
	BestMatch         Match   `json:"best_match"`
	TotalChapters     int     `json:"total_chapters"`
	ManuscriptSummary string  `json:"manuscript_summary"`
}

// The detected window is the beat's own tolerance; the possible window
// extends it by this margin on each side.
const possibleMargin = 0.10

// Analyze evaluates every template in the library against the manuscript
// and picks the best fit. Every template is always scored, even for a
// manuscript too short to place most beats.
func Analyze(seg segment.Segmented) Analysis {
	total := len(seg.Chapters)

	normalized := make([]string, total)
	for i, ch := range seg.Chapters {
		normalized[i] = similarity.Normalize(ch.Text)
	}

	matches := make([]Match, 0, len(library))
	for _, tpl := range library {
		matches = append(matches, evaluate(tpl, seg.Chapters, normalized))
	}

	best := bestMatch(matches)

	sorted := make([]Match, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FitScore > sorted[j].FitScore
	})

	return Analysis{
		Matches:           sorted,
		BestMatch:         best,
		TotalChapters:     total,
		ManuscriptSummary: summarize(best, total),
	}
}

func evaluate(tpl templateDef, chapters []segment.Chapter, normalized []string) Match {
	m := Match{
		TemplateType:        tpl.Type,
		TemplateName:        tpl.Name,
		TemplateDescription: tpl.Description,
		TotalBeats:          len(tpl.Beats),
	}

	total := len(chapters)
	scored := 0
	inWindow := 0

	for _, beat := range tpl.Beats {
		br := evaluateBeat(beat, chapters, normalized)
		m.Beats = append(m.Beats, br)
		switch br.Status {
		case StatusNA:
			continue
		case StatusDetected:
			m.Detected++
			if withinTolerance(beat, *br.DetectedPosition) {
				inWindow++
			}
		case StatusPossible:
			m.Possible++
		case StatusMissing:
			m.Missing++
		}
		scored++
	}

	m.FitScore = fitScore(m.Detected, m.Possible, scored, inWindow)
	m.Gaps, m.Strengths, m.Suggestions = narrate(tpl, m.Beats, total)
	return m
}

func evaluateBeat(beat beatDef, chapters []segment.Chapter, normalized []string) BeatResult {
	br := BeatResult{
		BeatID:           beat.ID,
		Name:             beat.Name,
		Description:      beat.Description,
		ExpectedPosition: beat.ExpectedPosition,
		Status:           StatusMissing,
	}

	total := len(chapters)
	if total < beat.MinChapters {
		br.Status = StatusNA
		return br
	}

	type hit struct {
		chapter  int
		position float64
		cues     []string
	}
	var bestIn, bestOut *hit

	for i, ch := range chapters {
		pos := position(i, total)
		dist := math.Abs(pos - beat.ExpectedPosition)
		if dist > beat.Tolerance+possibleMargin {
			continue
		}
		cues := cueHits(beat.Cues, normalized[i])
		if len(cues) == 0 {
			continue
		}
		h := hit{chapter: ch.Number, position: pos, cues: cues}
		if dist <= beat.Tolerance {
			if bestIn == nil || len(h.cues) > len(bestIn.cues) {
				c := h
				bestIn = &c
			}
		} else if bestOut == nil || len(h.cues) > len(bestOut.cues) {
			c := h
			bestOut = &c
		}
	}

	found := bestIn
	status := StatusDetected
	if found == nil {
		found = bestOut
		status = StatusPossible
	}
	if found == nil {
		return br
	}

	br.Status = status
	chapter := found.chapter
	pos := found.position
	br.DetectedChapter = &chapter
	br.DetectedPosition = &pos
	br.Confidence = cueConfidence(len(found.cues))
	if status == StatusPossible {
		br.Confidence = math.Max(0.3, br.Confidence-0.2)
	}
	br.Evidence = fmt.Sprintf("Indicios en capítulo %d: «%s»", chapter, strings.Join(found.cues, "», «"))
	return br
}

// position maps a 0-based chapter index to its fraction of the manuscript,
// using the chapter midpoint so a single-chapter manuscript sits at 0.5.
func position(index, total int) float64 {
	if total == 0 {
		return 0
	}
	return (float64(index) + 0.5) / float64(total)
}

func withinTolerance(beat beatDef, pos float64) bool {
	return math.Abs(pos-beat.ExpectedPosition) <= beat.Tolerance
}

func cueHits(cues []string, normalizedText string) []string {
	if normalizedText == "" {
		return nil
	}
	var out []string
	for _, cue := range cues {
		if strings.Contains(normalizedText, similarity.Normalize(cue)) {
			out = append(out, cue)
		}
	}
	return out
}

func cueConfidence(hits int) float64 {
	return math.Min(0.95, 0.5+0.15*float64(hits-1))
}

// fitScore blends beat coverage with position accuracy. Templates with few
// scorable beats are damped so a 4-beat template cannot outscore an 8-beat
// one on coverage alone.
func fitScore(detected, possible, scored, inWindow int) int {
	if scored == 0 {
		return 0
	}
	base := (float64(detected) + 0.4*float64(possible)) / float64(scored) * 100
	bonus := 0.2 / float64(scored) * 100 * float64(inWindow)
	score := base + bonus
	if scored < 7 {
		score *= 0.7 + 0.3*float64(scored)/7
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return int(math.Round(score))
}

// bestMatch breaks fit-score ties by fewer missing beats and then by
// library order, which is the order of matches as built.
func bestMatch(matches []Match) Match {
	best := 0
	for i := 1; i < len(matches); i++ {
		if matches[i].FitScore > matches[best].FitScore {
			best = i
			continue
		}
		if matches[i].FitScore == matches[best].FitScore && matches[i].Missing < matches[best].Missing {
			best = i
		}
	}
	return matches[best]
}

func narrate(tpl templateDef, beats []BeatResult, totalChapters int) (gaps, strengths, suggestions []string) {
	for i, br := range beats {
		beat := tpl.Beats[i]
		switch br.Status {
		case StatusMissing:
			gaps = append(gaps, fmt.Sprintf("No se detecta «%s» alrededor del %d%% del manuscrito", br.Name, int(beat.ExpectedPosition*100)))
			suggestions = append(suggestions, fmt.Sprintf("Considera reforzar «%s»: %s", br.Name, lowerFirst(beat.Description)))
		case StatusPossible:
			suggestions = append(suggestions, fmt.Sprintf("«%s» aparece fuera de su posición esperada; valora reubicarlo cerca del %d%%", br.Name, int(beat.ExpectedPosition*100)))
		case StatusDetected:
			strengths = append(strengths, fmt.Sprintf("«%s» presente en capítulo %d", br.Name, *br.DetectedChapter))
		}
	}
	if totalChapters > 0 && totalChapters < 3 {
		suggestions = append(suggestions, "El manuscrito es muy corto para evaluar la estructura con fiabilidad")
	}
	return gaps, strengths, suggestions
}

func lowerFirst(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func summarize(bm Match, totalChapters int) string {
	switch {
	case totalChapters == 0:
		return "Manuscrito vacío: no hay capítulos que analizar."
	case bm.FitScore >= 60:
		return fmt.Sprintf("El manuscrito sigue de cerca la estructura «%s» (ajuste %d/100): %d de sus momentos clave están presentes.", bm.TemplateName, bm.FitScore, bm.Detected)
	case bm.FitScore >= 35:
		return fmt.Sprintf("El manuscrito se aproxima a la estructura «%s» (ajuste %d/100), con %d momentos clave detectados y %d ausentes.", bm.TemplateName, bm.FitScore, bm.Detected, bm.Missing)
	default:
		return fmt.Sprintf("El manuscrito no encaja claramente en ninguna plantilla; la más cercana es «%s» (ajuste %d/100).", bm.TemplateName, bm.FitScore)
	}
}
