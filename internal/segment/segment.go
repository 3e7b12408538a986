package segment

import (
	"strings"
	"unicode"
)

// Chapter is one ordered unit of manuscript text. Offsets in the spans
// produced from it are relative to Text.
type Chapter struct {
	Number int    `json:"chapter_number"`
	Text   string `json:"text"`
}

// Span is a sentence or paragraph with stable offsets into its chapter.
// StartChar and EndChar are byte offsets into the chapter's UTF-8 text, not
// rune counts, so chapter.Text[StartChar:EndChar] == Text always holds.
// StartChar < EndChar always holds; empty chapters produce no spans.
type Span struct {
	Chapter   int    `json:"chapter"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
	Text      string `json:"text"`
}

// Segmented holds one manuscript split once and shared by every analyzer.
type Segmented struct {
	Chapters   []Chapter
	Sentences  []Span
	Paragraphs []Span
}

func Split(chapters []Chapter) Segmented {
	seg := Segmented{Chapters: chapters}
	for _, ch := range chapters {
		seg.Sentences = append(seg.Sentences, Sentences(ch)...)
		seg.Paragraphs = append(seg.Paragraphs, Paragraphs(ch)...)
	}
	return seg
}

// Abbreviations that end with a period without ending the sentence.
var abbreviations = map[string]struct{}{
	"sr": {}, "sra": {}, "srta": {}, "dr": {}, "dra": {}, "d": {}, "da": {},
	"ud": {}, "uds": {}, "etc": {}, "pág": {}, "núm": {}, "cap": {},
	"mr": {}, "mrs": {}, "ms": {}, "st": {}, "vs": {},
}

// Sentences splits a chapter into sentence spans. Each span is a substring
// of the chapter text at its recorded offsets, so joining the spans with the
// original separators reconstructs the chapter exactly. Text without
// terminal punctuation yields a single span.
func Sentences(ch Chapter) []Span {
	text := ch.Text
	runes := []rune(text)
	if len(strings.TrimSpace(text)) == 0 {
		return nil
	}

	// Byte offset of each rune, plus the end sentinel.
	offsets := make([]int, len(runes)+1)
	pos := 0
	for i, r := range runes {
		offsets[i] = pos
		pos += len(string(r))
	}
	offsets[len(runes)] = pos

	var spans []Span
	start := -1
	i := 0
	for i < len(runes) {
		r := runes[i]
		if start == -1 {
			if unicode.IsSpace(r) {
				i++
				continue
			}
			start = i
		}
		if isTerminal(r) && !midAbbreviation(runes, i) && !midNumber(runes, i) {
			end := i
			for end+1 < len(runes) && isTrailing(runes[end+1]) {
				end++
			}
			// Only close the sentence at a real boundary: whitespace or EOF.
			if end+1 >= len(runes) || unicode.IsSpace(runes[end+1]) {
				spans = append(spans, spanAt(ch, text, offsets, start, end+1))
				start = -1
				i = end + 1
				continue
			}
			i = end + 1
			continue
		}
		i++
	}
	if start != -1 {
		end := len(runes)
		for end > start && unicode.IsSpace(runes[end-1]) {
			end--
		}
		if end > start {
			spans = append(spans, spanAt(ch, text, offsets, start, end))
		}
	}
	return spans
}

// Paragraphs splits a chapter on blank-line boundaries.
func Paragraphs(ch Chapter) []Span {
	text := ch.Text
	if len(strings.TrimSpace(text)) == 0 {
		return nil
	}

	var spans []Span
	pos := 0
	for pos < len(text) {
		// Skip leading whitespace between blocks.
		for pos < len(text) && (text[pos] == '\n' || text[pos] == '\r' || text[pos] == ' ' || text[pos] == '\t') {
			pos++
		}
		if pos >= len(text) {
			break
		}
		end := blankLineAfter(text, pos)
		trimEnd := end
		for trimEnd > pos && isASCIISpace(text[trimEnd-1]) {
			trimEnd--
		}
		if trimEnd > pos {
			spans = append(spans, Span{
				Chapter:   ch.Number,
				StartChar: pos,
				EndChar:   trimEnd,
				Text:      text[pos:trimEnd],
			})
		}
		pos = end
	}
	return spans
}

func blankLineAfter(text string, from int) int {
	i := from
	for i < len(text) {
		if text[i] == '\n' {
			j := i + 1
			sawBreak := false
			for j < len(text) && (text[j] == ' ' || text[j] == '\t' || text[j] == '\r' || text[j] == '\n') {
				if text[j] == '\n' {
					sawBreak = true
				}
				j++
			}
			if sawBreak || j >= len(text) {
				return i
			}
			i = j
			continue
		}
		i++
	}
	return len(text)
}

func spanAt(ch Chapter, text string, offsets []int, startRune, endRune int) Span {
	start := offsets[startRune]
	end := offsets[endRune]
	return Span{
		Chapter:   ch.Number,
		StartChar: start,
		EndChar:   end,
		Text:      text[start:end],
	}
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '…'
}

func isTrailing(r rune) bool {
	switch r {
	case '.', '!', '?', '…', '"', '\'', '”', '’', '»', ')', ']':
		return true
	}
	return false
}

// midAbbreviation reports whether the period at index i terminates a known
// abbreviation rather than a sentence.
func midAbbreviation(runes []rune, i int) bool {
	if runes[i] != '.' {
		return false
	}
	end := i
	start := end
	for start > 0 && unicode.IsLetter(runes[start-1]) {
		start--
	}
	if start == end {
		return false
	}
	word := strings.ToLower(string(runes[start:end]))
	_, ok := abbreviations[word]
	return ok
}

// midNumber reports whether the period at index i sits inside a number
// like 3.14.
func midNumber(runes []rune, i int) bool {
	if runes[i] != '.' {
		return false
	}
	return i > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1])
}

func isASCIISpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

// Clip returns the span text truncated for report payloads.
func (s Span) Clip(max int) string {
	if max <= 0 || len(s.Text) <= max {
		return s.Text
	}
	clipped := s.Text[:max]
	// Do not cut a UTF-8 sequence in half.
	for len(clipped) > 0 && clipped[len(clipped)-1]&0xC0 == 0x80 {
		clipped = clipped[:len(clipped)-1]
	}
	return clipped + "..."
}
