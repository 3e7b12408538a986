package ingest

import (
	"regexp"
	"strings"

	"narrative_engine/internal/segment"
)

// A heading line: "Capítulo 3", "CAPÍTULO XII — El regreso", "# Capítulo 1",
// "Chapter 4", or a bare numeral on its own line.
var chapterHeading = regexp.MustCompile(`(?i)^\s*#{0,3}\s*(cap[ií]tulo|chapter)\s+(\d+|[ivxlcdm]+)\b.*$`)
var bareNumeral = regexp.MustCompile(`^\s*(\d{1,3}|[IVXLCDM]{1,7})\.?\s*$`)

const fallbackChapterWords = 2000

// SplitChapters divides manuscript text into ordered chapters. Explicit
// headings win; without at least two of them the text is cut into fixed
// word windows so every analyzer still gets multiple chapters to position
// against. Empty text yields a single empty chapter.
func SplitChapters(text string) []segment.Chapter {
	if strings.TrimSpace(text) == "" {
		return []segment.Chapter{{Number: 1, Text: ""}}
	}

	lines := strings.Split(text, "\n")
	var headingIdx []int
	for i, line := range lines {
		if chapterHeading.MatchString(line) || bareNumeral.MatchString(line) {
			headingIdx = append(headingIdx, i)
		}
	}

	if len(headingIdx) < 2 {
		return windowChapters(text)
	}

	var chapters []segment.Chapter
	for n, idx := range headingIdx {
		end := len(lines)
		if n+1 < len(headingIdx) {
			end = headingIdx[n+1]
		}
		var body []string
		if n == 0 {
			// Front matter above the first heading joins chapter 1.
			body = append(append(body, lines[:idx]...), lines[idx+1:end]...)
		} else {
			body = lines[idx+1 : end]
		}
		chapters = append(chapters, segment.Chapter{
			Number: n + 1,
			Text:   strings.TrimSpace(strings.Join(body, "\n")),
		})
	}
	return chapters
}

// windowChapters cuts heading-less text into word windows, keeping
// paragraph boundaries by cutting only at blank lines when one is near.
func windowChapters(text string) []segment.Chapter {
	paragraphs := strings.Split(text, "\n\n")

	var chapters []segment.Chapter
	var current []string
	words := 0
	flush := func() {
		if len(current) == 0 {
			return
		}
		chapters = append(chapters, segment.Chapter{
			Number: len(chapters) + 1,
			Text:   strings.TrimSpace(strings.Join(current, "\n\n")),
		})
		current = current[:0]
		words = 0
	}

	for _, p := range paragraphs {
		current = append(current, p)
		words += len(strings.Fields(p))
		if words >= fallbackChapterWords {
			flush()
		}
	}
	flush()

	if len(chapters) == 0 {
		return []segment.Chapter{{Number: 1, Text: strings.TrimSpace(text)}}
	}
	return chapters
}
