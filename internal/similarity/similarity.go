// Package similarity is the single comparison primitive shared by the
// duplicate analyzer and the temporal analyzer: normalize, cheap candidate
// filtering, lexical scoring and a semantic fallback for paragraphs.
package similarity

import (
	"hash/fnv"
	"math"
	"regexp"
	"sort"
	"strings"
)

var punctuation = regexp.MustCompile(`[.,;:!?¡¿"'“”‘’«»()\[\]—–-]+`)
var whitespace = regexp.MustCompile(`\s+`)

// Normalize lowers case, strips punctuation and collapses whitespace so
// that exact textual equality after normalization scores 1.0.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = punctuation.ReplaceAllString(s, " ")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func Tokens(s string) []string {
	norm := Normalize(s)
	if norm == "" {
		return nil
	}
	return strings.Fields(norm)
}

// Score compares two already-normalized strings and returns a similarity in
// [0,1]. Equal strings score exactly 1.0; unequal strings score the better
// of a token-overlap Dice coefficient and a character edit-distance ratio.
func Score(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1.0
	}
	dice := diceTokens(strings.Fields(a), strings.Fields(b))
	lev := 0.0
	if len(a) <= maxEditLen && len(b) <= maxEditLen {
		lev = editRatio(a, b)
	}
	return math.Max(dice, lev)
}

const maxEditLen = 600

func diceTokens(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]int, len(a))
	for _, t := range a {
		set[t]++
	}
	shared := 0
	for _, t := range b {
		if set[t] > 0 {
			set[t]--
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(a)+len(b))
}

// editRatio is 1 - levenshtein/maxlen over runes.
func editRatio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 0
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return 1 - float64(prev[len(rb)])/float64(longest)
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// Pair is an index pair with I < J.
type Pair struct {
	I, J int
}

// CandidatePairs prefilters comparable pairs over normalized texts using
// shared word-shingle signatures plus a length bucket, so full pairwise
// scoring never runs over the n² cross product. Output is sorted and
// deduplicated.
func CandidatePairs(normalized []string) []Pair {
	index := make(map[string][]int)
	for i, text := range normalized {
		for _, sh := range shingles(text) {
			index[sh] = append(index[sh], i)
		}
	}

	seen := make(map[int64]struct{})
	var pairs []Pair
	for _, bucket := range index {
		if len(bucket) > maxBucket {
			// A shingle shared by this many segments carries no signal.
			continue
		}
		for x := 0; x < len(bucket); x++ {
			for y := x + 1; y < len(bucket); y++ {
				i, j := bucket[x], bucket[y]
				if !lengthComparable(normalized[i], normalized[j]) {
					continue
				}
				key := int64(i)<<32 | int64(j)
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				pairs = append(pairs, Pair{I: i, J: j})
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

const (
	shingleSize = 3
	maxBucket   = 64
)

func shingles(norm string) []string {
	tokens := strings.Fields(norm)
	if len(tokens) == 0 {
		return nil
	}
	if len(tokens) < shingleSize {
		return []string{strings.Join(tokens, " ")}
	}
	out := make([]string, 0, len(tokens)-shingleSize+1)
	for i := 0; i+shingleSize <= len(tokens); i++ {
		out = append(out, strings.Join(tokens[i:i+shingleSize], " "))
	}
	return out
}

// Two segments can only clear a [0.5,1.0] threshold when their lengths are
// in the same ballpark.
func lengthComparable(a, b string) bool {
	la, lb := len(a), len(b)
	if la > lb {
		la, lb = lb, la
	}
	if lb == 0 {
		return false
	}
	return float64(la)/float64(lb) >= 0.4
}

// vectorDims is the hashed term-frequency space used for the semantic
// paragraph measure. Deterministic by construction: repeated runs produce
// identical vectors.
const vectorDims = 128

type Vector [vectorDims]float64

// Vectorize builds a hashed term-frequency vector from normalized text.
func Vectorize(norm string) Vector {
	var v Vector
	for _, tok := range strings.Fields(norm) {
		if isStopword(tok) {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(tok))
		v[h.Sum32()%vectorDims]++
	}
	return v
}

// Cosine returns the cosine similarity of two vectors, 0 for zero vectors.
func Cosine(a, b Vector) float64 {
	var dot, na, nb float64
	for i := 0; i < vectorDims; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

var stopwords = map[string]struct{}{
	"el": {}, "la": {}, "los": {}, "las": {}, "un": {}, "una": {}, "unos": {},
	"unas": {}, "de": {}, "del": {}, "al": {}, "a": {}, "en": {}, "y": {},
	"o": {}, "que": {}, "se": {}, "su": {}, "sus": {}, "con": {}, "por": {},
	"para": {}, "no": {}, "es": {}, "era": {}, "fue": {}, "lo": {}, "le": {},
	"como": {}, "más": {}, "pero": {}, "sin": {}, "sobre": {}, "entre": {},
	"cuando": {}, "muy": {}, "ya": {}, "había": {}, "esa": {}, "ese": {},
	"esta": {}, "este": {}, "the": {}, "of": {}, "and": {}, "to": {},
	"in": {}, "was": {}, "he": {}, "she": {}, "it": {}, "that": {},
}

func isStopword(tok string) bool {
	_, ok := stopwords[tok]
	return ok
}

// ContentTokens returns the normalized tokens minus stopwords, the unit the
// paraphrase-level overlap works on.
func ContentTokens(s string) []string {
	var out []string
	for _, tok := range Tokens(s) {
		if !isStopword(tok) && len(tok) > 2 {
			out = append(out, tok)
		}
	}
	return out
}
