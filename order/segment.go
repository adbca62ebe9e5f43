package order

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// modifierWords open a clause that belongs to the product before it.
var modifierWords = map[string]bool{
	"with": true, "without": true, "extra": true, "no": true, "more": true, "less": true,
	"light": true, "double": true, "add": true, "plus": true, "hold": true,
	"con": true, "sin": true, "poco": true, "muy": true, "bien": true, "mas": true, "menos": true,
}

const separators = ",;.!?"

type span struct{ start, end int }

// Segmenter splits normalized utterances into one span per ordered item.
type Segmenter struct {
	names    []string
	patterns []*regexp.Regexp
}

// NewSegmenter prepares anchor patterns for the canonical names, longest
// first so a short name never claims part of a longer one.
func NewSegmenter(names []string) *Segmenter {
	sorted := longestFirst(names)
	s := &Segmenter{names: sorted, patterns: make([]*regexp.Regexp, len(sorted))}
	for i, name := range sorted {
		s.patterns[i] = wholeWord(name)
	}
	return s
}

// Split returns non-overlapping segments in utterance order. Items are
// anchored on menu names; separators followed by a modifier keyword do not
// split, so "pizza, extra cheese" stays one segment.
func (s *Segmenter) Split(text string) []Segment {
	anchors := s.anchors(text)

	var segments []Segment
	for _, chunk := range splitPoints(text) {
		cuts := []int{chunk.start}
		prevEnd := -1
		for _, a := range anchors {
			if a.start < chunk.start || a.end > chunk.end {
				continue
			}
			if prevEnd >= 0 {
				if cut, ok := cutBefore(text, prevEnd, a.start); ok {
					cuts = append(cuts, cut)
				}
			}
			prevEnd = a.end
		}
		cuts = append(cuts, chunk.end)
		for i := 0; i+1 < len(cuts); i++ {
			if seg, ok := trimmed(text, cuts[i], cuts[i+1]); ok {
				segments = append(segments, seg)
			}
		}
	}
	return segments
}

func (s *Segmenter) anchors(text string) []span {
	var found []span
	for _, re := range s.patterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			a := span{loc[0], loc[1]}
			if !overlaps(found, a) {
				found = append(found, a)
			}
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].start < found[j].start })
	return found
}

func overlaps(spans []span, a span) bool {
	for _, b := range spans {
		if a.start < b.end && b.start < a.end {
			return true
		}
	}
	return false
}

// splitPoints cuts text at separators that are not followed by a modifier.
func splitPoints(text string) []span {
	var chunks []span
	start := 0
	for i := 0; i < len(text); i++ {
		if !strings.ContainsRune(separators, rune(text[i])) {
			continue
		}
		if modifierFollows(text[i+1:]) {
			continue
		}
		chunks = append(chunks, span{start, i})
		start = i + 1
	}
	return append(chunks, span{start, len(text)})
}

func modifierFollows(rest string) bool {
	fields := strings.FieldsFunc(rest, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return len(fields) > 0 && modifierWords[fields[0]]
}

// cutBefore finds where the segment of the anchor starting at anchorStart
// begins: a quantity right before the anchor moves with it. An anchor that
// is introduced by a modifier ("without fries") is not cut at all.
func cutBefore(text string, prevEnd, anchorStart int) (int, bool) {
	between := strings.Fields(text[prevEnd:anchorStart])
	if len(between) > 0 {
		last := between[len(between)-1]
		if modifierWords[last] {
			return 0, false
		}
		if isNumber(last) {
			if len(between) > 1 && modifierWords[between[len(between)-2]] {
				return 0, false
			}
			return strings.LastIndex(text[:anchorStart], last), true
		}
	}
	return anchorStart, true
}

func trimmed(text string, start, end int) (Segment, bool) {
	for start < end && unicode.IsSpace(rune(text[start])) {
		start++
	}
	for end > start && unicode.IsSpace(rune(text[end-1])) {
		end--
	}
	if start >= end {
		return Segment{}, false
	}
	return Segment{Text: text[start:end], Start: start, End: end}, true
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func longestFirst(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = Fold(n)
		if n != "" && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

func wholeWord(s string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(s) + `\b`)
}
