package order

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var numberWords = map[string]string{
	"a": "1", "an": "1", "one": "1", "two": "2", "three": "3", "four": "4", "five": "5",
	"six": "6", "seven": "7", "eight": "8", "nine": "9", "ten": "10",
	"un": "1", "una": "1", "uno": "1", "dos": "2", "tres": "3", "cuatro": "4", "cinco": "5",
	"seis": "6", "siete": "7", "ocho": "8", "nueve": "9", "diez": "10",
}

// articles only count as a quantity when a menu term follows them, so that
// "a lot of cheese" keeps its wording.
var articles = map[string]bool{"a": true, "an": true, "un": true, "una": true}

var conjunctions = []string{"and", "y"}

var (
	spaceRun    = regexp.MustCompile(`\s+`)
	commaRun    = regexp.MustCompile(`\s*,[\s,]*`)
	droppedMark = strings.NewReplacer("¿", " ", "¡", " ", "\"", " ", "“", " ", "”", " ")
)

// Fold lowercases s, strips diacritics and collapses whitespace.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = droppedMark.Replace(strings.ToLower(folded))
	return strings.TrimSpace(spaceRun.ReplaceAllString(folded, " "))
}

// Normalizer rewrites utterances into the canonical vocabulary of a menu.
type Normalizer struct {
	terms    map[string]string
	products map[string]bool
	pattern  *regexp.Regexp
}

// NewNormalizer builds a normalizer for the given canonical names and
// alias to canonical name mappings.
func NewNormalizer(names []string, aliases map[string]string) *Normalizer {
	terms := make(map[string]string)
	set := func(k, v string, overwrite bool) {
		if k == "" {
			return
		}
		if _, ok := terms[k]; ok && !overwrite {
			return
		}
		terms[k] = v
	}

	for _, c := range conjunctions {
		set(c, ",", true)
	}
	for w, d := range numberWords {
		set(w, d, true)
	}

	canonical := make(map[string]bool, len(names))
	for _, name := range names {
		canonical[Fold(name)] = true
	}
	for name := range canonical {
		set(name+"s", name, true)
		set(name+"es", name, true)
	}
	for alias, name := range aliases {
		alias, name = Fold(alias), Fold(name)
		if !canonical[name] {
			continue
		}
		set(alias+"s", name, true)
		set(alias, name, true)
	}
	for name := range canonical {
		set(name, name, true)
	}

	products := make(map[string]bool)
	for k, v := range terms {
		if canonical[v] {
			products[k] = true
		}
	}
	return &Normalizer{terms: terms, products: products, pattern: termPattern(terms)}
}

func termPattern(terms map[string]string) *regexp.Regexp {
	keys := make([]string, 0, len(terms))
	for k := range terms {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = regexp.QuoteMeta(k)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// Normalize lowercases the text, folds number words, plurals and aliases,
// and turns conjunctions into list separators. Normalizing twice gives the
// same result as normalizing once.
func (n *Normalizer) Normalize(text string) string {
	s := Fold(text)
	matches := n.pattern.FindAllStringIndex(s, -1)

	var b strings.Builder
	last := 0
	for i, m := range matches {
		word := s[m[0]:m[1]]
		repl := n.terms[word]
		if articles[word] && !n.productFollows(s, m[1], matches[i+1:]) {
			repl = word
		}
		b.WriteString(s[last:m[0]])
		b.WriteString(repl)
		last = m[1]
	}
	b.WriteString(s[last:])

	out := commaRun.ReplaceAllString(b.String(), ", ")
	out = spaceRun.ReplaceAllString(out, " ")
	return strings.Trim(out, " ,")
}

// productFollows reports whether the next term after end is a product
// separated from it by whitespace only.
func (n *Normalizer) productFollows(s string, end int, rest [][]int) bool {
	if len(rest) == 0 {
		return false
	}
	next := rest[0]
	return strings.TrimSpace(s[end:next[0]]) == "" && n.products[s[next[0]:next[1]]]
}
