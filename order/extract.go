package order

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var quantityToken = regexp.MustCompile(`\b\d+\b`)

var fillerPhrases = []string{
	"i would like", "i'd like", "id like", "can i have", "could i have", "can i get", "could i get",
	"i'll have", "ill have", "i will have", "i want", "give me", "get me", "please", "thank you", "thanks",
	"por favor", "porfavor", "me das", "me pones", "quiero", "ponme", "dame", "gracias",
}

var leadingWords = map[string]bool{
	"the": true, "of": true, "with": true, "some": true, "for": true, "and": true,
	"de": true, "con": true, "el": true, "la": true, "los": true, "las": true, "para": true, "y": true,
}

var fillerPattern = func() *regexp.Regexp {
	quoted := make([]string, len(fillerPhrases))
	for i, p := range fillerPhrases {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}()

// ExtractQuantity returns the first integer in text, or 1 when there is none.
// Zero and numbers above MaxQuantity are returned as 0 so the caller drops
// the line.
func ExtractQuantity(text string) int {
	m := quantityToken.FindString(text)
	if m == "" {
		return 1
	}
	n, err := strconv.Atoi(m)
	if err != nil || n > MaxQuantity {
		return 0
	}
	return n
}

// ExtractNote strips the quantity, the product name and filler words from a
// segment and returns what is left as a capitalised note, or NoNotes.
func ExtractNote(text, product string, quantity int) string {
	note := text
	if loc := wholeWord(strconv.Itoa(quantity)).FindStringIndex(note); loc != nil {
		note = note[:loc[0]] + " " + note[loc[1]:]
	}
	if product != "" {
		plural := regexp.MustCompile(`\b` + regexp.QuoteMeta(Fold(product)) + `(?:es|s)?\b`)
		note = plural.ReplaceAllString(note, " ")
	}
	note = fillerPattern.ReplaceAllString(note, " ")
	note = strings.Join(strings.Fields(note), " ")

	for {
		note = strings.Trim(note, " ,.;:!?-")
		first, rest, _ := strings.Cut(note, " ")
		if !leadingWords[first] {
			break
		}
		note = rest
	}

	if utf8.RuneCountInString(note) <= 1 {
		return NoNotes
	}
	r, size := utf8.DecodeRuneInString(note)
	return string(unicode.ToUpper(r)) + note[size:]
}

// modifierClause returns text from its first modifier word on, or "" when
// there is none. Segments resolved without a literal name use it so a
// misspelled product does not end up in the note.
func modifierClause(text string) string {
	offset := 0
	for _, w := range strings.Fields(text) {
		i := strings.Index(text[offset:], w) + offset
		if modifierWords[w] {
			return text[i:]
		}
		offset = i + len(w)
	}
	return ""
}
