package intent

import (
	"strings"
	"unicode/utf8"

	"github.com/room4-2/OpenOrder/order"
)

// Folded keyword lists shared by the feedback rule and the sentiment analyzer.
var (
	negativeWords = []string{
		"waiting", "slow", "late", "cold", "bad", "awful", "horrible", "terrible", "disgusting",
		"complaint", "problem", "wrong", "missing", "never", "angry", "annoyed", "upset", "fed up",
		"esperando", "espero", "tarda", "demora", "lento", "mucho tiempo", "mal", "asco", "frio",
		"queja", "problema", "error", "equivocado", "incorrecto", "falta", "nunca", "jamas",
		"molesto", "enfadado", "frustrado", "harto", "cansado",
	}
	positiveWords = []string{
		"great", "excellent", "perfect", "delicious", "tasty", "love", "amazing", "awesome",
		"fantastic", "wonderful", "happy", "recommend",
		"genial", "excelente", "perfecto", "delicioso", "rico", "buenisimo", "encanta",
		"increible", "fantastico", "maravilloso", "rapido", "contento", "feliz", "satisfecho",
		"recomiendo",
	}
)

// Label is the polarity of a Sentiment.
type Label string

const (
	Positive Label = "positive"
	Negative Label = "negative"
	Neutral  Label = "neutral"
)

// Sentiment is the result of an analysis.
type Sentiment struct {
	Label      Label
	Confidence float64
}

// KeywordSentiment scores text by the presence of positive and negative
// keywords. Mixed or keyword-free text is neutral.
type KeywordSentiment struct{}

// Analyze returns the sentiment of text.
func (KeywordSentiment) Analyze(text string) Sentiment {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < 3 {
		return Sentiment{Label: Neutral}
	}
	folded := order.Fold(text)
	neg := negativeFeedback.MatchString(folded)
	pos := positiveFeedback.MatchString(folded)
	switch {
	case neg && !pos:
		return Sentiment{Label: Negative, Confidence: 0.9}
	case pos && !neg:
		return Sentiment{Label: Positive, Confidence: 0.9}
	}
	return Sentiment{Label: Neutral, Confidence: 0.5}
}

// EmpathyPrefix returns the phrase put in front of a reply for s, or "".
// Low confidence results never add a prefix.
func EmpathyPrefix(s Sentiment) string {
	if s.Confidence < 0.7 {
		return ""
	}
	switch s.Label {
	case Negative:
		return "I'm sorry about the trouble. "
	case Positive:
		return "Glad to hear that! "
	}
	return ""
}
