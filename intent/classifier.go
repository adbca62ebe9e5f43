package intent

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/room4-2/OpenOrder/order"
)

var (
	confirmationWords = wordSet("si", "vale", "ok", "okay", "confirmar", "correcto", "exacto",
		"yes", "yeah", "yep", "sure", "confirm", "correct")
	negationWords = wordSet("no", "nop", "nope", "negativo", "cancelar", "cancel", "nah")

	ticketToken = regexp.MustCompile(`\b[0-9a-f]{8}\b`)

	statusPhrases   = phrasePattern("status", "ticket", "my order", "where is", "estado", "como va", "mi pedido", "donde esta")
	orderingPhrases = phrasePattern("want", "would like", "give me", "get me", "can i have", "can i get", "i will have",
		"order", "add", "quiero", "ponme", "dame", "pedir", "me pones", "me das", "anade")

	greetings = []string{"buenas tardes", "buenas noches", "buenos dias", "good morning", "good evening",
		"good afternoon", "que tal", "buenas", "hola", "hello", "hey", "hi"}
	farewells = []string{"hasta luego", "nos vemos", "thank you", "see you", "goodbye", "adios", "gracias",
		"thanks", "chao", "bye"}

	positiveFeedback = phrasePattern(positiveWords...)
	negativeFeedback = phrasePattern(negativeWords...)
)

// modelLabels maps the trained model's vocabulary onto intent kinds.
var modelLabels = map[string]Kind{
	"pedido":    NewOrder,
	"order":     NewOrder,
	"saludo":    Greeting,
	"greeting":  Greeting,
	"despedida": Farewell,
	"farewell":  Farewell,
	"queja":     FeedbackNegative,
	"complaint": FeedbackNegative,
	"elogio":    FeedbackPositive,
	"praise":    FeedbackPositive,
	"consulta":  StatusQuery,
	"query":     StatusQuery,
}

// Classifier applies the ordered intent rules. The first rule that matches
// wins.
type Classifier struct {
	model  Model
	logger *slog.Logger
}

// NewClassifier returns a classifier. model may be nil.
func NewClassifier(model Model, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{model: model, logger: logger}
}

// Classify returns the intent of in.Text.
func (c *Classifier) Classify(ctx context.Context, in Input) Intent {
	text := order.Fold(in.Text)
	words := tokenize(text)

	if in.Pending && containsAny(words, confirmationWords) {
		return Intent{Kind: Confirmation}
	}
	if in.Pending && containsAny(words, negationWords) {
		return Intent{Kind: Negation}
	}
	if id := ticketToken.FindString(text); id != "" {
		return Intent{Kind: StatusQuery, TicketID: strings.ToUpper(id)}
	}
	if statusPhrases.MatchString(text) {
		return Intent{Kind: StatusQuery, TicketID: RequestID}
	}

	bare := strings.Trim(text, " ,.;:!?")
	if startsWithPhrase(bare, greetings) {
		return Intent{Kind: Greeting}
	}
	if startsWithPhrase(bare, farewells) {
		return Intent{Kind: Farewell}
	}

	if kind, ok := c.predict(ctx, in.Text); ok {
		if kind == StatusQuery {
			return Intent{Kind: StatusQuery, TicketID: RequestID}
		}
		return Intent{Kind: kind}
	}

	// Ordering signals suppress the feedback heuristics.
	if orderingPhrases.MatchString(text) || in.Menu.Mentioned(text) {
		return Intent{Kind: NewOrder}
	}
	switch {
	case negativeFeedback.MatchString(text):
		return Intent{Kind: FeedbackNegative}
	case positiveFeedback.MatchString(text):
		return Intent{Kind: FeedbackPositive}
	}
	return Intent{Kind: Unrecognized}
}

// predict asks the trained model, if any. Labels outside the known
// vocabulary and model errors fall through to the remaining rules.
func (c *Classifier) predict(ctx context.Context, text string) (Kind, bool) {
	if c.model == nil || !c.model.Available() {
		return Unrecognized, false
	}
	label, err := c.model.Predict(ctx, text)
	if err != nil {
		c.logger.Warn("intent model failed", "error", err)
		return Unrecognized, false
	}
	kind, ok := modelLabels[order.Fold(label)]
	if !ok && label != "" {
		c.logger.Debug("intent model label ignored", "label", label)
	}
	return kind, ok
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsAny(words []string, set map[string]bool) bool {
	for _, w := range words {
		if set[w] {
			return true
		}
	}
	return false
}

// startsWithPhrase reports whether text is one of phrases or begins with
// one followed by a non-word character.
func startsWithPhrase(text string, phrases []string) bool {
	for _, p := range phrases {
		if text == p {
			return true
		}
		if rest, ok := strings.CutPrefix(text, p); ok {
			r := []rune(rest)[0]
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				return true
			}
		}
	}
	return false
}

// MenuTerms matches mentions of a catalog's products, plurals included.
// Build it once per catalog snapshot.
type MenuTerms struct {
	pattern *regexp.Regexp
}

// NewMenuTerms compiles the product names into a single pattern.
func NewMenuTerms(names []string) *MenuTerms {
	var folded []string
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = order.Fold(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		folded = append(folded, name)
	}
	if len(folded) == 0 {
		return &MenuTerms{}
	}
	sort.Slice(folded, func(i, j int) bool { return len(folded[i]) > len(folded[j]) })
	quoted := make([]string, len(folded))
	for i, name := range folded {
		quoted[i] = regexp.QuoteMeta(name)
	}
	return &MenuTerms{pattern: regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)(?:es|s)?\b`)}
}

// Mentioned reports whether folded text names a product.
func (m *MenuTerms) Mentioned(text string) bool {
	return m != nil && m.pattern != nil && m.pattern.MatchString(text)
}

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func phrasePattern(phrases ...string) *regexp.Regexp {
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// MentionsConfirmation reports whether text holds a whole-word confirmation
// token, regardless of session state.
func MentionsConfirmation(text string) bool {
	return containsAny(tokenize(order.Fold(text)), confirmationWords)
}
