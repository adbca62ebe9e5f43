package order

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Default thresholds, one per strategy.
const (
	DefaultMinConfidence = 0.4
	DefaultFuzzyCutoff   = 0.6
)

// Strategy names the step of the resolver that produced a product.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyDirect
	StrategyClassifier
	StrategyFuzzy
)

func (s Strategy) String() string {
	switch s {
	case StrategyDirect:
		return "direct"
	case StrategyClassifier:
		return "classifier"
	case StrategyFuzzy:
		return "fuzzy"
	default:
		return "none"
	}
}

// Classifier scores a text against candidate labels, best first.
type Classifier interface {
	Classify(ctx context.Context, text string, labels []string) ([]Classification, error)
}

// Matcher returns the candidate closest to query if it clears cutoff.
type Matcher interface {
	BestMatch(query string, candidates []string, cutoff float64) (string, bool)
}

// ResolverConfig holds the acceptance thresholds of the external strategies.
type ResolverConfig struct {
	MinConfidence float64
	FuzzyCutoff   float64
}

var connectorFillers = []string{"and", "with", "of", "the", "please", "y", "con", "de", "el", "la", "por favor"}

// Resolver maps a segment to a canonical menu name.
type Resolver struct {
	names      []string
	patterns   []*regexp.Regexp
	connectors map[string]bool
	classifier Classifier
	matcher    Matcher
	cfg        ResolverConfig
	logger     *slog.Logger
}

// NewResolver builds a resolver over names. classifier and matcher may be
// nil, in which case the corresponding step is skipped.
func NewResolver(names []string, classifier Classifier, matcher Matcher, cfg ResolverConfig, logger *slog.Logger) *Resolver {
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = DefaultMinConfidence
	}
	if cfg.FuzzyCutoff <= 0 {
		cfg.FuzzyCutoff = DefaultFuzzyCutoff
	}
	if logger == nil {
		logger = slog.Default()
	}
	sorted := longestFirst(names)
	r := &Resolver{
		names:      sorted,
		patterns:   make([]*regexp.Regexp, len(sorted)),
		connectors: connectorWords(sorted),
		classifier: classifier,
		matcher:    matcher,
		cfg:        cfg,
		logger:     logger,
	}
	for i, n := range sorted {
		r.patterns[i] = wholeWord(n)
	}
	return r
}

// connectorWords collects the words of multi-word names that are not names
// on their own, e.g. "cola" when the menu has "coca cola".
func connectorWords(names []string) map[string]bool {
	isName := make(map[string]bool, len(names))
	for _, n := range names {
		isName[n] = true
	}
	out := make(map[string]bool)
	for _, f := range connectorFillers {
		out[f] = true
	}
	for _, n := range names {
		words := strings.Fields(n)
		if len(words) < 2 {
			continue
		}
		for _, w := range words {
			if !isName[w] {
				out[w] = true
			}
		}
	}
	return out
}

// Resolve returns the product named by seg and the strategy that found it.
// StrategyNone means the segment does not name a product.
func (r *Resolver) Resolve(ctx context.Context, seg Segment) (string, Strategy) {
	text := strings.TrimSpace(seg.Text)
	bare := strings.Trim(strings.TrimSpace(quantityToken.ReplaceAllString(text, " ")), " ,.;:!?-")
	if bare == "" || !strings.ContainsFunc(bare, unicode.IsLetter) || r.connectors[bare] || len(r.names) == 0 {
		return "", StrategyNone
	}

	for i, re := range r.patterns {
		if re.MatchString(text) {
			return r.names[i], StrategyDirect
		}
	}

	if r.classifier != nil {
		ranked, err := r.classifier.Classify(ctx, text, r.names)
		switch {
		case err != nil:
			r.logger.Warn("semantic classifier failed", "segment", text, "error", err)
		case len(ranked) > 0:
			top := topClassification(ranked)
			if label := Fold(top.Label); top.Confidence > r.cfg.MinConfidence && r.isName(label) {
				return label, StrategyClassifier
			}
			r.logger.Debug("classifier below threshold", "segment", text, "label", top.Label, "confidence", top.Confidence)
		}
	}

	if r.matcher != nil {
		if m, ok := r.matcher.BestMatch(bare, r.names, r.cfg.FuzzyCutoff); ok {
			return m, StrategyFuzzy
		}
	}

	r.logger.Debug("segment matched no product", "segment", text)
	return "", StrategyNone
}

func (r *Resolver) isName(label string) bool {
	for _, n := range r.names {
		if n == label {
			return true
		}
	}
	return false
}

func topClassification(ranked []Classification) Classification {
	sorted := append([]Classification(nil), ranked...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Confidence > sorted[j].Confidence })
	return sorted[0]
}
