package order

import (
	"context"
	"log/slog"
)

// Extractor runs the full pipeline from a raw utterance to order lines for
// one menu snapshot.
type Extractor struct {
	normalizer *Normalizer
	segmenter  *Segmenter
	resolver   *Resolver
	logger     *slog.Logger
}

// NewExtractor wires normalizer, segmenter and resolver for the given menu.
func NewExtractor(names []string, aliases map[string]string, classifier Classifier, matcher Matcher, cfg ResolverConfig, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		normalizer: NewNormalizer(names, aliases),
		segmenter:  NewSegmenter(names),
		resolver:   NewResolver(names, classifier, matcher, cfg, logger),
		logger:     logger,
	}
}

// Normalize exposes the normalizer of this menu.
func (e *Extractor) Normalize(text string) string {
	return e.normalizer.Normalize(text)
}

// Extract returns the deduplicated order lines found in utterance.
// Segments that name no product are dropped.
func (e *Extractor) Extract(ctx context.Context, utterance string) []OrderLine {
	text := e.normalizer.Normalize(utterance)
	var lines []OrderLine
	for _, seg := range e.segmenter.Split(text) {
		product, strategy := e.resolver.Resolve(ctx, seg)
		if strategy == StrategyNone {
			continue
		}
		qty := ExtractQuantity(seg.Text)
		noteSource := seg.Text
		if strategy != StrategyDirect {
			noteSource = modifierClause(seg.Text)
		}
		line := OrderLine{
			Product:  product,
			Quantity: qty,
			Note:     ExtractNote(noteSource, product, qty),
		}
		if err := line.Validate(); err != nil {
			e.logger.Debug("dropping order line", "segment", seg.Text, "error", err)
			continue
		}
		e.logger.Debug("resolved segment", "segment", seg.Text, "product", product, "strategy", strategy.String())
		lines = append(lines, line)
	}
	return Dedup(lines)
}
