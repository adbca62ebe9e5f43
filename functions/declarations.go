// Package functions declares the Gemini functions the model is forced to
// call and decodes their arguments.
package functions

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/room4-2/OpenOrder/order"
)

// Function names.
const (
	RankCandidates = "RankCandidates"
	ClassifyIntent = "ClassifyIntent"
)

// ErrBadArguments is returned when a function call does not match its declaration.
var ErrBadArguments = errors.New("malformed function arguments")

func ptr[T any](v T) *T { return &v }

// RankCandidatesDeclaration declares a function that scores every candidate
// label against the customer's text.
func RankCandidatesDeclaration(labels []string) *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        RankCandidates,
		Description: "Report how likely the customer's text refers to each menu product. Use only the given labels.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"rankings": {
					Type:        genai.TypeArray,
					Description: "One entry per plausible product, best first.",
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"label": {Type: genai.TypeString, Enum: labels},
							"confidence": {
								Type:    genai.TypeNumber,
								Minimum: ptr(0.0),
								Maximum: ptr(1.0),
							},
						},
						Required: []string{"label", "confidence"},
					},
				},
			},
			Required: []string{"rankings"},
		},
	}
}

// ClassifyIntentDeclaration declares a function that picks one intent label.
func ClassifyIntentDeclaration(labels []string) *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        ClassifyIntent,
		Description: "Classify what a restaurant customer wants with a single message.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"label": {Type: genai.TypeString, Enum: labels},
			},
			Required: []string{"label"},
		},
	}
}

// ParseRankings decodes RankCandidates arguments. Entries with an empty
// label are skipped and confidences are clamped to [0, 1].
func ParseRankings(args map[string]any) ([]order.Classification, error) {
	raw, ok := args["rankings"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: rankings is %T", ErrBadArguments, args["rankings"])
	}
	out := make([]order.Classification, 0, len(raw))
	for i, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: ranking %d is %T", ErrBadArguments, i, entry)
		}
		label, _ := m["label"].(string)
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		conf, err := number(m["confidence"])
		if err != nil {
			return nil, fmt.Errorf("%w: ranking %d: %v", ErrBadArguments, i, err)
		}
		out = append(out, order.Classification{Label: label, Confidence: min(max(conf, 0), 1)})
	}
	return out, nil
}

// ParseLabel decodes ClassifyIntent arguments.
func ParseLabel(args map[string]any) (string, error) {
	label, ok := args["label"].(string)
	if !ok || strings.TrimSpace(label) == "" {
		return "", fmt.Errorf("%w: label is %v", ErrBadArguments, args["label"])
	}
	return strings.TrimSpace(label), nil
}

func number(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("confidence is %T", v)
	}
}
