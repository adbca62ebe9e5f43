package gemini

import (
	"context"
	"fmt"
	"sort"

	"google.golang.org/genai"

	"github.com/room4-2/OpenOrder/functions"
	"github.com/room4-2/OpenOrder/order"
)

// Classifier ranks menu labels for a text fragment.
type Classifier struct {
	client *Client
}

// NewClassifier returns a semantic classifier backed by client.
func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

// Classify returns labels ranked by confidence, best first.
func (c *Classifier) Classify(ctx context.Context, text string, labels []string) ([]order.Classification, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	parts := []*genai.Part{genai.NewPartFromText("Order fragment: " + text)}
	args, err := c.client.callFunction(ctx, rankCandidatesPrompt, parts, functions.RankCandidatesDeclaration(labels))
	if err != nil {
		return nil, err
	}
	ranked, err := functions.ParseRankings(args)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Confidence > ranked[j].Confidence })
	return ranked, nil
}

// IntentLabels is the label vocabulary of IntentModel.
var IntentLabels = []string{"pedido", "saludo", "despedida", "queja", "elogio", "consulta", "otro"}

// IntentModel labels whole messages with IntentLabels.
type IntentModel struct {
	client *Client
}

// NewIntentModel returns an intent model. A nil client yields a model that
// reports itself unavailable.
func NewIntentModel(client *Client) *IntentModel {
	return &IntentModel{client: client}
}

// Available reports whether the model can be queried.
func (m *IntentModel) Available() bool {
	return m != nil && m.client != nil
}

// Predict returns one of IntentLabels.
func (m *IntentModel) Predict(ctx context.Context, text string) (string, error) {
	if !m.Available() {
		return "", nil
	}
	args, err := m.client.callFunction(ctx, classifyIntentPrompt, []*genai.Part{genai.NewPartFromText(text)},
		functions.ClassifyIntentDeclaration(IntentLabels))
	if err != nil {
		return "", err
	}
	return functions.ParseLabel(args)
}

// OCR transcribes order photos.
type OCR struct {
	client *Client
}

// NewOCR returns an OCR collaborator backed by client.
func NewOCR(client *Client) *OCR {
	return &OCR{client: client}
}

// ExtractText returns the order written in the image, or "".
func (o *OCR) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	text, err := o.client.generateText(ctx, ocrPrompt, []*genai.Part{
		genai.NewPartFromBytes(data, mimeType),
		genai.NewPartFromText("Transcribe the order in this image."),
	})
	if err != nil {
		return "", fmt.Errorf("ocr failed: %w", err)
	}
	return text, nil
}
