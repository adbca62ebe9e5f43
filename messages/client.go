package messages

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// Client message types
const (
	TypeTurn    = "text"
	TypeControl = "control"
)

// Control actions
const (
	ActionPing  = "ping"
	ActionReset = "reset"
)

var (
	// ErrEmptyTurn is returned for a turn with neither text nor attachments.
	ErrEmptyTurn = errors.New("turn has no text and no attachments")
	// ErrInvalidAttachment is returned when attachment data is not valid base64.
	ErrInvalidAttachment = errors.New("invalid attachment data")
)

// ClientMessage represents a message from the chat client
type ClientMessage struct {
	Type    string          `json:"type"` // "text", "control"
	Payload json.RawMessage `json:"payload"`
}

// AttachmentPayload is a file sent inline with a turn
type AttachmentPayload struct {
	Name     string `json:"name,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
	Data     string `json:"data"` // Base64-encoded
}

// Bytes decodes the attachment data.
func (a AttachmentPayload) Bytes() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(a.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAttachment, a.Name, err)
	}
	return b, nil
}

// TurnPayload is one customer message
type TurnPayload struct {
	Text        string              `json:"text"`
	Attachments []AttachmentPayload `json:"attachments,omitempty"`
}

// Validate rejects turns that carry nothing. pendingFiles counts attachments
// already buffered for this turn through binary frames.
func (p TurnPayload) Validate(pendingFiles int) error {
	if strings.TrimSpace(p.Text) == "" && len(p.Attachments) == 0 && pendingFiles == 0 {
		return ErrEmptyTurn
	}
	for _, a := range p.Attachments {
		if a.Data == "" {
			return fmt.Errorf("%w: %s: empty", ErrInvalidAttachment, a.Name)
		}
	}
	return nil
}

// ControlPayload contains control commands
type ControlPayload struct {
	Action string `json:"action"` // "ping", "reset"
}

// ParseClientMessage decodes a text frame.
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := sonic.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	if msg.Type == "" {
		return nil, errors.New("invalid message: missing type")
	}
	return &msg, nil
}

// DecodeTurn decodes the payload of a text message.
func (m *ClientMessage) DecodeTurn() (TurnPayload, error) {
	var p TurnPayload
	if err := sonic.Unmarshal(m.Payload, &p); err != nil {
		return p, fmt.Errorf("invalid turn payload: %w", err)
	}
	return p, nil
}

// DecodeControl decodes the payload of a control message.
func (m *ClientMessage) DecodeControl() (ControlPayload, error) {
	var p ControlPayload
	if err := sonic.Unmarshal(m.Payload, &p); err != nil {
		return p, fmt.Errorf("invalid control payload: %w", err)
	}
	return p, nil
}
