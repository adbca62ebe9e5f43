package messages

import (
	"encoding/base64"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClientMessage(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"text","payload":{"text":"2 pizzas","attachments":[{"name":"a.png","mimeType":"image/png","data":"AQI="}]}}`))
	require.NoError(t, err)
	assert.Equal(t, TypeTurn, msg.Type)

	turn, err := msg.DecodeTurn()
	require.NoError(t, err)
	assert.Equal(t, "2 pizzas", turn.Text)
	require.Len(t, turn.Attachments, 1)

	data, err := turn.Attachments[0].Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, data)
}

func TestParseClientMessage_Invalid(t *testing.T) {
	_, err := ParseClientMessage([]byte(`not json`))
	assert.Error(t, err)

	_, err = ParseClientMessage([]byte(`{"payload":{}}`))
	assert.Error(t, err)
}

func TestDecodeControl(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"control","payload":{"action":"reset"}}`))
	require.NoError(t, err)

	ctrl, err := msg.DecodeControl()
	require.NoError(t, err)
	assert.Equal(t, ActionReset, ctrl.Action)
}

func TestTurnPayload_Validate(t *testing.T) {
	tests := []struct {
		name    string
		payload TurnPayload
		pending int
		wantErr error
	}{
		{name: "text", payload: TurnPayload{Text: "hola"}},
		{name: "blank", payload: TurnPayload{Text: "   "}, wantErr: ErrEmptyTurn},
		{name: "buffered attachment only", payload: TurnPayload{}, pending: 1},
		{name: "attachment only", payload: TurnPayload{Attachments: []AttachmentPayload{{Data: "AQ=="}}}},
		{name: "attachment without data", payload: TurnPayload{Text: "x", Attachments: []AttachmentPayload{{Name: "a"}}}, wantErr: ErrInvalidAttachment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate(tt.pending)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAttachmentPayload_BadBase64(t *testing.T) {
	_, err := AttachmentPayload{Name: "x", Data: "***"}.Bytes()
	assert.ErrorIs(t, err, ErrInvalidAttachment)

	ok := base64.StdEncoding.EncodeToString([]byte("img"))
	b, err := AttachmentPayload{Data: ok}.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "img", string(b))
}

func TestServerMessageShape(t *testing.T) {
	out, err := sonic.MarshalString(NewErrorMessage("s1", ErrCodeBufferFull, "full"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","sessionId":"s1","payload":{"code":"BUFFER_FULL","message":"full"}}`, out)

	out, err = sonic.MarshalString(NewTextMessage("", "hi"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"text","payload":{"text":"hi"}}`, out)
}
