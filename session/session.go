package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/room4-2/OpenOrder/dialogue"
	"github.com/room4-2/OpenOrder/messages"
)

const (
	writeBufferSize = 256
	writeTimeout    = 10 * time.Second
	maxMessageSize  = 8 * 1024 * 1024
)

// TurnHandler answers customer messages.
type TurnHandler interface {
	HandleTurn(ctx context.Context, sessionID string, msg dialogue.Message) string
	Reset(ctx context.Context, sessionID string) error
}

// ClientSession represents a single chat connection
type ClientSession struct {
	ID          string
	ClientConn  *websocket.Conn
	Attachments *AttachmentBuffer // Files sent as binary frames for the next turn
	CreatedAt   time.Time

	handler   TurnHandler
	logger    *slog.Logger
	keepAlive time.Duration

	// Use channels for non-blocking writes
	writeChan chan any

	mu           sync.RWMutex
	lastActivity time.Time
	closed       bool
	CloseChan    chan struct{}
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewClientSession wraps an upgraded connection.
func NewClientSession(id string, clientConn *websocket.Conn, handler TurnHandler, maxBufferSize int, keepAlive time.Duration, logger *slog.Logger) *ClientSession {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	clientConn.SetReadLimit(maxMessageSize)

	now := time.Now()
	return &ClientSession{
		ID:           id,
		ClientConn:   clientConn,
		Attachments:  NewAttachmentBuffer(maxBufferSize),
		CreatedAt:    now,
		handler:      handler,
		logger:       logger.With("session", id),
		keepAlive:    keepAlive,
		writeChan:    make(chan any, writeBufferSize),
		lastActivity: now,
		CloseChan:    make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start begins the bidirectional message handling
func (cs *ClientSession) Start() {
	cs.ClientConn.SetPongHandler(func(string) error {
		cs.touch()
		return nil
	})
	go cs.writePump()
	cs.queueMessage(messages.NewStatusMessage(cs.ID, messages.StatusConnected, "Session established"))
	go cs.handleClientMessages()
}

// LastActivity returns when the client last sent or received something.
func (cs *ClientSession) LastActivity() time.Time {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.lastActivity
}

func (cs *ClientSession) touch() {
	cs.mu.Lock()
	cs.lastActivity = time.Now()
	cs.mu.Unlock()
}

// writePump handles all outgoing messages in a single goroutine
func (cs *ClientSession) writePump() {
	var ping <-chan time.Time
	if cs.keepAlive > 0 {
		ticker := time.NewTicker(cs.keepAlive)
		defer ticker.Stop()
		ping = ticker.C
	}

	defer func() {
		_ = cs.ClientConn.SetWriteDeadline(time.Now().Add(writeTimeout))
		_ = cs.ClientConn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
	}()

	for {
		select {
		case <-cs.CloseChan:
			return
		case <-ping:
			if err := cs.ClientConn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case msg, ok := <-cs.writeChan:
			if !ok {
				return
			}
			if err := cs.write(msg); err != nil {
				cs.logger.Debug("write failed", "error", err)
				return
			}
		}
	}
}

func (cs *ClientSession) write(msg any) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	_ = cs.ClientConn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return cs.ClientConn.WriteMessage(websocket.TextMessage, data)
}

// queueMessage adds a message to the write queue (non-blocking)
func (cs *ClientSession) queueMessage(msg any) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if cs.closed {
		return
	}
	select {
	case cs.writeChan <- msg:
	default:
		cs.logger.Warn("write queue full, dropping message")
	}
}

// Close terminates the session and cleans up resources
func (cs *ClientSession) Close() error {
	cs.mu.Lock()
	if cs.closed {
		cs.mu.Unlock()
		return nil
	}
	cs.closed = true
	close(cs.writeChan)
	close(cs.CloseChan)
	cs.mu.Unlock()

	cs.cancel()
	cs.Attachments.Clear()

	if cs.ClientConn != nil {
		return cs.ClientConn.Close()
	}
	return nil
}

// IsClosed returns whether the session is closed
func (cs *ClientSession) IsClosed() bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.closed
}

func (cs *ClientSession) handleClientMessages() {
	defer cs.Close()

	for {
		messageType, message, err := cs.ClientConn.ReadMessage()
		if err != nil {
			if !cs.IsClosed() && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				cs.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		cs.touch()

		// Binary frames are files for the next turn
		if messageType == websocket.BinaryMessage {
			cs.bufferAttachment(message)
			continue
		}

		clientMsg, err := messages.ParseClientMessage(message)
		if err != nil {
			cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Invalid message format"))
			continue
		}
		cs.processClientMessage(clientMsg)
	}
}

func (cs *ClientSession) bufferAttachment(data []byte) {
	a := dialogue.Attachment{
		Name:     fmt.Sprintf("upload-%d", cs.Attachments.Count()+1),
		MIMEType: http.DetectContentType(data),
		Data:     data,
	}
	if err := cs.Attachments.Append(a); err != nil {
		cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeBufferFull,
			fmt.Sprintf("Attachment buffer full (max %d bytes)", cs.Attachments.MaxSize())))
		return
	}
	cs.logger.Debug("attachment buffered", "bytes", len(data), "mime", a.MIMEType)
	cs.queueMessage(messages.NewStatusMessage(cs.ID, messages.StatusBuffered, a.Name))
}

func (cs *ClientSession) processClientMessage(msg *messages.ClientMessage) {
	switch msg.Type {
	case messages.TypeTurn:
		payload, err := msg.DecodeTurn()
		if err == nil {
			err = payload.Validate(cs.Attachments.Count())
		}
		if err != nil {
			cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, err.Error()))
			return
		}
		turn, err := toMessage(payload)
		if err != nil {
			cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, err.Error()))
			return
		}
		turn.Attachments = append(cs.Attachments.Flush(), turn.Attachments...)
		cs.handleTurn(turn)

	case messages.TypeControl:
		payload, err := msg.DecodeControl()
		if err != nil {
			cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Invalid control payload"))
			return
		}
		cs.handleControlMessage(payload)

	default:
		cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Unknown message type: "+msg.Type))
	}
}

func (cs *ClientSession) handleTurn(turn dialogue.Message) {
	reply := cs.handler.HandleTurn(cs.ctx, cs.ID, turn)
	cs.queueMessage(messages.NewTextMessage(cs.ID, reply))
	cs.queueMessage(messages.NewStatusMessage(cs.ID, messages.StatusTurnComplete, ""))
}

func (cs *ClientSession) handleControlMessage(payload messages.ControlPayload) {
	switch payload.Action {
	case messages.ActionPing:
		cs.queueMessage(messages.NewStatusMessage(cs.ID, messages.StatusPong, ""))
	case messages.ActionReset:
		cs.Attachments.Clear()
		if err := cs.handler.Reset(cs.ctx, cs.ID); err != nil {
			cs.logger.Error("reset failed", "error", err)
			cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeResetFailed, "Could not reset the conversation"))
			return
		}
		cs.queueMessage(messages.NewStatusMessage(cs.ID, messages.StatusReset, ""))
	default:
		cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Unknown control action: "+payload.Action))
	}
}

// toMessage decodes inline attachments of a turn.
func toMessage(p messages.TurnPayload) (dialogue.Message, error) {
	msg := dialogue.Message{Text: p.Text}
	for _, a := range p.Attachments {
		data, err := a.Bytes()
		if err != nil {
			return msg, err
		}
		mime := a.MIMEType
		if mime == "" {
			mime = http.DetectContentType(data)
		}
		msg.Attachments = append(msg.Attachments, dialogue.Attachment{Name: a.Name, MIMEType: mime, Data: data})
	}
	return msg, nil
}
