package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/room4-2/OpenOrder/messages"
)

// serverFrame mirrors messages.ServerMessage with a raw payload.
type serverFrame struct {
	Type      string         `json:"type"`
	SessionID string         `json:"sessionId,omitempty"`
	Payload   map[string]any `json:"payload"`
}

func chatCmd() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a running server over its websocket",
		Long: `Reads lines from stdin and sends each one as a turn.

Commands:
  /attach <file>  send a photo of an order with the next turn
  /reset          drop the pending order
  /ping           check the connection
  /quit           leave`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), url, nil)
			if err != nil {
				return fmt.Errorf("failed to connect to %s: %w", url, err)
			}
			defer conn.Close()

			done := make(chan struct{})
			go func() {
				defer close(done)
				printFrames(conn, cmd.OutOrStdout())
			}()

			err = sendLines(conn, cmd.InOrStdin(), cmd.ErrOrStderr(), done)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return err
		},
	}
	cmd.Flags().StringVar(&url, "url", "ws://localhost:8080/ws", "websocket endpoint")
	return cmd
}

func printFrames(conn *websocket.Conn, out io.Writer) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var f serverFrame
		if err := sonic.Unmarshal(data, &f); err != nil {
			fmt.Fprintf(out, "? %s\n", data)
			continue
		}
		switch f.Type {
		case messages.TypeText:
			fmt.Fprintf(out, "assistant> %v\n", f.Payload["text"])
		case messages.TypeError:
			fmt.Fprintf(out, "error> %v: %v\n", f.Payload["code"], f.Payload["message"])
		case messages.TypeStatus:
			switch f.Payload["status"] {
			case messages.StatusConnected:
				fmt.Fprintf(out, "connected as %s\n", f.SessionID)
			case messages.StatusTurnComplete:
			default:
				fmt.Fprintf(out, "* %v\n", f.Payload["status"])
			}
		}
	}
}

func sendLines(conn *websocket.Conn, in io.Reader, errOut io.Writer, done <-chan struct{}) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case <-done:
			return fmt.Errorf("connection closed by server")
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var err error
		switch {
		case line == "/quit":
			return nil
		case line == "/reset":
			err = sendJSON(conn, messages.TypeControl, messages.ControlPayload{Action: messages.ActionReset})
		case line == "/ping":
			err = sendJSON(conn, messages.TypeControl, messages.ControlPayload{Action: messages.ActionPing})
		case strings.HasPrefix(line, "/attach "):
			var data []byte
			data, err = os.ReadFile(strings.TrimSpace(strings.TrimPrefix(line, "/attach ")))
			if err != nil {
				fmt.Fprintln(errOut, err)
				continue
			}
			err = conn.WriteMessage(websocket.BinaryMessage, data)
		default:
			err = sendJSON(conn, messages.TypeTurn, messages.TurnPayload{Text: line})
		}
		if err != nil {
			return fmt.Errorf("failed to send: %w", err)
		}
	}
	return scanner.Err()
}

func sendJSON(conn *websocket.Conn, typ string, payload any) error {
	raw, err := sonic.Marshal(payload)
	if err != nil {
		return err
	}
	data, err := sonic.Marshal(messages.ClientMessage{Type: typ, Payload: raw})
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
