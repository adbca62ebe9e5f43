package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/room4-2/OpenOrder/config"
	"github.com/room4-2/OpenOrder/dialogue"
	"github.com/room4-2/OpenOrder/logging"
	"github.com/room4-2/OpenOrder/menu"
	"github.com/room4-2/OpenOrder/order"
	"github.com/room4-2/OpenOrder/session"
	"github.com/room4-2/OpenOrder/store"
)

type echoTurns struct {
	sessions []string
	last     dialogue.Message
}

func (e *echoTurns) HandleTurn(_ context.Context, sessionID string, msg dialogue.Message) string {
	e.sessions = append(e.sessions, sessionID)
	e.last = msg
	return "echo: " + msg.Text
}

func (e *echoTurns) Reset(context.Context, string) error { return nil }

type stubProvider struct {
	items []menu.MenuItem
	err   error
}

func (p stubProvider) ListAvailable(context.Context) ([]menu.MenuItem, error) {
	return p.items, p.err
}

func testConfig() *config.Config {
	return &config.Config{
		Port:           0,
		HTTPPort:       0,
		MaxSessions:    10,
		SessionTimeout: time.Minute,
		MaxBufferSize:  1024,
		AllowedOrigins: []string{"*"},
		TurnTimeout:    time.Second,
	}
}

func newAPI(t *testing.T, deps APIDeps) (*httptest.Server, *store.Memory) {
	t.Helper()
	tickets := store.NewMemory()
	if deps.Tickets == nil {
		deps.Tickets = tickets
	}
	if deps.Turns == nil {
		deps.Turns = &echoTurns{}
	}
	if deps.Menu == nil {
		deps.Menu = menu.NewHolder(stubProvider{items: []menu.MenuItem{{Name: "pizza", Price: decimal.NewFromInt(9)}}}, logging.Discard())
	}
	srv := httptest.NewServer(NewAPIServer(testConfig(), deps, logging.Discard()).Handler())
	t.Cleanup(srv.Close)
	return srv, tickets
}

func call(t *testing.T, method, url, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	require.NoError(t, sonic.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func seedTicket(t *testing.T, s *store.Memory, id string, status order.TicketStatus) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.SaveOrderLine(ctx, id, order.OrderLine{Product: "pizza", Quantity: 2, Note: order.NoNotes}, decimal.NewFromInt(9)))
	if status != order.StatusPending {
		require.NoError(t, s.UpdateStatus(ctx, id, status))
	}
}

func TestAPI_Turn(t *testing.T) {
	turns := &echoTurns{}
	srv, _ := newAPI(t, APIDeps{Turns: turns})

	code, body := call(t, http.MethodPost, srv.URL+"/api/turn", `{"session_id":"table-4","text":"2 pizzas"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "table-4", body["session_id"])
	assert.Equal(t, "echo: 2 pizzas", body["reply"])

	code, body = call(t, http.MethodPost, srv.URL+"/api/turn", `{"text":"hola","attachments":[{"name":"a.png","data":"iVBORw0KGgo="}]}`)
	assert.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, body["session_id"])
	require.Len(t, turns.last.Attachments, 1)
	assert.Equal(t, "image/png", turns.last.Attachments[0].MIMEType)
}

func TestAPI_TurnRejectsBadInput(t *testing.T) {
	srv, _ := newAPI(t, APIDeps{})

	for _, body := range []string{
		`nope`,
		`{"text":"   "}`,
		`{"text":"x","attachments":[{"data":"***"}]}`,
	} {
		code, out := call(t, http.MethodPost, srv.URL+"/api/turn", body)
		assert.Equal(t, http.StatusBadRequest, code, body)
		assert.NotEmpty(t, out["error"], body)
	}
}

func TestAPI_Tickets(t *testing.T) {
	srv, tickets := newAPI(t, APIDeps{})
	seedTicket(t, tickets, "AAAA0001", order.StatusPending)
	seedTicket(t, tickets, "AAAA0002", order.StatusArchived)

	code, body := call(t, http.MethodGet, srv.URL+"/api/tickets/aaaa0001", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "AAAA0001", body["id"])
	assert.Equal(t, "pending", body["status"])

	code, _ = call(t, http.MethodGet, srv.URL+"/api/tickets/FFFF0000", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, body = call(t, http.MethodGet, srv.URL+"/api/tickets", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["tickets"], 1)

	code, body = call(t, http.MethodGet, srv.URL+"/api/tickets?view=history", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["tickets"], 1)

	code, _ = call(t, http.MethodGet, srv.URL+"/api/tickets?view=everything", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAPI_UpdateStatus(t *testing.T) {
	srv, tickets := newAPI(t, APIDeps{})
	seedTicket(t, tickets, "AAAA0001", order.StatusPending)

	code, body := call(t, http.MethodPatch, srv.URL+"/api/tickets/AAAA0001/status", `{"status":"Preparing"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "preparing", body["status"])

	code, _ = call(t, http.MethodPatch, srv.URL+"/api/tickets/AAAA0001/status", `{"status":"eaten"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(t, http.MethodPatch, srv.URL+"/api/tickets/FFFF0000/status", `{"status":"completed"}`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAPI_Stats(t *testing.T) {
	srv, tickets := newAPI(t, APIDeps{})
	seedTicket(t, tickets, "AAAA0001", order.StatusPending)
	seedTicket(t, tickets, "AAAA0002", order.StatusPreparing)
	seedTicket(t, tickets, "AAAA0003", order.StatusArchived)

	code, body := call(t, http.MethodGet, srv.URL+"/api/stats", "")
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["tickets"], "archived tickets are not counted")
	assert.EqualValues(t, 4, body["items"])
	assert.Equal(t, "36", body["revenue"])
	byStatus := body["by_status"].(map[string]any)
	assert.EqualValues(t, 1, byStatus["pending"])
	assert.EqualValues(t, 1, byStatus["preparing"])
	assert.EqualValues(t, 0, byStatus["completed"])
}

func TestAPI_MenuReload(t *testing.T) {
	announced := 0
	holder := menu.NewHolder(stubProvider{items: []menu.MenuItem{{Name: "pizza"}, {Name: "soda"}}}, logging.Discard())
	srv, _ := newAPI(t, APIDeps{Menu: holder, OnMenuReload: func() error { announced++; return nil }})

	code, body := call(t, http.MethodPost, srv.URL+"/api/menu/reload", "")
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["items"])
	assert.Equal(t, 1, announced)
	assert.Equal(t, 2, holder.Current().Len())

	failing := menu.NewHolder(stubProvider{err: errors.New("redis down")}, logging.Discard())
	srv, _ = newAPI(t, APIDeps{Menu: failing})
	code, _ = call(t, http.MethodPost, srv.URL+"/api/menu/reload", "")
	assert.Equal(t, http.StatusBadGateway, code)
}

func TestAPI_Health(t *testing.T) {
	srv, _ := newAPI(t, APIDeps{})
	code, body := call(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestWebsocketServer(t *testing.T) {
	cfg := testConfig()
	turns := &echoTurns{}
	manager := session.NewManager(cfg, turns, session.NewMemoryStates(), nil, logging.Discard())
	srv := httptest.NewServer(NewServerWebsocket(cfg, manager, logging.Discard()).Handler())
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg map[string]any
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "status", msg["type"])

	code, body := call(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["sessions"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"text","payload":{"text":"1 soda"}}`)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "text", msg["type"])
	assert.Equal(t, "echo: 1 soda", msg["payload"].(map[string]any)["text"])
}

func TestWebsocketServer_RejectsOrigin(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedOrigins = []string{"https://shop.example"}
	manager := session.NewManager(cfg, &echoTurns{}, session.NewMemoryStates(), nil, logging.Discard())
	srv := httptest.NewServer(NewServerWebsocket(cfg, manager, logging.Discard()).Handler())
	t.Cleanup(srv.Close)

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
