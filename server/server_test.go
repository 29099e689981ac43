package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dotside-studios/nfc-bridge/nfc"
)

func newTestServer(t *testing.T) (*Server, *nfc.MockBackend) {
	t.Helper()
	backend := nfc.NewMockBackend()
	session := nfc.NewSession(backend, nfc.PollISO14443)
	return New(Config{Session: session, Port: DefaultPort}), backend
}

func dialWebSocket(t *testing.T, srv *Server) (*websocket.Conn, func()) {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(srv.handleWebSocket))
	url := "ws" + strings.TrimPrefix(ts.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		ts.Close()
		t.Fatalf("dial: %v", err)
	}
	return conn, func() {
		conn.Close()
		ts.Close()
	}
}

func TestWebSocketHello(t *testing.T) {
	srv, _ := newTestServer(t)
	conn, cleanup := dialWebSocket(t, srv)
	defer cleanup()

	var msg WebsocketMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("reading hello: %v", err)
	}
	if msg.Type != "hello" {
		t.Fatalf("first frame type = %q, want hello", msg.Type)
	}

	payload, ok := msg.Payload.(map[string]any)
	if !ok {
		t.Fatalf("hello payload type = %T", msg.Payload)
	}
	if id, _ := payload["clientId"].(string); id == "" {
		t.Error("hello payload missing clientId")
	}

	if srv.clients.count() != 1 {
		t.Errorf("client count = %d, want 1", srv.clients.count())
	}
}

func TestBroadcastReachesClient(t *testing.T) {
	srv, _ := newTestServer(t)
	conn, cleanup := dialWebSocket(t, srv)
	defer cleanup()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var hello WebsocketMessage
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("reading hello: %v", err)
	}

	msg := nfc.NewNDEFMessage(nfc.RawMessage{Records: []nfc.RawRecord{
		nfc.MakeTextRecord("broadcast me", "en"),
	}})
	srv.clients.broadcast(WebsocketMessage{Type: "message", Payload: msg.ToPayload()})

	var event WebsocketMessage
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("reading broadcast: %v", err)
	}
	if event.Type != "message" {
		t.Errorf("event type = %q", event.Type)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, backend := newTestServer(t)
	backend.ProbeResult = nfc.Probe{Available: true, Ready: false}

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.handleStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}

	var status map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if status["available"] != true {
		t.Error("available = false in status")
	}
	if status["ready"] != false {
		t.Error("ready = true with no reader")
	}
}

func TestStatusEndpointRejectsPost(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/status", nil)
	rec := httptest.NewRecorder()
	srv.handleStatus(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status code = %d, want 405", rec.Code)
	}
}

func TestStartScanFailureLeavesNoServerState(t *testing.T) {
	srv, backend := newTestServer(t)
	backend.BeginErr = errors.New("device busy")

	if err := srv.Start(); err == nil {
		t.Fatal("Start succeeded despite Begin failure")
	}
	if srv.ctx != nil || srv.cancel != nil {
		t.Error("server context created on failed start")
	}
	if srv.httpServer != nil {
		t.Error("HTTP server created on failed start")
	}

	// Stop after a failed start must still be safe.
	srv.Stop()
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := enableCORS(srv.handleStatus)

	req := httptest.NewRequest(http.MethodOptions, "/status", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS allow-origin header")
	}
}
