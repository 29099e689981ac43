package server

import (
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dotside-studios/nfc-bridge/buildinfo"
)

// WebsocketMessage represents a message sent to WebSocket clients.
type WebsocketMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// helloPayload greets a newly connected client with its assigned ID.
type helloPayload struct {
	ClientID string `json:"clientId"`
	Agent    string `json:"agent"`
	Version  string `json:"version"`
}

// clientManager tracks connected WebSocket clients and broadcasts
// events to them.
type clientManager struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]string // conn -> client ID
}

func newClientManager() *clientManager {
	return &clientManager{clients: make(map[*websocket.Conn]string)}
}

func (cm *clientManager) register(conn *websocket.Conn) string {
	id := uuid.NewString()
	cm.mu.Lock()
	cm.clients[conn] = id
	cm.mu.Unlock()
	return id
}

func (cm *clientManager) unregister(conn *websocket.Conn) {
	cm.mu.Lock()
	delete(cm.clients, conn)
	cm.mu.Unlock()
}

func (cm *clientManager) count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.clients)
}

func (cm *clientManager) closeAll() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	for conn := range cm.clients {
		conn.Close()
		delete(cm.clients, conn)
	}
}

// broadcast sends a message to every connected client. Write failures
// drop the client.
func (cm *clientManager) broadcast(msg WebsocketMessage) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for conn, id := range cm.clients {
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("dropping client %s: %v", id, err)
			conn.Close()
			delete(cm.clients, conn)
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local agent, allow all origins
	},
}

// handleWebSocket upgrades the connection, sends a hello with the
// client's assigned ID, and keeps reading until the client goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	id := s.clients.register(conn)
	log.Printf("client %s connected from %s", id, r.RemoteAddr)

	hello := WebsocketMessage{
		Type: "hello",
		Payload: helloPayload{
			ClientID: id,
			Agent:    buildinfo.Name,
			Version:  buildinfo.FullVersion(),
		},
	}
	if err := conn.WriteJSON(hello); err != nil {
		log.Printf("hello to client %s failed: %v", id, err)
		s.clients.unregister(conn)
		conn.Close()
		return
	}

	go func() {
		defer func() {
			s.clients.unregister(conn)
			conn.Close()
			log.Printf("client %s disconnected", id)
		}()
		for {
			// Incoming frames are drained; the agent is broadcast-only.
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
