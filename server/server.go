// Package server provides the HTTP/WebSocket surface of the NFC bridge
// agent: connected clients receive tag and message events from the scan
// session, and the agent registers itself over mDNS for auto-discovery.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/grandcat/zeroconf"

	"github.com/dotside-studios/nfc-bridge/buildinfo"
	"github.com/dotside-studios/nfc-bridge/nfc"
)

// Config holds the server configuration.
type Config struct {
	Session *nfc.Session
	Port    int
}

// Server owns the HTTP listener, the WebSocket client set and the scan
// session wiring.
type Server struct {
	config     Config
	httpServer *http.Server
	ctx        context.Context
	cancel     context.CancelFunc

	clients *clientManager

	mdnsServer *zeroconf.Server
}

// New creates a new server instance.
func New(config Config) *Server {
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	return &Server{
		config:  config,
		clients: newClientManager(),
	}
}

// Start begins scanning and serving. It blocks until Stop is called.
// On a scan start failure it returns before any server state is built,
// so nothing needs tearing down.
func (s *Server) Start() error {
	session := s.config.Session
	if !session.IsAvailable() {
		log.Printf("NFC backend unavailable; serving without a live scan")
	} else {
		err := session.StartScanning(
			func(msg nfc.NDEFMessage) {
				s.clients.broadcast(WebsocketMessage{Type: "message", Payload: msg.ToPayload()})
			},
			func(handle nfc.TagHandle) {
				s.clients.broadcast(WebsocketMessage{Type: "tag", Payload: nfc.TagToPayload(handle)})
			},
		)
		if err != nil {
			return fmt.Errorf("starting scan session: %w", err)
		}
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	go s.drainSessionErrors()

	mux := http.NewServeMux()
	mux.HandleFunc("/status", enableCORS(s.handleStatus))
	mux.HandleFunc("/ws", enableCORS(s.handleWebSocket))
	mux.HandleFunc("/", enableCORS(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(buildinfo.DisplayName + " running"))
	}))

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: mux,
	}

	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	if err := s.startMDNS(); err != nil {
		log.Printf("Warning: mDNS registration failed: %v", err)
		log.Printf("Auto-discovery will not be available, but server will continue normally")
	}

	<-s.ctx.Done()
	return nil
}

// Stop shuts the server down and stops the scan session.
func (s *Server) Stop() {
	if s.mdnsServer != nil {
		s.mdnsServer.Shutdown()
		s.mdnsServer = nil
		log.Printf("mDNS service stopped")
	}

	s.config.Session.StopScanning()
	s.clients.closeAll()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(context.Background()); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		s.httpServer = nil
	}
	if s.cancel != nil {
		s.cancel()
	}
}

// drainSessionErrors forwards scan-session errors to connected clients.
func (s *Server) drainSessionErrors() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case err := <-s.config.Session.Errors():
			log.Printf("scan session error: %v", err)
			payload := map[string]any{"error": err.Error()}
			var scanErr *nfc.ScanError
			if errors.As(err, &scanErr) {
				payload["code"] = int(scanErr.Code)
				if scanErr.TagUID != "" {
					payload["uid"] = scanErr.TagUID
				}
			}
			s.clients.broadcast(WebsocketMessage{Type: "error", Payload: payload})
		}
	}
}

// startMDNS registers the agent as an mDNS service for auto-discovery.
func (s *Server) startMDNS() error {
	txtRecords := []string{
		"version=" + buildinfo.Version,
		"protocol=websocket",
		"path=/ws",
	}

	server, err := zeroconf.Register(MDNSServiceName, MDNSServiceType, MDNSDomain, s.config.Port, txtRecords, nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}

	s.mdnsServer = server
	log.Printf("mDNS service registered: %s on port %d", MDNSServiceName, s.config.Port)
	return nil
}

// handleStatus reports backend probe state and client count.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session := s.config.Session
	status := map[string]any{
		"name":      buildinfo.Name,
		"version":   buildinfo.FullVersion(),
		"available": session.IsAvailable(),
		"ready":     session.IsReady(),
		"clients":   s.clients.count(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Printf("status encode error: %v", err)
	}
}

// enableCORS wraps a handler with permissive CORS headers so local web
// clients can reach the agent.
func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}
