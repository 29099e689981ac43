package main

import (
	"fmt"
	"log"
	"time"

	"fyne.io/systray"

	"github.com/dotside-studios/nfc-bridge/buildinfo"
	"github.com/dotside-studios/nfc-bridge/nfc"
	"github.com/dotside-studios/nfc-bridge/server"
)

// systrayApp manages the system tray interface for the agent.
type systrayApp struct {
	srv     *server.Server
	session *nfc.Session
	backend string
	port    int

	mStatus  *systray.MenuItem
	mBackend *systray.MenuItem
	mPort    *systray.MenuItem
}

func newSystrayApp(srv *server.Server, session *nfc.Session, backend string, port int) *systrayApp {
	return &systrayApp{srv: srv, session: session, backend: backend, port: port}
}

func (a *systrayApp) onReady() {
	systray.SetTitle(buildinfo.DisplayName)
	systray.SetTooltip(buildinfo.Description)

	a.mStatus = systray.AddMenuItem("Starting...", "Agent status")
	a.mStatus.Disable()

	a.mBackend = systray.AddMenuItem(fmt.Sprintf("Backend: %s", a.backend), "Configured backend")
	a.mBackend.Disable()

	a.mPort = systray.AddMenuItem(fmt.Sprintf("Port: %d", a.port), "Listen port")
	a.mPort.Disable()

	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Stop the agent")

	go func() {
		if err := a.srv.Start(); err != nil {
			log.Printf("server error: %v", err)
			a.mStatus.SetTitle("Error: " + err.Error())
		}
	}()

	go a.refreshStatus()

	go func() {
		<-mQuit.ClickedCh
		systray.Quit()
	}()
}

// refreshStatus keeps the status line in sync with the backend probe.
func (a *systrayApp) refreshStatus() {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		switch {
		case !a.session.IsAvailable():
			a.mStatus.SetTitle("Backend unavailable")
		case !a.session.IsReady():
			a.mStatus.SetTitle("Waiting for reader...")
		default:
			a.mStatus.SetTitle("Scanning")
		}
	}
}

func (a *systrayApp) onExit() {
	a.srv.Stop()
}
