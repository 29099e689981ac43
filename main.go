// Package main provides the NFC bridge agent: it scans tags through a
// configurable backend (libnfc, PC/SC or mock) and broadcasts decoded
// NDEF messages and classified tag events to WebSocket clients.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"fyne.io/systray"

	"github.com/dotside-studios/nfc-bridge/buildinfo"
	"github.com/dotside-studios/nfc-bridge/nfc"
	"github.com/dotside-studios/nfc-bridge/server"
)

var (
	backendFlag = flag.String("backend", "libnfc", "NFC backend: libnfc, pcsc or mock")
	deviceFlag  = flag.String("device", "", "device connection string or reader name (empty for auto-select)")
	portFlag    = flag.Int("port", server.DefaultPort, "HTTP/WebSocket listen port")
	alertFlag   = flag.String("alert", "", "scan alert message, shown where the platform supports it")
	cliFlag     = flag.Bool("cli", false, "run headless without a system tray")
	versionFlag = flag.Bool("version", false, "print version and exit")
)

func selectBackend(name, device string) (nfc.Backend, error) {
	switch name {
	case "libnfc":
		return nfc.NewLibnfcBackend(device), nil
	case "pcsc":
		return nfc.NewPCSCBackend(device), nil
	case "mock":
		return nfc.NewMockBackend(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want libnfc, pcsc or mock)", name)
	}
}

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Println(buildinfo.BuildInfo())
		return
	}

	backend, err := selectBackend(*backendFlag, *deviceFlag)
	if err != nil {
		log.Fatal(err)
	}

	// Poll for all supported technologies so clients get tag events
	// alongside decoded messages.
	opts := nfc.PollISO14443 | nfc.PollISO15693 | nfc.PollISO18092
	session := nfc.NewSession(backend, opts)
	if *alertFlag != "" {
		session.SetAlertMessage(*alertFlag)
	}

	srv := server.New(server.Config{
		Session: session,
		Port:    *portFlag,
	})

	log.Printf("%s %s starting (backend=%s)", buildinfo.DisplayName, buildinfo.FullVersion(), *backendFlag)

	if *cliFlag {
		runCLI(srv)
		return
	}

	app := newSystrayApp(srv, session, *backendFlag, *portFlag)
	systray.Run(app.onReady, app.onExit)
}

// runCLI serves until SIGINT/SIGTERM.
func runCLI(srv *server.Server) {
	go func() {
		if err := srv.Start(); err != nil {
			log.Printf("server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	srv.Stop()
}
