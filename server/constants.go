package server

// mDNS service registration constants for auto-discovery.
const (
	MDNSServiceName = "nfc-bridge"
	MDNSServiceType = "_nfc-bridge._tcp"
	MDNSDomain      = "local."
)

// DefaultPort is the port the agent listens on when none is configured.
const DefaultPort = 18080
