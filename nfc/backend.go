package nfc

// RawRecord is a single NDEF record as carried on the wire. Backends
// produce these from tag memory; the immutable NDEFRecord model is
// built from them.
type RawRecord struct {
	TNF        byte
	Type       []byte
	Identifier []byte
	Payload    []byte
}

// RawMessage is an ordered sequence of raw records from one tag read.
type RawMessage struct {
	Records []RawRecord
}

// Probe reports what a backend can do right now. Available means the
// platform stack (driver, daemon, reader hardware) is usable at all;
// Ready means a scan started now would have a reader to run on.
type Probe struct {
	Available bool
	Ready     bool
}

// Events receives discovery callbacks from a backend. Backends may call
// these from any goroutine; implementations must be safe for that.
type Events interface {
	// MessageDiscovered delivers a decoded NDEF message.
	MessageDiscovered(RawMessage)
	// TagDiscovered delivers a tag for technology classification.
	TagDiscovered(RawTag)
	// SessionError reports that the backend session died. The backend
	// delivers no further events after this.
	SessionError(err error)
}

// Backend abstracts one platform NFC stack (libnfc, PC/SC, mock).
type Backend interface {
	// Probe reports current availability without side effects.
	Probe() Probe
	// Begin starts delivering discoveries to events until the returned
	// session is invalidated. An empty PollingOptions means NDEF-only
	// discovery: the backend reads messages itself and never surfaces
	// raw tags.
	Begin(opts PollingOptions, events Events) (BackendSession, error)
}

// BackendSession is one live scan on a backend.
type BackendSession interface {
	// Invalidate stops the scan and releases backend resources. Safe to
	// call more than once.
	Invalidate()
}

// AlertMessenger is an optional BackendSession capability for stacks
// whose platform UI shows a message during scanning. Discovered by type
// assertion; sessions without it fall back to façade-local storage.
type AlertMessenger interface {
	AlertMessage() string
	SetAlertMessage(msg string)
}

// RawTag is a discovered tag as the backend sees it, before
// classification into technology variants.
type RawTag interface {
	// UID returns the tag UID as uppercase hex.
	UID() string
	// Supports reports whether the tag answers for the given radio
	// technology. Technologies are probed independently; a tag may
	// support several or none.
	Supports(tech Technology) bool
	// SupportsNDEF reports whether an NDEF read can be attempted.
	SupportsNDEF() bool
	// ReadNDEF starts an NDEF read and invokes done exactly once with
	// the result. The callback may run on a backend goroutine.
	ReadNDEF(done func(RawMessage, error))
}
