package nfc

import (
	"log"
	"sync"
)

// MessageHandler receives decoded NDEF messages from a scan.
type MessageHandler func(NDEFMessage)

// TagHandler receives classified tag handles from a scan. A tag that
// supports several technologies is delivered once per technology, in
// classification order.
type TagHandler func(TagHandle)

const errChanBuffer = 16

// Session is the scan-session façade over a Backend. It owns handler
// registration, tag classification, the stop/late-callback guard, and
// the asynchronous error channel. One Session maps to at most one live
// backend session at a time.
//
// Handler references are the only shared mutable state; dispatch reads
// them under RLock and invokes them outside the lock, so a handler may
// call back into the session (including StopScanning) without
// deadlocking.
type Session struct {
	backend Backend
	opts    PollingOptions

	mu             sync.RWMutex
	scanning       bool
	generation     uint64
	messageHandler MessageHandler
	tagHandler     TagHandler
	backendSession BackendSession
	alertMessage   string

	errChan chan error
}

// NewSession creates an idle session over the given backend. opts
// selects the technologies polled for; the zero value requests
// NDEF-only discovery.
func NewSession(backend Backend, opts PollingOptions) *Session {
	return &Session{
		backend: backend,
		opts:    opts,
		errChan: make(chan error, errChanBuffer),
	}
}

// IsAvailable reports whether the backend stack is usable on this host.
// Independent of scanning state.
func (s *Session) IsAvailable() bool { return s.backend.Probe().Available }

// IsReady reports whether a scan started now would have a reader to run
// on. Independent of scanning state.
func (s *Session) IsReady() bool { return s.backend.Probe().Ready }

// Errors returns the asynchronous error channel. Session invalidation
// and tag-read failures are delivered here; when the buffer is full,
// further errors are dropped rather than blocking backend goroutines.
func (s *Session) Errors() <-chan error { return s.errChan }

// StartScanning registers the given handlers (either may be nil) and
// starts the backend scan. Calling it while already scanning replaces
// the handlers on the live scan and logs a warning instead of
// restarting the backend.
func (s *Session) StartScanning(onMessage MessageHandler, onTag TagHandler) error {
	if !s.backend.Probe().Available {
		return NewUnsupportedCapabilityError("StartScanning")
	}

	s.mu.Lock()
	if s.scanning {
		s.messageHandler = onMessage
		s.tagHandler = onTag
		s.mu.Unlock()
		log.Printf("nfc: StartScanning called while scanning; handlers reconfigured on live session")
		return nil
	}

	prevMessage, prevTag := s.messageHandler, s.tagHandler
	s.messageHandler = onMessage
	s.tagHandler = onTag
	s.generation++
	// Mark the transition before releasing the lock around Begin: a
	// concurrent StartScanning must take the reconfigure path above
	// instead of starting a second backend session.
	s.scanning = true
	d := &dispatcher{session: s, generation: s.generation}
	s.mu.Unlock()

	backendSession, err := s.backend.Begin(s.opts, d)

	s.mu.Lock()
	stopped := s.generation != d.generation
	if err != nil {
		if !stopped {
			s.scanning = false
			s.messageHandler = prevMessage
			s.tagHandler = prevTag
		}
		s.mu.Unlock()
		return NewBackendError("StartScanning", err)
	}
	if stopped {
		// StopScanning (or a session failure) landed while Begin was in
		// flight; it could not reach this session, so release it here
		// and stay Idle.
		s.mu.Unlock()
		backendSession.Invalidate()
		return nil
	}
	s.backendSession = backendSession
	if am, ok := backendSession.(AlertMessenger); ok && s.alertMessage != "" {
		am.SetAlertMessage(s.alertMessage)
	}
	s.mu.Unlock()
	return nil
}

// StopScanning clears the handlers and invalidates the backend session.
// After it returns, no handler is invoked again until the next
// StartScanning: deliveries already in flight on backend goroutines are
// dropped by the generation guard. Safe to call when idle.
func (s *Session) StopScanning() {
	s.mu.Lock()
	backendSession := s.backendSession
	s.scanning = false
	s.backendSession = nil
	s.messageHandler = nil
	s.tagHandler = nil
	s.generation++
	s.mu.Unlock()

	// Invalidate outside the lock: the backend may deliver callbacks
	// synchronously while tearing down.
	if backendSession != nil {
		backendSession.Invalidate()
	}
}

// AlertMessage returns the platform scan-UI message where the backend
// supports one, otherwise the locally stored value.
func (s *Session) AlertMessage() string {
	s.mu.RLock()
	backendSession := s.backendSession
	local := s.alertMessage
	s.mu.RUnlock()

	if am, ok := backendSession.(AlertMessenger); ok {
		return am.AlertMessage()
	}
	return local
}

// SetAlertMessage sets the platform scan-UI message. Backends without
// alert support just store the value; setting never fails.
func (s *Session) SetAlertMessage(msg string) {
	s.mu.Lock()
	s.alertMessage = msg
	backendSession := s.backendSession
	s.mu.Unlock()

	if am, ok := backendSession.(AlertMessenger); ok {
		am.SetAlertMessage(msg)
	}
}

// reportError delivers an error without blocking a backend goroutine.
func (s *Session) reportError(err error) {
	select {
	case s.errChan <- err:
	default:
		log.Printf("nfc: error channel full, dropping: %v", err)
	}
}

// dispatcher is the Events sink handed to the backend for one scan
// generation. Every delivery re-checks the generation under RLock, so
// callbacks arriving after StopScanning (or after a restart) are
// dropped instead of reaching stale handlers.
type dispatcher struct {
	session    *Session
	generation uint64
}

func (d *dispatcher) handlers() (MessageHandler, TagHandler, bool) {
	s := d.session
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.generation != d.generation {
		return nil, nil, false
	}
	return s.messageHandler, s.tagHandler, true
}

// MessageDiscovered delivers a decoded NDEF message to the registered
// message handler, if any.
func (d *dispatcher) MessageDiscovered(raw RawMessage) {
	onMessage, _, live := d.handlers()
	if !live || onMessage == nil {
		return
	}
	onMessage(NewNDEFMessage(raw))
}

// TagDiscovered classifies the tag and dispatches one handle per
// supported technology. When a message handler is registered and the
// tag reports NDEF support, a read is attempted first; a read failure
// goes to the error channel and never suppresses tag dispatch.
func (d *dispatcher) TagDiscovered(raw RawTag) {
	onMessage, _, live := d.handlers()
	if !live {
		return
	}

	if onMessage != nil && raw.SupportsNDEF() {
		raw.ReadNDEF(func(msg RawMessage, err error) {
			if err != nil {
				d.session.reportError(NewTagReadError(raw.UID(), err))
				return
			}
			d.MessageDiscovered(msg)
		})
	}

	d.dispatchTag(raw)
}

func (d *dispatcher) dispatchTag(raw RawTag) {
	for _, handle := range classifyTag(raw) {
		_, onTag, live := d.handlers()
		if !live || onTag == nil {
			return
		}
		onTag(handle)
	}
}

// SessionError marks the scan dead and surfaces the failure on the
// error channel.
func (d *dispatcher) SessionError(err error) {
	s := d.session
	s.mu.Lock()
	if s.generation != d.generation {
		s.mu.Unlock()
		return
	}
	s.scanning = false
	s.backendSession = nil
	s.messageHandler = nil
	s.tagHandler = nil
	s.generation++
	s.mu.Unlock()

	s.reportError(NewSessionInvalidatedError(err))
}
