package nfc

import (
	"fmt"
	"sync"
)

// MockBackend is a Backend for tests and the -backend mock agent mode.
// Tests drive it by delivering events through DeliverMessage, DeliverTag
// and FailSession, simulating platform callbacks from any goroutine.
type MockBackend struct {
	mu sync.Mutex

	// ProbeResult is what Probe returns. Defaults to available+ready.
	ProbeResult Probe
	// BeginErr, when set, makes Begin fail.
	BeginErr error

	// CallLog records method invocations for assertions.
	CallLog []string

	events   Events
	session  *MockBackendSession
	beginOps []PollingOptions
}

// NewMockBackend returns a mock that probes available and ready.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		ProbeResult: Probe{Available: true, Ready: true},
	}
}

func (m *MockBackend) log(format string, args ...interface{}) {
	m.CallLog = append(m.CallLog, fmt.Sprintf(format, args...))
}

func (m *MockBackend) Probe() Probe {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log("Probe")
	return m.ProbeResult
}

func (m *MockBackend) Begin(opts PollingOptions, events Events) (BackendSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log("Begin(%s)", opts)
	m.beginOps = append(m.beginOps, opts)
	if m.BeginErr != nil {
		return nil, m.BeginErr
	}
	m.events = events
	m.session = &MockBackendSession{backend: m}
	return m.session, nil
}

// BeginCalls returns the polling options of every Begin call so far.
func (m *MockBackend) BeginCalls() []PollingOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PollingOptions, len(m.beginOps))
	copy(out, m.beginOps)
	return out
}

func (m *MockBackend) currentEvents() Events {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events
}

// DeliverMessage simulates the platform decoding an NDEF message.
func (m *MockBackend) DeliverMessage(raw RawMessage) {
	if ev := m.currentEvents(); ev != nil {
		ev.MessageDiscovered(raw)
	}
}

// DeliverTag simulates the platform discovering a tag.
func (m *MockBackend) DeliverTag(tag RawTag) {
	if ev := m.currentEvents(); ev != nil {
		ev.TagDiscovered(tag)
	}
}

// FailSession simulates the platform killing the session.
func (m *MockBackend) FailSession(err error) {
	if ev := m.currentEvents(); ev != nil {
		ev.SessionError(err)
	}
}

// MockBackendSession is the session handle produced by MockBackend. It
// implements AlertMessenger so alert plumbing is testable.
type MockBackendSession struct {
	backend *MockBackend

	mu          sync.Mutex
	invalidated bool
	alert       string
}

func (s *MockBackendSession) Invalidate() {
	s.mu.Lock()
	s.invalidated = true
	s.mu.Unlock()

	s.backend.mu.Lock()
	s.backend.log("Invalidate")
	if s.backend.session == s {
		s.backend.events = nil
		s.backend.session = nil
	}
	s.backend.mu.Unlock()
}

// Invalidated reports whether Invalidate has been called.
func (s *MockBackendSession) Invalidated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invalidated
}

func (s *MockBackendSession) AlertMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alert
}

func (s *MockBackendSession) SetAlertMessage(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alert = msg
}

// MockRawTag is a configurable RawTag for tests.
type MockRawTag struct {
	mu sync.Mutex

	// TagUID is returned by UID.
	TagUID string
	// Technologies the tag answers for.
	Technologies []Technology
	// NDEF support and content. ReadErr takes precedence over Message.
	HasNDEF bool
	Message RawMessage
	ReadErr error

	readCount int
}

func (t *MockRawTag) UID() string { return t.TagUID }

func (t *MockRawTag) Supports(tech Technology) bool {
	for _, have := range t.Technologies {
		if have == tech {
			return true
		}
	}
	return false
}

func (t *MockRawTag) SupportsNDEF() bool { return t.HasNDEF }

func (t *MockRawTag) ReadNDEF(done func(RawMessage, error)) {
	t.mu.Lock()
	t.readCount++
	t.mu.Unlock()
	if t.ReadErr != nil {
		done(RawMessage{}, t.ReadErr)
		return
	}
	done(t.Message, nil)
}

// ReadCount reports how many times ReadNDEF was invoked.
func (t *MockRawTag) ReadCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readCount
}
