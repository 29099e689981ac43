package nfc

import (
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/ebfe/scard"
)

// PCSCBackend drives contactless readers through PC/SC. Tag technology
// is classified from the PC/SC part 3 ATR block, which covers the
// MIFARE family, FeliCa and ISO 15693 vicinity cards.
type PCSCBackend struct {
	// Reader is the PC/SC reader name; empty picks the first
	// contactless reader.
	Reader string

	ctx   *scard.Context
	ctxMu sync.Mutex
}

// NewPCSCBackend creates a backend for the given reader name (empty for
// auto-select).
func NewPCSCBackend(reader string) *PCSCBackend {
	return &PCSCBackend{Reader: reader}
}

// ensureContext establishes or revalidates the PC/SC context.
func (b *PCSCBackend) ensureContext() (*scard.Context, error) {
	b.ctxMu.Lock()
	defer b.ctxMu.Unlock()

	if b.ctx != nil {
		if _, err := b.ctx.ListReaders(); err == nil {
			return b.ctx, nil
		}
		b.ctx.Release()
		b.ctx = nil
	}

	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("establishing PC/SC context: %w", err)
	}
	b.ctx = ctx
	return ctx, nil
}

func (b *PCSCBackend) Probe() Probe {
	ctx, err := b.ensureContext()
	if err != nil {
		return Probe{}
	}

	readers, err := ctx.ListReaders()
	if err != nil {
		return Probe{}
	}
	readers = filterContactlessReaders(readers)
	if len(readers) == 0 {
		return Probe{}
	}

	reader := b.Reader
	if reader == "" {
		reader = readers[0]
	}
	states := []scard.ReaderState{{Reader: reader, CurrentState: scard.StateUnaware}}
	if err := ctx.GetStatusChange(states, 0); err != nil {
		if !strings.Contains(strings.ToLower(err.Error()), "timeout") {
			return Probe{Available: true}
		}
	}
	return Probe{Available: true, Ready: true}
}

func (b *PCSCBackend) Begin(opts PollingOptions, events Events) (BackendSession, error) {
	ctx, err := b.ensureContext()
	if err != nil {
		return nil, err
	}

	reader := b.Reader
	if reader == "" {
		readers, err := ctx.ListReaders()
		if err != nil {
			return nil, fmt.Errorf("listing PC/SC readers: %w", err)
		}
		readers = filterContactlessReaders(readers)
		if len(readers) == 0 {
			return nil, fmt.Errorf("no contactless PC/SC readers found")
		}
		reader = readers[0]
	}

	s := &pcscSession{
		ctx:      ctx,
		reader:   reader,
		opts:     opts,
		events:   events,
		stopChan: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.pollLoop()
	return s, nil
}

// filterContactlessReaders keeps readers that look like contactless
// (PICC) interfaces. Readers exposing both a contact and contactless
// slot publish them as separate names.
func filterContactlessReaders(readers []string) []string {
	var out []string
	for _, r := range readers {
		lower := strings.ToLower(r)
		if strings.Contains(lower, "picc") ||
			strings.Contains(lower, "contactless") ||
			strings.Contains(lower, "acr") ||
			strings.Contains(lower, "pn5") {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		// No recognizable naming; assume all are usable.
		return readers
	}
	return out
}

type pcscSession struct {
	ctx      *scard.Context
	reader   string
	opts     PollingOptions
	events   Events
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func (s *pcscSession) Invalidate() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
}

func (s *pcscSession) pollLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	cardWasPresent := false

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
		}

		states := []scard.ReaderState{{Reader: s.reader, CurrentState: scard.StateUnaware}}
		if err := s.ctx.GetStatusChange(states, 0); err != nil {
			if !strings.Contains(strings.ToLower(err.Error()), "timeout") {
				s.events.SessionError(fmt.Errorf("reader status on %q: %w", s.reader, err))
				return
			}
		}

		present := states[0].EventState&scard.StatePresent != 0
		if !present {
			cardWasPresent = false
			continue
		}
		if cardWasPresent {
			continue
		}
		cardWasPresent = true

		if err := s.handleCard(); err != nil {
			log.Printf("nfc: pcsc card handling failed: %v", err)
		}
	}
}

func (s *pcscSession) handleCard() error {
	card, err := s.ctx.Connect(s.reader, scard.ShareShared, scard.ProtocolAny)
	if err != nil {
		return fmt.Errorf("connecting to %q: %w", s.reader, err)
	}

	status, err := card.Status()
	if err != nil {
		card.Disconnect(scard.LeaveCard)
		return fmt.Errorf("card status: %w", err)
	}

	tag := &pcscRawTag{
		card: card,
		atr:  status.Atr,
	}
	tag.classify()

	uid, err := tag.fetchUID()
	if err != nil {
		card.Disconnect(scard.LeaveCard)
		return fmt.Errorf("reading UID: %w", err)
	}
	tag.uid = uid

	defer card.Disconnect(scard.LeaveCard)

	if s.opts.IsNDEFOnly() {
		if !tag.SupportsNDEF() {
			return nil
		}
		var deliverErr error
		tag.ReadNDEF(func(msg RawMessage, err error) {
			if err != nil {
				deliverErr = err
				return
			}
			s.events.MessageDiscovered(msg)
		})
		return deliverErr
	}

	s.events.TagDiscovered(tag)
	return nil
}

// pcscRawTag is a card seen through PC/SC. I/O happens over pseudo-APDUs
// while the session holds the card connection; handles kept past the
// discovery callback go stale once the card leaves the field.
type pcscRawTag struct {
	card *scard.Card
	atr  []byte
	uid  string

	mifare   bool
	felica   bool
	iso15693 bool
	ndef     bool
}

// PC/SC part 3 standard bytes in the ATR historical block.
const (
	atrStandardISO14443A3 = 0x03
	atrStandardFeliCa     = 0x11
	atrStandardISO15693p1 = 0x09
	atrStandardISO15693p4 = 0x0C
)

// classify derives supported technologies from the PC/SC part 3 ATR
// block: 80 4F 0C A0 00 00 03 06 <standard> <card name> ...
func (t *pcscRawTag) classify() {
	hist := t.atr
	for i := 0; i+10 < len(hist); i++ {
		if hist[i] != 0x80 || hist[i+1] != 0x4F {
			continue
		}
		if hist[i+3] != 0xA0 || hist[i+4] != 0x00 || hist[i+5] != 0x00 ||
			hist[i+6] != 0x03 || hist[i+7] != 0x06 {
			continue
		}
		standard := hist[i+8]
		switch {
		case standard >= atrStandardISO15693p1 && standard <= atrStandardISO15693p4:
			t.iso15693 = true
		case standard == atrStandardFeliCa:
			t.felica = true
		case standard == atrStandardISO14443A3:
			t.mifare = true
			cardName := hist[i+10]
			// Type 2 layouts readable over READ BINARY.
			switch cardName {
			case 0x03, 0x05: // Ultralight, Ultralight C
				t.ndef = true
			}
		}
		return
	}

	// No part 3 block; ISO 14443-4 cards still announce themselves in
	// the ATR interface bytes.
	for i := 0; i < len(t.atr)-1; i++ {
		if t.atr[i] == 0x80 && t.atr[i+1]&0x20 != 0 {
			t.mifare = true
			return
		}
	}
}

func (t *pcscRawTag) fetchUID() (string, error) {
	resp, err := t.transmit(GetUIDAPDU())
	if err != nil {
		return "", err
	}
	if !resp.IsSuccess() {
		return "", resp.Err()
	}
	return strings.ToUpper(hex.EncodeToString(resp.Data)), nil
}

func (t *pcscRawTag) transmit(apdu []byte) (APDUResponse, error) {
	raw, err := t.card.Transmit(apdu)
	if err != nil {
		return APDUResponse{}, fmt.Errorf("transmit: %w", err)
	}
	return ParseAPDUResponse(raw)
}

func (t *pcscRawTag) UID() string { return t.uid }

func (t *pcscRawTag) Supports(tech Technology) bool {
	switch tech {
	case TechnologyISO15693:
		return t.iso15693
	case TechnologyFeliCa:
		return t.felica
	case TechnologyMIFARE:
		return t.mifare
	default:
		return false
	}
}

func (t *pcscRawTag) SupportsNDEF() bool { return t.ndef }

func (t *pcscRawTag) ReadNDEF(done func(RawMessage, error)) {
	data, err := t.readType2Area()
	if err != nil {
		done(RawMessage{}, err)
		return
	}
	ndef, ok := TLVFindNDEF(data)
	if !ok {
		done(RawMessage{}, fmt.Errorf("no NDEF TLV in tag memory"))
		return
	}
	msg, err := ParseRawMessage(ndef)
	done(msg, err)
}

// readType2Area reads the Type 2 data pages (page 4 and up) over READ
// BINARY pseudo-APDUs, 16 bytes at a time.
func (t *pcscRawTag) readType2Area() ([]byte, error) {
	var data []byte
	for page := byte(4); page < 48; page += 4 {
		resp, err := t.transmit(ReadBinaryAPDU(page, 16))
		if err != nil {
			return nil, err
		}
		if !resp.IsSuccess() {
			break
		}
		data = append(data, resp.Data...)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("no data pages readable")
	}
	return data, nil
}
