package nfc

import (
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/clausecker/freefare"
	"github.com/clausecker/nfc/v2"
)

// MIFARE Classic keys tried when reading the NFC Forum application.
var (
	ndefPublicKey = [6]byte{0xd3, 0xf7, 0xd3, 0xf7, 0xd3, 0xf7} // NFC Forum default key
	factoryKey    = [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
)

// LibnfcBackend drives readers through libnfc and libfreefare. MIFARE
// family tags come from freefare tag enumeration; FeliCa targets come
// from passive-target polling. libnfc exposes no ISO 15693 target type,
// so raw tags from this backend never report that technology.
type LibnfcBackend struct {
	// DeviceConn is the libnfc connection string; empty picks the first
	// enumerated device.
	DeviceConn string
}

// NewLibnfcBackend creates a backend for the given libnfc connection
// string (empty for auto-select).
func NewLibnfcBackend(deviceConn string) *LibnfcBackend {
	return &LibnfcBackend{DeviceConn: deviceConn}
}

func (b *LibnfcBackend) Probe() Probe {
	devices, err := nfc.ListDevices()
	if err != nil || len(devices) == 0 {
		return Probe{}
	}

	conn := b.DeviceConn
	if conn == "" {
		conn = devices[0]
	}
	dev, err := nfc.Open(conn)
	if err != nil {
		return Probe{Available: true}
	}
	defer dev.Close()
	if err := dev.InitiatorInit(); err != nil {
		return Probe{Available: true}
	}
	return Probe{Available: true, Ready: true}
}

func (b *LibnfcBackend) Begin(opts PollingOptions, events Events) (BackendSession, error) {
	conn := b.DeviceConn
	if conn == "" {
		devices, err := nfc.ListDevices()
		if err != nil {
			return nil, fmt.Errorf("listing libnfc devices: %w", err)
		}
		if len(devices) == 0 {
			return nil, fmt.Errorf("no libnfc devices found")
		}
		conn = devices[0]
	}

	dev, err := nfc.Open(conn)
	if err != nil {
		return nil, fmt.Errorf("opening libnfc device %q: %w", conn, err)
	}
	if err := dev.InitiatorInit(); err != nil {
		dev.Close()
		return nil, fmt.Errorf("initiator init on %q: %w", conn, err)
	}

	s := &libnfcSession{
		device:   dev,
		opts:     opts,
		events:   events,
		stopChan: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.pollLoop()
	return s, nil
}

type libnfcSession struct {
	device   nfc.Device
	opts     PollingOptions
	events   Events
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func (s *libnfcSession) Invalidate() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
}

func (s *libnfcSession) pollLoop() {
	defer s.wg.Done()
	defer s.device.Close()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	// Tags re-deliver only after leaving the field.
	seen := make(map[string]bool)

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
		}

		present := make(map[string]bool)

		for _, tag := range s.enumerateTags() {
			uid := tag.UID()
			present[uid] = true
			if seen[uid] {
				continue
			}
			s.deliver(tag)
		}

		seen = present
	}
}

// enumerateTags collects the tags currently in the field: freefare tags
// for the MIFARE family, then FeliCa passive targets.
func (s *libnfcSession) enumerateTags() []*libnfcRawTag {
	var tags []*libnfcRawTag
	byUID := make(map[string]bool)

	ffTags, err := freefare.GetTags(s.device)
	if err != nil {
		log.Printf("nfc: freefare tag enumeration failed: %v", err)
	}
	for _, ffTag := range ffTags {
		uid := strings.ToUpper(ffTag.UID())
		if byUID[uid] {
			continue
		}
		switch t := ffTag.(type) {
		case freefare.ClassicTag:
			tags = append(tags, &libnfcRawTag{uid: uid, mifare: true, ndef: true, classic: &t})
			byUID[uid] = true
		case freefare.UltralightTag:
			tags = append(tags, &libnfcRawTag{uid: uid, mifare: true, ndef: true, ultralight: &t})
			byUID[uid] = true
		case freefare.DESFireTag:
			// DESFire answers as MIFARE but the NDEF application layout
			// is not handled here.
			tags = append(tags, &libnfcRawTag{uid: uid, mifare: true})
			byUID[uid] = true
		default:
			tags = append(tags, &libnfcRawTag{uid: uid, mifare: true})
			byUID[uid] = true
		}
	}

	if s.opts.IsNDEFOnly() || s.opts.Contains(PollISO18092) {
		modulation := nfc.Modulation{Type: nfc.Felica, BaudRate: nfc.Nbr212}
		targets, err := s.device.InitiatorListPassiveTargets(modulation)
		if err != nil {
			log.Printf("nfc: felica target listing failed: %v", err)
		}
		for _, target := range targets {
			felica, ok := target.(*nfc.FelicaTarget)
			if !ok {
				continue
			}
			idLen := int(felica.Len)
			if idLen <= 0 || idLen > len(felica.ID) {
				idLen = len(felica.ID)
			}
			uid := strings.ToUpper(hex.EncodeToString(felica.ID[:idLen]))
			if byUID[uid] {
				continue
			}
			tags = append(tags, &libnfcRawTag{uid: uid, felica: true})
			byUID[uid] = true
		}
	}

	return tags
}

// deliver routes a discovered tag to the event sink, respecting
// NDEF-only discovery.
func (s *libnfcSession) deliver(tag *libnfcRawTag) {
	if s.opts.IsNDEFOnly() {
		if !tag.SupportsNDEF() {
			return
		}
		tag.ReadNDEF(func(msg RawMessage, err error) {
			if err != nil {
				log.Printf("nfc: ndef read on %s failed: %v", tag.uid, err)
				return
			}
			s.events.MessageDiscovered(msg)
		})
		return
	}
	s.events.TagDiscovered(tag)
}

// libnfcRawTag is a tag discovered through libnfc/freefare.
type libnfcRawTag struct {
	uid    string
	mifare bool
	felica bool
	ndef   bool

	classic    *freefare.ClassicTag
	ultralight *freefare.UltralightTag
}

func (t *libnfcRawTag) UID() string { return t.uid }

func (t *libnfcRawTag) Supports(tech Technology) bool {
	switch tech {
	case TechnologyMIFARE:
		return t.mifare
	case TechnologyFeliCa:
		return t.felica
	default:
		return false
	}
}

func (t *libnfcRawTag) SupportsNDEF() bool { return t.ndef }

func (t *libnfcRawTag) ReadNDEF(done func(RawMessage, error)) {
	data, err := t.readNDEFArea()
	if err != nil {
		done(RawMessage{}, err)
		return
	}
	msg, err := ParseRawMessage(data)
	done(msg, err)
}

func (t *libnfcRawTag) readNDEFArea() ([]byte, error) {
	switch {
	case t.ultralight != nil:
		return readUltralightNDEF(*t.ultralight)
	case t.classic != nil:
		return readClassicNDEF(*t.classic)
	default:
		return nil, fmt.Errorf("tag %s has no NDEF read path", t.uid)
	}
}

// readUltralightNDEF reads the Type 2 data area (pages 4 and up) and
// extracts the NDEF message TLV.
func readUltralightNDEF(tag freefare.UltralightTag) ([]byte, error) {
	if err := tag.Connect(); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer tag.Disconnect()

	// Pages 0-3 are UID/lock/capability. Ultralight has 16 pages,
	// Ultralight C has 48.
	maxPages := byte(16)
	if tag.Type() == freefare.UltralightC {
		maxPages = 48
	}

	var data []byte
	for page := byte(4); page < maxPages; page++ {
		pageData, err := tag.ReadPage(page)
		if err != nil {
			break
		}
		data = append(data, pageData[:]...)
	}

	ndef, ok := TLVFindNDEF(data)
	if !ok {
		return nil, fmt.Errorf("no NDEF TLV in tag memory")
	}
	return ndef, nil
}

// readClassicNDEF reads the NFC Forum application from a MIFARE Classic
// tag via the MAD.
func readClassicNDEF(tag freefare.ClassicTag) ([]byte, error) {
	if err := tag.Connect(); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer tag.Disconnect()

	mad, err := tag.ReadMad()
	if err != nil {
		// A factory-fresh card has no MAD and nothing to read.
		madSector := byte(0x00)
		if tag.Type() == freefare.Classic4k {
			madSector = 0x10
		}
		trailer := freefare.ClassicSectorLastBlock(madSector)
		if authErr := tag.Authenticate(trailer, factoryKey, int(freefare.KeyA)); authErr == nil {
			return nil, fmt.Errorf("tag is factory blank, no NDEF data")
		}
		return nil, fmt.Errorf("reading MAD: %w", err)
	}

	buffer := make([]byte, 4096)
	n, err := tag.ReadApplication(mad, freefare.MadNFCForumAid, buffer, ndefPublicKey, int(freefare.KeyA))
	if err != nil {
		return nil, fmt.Errorf("reading NFC Forum application: %w", err)
	}

	ndef, ok := TLVFindNDEF(buffer[:n])
	if !ok {
		return nil, fmt.Errorf("no NDEF TLV in application data")
	}
	return ndef, nil
}
