package nfc

// TypeNameFormat identifies the namespace of an NDEF record type field,
// per the NFC Forum NDEF specification.
type TypeNameFormat byte

const (
	TNFEmpty       TypeNameFormat = 0x00
	TNFWellKnown   TypeNameFormat = 0x01
	TNFMedia       TypeNameFormat = 0x02
	TNFAbsoluteURI TypeNameFormat = 0x03
	TNFExternal    TypeNameFormat = 0x04
	TNFUnknown     TypeNameFormat = 0x05
	TNFUnchanged   TypeNameFormat = 0x06
)

// TypeNameFormatFromByte maps a raw TNF byte to a TypeNameFormat. The
// mapping is total: the reserved value 0x07 and anything outside the
// 3-bit range map to TNFUnknown rather than failing, so records written
// by future or buggy encoders still classify.
func TypeNameFormatFromByte(b byte) TypeNameFormat {
	switch b {
	case 0x00:
		return TNFEmpty
	case 0x01:
		return TNFWellKnown
	case 0x02:
		return TNFMedia
	case 0x03:
		return TNFAbsoluteURI
	case 0x04:
		return TNFExternal
	case 0x05:
		return TNFUnknown
	case 0x06:
		return TNFUnchanged
	default:
		return TNFUnknown
	}
}

// String returns the NFC Forum name for the format.
func (t TypeNameFormat) String() string {
	switch t {
	case TNFEmpty:
		return "empty"
	case TNFWellKnown:
		return "well-known"
	case TNFMedia:
		return "media"
	case TNFAbsoluteURI:
		return "absolute-uri"
	case TNFExternal:
		return "external"
	case TNFUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// NDEFRecord is a single immutable NDEF record. All byte fields are
// defensively copied on construction and on access, so a record cannot
// be mutated through slices the caller holds.
type NDEFRecord struct {
	tnf     TypeNameFormat
	typ     []byte
	id      []byte
	payload []byte
}

// newNDEFRecord builds an immutable record from backend wire data.
func newNDEFRecord(raw RawRecord) NDEFRecord {
	return NDEFRecord{
		tnf:     TypeNameFormatFromByte(raw.TNF),
		typ:     cloneBytes(raw.Type),
		id:      cloneBytes(raw.Identifier),
		payload: cloneBytes(raw.Payload),
	}
}

// TypeName returns the record's type name format.
func (r NDEFRecord) TypeName() TypeNameFormat { return r.tnf }

// Type returns a copy of the record type field, or nil if absent.
func (r NDEFRecord) Type() []byte { return cloneBytes(r.typ) }

// Identifier returns a copy of the record ID field, or nil if absent.
func (r NDEFRecord) Identifier() []byte { return cloneBytes(r.id) }

// Payload returns a copy of the record payload, or nil if absent.
func (r NDEFRecord) Payload() []byte { return cloneBytes(r.payload) }

// NDEFMessage is an ordered, immutable snapshot of the records decoded
// from a single tag read. Order and count match the wire message
// exactly; nothing is filtered or deduplicated.
type NDEFMessage struct {
	records []NDEFRecord
}

// NewNDEFMessage snapshots a raw message into the immutable model. An
// empty raw message yields a valid zero-record message.
func NewNDEFMessage(raw RawMessage) NDEFMessage {
	records := make([]NDEFRecord, len(raw.Records))
	for i, rr := range raw.Records {
		records[i] = newNDEFRecord(rr)
	}
	return NDEFMessage{records: records}
}

// Records returns a copy of the record slice in wire order.
func (m NDEFMessage) Records() []NDEFRecord {
	out := make([]NDEFRecord, len(m.records))
	copy(out, m.records)
	return out
}

// Len reports the number of records in the message.
func (m NDEFMessage) Len() int { return len(m.records) }

// GetText returns the decoded text of the first well-known Text ("T")
// record, or false when the message has none.
func (m NDEFMessage) GetText() (string, bool) {
	for _, r := range m.records {
		if r.tnf == TNFWellKnown && len(r.typ) == 1 && r.typ[0] == 'T' {
			text, err := decodeTextPayload(r.payload)
			if err != nil {
				continue
			}
			return text, true
		}
	}
	return "", false
}

// GetURI returns the expanded URI of the first well-known URI ("U")
// record, or false when the message has none.
func (m NDEFMessage) GetURI() (string, bool) {
	for _, r := range m.records {
		if r.tnf == TNFWellKnown && len(r.typ) == 1 && r.typ[0] == 'U' {
			uri, err := decodeURIPayload(r.payload)
			if err != nil {
				continue
			}
			return uri, true
		}
	}
	return "", false
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
