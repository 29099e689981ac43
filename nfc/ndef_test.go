package nfc

import (
	"bytes"
	"testing"
)

func TestParseEncodeRoundTrip(t *testing.T) {
	original := RawMessage{Records: []RawRecord{
		MakeTextRecord("hello", "en"),
		MakeURIRecord("https://example.com/path"),
		{TNF: 0x04, Type: []byte("example.com:custom"), Identifier: []byte("rec-3"), Payload: []byte{0xDE, 0xAD}},
	}}

	encoded, err := EncodeRawMessage(original)
	if err != nil {
		t.Fatalf("EncodeRawMessage: %v", err)
	}

	decoded, err := ParseRawMessage(encoded)
	if err != nil {
		t.Fatalf("ParseRawMessage: %v", err)
	}

	if len(decoded.Records) != len(original.Records) {
		t.Fatalf("record count = %d, want %d", len(decoded.Records), len(original.Records))
	}
	for i, rec := range decoded.Records {
		want := original.Records[i]
		if rec.TNF != want.TNF {
			t.Errorf("record %d TNF = %02X, want %02X", i, rec.TNF, want.TNF)
		}
		if !bytes.Equal(rec.Type, want.Type) {
			t.Errorf("record %d type = %v, want %v", i, rec.Type, want.Type)
		}
		if !bytes.Equal(rec.Payload, want.Payload) {
			t.Errorf("record %d payload mismatch", i)
		}
		if !bytes.Equal(rec.Identifier, want.Identifier) {
			t.Errorf("record %d identifier = %v, want %v", i, rec.Identifier, want.Identifier)
		}
	}
}

func TestParseEncodeLongRecord(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 1000) // forces the 4-byte length form
	msg := RawMessage{Records: []RawRecord{
		{TNF: 0x02, Type: []byte("application/octet-stream"), Payload: payload},
	}}

	encoded, err := EncodeRawMessage(msg)
	if err != nil {
		t.Fatalf("EncodeRawMessage: %v", err)
	}
	if encoded[0]&0x10 != 0 {
		t.Error("SR flag set on long record")
	}

	decoded, err := ParseRawMessage(encoded)
	if err != nil {
		t.Fatalf("ParseRawMessage: %v", err)
	}
	if !bytes.Equal(decoded.Records[0].Payload, payload) {
		t.Error("long payload did not round-trip")
	}
}

func TestParseRawMessageTruncated(t *testing.T) {
	cases := map[string][]byte{
		"empty":             {},
		"header only":       {0xD1},
		"missing payload":   {0xD1, 0x01, 0x05, 'T'},
		"missing type":      {0xD1, 0x04, 0x00},
		"long length short": {0xC1, 0x01, 0x00, 0x00},
	}
	for name, data := range cases {
		if _, err := ParseRawMessage(data); err == nil {
			t.Errorf("%s: ParseRawMessage accepted malformed input % X", name, data)
		}
	}
}

func TestEncodeEmptyMessageFails(t *testing.T) {
	if _, err := EncodeRawMessage(RawMessage{}); err == nil {
		t.Error("EncodeRawMessage accepted empty message")
	}
}

func TestParseStopsAtMessageEnd(t *testing.T) {
	encoded, err := EncodeRawMessage(RawMessage{Records: []RawRecord{MakeTextRecord("x", "en")}})
	if err != nil {
		t.Fatalf("EncodeRawMessage: %v", err)
	}
	// Trailing garbage after the ME record must be ignored.
	encoded = append(encoded, 0xFF, 0xFF, 0xFF)

	decoded, err := ParseRawMessage(encoded)
	if err != nil {
		t.Fatalf("ParseRawMessage: %v", err)
	}
	if len(decoded.Records) != 1 {
		t.Errorf("record count = %d, want 1", len(decoded.Records))
	}
}

func TestDecodeTextPayloadUTF16(t *testing.T) {
	// Status byte: UTF-16 flag + 2-byte language code.
	payload := []byte{0x82, 'e', 'n', 'h', 0x00, 'i', 0x00}
	text, err := decodeTextPayload(payload)
	if err != nil {
		t.Fatalf("decodeTextPayload: %v", err)
	}
	if text != "hi" {
		t.Errorf("text = %q, want %q", text, "hi")
	}
}

func TestDecodeURIPayloadPrefixes(t *testing.T) {
	cases := []struct {
		code byte
		rest string
		want string
	}{
		{0x00, "geo:0,0", "geo:0,0"},
		{0x01, "example.com", "http://www.example.com"},
		{0x04, "example.com", "https://example.com"},
		{0x06, "a@b.c", "mailto:a@b.c"},
		{0x7F, "raw", "raw"}, // unknown code: no prefix
	}
	for _, c := range cases {
		payload := append([]byte{c.code}, []byte(c.rest)...)
		got, err := decodeURIPayload(payload)
		if err != nil {
			t.Fatalf("code %02X: %v", c.code, err)
		}
		if got != c.want {
			t.Errorf("code %02X: uri = %q, want %q", c.code, got, c.want)
		}
	}
}

func TestTLVEncodeFindNDEF(t *testing.T) {
	ndef := []byte{0xD1, 0x01, 0x01, 'T', 0x00}
	block := TLVEncode(ndef, TLVNDEF)

	found, ok := TLVFindNDEF(block)
	if !ok {
		t.Fatal("TLVFindNDEF did not find the message")
	}
	if !bytes.Equal(found, ndef) {
		t.Errorf("found = % X, want % X", found, ndef)
	}
}

func TestTLVFindNDEFSkipsOtherTLVs(t *testing.T) {
	ndef := []byte{1, 2, 3}
	block := []byte{TLVNull, TLVLockCtrl, 0x03, 0xAA, 0xBB, 0xCC}
	block = append(block, TLVEncode(ndef, TLVNDEF)...)

	found, ok := TLVFindNDEF(block)
	if !ok {
		t.Fatal("TLVFindNDEF did not skip leading TLVs")
	}
	if !bytes.Equal(found, ndef) {
		t.Errorf("found = % X", found)
	}
}

func TestTLVLongLength(t *testing.T) {
	ndef := bytes.Repeat([]byte{0x55}, 0x1FF)
	block := TLVEncode(ndef, TLVNDEF)
	if block[1] != 0xFF {
		t.Fatalf("long length marker missing: % X", block[:4])
	}

	found, ok := TLVFindNDEF(block)
	if !ok {
		t.Fatal("TLVFindNDEF failed on long-form length")
	}
	if !bytes.Equal(found, ndef) {
		t.Error("long-form value mismatch")
	}
}

func TestTLVFindNDEFTerminator(t *testing.T) {
	if _, ok := TLVFindNDEF([]byte{TLVTerminator}); ok {
		t.Error("TLVFindNDEF found a message after terminator")
	}
	if _, ok := TLVFindNDEF(nil); ok {
		t.Error("TLVFindNDEF found a message in empty block")
	}
}
