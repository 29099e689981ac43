package nfc

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf16"
)

// ParseRawMessage parses raw NDEF message bytes into a RawMessage.
// Backends call this after pulling the NDEF area out of tag memory; the
// immutable model never touches wire bytes itself.
func ParseRawMessage(data []byte) (RawMessage, error) {
	if len(data) == 0 {
		return RawMessage{}, fmt.Errorf("empty NDEF message")
	}

	var records []RawRecord
	offset := 0

	for offset < len(data) {
		header := data[offset]
		me := (header & 0x40) != 0 // Message End
		sr := (header & 0x10) != 0 // Short Record
		il := (header & 0x08) != 0 // ID Length present
		tnf := header & 0x07

		pos := offset + 1

		if pos+1 > len(data) {
			return RawMessage{}, fmt.Errorf("invalid NDEF message: truncated type length at offset %d", pos-1)
		}
		typeLength := int(data[pos])
		pos++

		var payloadLength int
		if sr {
			if pos+1 > len(data) {
				return RawMessage{}, fmt.Errorf("invalid NDEF message: truncated short record payload length at offset %d", pos-1)
			}
			payloadLength = int(data[pos])
			pos++
		} else {
			if pos+4 > len(data) {
				return RawMessage{}, fmt.Errorf("invalid NDEF message: truncated payload length at offset %d", pos-1)
			}
			payloadLength = int(binary.BigEndian.Uint32(data[pos : pos+4]))
			pos += 4
		}

		var idLength int
		if il {
			if pos+1 > len(data) {
				return RawMessage{}, fmt.Errorf("invalid NDEF message: truncated ID length at offset %d", pos-1)
			}
			idLength = int(data[pos])
			pos++
		}

		if pos+typeLength > len(data) {
			return RawMessage{}, fmt.Errorf("invalid NDEF message: truncated type field at offset %d", pos-1)
		}
		recordType := make([]byte, typeLength)
		copy(recordType, data[pos:pos+typeLength])
		pos += typeLength

		var recordID []byte
		if il && idLength > 0 {
			if pos+idLength > len(data) {
				return RawMessage{}, fmt.Errorf("invalid NDEF message: truncated ID field at offset %d", pos-1)
			}
			recordID = make([]byte, idLength)
			copy(recordID, data[pos:pos+idLength])
			pos += idLength
		}

		if pos+payloadLength > len(data) {
			return RawMessage{}, fmt.Errorf("invalid NDEF message: truncated payload at offset %d", pos-1)
		}
		payload := make([]byte, payloadLength)
		copy(payload, data[pos:pos+payloadLength])
		pos += payloadLength

		records = append(records, RawRecord{
			TNF:        tnf,
			Type:       recordType,
			Identifier: recordID,
			Payload:    payload,
		})

		offset = pos
		if me {
			break
		}
	}

	return RawMessage{Records: records}, nil
}

// EncodeRawMessage encodes a RawMessage into raw NDEF message bytes.
func EncodeRawMessage(msg RawMessage) ([]byte, error) {
	if len(msg.Records) == 0 {
		return nil, fmt.Errorf("cannot encode empty NDEF message")
	}

	var result []byte

	for i, record := range msg.Records {
		payloadLen := len(record.Payload)
		typeLen := len(record.Type)
		idLen := len(record.Identifier)

		isShortRecord := payloadLen <= 255
		hasID := idLen > 0

		header := record.TNF & 0x07
		if i == 0 {
			header |= 0x80 // MB
		}
		if i == len(msg.Records)-1 {
			header |= 0x40 // ME
		}
		if isShortRecord {
			header |= 0x10 // SR
		}
		if hasID {
			header |= 0x08 // IL
		}

		recordSize := 2 // header + type length
		if isShortRecord {
			recordSize++
		} else {
			recordSize += 4
		}
		if hasID {
			recordSize++
		}
		recordSize += typeLen + idLen + payloadLen

		recordBytes := make([]byte, recordSize)
		pos := 0

		recordBytes[pos] = header
		pos++
		recordBytes[pos] = byte(typeLen)
		pos++

		if isShortRecord {
			recordBytes[pos] = byte(payloadLen)
			pos++
		} else {
			binary.BigEndian.PutUint32(recordBytes[pos:pos+4], uint32(payloadLen))
			pos += 4
		}

		if hasID {
			recordBytes[pos] = byte(idLen)
			pos++
		}

		copy(recordBytes[pos:], record.Type)
		pos += typeLen
		copy(recordBytes[pos:], record.Identifier)
		pos += idLen
		copy(recordBytes[pos:], record.Payload)

		result = append(result, recordBytes...)
	}

	return result, nil
}

// MakeTextRecord builds a well-known Text record for the given text and
// language code (defaults to "en").
func MakeTextRecord(text, langCode string) RawRecord {
	return RawRecord{
		TNF:     0x01,
		Type:    []byte("T"),
		Payload: makeTextPayload(text, langCode),
	}
}

// MakeURIRecord builds a well-known URI record. No prefix abbreviation
// is applied.
func MakeURIRecord(uri string) RawRecord {
	payload := make([]byte, 1+len(uri))
	payload[0] = 0x00
	copy(payload[1:], uri)
	return RawRecord{
		TNF:     0x01,
		Type:    []byte("U"),
		Payload: payload,
	}
}

// makeTextPayload creates a Text record payload: status byte, language
// code, then UTF-8 text.
func makeTextPayload(text, langCode string) []byte {
	if langCode == "" {
		langCode = "en"
	}
	lang := []byte(langCode)
	if len(lang) > 0x3F {
		lang = lang[:0x3F]
	}
	textBytes := []byte(text)
	payload := make([]byte, 1+len(lang)+len(textBytes))
	payload[0] = byte(len(lang)) // UTF-8
	copy(payload[1:], lang)
	copy(payload[1+len(lang):], textBytes)
	return payload
}

// decodeTextPayload extracts the text from a Text record payload,
// handling both UTF-8 and UTF-16 encodings.
func decodeTextPayload(payload []byte) (string, error) {
	if len(payload) < 1 {
		return "", fmt.Errorf("text record payload too short (status byte missing)")
	}
	status := payload[0]
	langLength := int(status & 0x3F)
	isUTF16 := (status & 0x80) != 0

	textStart := 1 + langLength
	if textStart > len(payload) {
		return "", fmt.Errorf("text record payload too short (language code or text missing)")
	}
	textBytes := payload[textStart:]

	if isUTF16 {
		if len(textBytes) == 0 {
			return "", nil
		}
		if len(textBytes)%2 != 0 {
			return "", fmt.Errorf("invalid UTF-16 text length: %d", len(textBytes))
		}
		return decodeUTF16LE(textBytes), nil
	}
	return string(textBytes), nil
}

func decodeUTF16LE(b []byte) string {
	u16s := make([]uint16, len(b)/2)
	for i := range u16s {
		u16s[i] = binary.LittleEndian.Uint16(b[i*2 : i*2+2])
	}
	return strings.TrimSpace(string(utf16.Decode(u16s)))
}

// uriPrefixes is the NFC Forum URI identifier abbreviation table.
var uriPrefixes = map[byte]string{
	0x00: "",
	0x01: "http://www.",
	0x02: "https://www.",
	0x03: "http://",
	0x04: "https://",
	0x05: "tel:",
	0x06: "mailto:",
	0x07: "ftp://anonymous:anonymous@",
	0x08: "ftp://ftp.",
	0x09: "ftps://",
	0x0A: "sftp://",
	0x0B: "smb://",
	0x0C: "nfs://",
	0x0D: "ftp://",
	0x0E: "dav://",
	0x0F: "news:",
	0x10: "telnet://",
	0x11: "imap:",
	0x12: "rtsp://",
	0x13: "urn:",
	0x14: "pop:",
	0x15: "sip:",
	0x16: "sips:",
	0x17: "tftp:",
	0x18: "btspp://",
	0x19: "btl2cap://",
	0x1A: "btgoep://",
	0x1B: "tcpobex://",
	0x1C: "irdaobex://",
	0x1D: "file://",
	0x1E: "urn:epc:id:",
	0x1F: "urn:epc:tag:",
	0x20: "urn:epc:pat:",
	0x21: "urn:epc:raw:",
	0x22: "urn:epc:",
	0x23: "urn:nfc:",
}

// decodeURIPayload expands a URI record payload using the abbreviation
// table. Unknown identifier codes fall back to no prefix.
func decodeURIPayload(payload []byte) (string, error) {
	if len(payload) < 1 {
		return "", fmt.Errorf("URI record payload too short")
	}
	prefix := uriPrefixes[payload[0]]
	return prefix + string(payload[1:]), nil
}
