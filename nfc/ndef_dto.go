package nfc

// NDEFRecordPayload represents an NDEF record in JSON-friendly format.
// This structure is used for serialization to WebSocket clients and API responses.
type NDEFRecordPayload struct {
	Type     string `json:"type"`               // Record type: "text", "uri", etc. (human-readable)
	Content  string `json:"content,omitempty"`  // Decoded content (text or URI)
	Language string `json:"language,omitempty"` // Language code for text records
	TNF      uint8  `json:"tnf"`                // Type Name Format (technical detail)
	ID       string `json:"id,omitempty"`       // Record ID (optional)
	Payload  []byte `json:"payload"`            // Raw payload data
}

// NDEFMessagePayload represents an NDEF message in JSON-friendly format.
type NDEFMessagePayload struct {
	Type    string              `json:"type"`    // Message type: "ndef"
	Records []NDEFRecordPayload `json:"records"` // Array of NDEF records
}

// TagEventPayload represents a classified tag handle in JSON-friendly
// format for WebSocket clients.
type TagEventPayload struct {
	Type       string `json:"type"` // Event type: "tag"
	UID        string `json:"uid"`
	Technology string `json:"technology"` // "iso15693", "felica", "mifare"
}

// ToPayload converts an NDEFMessage to a JSON-friendly payload
// structure, extracting human-readable content from text and URI
// records.
func (m NDEFMessage) ToPayload() *NDEFMessagePayload {
	payload := &NDEFMessagePayload{
		Type:    "ndef",
		Records: make([]NDEFRecordPayload, 0, len(m.records)),
	}

	for _, record := range m.records {
		recordPayload := NDEFRecordPayload{
			TNF:     uint8(record.tnf),
			Payload: cloneBytes(record.payload),
		}

		if len(record.id) > 0 {
			recordPayload.ID = string(record.id)
		}

		switch {
		case record.tnf == TNFWellKnown && len(record.typ) == 1 && record.typ[0] == 'T':
			if text, err := decodeTextPayload(record.payload); err == nil {
				recordPayload.Type = "text"
				recordPayload.Content = text
				recordPayload.Language = extractLanguageFromTextRecord(record.payload)
				break
			}
			recordPayload.Type = string(record.typ)
		case record.tnf == TNFWellKnown && len(record.typ) == 1 && record.typ[0] == 'U':
			if uri, err := decodeURIPayload(record.payload); err == nil {
				recordPayload.Type = "uri"
				recordPayload.Content = uri
				break
			}
			recordPayload.Type = string(record.typ)
		default:
			recordPayload.Type = string(record.typ)
		}

		payload.Records = append(payload.Records, recordPayload)
	}

	return payload
}

// TagToPayload converts a tag handle into the WebSocket event shape.
func TagToPayload(handle TagHandle) *TagEventPayload {
	return &TagEventPayload{
		Type:       "tag",
		UID:        handle.UID(),
		Technology: handle.Technology().String(),
	}
}

// extractLanguageFromTextRecord extracts the language code from a text record payload.
// Returns "en" as default if extraction fails.
func extractLanguageFromTextRecord(payload []byte) string {
	if len(payload) < 1 {
		return "en"
	}

	statusByte := payload[0]
	langLen := int(statusByte & 0x3F)

	if langLen > 0 && len(payload) > 1+langLen {
		return string(payload[1 : 1+langLen])
	}

	return "en"
}
