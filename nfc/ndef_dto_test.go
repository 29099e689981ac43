package nfc

import (
	"encoding/json"
	"testing"
)

func TestMessageToPayload(t *testing.T) {
	msg := NewNDEFMessage(RawMessage{Records: []RawRecord{
		MakeTextRecord("bonjour", "fr"),
		MakeURIRecord("https://example.com"),
		{TNF: 0x02, Type: []byte("text/plain"), Identifier: []byte("r3"), Payload: []byte("mime")},
	}})

	payload := msg.ToPayload()
	if payload.Type != "ndef" {
		t.Errorf("payload type = %q", payload.Type)
	}
	if len(payload.Records) != 3 {
		t.Fatalf("payload records = %d", len(payload.Records))
	}

	text := payload.Records[0]
	if text.Type != "text" || text.Content != "bonjour" || text.Language != "fr" {
		t.Errorf("text record payload = %+v", text)
	}

	uri := payload.Records[1]
	if uri.Type != "uri" || uri.Content != "https://example.com" {
		t.Errorf("uri record payload = %+v", uri)
	}

	mime := payload.Records[2]
	if mime.Type != "text/plain" || mime.ID != "r3" {
		t.Errorf("mime record payload = %+v", mime)
	}
}

func TestMessagePayloadSerializes(t *testing.T) {
	msg := NewNDEFMessage(RawMessage{Records: []RawRecord{MakeTextRecord("x", "en")}})
	data, err := json.Marshal(msg.ToPayload())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded NDEFMessagePayload
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Records[0].Content != "x" {
		t.Errorf("round-tripped content = %q", decoded.Records[0].Content)
	}
}

func TestTagToPayload(t *testing.T) {
	raw := &MockRawTag{TagUID: "04AB", Technologies: []Technology{TechnologyFeliCa}}
	handles := classifyTag(raw)
	payload := TagToPayload(handles[0])

	if payload.Type != "tag" || payload.UID != "04AB" || payload.Technology != "felica" {
		t.Errorf("tag payload = %+v", payload)
	}
}
