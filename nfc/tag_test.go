package nfc

import "testing"

func TestClassifyTagDualTechnology(t *testing.T) {
	tag := &MockRawTag{
		TagUID:       "AA01",
		Technologies: []Technology{TechnologyMIFARE, TechnologyISO15693},
	}

	handles := classifyTag(tag)
	if len(handles) != 2 {
		t.Fatalf("handle count = %d, want 2", len(handles))
	}
	// Fixed classification order: ISO15693 before MIFARE.
	if handles[0].Technology() != TechnologyISO15693 {
		t.Errorf("first handle = %v, want iso15693", handles[0].Technology())
	}
	if handles[1].Technology() != TechnologyMIFARE {
		t.Errorf("second handle = %v, want mifare", handles[1].Technology())
	}
	for _, h := range handles {
		if h.UID() != "AA01" {
			t.Errorf("handle UID = %q", h.UID())
		}
	}
}

func TestClassifyTagNoVariant(t *testing.T) {
	tag := &MockRawTag{TagUID: "BB02"}
	if handles := classifyTag(tag); len(handles) != 0 {
		t.Errorf("handle count = %d, want 0 (no placeholder handles)", len(handles))
	}
}

func TestClassifyTagAllVariants(t *testing.T) {
	tag := &MockRawTag{
		TagUID:       "CC03",
		Technologies: []Technology{TechnologyFeliCa, TechnologyMIFARE, TechnologyISO15693},
	}

	handles := classifyTag(tag)
	want := []Technology{TechnologyISO15693, TechnologyFeliCa, TechnologyMIFARE}
	if len(handles) != len(want) {
		t.Fatalf("handle count = %d, want %d", len(handles), len(want))
	}
	for i, tech := range want {
		if handles[i].Technology() != tech {
			t.Errorf("handle %d = %v, want %v", i, handles[i].Technology(), tech)
		}
	}
}

func TestTagHandleVariantAccessors(t *testing.T) {
	raw := &MockRawTag{TagUID: "DD04", Technologies: []Technology{TechnologyFeliCa}}
	handles := classifyTag(raw)
	if len(handles) != 1 {
		t.Fatalf("handle count = %d", len(handles))
	}
	felica, ok := handles[0].(*FeliCaTag)
	if !ok {
		t.Fatalf("handle type = %T, want *FeliCaTag", handles[0])
	}
	if felica.Raw() != raw {
		t.Error("Raw() does not return the backing tag")
	}
}
