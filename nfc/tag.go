package nfc

// Technology is a tag radio technology family.
type Technology byte

const (
	// TechnologyISO15693 covers vicinity tags (ICODE, Tag-it).
	TechnologyISO15693 Technology = iota
	// TechnologyFeliCa covers Sony FeliCa / ISO 18092 tags.
	TechnologyFeliCa
	// TechnologyMIFARE covers the ISO 14443 MIFARE family.
	TechnologyMIFARE
)

func (t Technology) String() string {
	switch t {
	case TechnologyISO15693:
		return "iso15693"
	case TechnologyFeliCa:
		return "felica"
	case TechnologyMIFARE:
		return "mifare"
	default:
		return "invalid"
	}
}

// classificationOrder fixes the order technology variants are probed
// and dispatched in, so multi-technology tags dispatch deterministically.
var classificationOrder = []Technology{
	TechnologyISO15693,
	TechnologyFeliCa,
	TechnologyMIFARE,
}

// TagHandle is one technology-specific view of a discovered tag. A tag
// supporting several technologies yields one handle per technology; a
// tag supporting none yields no handles at all.
type TagHandle interface {
	Technology() Technology
	UID() string
}

// ISO15693Tag is the vicinity-tag view of a discovered tag.
type ISO15693Tag struct {
	raw RawTag
}

func (t *ISO15693Tag) Technology() Technology { return TechnologyISO15693 }
func (t *ISO15693Tag) UID() string            { return t.raw.UID() }

// Raw returns the underlying backend tag for technology-specific I/O.
func (t *ISO15693Tag) Raw() RawTag { return t.raw }

// FeliCaTag is the FeliCa view of a discovered tag.
type FeliCaTag struct {
	raw RawTag
}

func (t *FeliCaTag) Technology() Technology { return TechnologyFeliCa }
func (t *FeliCaTag) UID() string            { return t.raw.UID() }
func (t *FeliCaTag) Raw() RawTag            { return t.raw }

// MIFARETag is the MIFARE-family view of a discovered tag.
type MIFARETag struct {
	raw RawTag
}

func (t *MIFARETag) Technology() Technology { return TechnologyMIFARE }
func (t *MIFARETag) UID() string            { return t.raw.UID() }
func (t *MIFARETag) Raw() RawTag            { return t.raw }

// classifyTag probes every technology independently, in classification
// order, and returns one handle per supported technology. No placeholder
// is produced for tags that match nothing.
func classifyTag(raw RawTag) []TagHandle {
	var handles []TagHandle
	for _, tech := range classificationOrder {
		if !raw.Supports(tech) {
			continue
		}
		switch tech {
		case TechnologyISO15693:
			handles = append(handles, &ISO15693Tag{raw: raw})
		case TechnologyFeliCa:
			handles = append(handles, &FeliCaTag{raw: raw})
		case TechnologyMIFARE:
			handles = append(handles, &MIFARETag{raw: raw})
		}
	}
	return handles
}
