package nfc

import "strings"

// PollingOptions selects which radio technologies a scan polls for.
// Options combine with | or With. The zero value requests NDEF-only
// discovery: the backend reads messages itself and surfaces no tags.
type PollingOptions uint8

const (
	// PollISO14443 polls for ISO 14443 tags (MIFARE family).
	PollISO14443 PollingOptions = 1 << iota
	// PollISO15693 polls for ISO 15693 vicinity tags.
	PollISO15693
	// PollISO18092 polls for ISO 18092 / FeliCa tags.
	PollISO18092
	// PollPACE requests PACE-capable polling where the platform has it.
	PollPACE
)

// With returns the options with the given flags added.
func (p PollingOptions) With(flags PollingOptions) PollingOptions {
	return p | flags
}

// Contains reports whether every flag in flags is set.
func (p PollingOptions) Contains(flags PollingOptions) bool {
	return p&flags == flags
}

// IsNDEFOnly reports whether no technology flag is set.
func (p PollingOptions) IsNDEFOnly() bool { return p == 0 }

func (p PollingOptions) String() string {
	if p == 0 {
		return "ndef-only"
	}
	var parts []string
	if p.Contains(PollISO14443) {
		parts = append(parts, "iso14443")
	}
	if p.Contains(PollISO15693) {
		parts = append(parts, "iso15693")
	}
	if p.Contains(PollISO18092) {
		parts = append(parts, "iso18092")
	}
	if p.Contains(PollPACE) {
		parts = append(parts, "pace")
	}
	return strings.Join(parts, "|")
}
