package nfc

import "testing"

func TestPollingOptionsZeroIsNDEFOnly(t *testing.T) {
	var opts PollingOptions
	if !opts.IsNDEFOnly() {
		t.Error("zero PollingOptions should be NDEF-only")
	}
	if opts.String() != "ndef-only" {
		t.Errorf("String() = %q", opts.String())
	}
}

func TestPollingOptionsCombine(t *testing.T) {
	opts := PollISO14443.With(PollISO15693)

	if !opts.Contains(PollISO14443) || !opts.Contains(PollISO15693) {
		t.Error("combined options missing member flags")
	}
	if opts.Contains(PollISO18092) {
		t.Error("Contains reports unset flag")
	}
	if opts.Contains(PollISO14443 | PollISO18092) {
		t.Error("Contains should require every flag in the mask")
	}
	if opts.IsNDEFOnly() {
		t.Error("non-zero options reported as NDEF-only")
	}
}

func TestPollingOptionsString(t *testing.T) {
	opts := PollISO14443 | PollISO18092 | PollPACE
	if got := opts.String(); got != "iso14443|iso18092|pace" {
		t.Errorf("String() = %q", got)
	}
}
