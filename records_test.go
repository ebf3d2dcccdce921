package gciso_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rotobash/gciso"
)

func TestParseDiscHeader(t *testing.T) {
	src := buildTestImage()

	h, err := gciso.ParseDiscHeader(src)
	if err != nil {
		t.Fatalf("ParseDiscHeader: %s", err)
	}

	if string(h.GameCode[:]) != "GM" {
		t.Errorf("GameCode = %q", h.GameCode)
	}
	if h.Country != 'E' {
		t.Errorf("Country = %q", h.Country)
	}
	if string(h.MakerID[:]) != "01" {
		t.Errorf("MakerID = %q", h.MakerID)
	}
	if string(h.GameName) != "MOCK GAME" {
		t.Errorf("GameName = %q", h.GameName)
	}
	if h.DolOffset != mockDolOffset || h.FSTOffset != mockFSTOffset {
		t.Errorf("offsets = %#x/%#x", h.DolOffset, h.FSTOffset)
	}

	// serializing the parsed header must reproduce the on-disc form
	orig, _ := src.Get(0, 0x440)
	if !bytes.Equal(h.Bytes(), orig) {
		t.Errorf("header round-trip differs")
	}
}

func TestParseDiscHeaderMalformed(t *testing.T) {
	// too short for a header at all
	if _, err := gciso.ParseDiscHeader(gciso.NewMemStreamSize(0x100)); !errors.Is(err, gciso.ErrMalformedHeader) {
		t.Errorf("short stream err = %v, want ErrMalformedHeader", err)
	}

	// right size but zero DOL/FST offsets
	if _, err := gciso.ParseDiscHeader(gciso.NewMemStreamSize(0x1000)); !errors.Is(err, gciso.ErrMalformedHeader) {
		t.Errorf("zero offsets err = %v, want ErrMalformedHeader", err)
	}
}

func TestDOLRoundTrip(t *testing.T) {
	src := buildTestImage()

	d, err := gciso.ParseDOL(src, mockDolOffset)
	if err != nil {
		t.Fatalf("ParseDOL: %s", err)
	}

	if d.TotalSize() != 0x160 {
		t.Errorf("TotalSize = %#x, want 0x160", d.TotalSize())
	}
	if d.EntryPoint != 0x80003100 {
		t.Errorf("EntryPoint = %#x", d.EntryPoint)
	}
	if d.BSSSize != 0x100 {
		t.Errorf("BSSSize = %#x", d.BSSSize)
	}

	// bytes before the payloads are attached is an error
	if _, err := d.Bytes(); !errors.Is(err, gciso.ErrNotLoaded) {
		t.Fatalf("Bytes before load err = %v, want ErrNotLoaded", err)
	}
	if d.SectionContentsLoaded() {
		t.Errorf("SectionContentsLoaded before load")
	}

	if err := d.LoadSectionContents(src, mockDolOffset); err != nil {
		t.Fatalf("LoadSectionContents: %s", err)
	}
	if !d.SectionContentsLoaded() {
		t.Errorf("SectionContentsLoaded after load")
	}

	out, err := d.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %s", err)
	}
	orig, _ := src.Get(mockDolOffset, 0x160)
	if !bytes.Equal(out, orig) {
		t.Errorf("DOL round-trip differs")
	}
}

func TestParseApploader(t *testing.T) {
	src := buildTestImage()
	h, err := gciso.ParseDiscHeader(src)
	if err != nil {
		t.Fatalf("ParseDiscHeader: %s", err)
	}

	a, err := gciso.ParseApploader(src, h)
	if err != nil {
		t.Fatalf("ParseApploader: %s", err)
	}
	// the apploader runs from its fixed start up to the DOL
	want, _ := src.Get(0x2440, mockDolOffset-0x2440)
	if !bytes.Equal(a.Bytes(), want) {
		t.Errorf("apploader contents differ")
	}

	info, err := gciso.ParseHeaderInformation(src)
	if err != nil {
		t.Fatalf("ParseHeaderInformation: %s", err)
	}
	if len(info.Bytes()) != 0x2000 {
		t.Errorf("header information length = %#x", len(info.Bytes()))
	}
}
