package gciso

import (
	"bytes"
	"testing"
)

func TestBinDiffRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		a, b []byte
	}{
		{"identical", []byte("same bytes"), []byte("same bytes")},
		{"both empty", nil, nil},
		{"from empty", nil, []byte("created")},
		{"to empty", []byte("removed"), nil},
		{"middle change", []byte("aaaaXXXXbbbb"), []byte("aaaaYYbbbb")},
		{"grow", []byte("head tail"), []byte("head ...more... tail")},
		{"shrink", []byte("head ...more... tail"), []byte("head tail")},
		{"total rewrite", []byte("one"), []byte("two")},
	}
	for _, c := range cases {
		d := binDiff(c.a, c.b)
		got, err := binPatch(c.a, d)
		if err != nil {
			t.Errorf("%s: binPatch: %s", c.name, err)
			continue
		}
		if !bytes.Equal(got, c.b) {
			t.Errorf("%s: round-trip = %q, want %q", c.name, got, c.b)
		}
	}
}

func TestBinPatchRejectsGarbage(t *testing.T) {
	if _, err := binPatch([]byte("base"), []byte{}); err == nil {
		t.Errorf("empty delta accepted")
	}
	// declared prefix+suffix longer than the source
	d := binDiff([]byte("a longer source buffer"), []byte("a longer source buffer"))
	if _, err := binPatch([]byte("tiny"), d); err == nil {
		t.Errorf("delta for a longer source applied to a short one")
	}
}

func TestBinDiffNoOpIsSmall(t *testing.T) {
	a := make([]byte, 1<<16)
	for i := range a {
		a[i] = byte(i)
	}
	d := binDiff(a, a)
	// an unchanged buffer encodes as three varints and no payload
	if len(d) > 16 {
		t.Errorf("no-op delta is %d bytes", len(d))
	}
}
