package gciso_test

import (
	"bytes"
	"testing"

	"github.com/rotobash/gciso"
)

func TestUnknownFileEditLog(t *testing.T) {
	f := gciso.NewUnknownFile("x.bin", []byte("hello world"))

	if f.Edited() {
		t.Errorf("fresh file reports edits")
	}
	first, err := f.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %s", err)
	}
	if string(first) != "hello world" {
		t.Errorf("pristine bytes = %q", first)
	}

	f.Replace(0, []byte("HELLO"))
	f.Insert(5, []byte("!!"))
	f.Delete(7, 1)

	if !f.Edited() {
		t.Errorf("edited file reports no edits")
	}

	got, err := f.Bytes()
	if err != nil {
		t.Fatalf("Bytes after edits: %s", err)
	}
	// hello world -> HELLO world -> HELLO!! world -> HELLO!!world
	if string(got) != "HELLO!!world" {
		t.Errorf("edited bytes = %q", got)
	}

	// the base is never mutated; the log replays over a fresh copy each time
	again, _ := f.Bytes()
	if !bytes.Equal(got, again) {
		t.Errorf("replay is not deterministic")
	}
}

func TestFileFactoryDispatch(t *testing.T) {
	factory := gciso.NewFileFactory()

	called := false
	factory.Register(".BNR", func(name string, s gciso.ByteStream) (gciso.File, error) {
		called = true
		data, err := s.Get(0, s.Size())
		if err != nil {
			return nil, err
		}
		return gciso.NewUnknownFile(name, data), nil
	})

	// extension matching is case-insensitive on both sides
	f, err := factory.Read("opening.bnr", gciso.NewMemStream([]byte{1, 2, 3}))
	if err != nil {
		t.Fatalf("Read: %s", err)
	}
	if !called {
		t.Errorf("registered constructor was not dispatched")
	}
	if f.Name() != "opening.bnr" {
		t.Errorf("Name = %q", f.Name())
	}

	// a miss falls back to UnknownFile with identity bytes
	g, err := factory.Read("stray.xyz", gciso.NewMemStream([]byte{9, 8, 7}))
	if err != nil {
		t.Fatalf("Read fallback: %s", err)
	}
	data, _ := g.Bytes()
	if !bytes.Equal(data, []byte{9, 8, 7}) {
		t.Errorf("fallback bytes = %v", data)
	}
	if _, ok := g.(*gciso.UnknownFile); !ok {
		t.Errorf("fallback is %T, want *UnknownFile", g)
	}
}

func TestEngineUsesCustomFactory(t *testing.T) {
	factory := gciso.NewFileFactory()
	factory.Register(".dat", func(name string, s gciso.ByteStream) (gciso.File, error) {
		data, err := s.Get(0, s.Size())
		if err != nil {
			return nil, err
		}
		return gciso.NewUnknownFile("typed:"+name, data), nil
	})

	src := buildTestImage()
	eng, err := gciso.Open(src, gciso.WithFileFactory(factory))
	if err != nil {
		t.Fatalf("Open: %s", err)
	}
	defer eng.Close()

	f, err := eng.Extract("a.dat")
	if err != nil {
		t.Fatalf("Extract: %s", err)
	}
	if f.Name() != "typed:a.dat" {
		t.Errorf("factory not consulted: Name = %q", f.Name())
	}
}

func TestCompressServiceRoundTrip(t *testing.T) {
	reg := gciso.NewCompressRegistry()
	svc, ok := reg.Lookup("flate")
	if !ok {
		t.Fatalf("flate transform not built in")
	}

	payload := filePayload(4096, 0x3C)
	packed, err := svc.Apply(payload)
	if err != nil {
		t.Fatalf("Apply: %s", err)
	}
	unpacked, err := svc.Invert(packed)
	if err != nil {
		t.Fatalf("Invert: %s", err)
	}
	if !bytes.Equal(unpacked, payload) {
		t.Errorf("flate round-trip differs")
	}

	if _, ok := reg.Lookup("no-such-codec"); ok {
		t.Errorf("lookup of unregistered codec succeeded")
	}
}

func TestEncryptServiceIdentity(t *testing.T) {
	svc, ok := gciso.NewEncryptRegistry().Lookup("none")
	if !ok {
		t.Fatalf("identity transform not built in")
	}
	payload := []byte("plain")
	out, err := svc.Apply(payload)
	if err != nil {
		t.Fatalf("Apply: %s", err)
	}
	back, err := svc.Invert(out)
	if err != nil {
		t.Fatalf("Invert: %s", err)
	}
	if !bytes.Equal(back, payload) {
		t.Errorf("identity round-trip differs")
	}
}

// nopService is a placeholder transform for registry ownership tests.
type nopService struct{ name string }

func (s nopService) Name() string { return s.name }

func (s nopService) Apply(b []byte) ([]byte, error) { return b, nil }

func (s nopService) Invert(b []byte) ([]byte, error) { return b, nil }

func TestTransformRegistriesAreInstanceValues(t *testing.T) {
	a, _ := openTestImage(t)
	defer a.Close()
	b, _ := openTestImage(t)
	defer b.Close()

	// a registration on one engine's registry must not leak into another's
	a.CompressRegistry().Register(nopService{name: "custom"})
	if _, ok := a.CompressRegistry().Lookup("custom"); !ok {
		t.Fatalf("registration on owning engine not visible")
	}
	if _, ok := b.CompressRegistry().Lookup("custom"); ok {
		t.Errorf("registration leaked across engine instances")
	}

	// WithCompressRegistry swaps the engine's registry wholesale; the
	// encryption registry keeps its own default
	c, err := gciso.Open(buildTestImage(),
		gciso.WithCompressRegistry(gciso.NewTransformRegistry(nopService{name: "only"})))
	if err != nil {
		t.Fatalf("Open: %s", err)
	}
	defer c.Close()
	if _, ok := c.CompressRegistry().Lookup("only"); !ok {
		t.Errorf("custom registry not installed")
	}
	if _, ok := c.CompressRegistry().Lookup("flate"); ok {
		t.Errorf("built-in flate present in a custom registry")
	}
	if _, ok := c.EncryptRegistry().Lookup("none"); !ok {
		t.Errorf("default encryption registry missing its identity transform")
	}
}
