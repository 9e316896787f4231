package bits_test

import (
	"bytes"
	"testing"

	"github.com/psiphi75/x3go/internal/bits"
)

func TestUnaryRoundTrip(t *testing.T) {
	for want := uint32(0); want < 1000; want++ {
		w := bits.NewWriter()
		if err := w.WriteUnary(want); err != nil {
			t.Fatalf("WriteUnary(%d): %v", want, err)
		}
		buf, err := w.Bytes()
		if err != nil {
			t.Fatalf("Bytes: %v", err)
		}

		r := bits.NewReader(bytes.NewReader(buf))
		got, err := r.ReadUnary()
		if err != nil {
			t.Fatalf("ReadUnary(%d): %v", want, err)
		}
		if got != want {
			t.Fatalf("ReadUnary roundtrip: got %d, want %d", got, want)
		}
	}
}

func TestUnaryOverflow(t *testing.T) {
	w := bits.NewWriter()
	if err := w.WriteUnary(100); err != nil {
		t.Fatalf("WriteUnary: %v", err)
	}
	buf, err := w.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	r := bits.NewReader(bytes.NewReader(buf))
	r.SetMaxUnary(50)
	if _, err := r.ReadUnary(); err != bits.ErrUnaryOverflow {
		t.Fatalf("ReadUnary: got %v, want ErrUnaryOverflow", err)
	}
}

func TestReadWriteBits(t *testing.T) {
	w := bits.NewWriter()
	values := []struct {
		v uint32
		n uint8
	}{
		{0x1, 1}, {0x0, 1}, {0x7F, 7}, {0xFFFF, 16}, {0x12345678, 32},
	}
	for _, tc := range values {
		if err := w.WriteBits(tc.v, tc.n); err != nil {
			t.Fatalf("WriteBits: %v", err)
		}
	}
	buf, err := w.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	r := bits.NewReader(bytes.NewReader(buf))
	for _, tc := range values {
		got, err := r.ReadBits(tc.n)
		if err != nil {
			t.Fatalf("ReadBits: %v", err)
		}
		if got != tc.v {
			t.Fatalf("ReadBits(%d) = %#x, want %#x", tc.n, got, tc.v)
		}
	}
}

func TestPeekBitsDoesNotAdvance(t *testing.T) {
	w := bits.NewWriter()
	if err := w.WriteBits(0xAB, 8); err != nil {
		t.Fatal(err)
	}
	buf, err := w.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	r := bits.NewReader(bytes.NewReader(buf))
	peeked, err := r.PeekBits(8)
	if err != nil {
		t.Fatal(err)
	}
	if peeked != 0xAB {
		t.Fatalf("PeekBits = %#x, want 0xAB", peeked)
	}
	got, err := r.ReadBits(8)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0xAB {
		t.Fatalf("ReadBits after Peek = %#x, want 0xAB", got)
	}
}

func TestByteAlign(t *testing.T) {
	w := bits.NewWriter()
	if err := w.WriteBits(0x1, 3); err != nil {
		t.Fatal(err)
	}
	padded, err := w.ByteAlign()
	if err != nil {
		t.Fatal(err)
	}
	if padded != 5 {
		t.Fatalf("ByteAlign padded = %d, want 5", padded)
	}
	if w.PositionBits() != 8 {
		t.Fatalf("PositionBits = %d, want 8", w.PositionBits())
	}
}

func TestReaderByteAlignFlushesUnderlyingCache(t *testing.T) {
	w := bits.NewWriter()
	// 3 bits, then a second byte entirely, so the first ReadBits(3) below
	// pulls a whole byte into bitio's own cache and leaves 5 bits sitting
	// there rather than in this package's pending queue.
	if err := w.WriteBits(0x5, 3); err != nil {
		t.Fatal(err)
	}
	if _, err := w.ByteAlign(); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteBits(0xAB, 8); err != nil {
		t.Fatal(err)
	}
	buf, err := w.Bytes()
	if err != nil {
		t.Fatal(err)
	}

	r := bits.NewReader(bytes.NewReader(buf))
	if _, err := r.ReadBits(3); err != nil {
		t.Fatal(err)
	}
	skipped := r.ByteAlign()
	if skipped != 5 {
		t.Fatalf("ByteAlign skipped = %d, want 5", skipped)
	}
	if r.PositionBits() != 8 {
		t.Fatalf("PositionBits = %d, want 8", r.PositionBits())
	}
	got, err := r.ReadBits(8)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0xAB {
		t.Fatalf("ReadBits after ByteAlign = %#x, want 0xab", got)
	}
}

func TestSkipToSync(t *testing.T) {
	w := bits.NewWriter()
	if err := w.WriteBits(0x0, 4); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteBits(0x7FFF, 16); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteBits(0xCAFE, 16); err != nil {
		t.Fatal(err)
	}
	buf, err := w.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	r := bits.NewReader(bytes.NewReader(buf))
	off, err := r.SkipToSync(0x7FFF, 16)
	if err != nil {
		t.Fatalf("SkipToSync: %v", err)
	}
	if off != 4 {
		t.Fatalf("SkipToSync offset = %d, want 4", off)
	}
	rest, err := r.ReadBits(16)
	if err != nil {
		t.Fatal(err)
	}
	if rest != 0xCAFE {
		t.Fatalf("ReadBits after sync = %#x, want 0xCAFE", rest)
	}
}

func TestSkipToSyncNotFound(t *testing.T) {
	w := bits.NewWriter()
	if err := w.WriteBits(0x0000, 16); err != nil {
		t.Fatal(err)
	}
	buf, err := w.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	r := bits.NewReader(bytes.NewReader(buf))
	if _, err := r.SkipToSync(0x7FFF, 16); err != bits.ErrNotFound {
		t.Fatalf("SkipToSync: got %v, want ErrNotFound", err)
	}
}
