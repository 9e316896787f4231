package rice_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/psiphi75/x3go/errs"
	"github.com/psiphi75/x3go/internal/bits"
	"github.com/psiphi75/x3go/rice"
)

func TestValueRoundTripAllK(t *testing.T) {
	for k := uint8(0); k <= 3; k++ {
		for x := int32(-1024); x <= 1024; x++ {
			w := bits.NewWriter()
			if err := rice.EncodeValue(w, k, x); err != nil {
				t.Fatalf("k=%d x=%d: EncodeValue: %v", k, x, err)
			}
			buf, err := w.Bytes()
			if err != nil {
				t.Fatal(err)
			}
			r := bits.NewReader(bytes.NewReader(buf))
			got, err := rice.DecodeValue(r, k)
			if err != nil {
				t.Fatalf("k=%d x=%d: DecodeValue: %v", k, x, err)
			}
			if got != x {
				t.Fatalf("k=%d x=%d: round trip got %d", k, x, got)
			}
		}
	}
}

func TestValueRoundTripExtremes(t *testing.T) {
	for k := uint8(0); k <= 3; k++ {
		for _, x := range []int32{-32768, 32767, -1, 1, 0} {
			w := bits.NewWriter()
			if err := rice.EncodeValue(w, k, x); err != nil {
				t.Fatalf("k=%d x=%d: %v", k, x, err)
			}
			buf, _ := w.Bytes()
			r := bits.NewReader(bytes.NewReader(buf))
			got, err := rice.DecodeValue(r, k)
			if err != nil {
				t.Fatalf("k=%d x=%d: %v", k, x, err)
			}
			if got != x {
				t.Fatalf("k=%d x=%d: got %d", k, x, got)
			}
		}
	}
}

func TestSelectPicksMinimum(t *testing.T) {
	// All-zero residuals: k=0 encodes each as a single '0' bit (1 bit each);
	// every larger k is no better, so selector 0 (k=0) must win.
	residuals := make([]int32, 20)
	sel := rice.Select(residuals, []uint8{0, 1, 2, 3}, 20*16)
	if sel.IsBFP || sel.Selector != 0 {
		t.Fatalf("Select = %+v, want selector 0 (k=0)", sel)
	}
	if sel.Bits != 20 {
		t.Fatalf("Bits = %d, want 20", sel.Bits)
	}
}

func TestSelectFallsBackToBFP(t *testing.T) {
	// Large, high-entropy residuals make every Rice candidate worse than the
	// fixed-width BFP escape.
	residuals := make([]int32, 4)
	for i := range residuals {
		residuals[i] = 30000
	}
	bfpBits := len(residuals) * 16
	sel := rice.Select(residuals, []uint8{0, 1}, bfpBits)
	if !sel.IsBFP {
		t.Fatalf("Select = %+v, want BFP fallback", sel)
	}
	if sel.Bits != bfpBits {
		t.Fatalf("Bits = %d, want %d", sel.Bits, bfpBits)
	}
}

func TestBFPRoundTrip(t *testing.T) {
	samples := []int32{-32768, -1, 0, 1, 32767}
	w := bits.NewWriter()
	if err := rice.EncodeBFP(w, samples, 16); err != nil {
		t.Fatal(err)
	}
	buf, err := w.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	r := bits.NewReader(bytes.NewReader(buf))
	got, err := rice.DecodeBFP(r, len(samples), 16)
	if err != nil {
		t.Fatal(err)
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Fatalf("sample %d: got %d, want %d", i, got[i], samples[i])
		}
	}
}

func TestSelectorBits(t *testing.T) {
	golden := []struct {
		n    int
		want uint8
	}{
		{n: 1, want: 1}, // 2 values (code + BFP)
		{n: 4, want: 3}, // 5 values
		{n: 3, want: 2}, // 4 values
	}
	for _, g := range golden {
		got := rice.SelectorBits(g.n)
		if got != g.want {
			t.Errorf("SelectorBits(%d) = %d, want %d", g.n, got, g.want)
		}
	}
}

func TestDecodeResidualsUnaryOverflowIsCorruptBlock(t *testing.T) {
	w := bits.NewWriter()
	// A long run of one-bits with no terminating zero within maxUnary.
	if err := w.WriteBits(0xFFFFFFFF, 32); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteBits(0xFFFFFFFF, 32); err != nil {
		t.Fatal(err)
	}
	buf, err := w.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	r := bits.NewReader(bytes.NewReader(buf))
	_, err = rice.DecodeResiduals(r, 0, 1, 40)
	if !errors.Is(err, errs.ErrCorruptBlock) {
		t.Fatalf("got %v, want ErrCorruptBlock", err)
	}
}
