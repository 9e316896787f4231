// Package rice implements Rice coding of signed residuals, per-block
// code-family selection among a small candidate set of Rice parameters, and
// the block-floating-point (BFP) pass-through fallback used when every Rice
// candidate would be longer than a fixed-width raw encoding.
//
// Grounded on the teacher's internal/bits zig-zag fold and the
// encodeRiceResidual/riceDecode pair from encode_subframe.go and
// frame/subframe.go, generalized with an explicit candidate-selection step
// and a BFP escape the FLAC subframe format does not need.
package rice

import (
	"github.com/mewkiz/pkg/errutil"

	"github.com/psiphi75/x3go/errs"
	"github.com/psiphi75/x3go/internal/bits"
)

// SelectorBits returns the number of bits needed to encode a selector that
// ranges over the nCodes Rice candidates plus one reserved BFP value:
// ceil(log2(nCodes+1)).
func SelectorBits(nCodes int) uint8 {
	n := nCodes + 1
	var bitsNeeded uint8
	for v := 1; v < n; v <<= 1 {
		bitsNeeded++
	}
	return bitsNeeded
}

// EncodeValue writes x Rice-coded under parameter k.
func EncodeValue(w *bits.Writer, k uint8, x int32) error {
	u := bits.FoldSigned(x)
	q := u >> k
	if err := w.WriteUnary(q); err != nil {
		return errutil.Err(err)
	}
	if k > 0 {
		if err := w.WriteBits(u&(1<<k-1), k); err != nil {
			return errutil.Err(err)
		}
	}
	return nil
}

// DecodeValue reads one Rice-coded value under parameter k.
func DecodeValue(r *bits.Reader, k uint8) (int32, error) {
	q, err := r.ReadUnary()
	if err != nil {
		return 0, errutil.Err(err)
	}
	var low uint32
	if k > 0 {
		low, err = r.ReadBits(k)
		if err != nil {
			return 0, errutil.Err(err)
		}
	}
	u := q<<k | low
	return bits.UnfoldSigned(u), nil
}

// Length returns the number of bits EncodeValue would emit for x under
// parameter k, without writing anything.
func Length(k uint8, x int32) int {
	u := bits.FoldSigned(x)
	return int(u>>k) + 1 + int(k)
}

// BlockLength returns the total Rice-coded length in bits of residuals under
// parameter k.
func BlockLength(k uint8, residuals []int32) int {
	total := 0
	for _, x := range residuals {
		total += Length(k, x)
	}
	return total
}

// Selection is the winning (predictor-neutral) code choice for one block's
// residuals: either a Rice parameter (IsBFP == false) or the BFP escape.
type Selection struct {
	Selector int  // index into the candidate set, or len(codes) for BFP
	Param    uint8
	IsBFP    bool
	Bits     int // total payload bits under this selection
}

// Select measures every candidate in codes plus the BFP fallback against
// residuals, and returns the minimum-length choice, tie-breaking toward the
// smaller selector index. bfpBits is block_len * max_bfp_bits, the fixed
// cost of the BFP escape.
func Select(residuals []int32, codes []uint8, bfpBits int) Selection {
	best := Selection{Selector: len(codes), IsBFP: true, Bits: bfpBits}
	for i, k := range codes {
		n := BlockLength(k, residuals)
		if n < best.Bits || (best.IsBFP && n == best.Bits) {
			best = Selection{Selector: i, Param: k, Bits: n}
		}
	}
	return best
}

// EncodeBFP writes samples as width-bit two's-complement raw values.
func EncodeBFP(w *bits.Writer, samples []int32, width uint8) error {
	for _, s := range samples {
		if err := w.WriteBits(uint32(s)&(1<<width-1), width); err != nil {
			return errutil.Err(err)
		}
	}
	return nil
}

// DecodeBFP reads n width-bit two's-complement raw values.
func DecodeBFP(r *bits.Reader, n int, width uint8) ([]int32, error) {
	out := make([]int32, n)
	for i := range out {
		u, err := r.ReadBits(width)
		if err != nil {
			return nil, errutil.Err(err)
		}
		out[i] = bits.SignExtend(u, width)
	}
	return out, nil
}

// EncodeResiduals writes residuals Rice-coded under sel.Param. It returns an
// error for a BFP selection and writes nothing; a BFP block is written with
// EncodeBFP on the original samples instead.
func EncodeResiduals(w *bits.Writer, sel Selection, residuals []int32) error {
	if sel.IsBFP {
		return errutil.Newf("rice: EncodeResiduals called with a BFP selection")
	}
	for _, x := range residuals {
		if err := EncodeValue(w, sel.Param, x); err != nil {
			return errutil.Err(err)
		}
	}
	return nil
}

// DecodeResiduals reads n Rice-coded residuals under parameter k. maxUnary
// bounds the unary run per value (block_len * max_bfp_bits, per spec); a
// longer run is reported as ErrCorruptBlock rather than hanging.
func DecodeResiduals(r *bits.Reader, k uint8, n int, maxUnary uint32) ([]int32, error) {
	r.SetMaxUnary(maxUnary)
	defer r.SetMaxUnary(0)
	out := make([]int32, n)
	for i := range out {
		v, err := DecodeValue(r, k)
		if err != nil {
			if err == bits.ErrUnaryOverflow {
				return nil, errs.ErrCorruptBlock
			}
			return nil, errutil.Err(err)
		}
		out[i] = v
	}
	return out, nil
}
