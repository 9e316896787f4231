// Package block implements the per-channel block codec: a small bit-packed
// header (predictor order, Rice/BFP selector) followed by block_len
// residuals or raw BFP samples.
//
// Grounded on the teacher's frame.SubHeader / NewSubHeader (the FLAC
// subframe header this block header descends from) and
// encodeSubframeHeader in encode_subframe.go, generalized from FLAC's 6-bit
// prediction-method-and-order field into the spec's 2-bit order field plus
// a variable-width Rice/BFP selector field.
package block

import (
	"github.com/mewkiz/pkg/errutil"

	"github.com/psiphi75/x3go/errs"
	"github.com/psiphi75/x3go/internal/bits"
	"github.com/psiphi75/x3go/predictor"
	"github.com/psiphi75/x3go/rice"
)

// Header is the small bit-packed block header: predictor order (2 bits) and
// Rice/BFP selector (SelectorBits(len(codes)) bits; the value len(codes)
// denotes BFP).
type Header struct {
	Order    uint8
	Selector int
}

// Codec encodes and decodes blocks of a fixed length under a shared set of
// Rice candidates. It holds no per-block state; predictor memory is passed
// and returned explicitly so blocks can be pipelined independently.
type Codec struct {
	BlockLen   int
	RiceCodes  []uint8
	MaxBFPBits uint8
	MaxOrder   uint8
}

func (c *Codec) selectorBits() uint8 { return rice.SelectorBits(len(c.RiceCodes)) }

func (c *Codec) bfpBits() int { return c.BlockLen * int(c.MaxBFPBits) }

// Encode writes one block of c.BlockLen samples, choosing the (predictor
// order, Rice parameter) pair — or BFP — with the minimum codeword length,
// and returns the predictor memory updated with this block's trailing
// samples.
func (c *Codec) Encode(w *bits.Writer, samples []int32, mem predictor.Memory) (predictor.Memory, error) {
	if len(samples) != c.BlockLen {
		return mem, errutil.Newf("block: expected %d samples, got %d", c.BlockLen, len(samples))
	}

	type candidate struct {
		order    uint8
		sel      rice.Selection
		residual []int32
	}
	var best *candidate
	for order := uint8(0); order <= c.MaxOrder; order++ {
		residuals, ok := predictor.Residuals(order, samples, mem)
		if !ok {
			continue
		}
		sel := rice.Select(residuals, c.RiceCodes, c.bfpBits())
		if best == nil || sel.Bits < best.sel.Bits {
			best = &candidate{order: order, sel: sel, residual: residuals}
		}
	}
	if best == nil {
		// Every order overflowed; order 0 never overflows for in-range
		// samples, so this is unreachable in practice.
		return mem, errs.ErrEncodeOverflow
	}

	hdr := Header{Order: best.order, Selector: best.sel.Selector}
	if err := writeHeader(w, hdr, c.selectorBits()); err != nil {
		return mem, err
	}
	if best.sel.IsBFP {
		if err := rice.EncodeBFP(w, samples, c.MaxBFPBits); err != nil {
			return mem, err
		}
	} else {
		if err := rice.EncodeResiduals(w, best.sel, best.residual); err != nil {
			return mem, err
		}
	}

	updated := mem
	if best.sel.IsBFP {
		// BFP blocks are not predicted; prime memory directly from samples.
		for _, s := range samples {
			updated.Push(s)
		}
	} else {
		_, updated = predictor.Reconstruct(best.order, best.residual, mem)
	}
	return updated, nil
}

// Decode reads one block of c.BlockLen samples and returns the predictor
// memory updated with this block's trailing samples.
func (c *Codec) Decode(r *bits.Reader, mem predictor.Memory) (samples []int32, updated predictor.Memory, err error) {
	hdr, err := readHeader(r, c.selectorBits())
	if err != nil {
		return nil, mem, err
	}

	if hdr.Selector == len(c.RiceCodes) {
		// BFP escape.
		samples, err = rice.DecodeBFP(r, c.BlockLen, c.MaxBFPBits)
		if err != nil {
			return nil, mem, err
		}
		updated = mem
		for _, s := range samples {
			updated.Push(s)
		}
		return samples, updated, nil
	}

	if hdr.Selector < 0 || hdr.Selector >= len(c.RiceCodes) {
		return nil, mem, errs.ErrCorruptBlock
	}
	k := c.RiceCodes[hdr.Selector]
	residuals, err := rice.DecodeResiduals(r, k, c.BlockLen, uint32(c.bfpBits()))
	if err != nil {
		return nil, mem, err
	}
	samples, updated = predictor.Reconstruct(hdr.Order, residuals, mem)
	return samples, updated, nil
}

func writeHeader(w *bits.Writer, hdr Header, selBits uint8) error {
	if err := w.WriteBits(uint32(hdr.Order), 2); err != nil {
		return errutil.Err(err)
	}
	if err := w.WriteBits(uint32(hdr.Selector), selBits); err != nil {
		return errutil.Err(err)
	}
	return nil
}

func readHeader(r *bits.Reader, selBits uint8) (Header, error) {
	order, err := r.ReadBits(2)
	if err != nil {
		return Header{}, errutil.Err(err)
	}
	if order > predictor.MaxOrder {
		return Header{}, errs.ErrCorruptBlock
	}
	sel, err := r.ReadBits(selBits)
	if err != nil {
		return Header{}, errutil.Err(err)
	}
	return Header{Order: uint8(order), Selector: int(sel)}, nil
}

// HeaderBits returns the fixed bit width of a block header for the given
// number of Rice candidates: 2 (order) + SelectorBits(nCodes).
func HeaderBits(nCodes int) int {
	return 2 + int(rice.SelectorBits(nCodes))
}
