// Package x3 implements the X3 lossless codec for low-entropy, mono,
// signed 16-bit PCM audio: Shorten-style fixed-order linear prediction with
// Rice-coded residuals and a block-floating-point fallback, packaged into
// the self-describing ".x3a" archive format (framed, CRC-checked,
// timecoded).
//
// Grounded on the teacher's Stream/Encoder pair in flac.go/encode.go: a
// fixed-magic signature followed by a serialized configuration block, then
// a stream of independently-framed, CRC-checked audio frames.
package x3

import (
	"github.com/mewkiz/pkg/errutil"

	"github.com/psiphi75/x3go/predictor"
)

// Sample is one signed 16-bit PCM sample, the unit the codec operates on.
type Sample = int16

// DefaultRiceCodes are the Rice parameter candidates tried by
// DefaultParameters, covering the low-entropy regime this codec targets.
var DefaultRiceCodes = []uint8{0, 1, 2, 3}

// Parameters configures the block, frame, and predictor codecs for one
// archive. It is constructed once (DefaultParameters, or parsed from an
// archive header) and passed by value thereafter.
type Parameters struct {
	// BlockLen is the number of samples per block.
	BlockLen int
	// BlocksPerFrame is the number of blocks per frame.
	BlocksPerFrame int
	// RiceCodes are the Rice parameter candidates the block encoder chooses
	// among; len(RiceCodes) must fit in the block header's selector field
	// (at most 254, since one value is reserved for the BFP escape).
	RiceCodes []uint8
	// MaxBFPBits is the fixed sample width used by the block-floating-point
	// fallback.
	MaxBFPBits uint8
	// MaxPredictorOrder is the highest fixed predictor order the encoder
	// will try, 0..predictor.MaxOrder.
	MaxPredictorOrder uint8
	// CRCPolynomial is the CRC-16 polynomial used throughout the archive;
	// fixed at 0x1021 (CRC-16-CCITT) by this implementation.
	CRCPolynomial uint16
}

// DefaultParameters returns the codec's default configuration: 20-sample
// blocks, 20 blocks per frame, Rice parameters 0-3, 16-bit BFP fallback,
// and predictor orders up to 2.
func DefaultParameters() Parameters {
	codes := make([]uint8, len(DefaultRiceCodes))
	copy(codes, DefaultRiceCodes)
	return Parameters{
		BlockLen:          20,
		BlocksPerFrame:    20,
		RiceCodes:         codes,
		MaxBFPBits:        16,
		MaxPredictorOrder: 2,
		CRCPolynomial:     crcPolynomial,
	}
}

const crcPolynomial = 0x1021

// Validate reports whether p describes a usable configuration.
func (p Parameters) Validate() error {
	if p.BlockLen <= 0 {
		return errutil.Newf("x3: block_len must be positive, got %d", p.BlockLen)
	}
	if p.BlocksPerFrame <= 0 {
		return errutil.Newf("x3: blocks_per_frame must be positive, got %d", p.BlocksPerFrame)
	}
	if len(p.RiceCodes) == 0 || len(p.RiceCodes) > 254 {
		return errutil.Newf("x3: rice_codes must have 1..254 entries, got %d", len(p.RiceCodes))
	}
	if p.MaxPredictorOrder > predictor.MaxOrder {
		return errutil.Newf("x3: max_predictor_order %d exceeds supported maximum %d", p.MaxPredictorOrder, predictor.MaxOrder)
	}
	if p.MaxBFPBits == 0 || p.MaxBFPBits > 32 {
		return errutil.Newf("x3: max_bfp_bits must be 1..32, got %d", p.MaxBFPBits)
	}
	return nil
}

// samplesPerFrame is the number of samples per channel in one frame.
func (p Parameters) samplesPerFrame() int {
	return p.BlockLen * p.BlocksPerFrame
}
