package x3

import (
	"io"

	"github.com/mewkiz/pkg/errutil"

	"github.com/psiphi75/x3go/block"
	"github.com/psiphi75/x3go/errs"
	"github.com/psiphi75/x3go/frame"
)

// Encoder writes an .x3a archive to an underlying io.Writer: the archive
// header once, then a sequence of independently-framed, CRC-checked
// frames, one per EncodeFrame call.
//
// Grounded on the teacher's Encoder in encode.go: NewEncoder writes the
// signature and configuration once, and each subsequent call streams one
// frame to the output, advancing an internal sample counter used as the
// frame's position marker (the teacher's curNum is this codec's timecode).
type Encoder struct {
	w         io.Writer
	params    Parameters
	frameCdc  *frame.Codec
	nextTime  uint64
	samplesPF int
}

// NewEncoder writes the archive header to w and returns an Encoder ready to
// stream frames. sampleRate and channelCount describe the audio; channelCount
// must be 1 (mono), per this implementation's scope.
func NewEncoder(w io.Writer, params Parameters, sampleRate uint32, channelCount uint8, metadata map[string]string) (*Encoder, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if channelCount != 1 {
		return nil, errs.ErrUnsupportedFormat
	}

	hdr := ArchiveHeader{
		Version:      FormatVersion,
		Params:       params,
		SampleRate:   sampleRate,
		ChannelCount: channelCount,
		Metadata:     metadata,
	}
	if err := writeArchiveHeader(w, hdr); err != nil {
		return nil, errutil.Err(err)
	}

	return &Encoder{
		w:      w,
		params: params,
		frameCdc: &frame.Codec{
			Block: &block.Codec{
				BlockLen:   params.BlockLen,
				RiceCodes:  params.RiceCodes,
				MaxBFPBits: params.MaxBFPBits,
				MaxOrder:   params.MaxPredictorOrder,
			},
		},
		samplesPF: params.samplesPerFrame(),
	}, nil
}

// EncodeFrame encodes one frame of mono samples. len(samples) must be
// 1..Parameters.BlockLen*Parameters.BlocksPerFrame; a short final frame is
// zero-padded internally to the block grid, and the true sample count is
// recorded in the frame header so NextFrame returns exactly len(samples)
// samples back, not a zero-padded full frame.
func (enc *Encoder) EncodeFrame(samples []int32) error {
	if len(samples) == 0 || len(samples) > enc.samplesPF {
		return errutil.Newf("x3: frame must hold 1..%d samples, got %d", enc.samplesPF, len(samples))
	}
	padded := samples
	if len(samples) < enc.samplesPF {
		padded = make([]int32, enc.samplesPF)
		copy(padded, samples)
	}
	if err := enc.frameCdc.Encode(enc.w, [][]int32{padded}, enc.params.BlocksPerFrame, enc.nextTime, len(samples)); err != nil {
		return errutil.Err(err)
	}
	enc.nextTime += uint64(len(samples))
	return nil
}

// EncodeBuffer encodes an entire recording's worth of mono samples in one
// call; a final, short frame round-trips to its original length via
// EncodeFrame's ValidSamples accounting rather than trailing zero-padding.
// It is a convenience wrapper around repeated EncodeFrame calls; streaming
// callers should prefer EncodeFrame directly (see spec.md's streaming-first
// design note).
func EncodeBuffer(w io.Writer, params Parameters, sampleRate uint32, samples []int32, metadata map[string]string) error {
	enc, err := NewEncoder(w, params, sampleRate, 1, metadata)
	if err != nil {
		return err
	}
	samplesPF := params.samplesPerFrame()
	for start := 0; start < len(samples); start += samplesPF {
		end := start + samplesPF
		if end > len(samples) {
			end = len(samples)
		}
		if err := enc.EncodeFrame(samples[start:end]); err != nil {
			return err
		}
	}
	return nil
}
