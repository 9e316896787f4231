package x3

import (
	"bufio"
	"io"
	"os"

	"github.com/mewkiz/pkg/errutil"

	"github.com/psiphi75/x3go/block"
	"github.com/psiphi75/x3go/errs"
	"github.com/psiphi75/x3go/frame"
)

// Decoder reads an .x3a archive: the header once, then a sequence of
// frames via NextFrame.
//
// Grounded on the teacher's Stream/NewStream/Open in flac.go: a parsed
// header followed by a frame-at-a-time reader, here generalized into the
// resynchronizing frame.StreamDecoder rather than FLAC's hard-fail parser.
type Decoder struct {
	Header ArchiveHeader
	frames *frame.StreamDecoder
}

// Open opens the named file as an .x3a archive, buffering reads the way the
// teacher's Open/NewStream pair does for FLAC files. The decoder is
// forward-only (resynchronization scans ahead, never seeks backward), so a
// plain bufio.Reader is sufficient; there is no use here for a seekable
// buffered reader.
func Open(path string) (*Decoder, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	br := bufio.NewReaderSize(f, 32*1024)
	dec, err := NewDecoder(br)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return dec, f, nil
}

// NewDecoder reads and validates the archive header from r and returns a
// Decoder ready to stream frames.
func NewDecoder(r io.Reader) (*Decoder, error) {
	hdr, err := readArchiveHeader(r)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, errs.ErrArchiveHeaderCorrupt
		}
		if err == errs.ErrArchiveHeaderCorrupt {
			return nil, err
		}
		return nil, errutil.Err(err)
	}
	if hdr.Version != FormatVersion {
		return nil, errs.ErrUnsupportedFormat
	}
	if hdr.ChannelCount != 1 {
		return nil, errs.ErrUnsupportedFormat
	}
	if err := hdr.Params.Validate(); err != nil {
		return nil, err
	}

	fc := &frame.Codec{
		Block: &block.Codec{
			BlockLen:   hdr.Params.BlockLen,
			RiceCodes:  hdr.Params.RiceCodes,
			MaxBFPBits: hdr.Params.MaxBFPBits,
			MaxOrder:   hdr.Params.MaxPredictorOrder,
		},
	}
	return &Decoder{
		Header: hdr,
		frames: frame.NewStreamDecoder(r, fc),
	}, nil
}

// DecodedFrame is one successfully decoded frame's mono samples and
// timecode.
type DecodedFrame struct {
	Samples  []int32
	Timecode uint64
}

// NextFrame decodes and returns the next frame. It returns io.EOF once the
// archive is exhausted. A *errs.FrameCorruptError is returned, non-fatal,
// when a frame fails header or payload validation; the next call scans
// forward to the following sync word, so the caller should record the
// event (it is informational, not an instruction to stop) and call
// NextFrame again to continue.
func (d *Decoder) NextFrame() (DecodedFrame, error) {
	decoded, err := d.frames.Next()
	if err != nil {
		return DecodedFrame{}, err
	}
	return DecodedFrame{Samples: decoded.Samples[0], Timecode: decoded.Timecode}, nil
}

// DecodeBuffer reads an entire archive from r and returns its concatenated
// mono samples in timecode order, along with every FrameCorrupt event
// encountered along the way. It is a convenience wrapper around repeated
// NextFrame calls; streaming callers should prefer NewDecoder/NextFrame
// directly (see spec.md's streaming-first design note).
func DecodeBuffer(r io.Reader) (samples []int32, header ArchiveHeader, corrupt []*errs.FrameCorruptError, err error) {
	dec, err := NewDecoder(r)
	if err != nil {
		return nil, ArchiveHeader{}, nil, err
	}
	for {
		f, err := dec.NextFrame()
		if err != nil {
			if err == io.EOF {
				return samples, dec.Header, corrupt, nil
			}
			if fc, ok := err.(*errs.FrameCorruptError); ok {
				corrupt = append(corrupt, fc)
				continue
			}
			return samples, dec.Header, corrupt, err
		}
		samples = append(samples, f.Samples...)
	}
}
