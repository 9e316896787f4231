// Package frame implements the self-resynchronizing frame codec: a
// byte-aligned header (sync word, channel/block counts, payload length,
// valid-sample count, timecode, header CRC), a payload of per-channel block
// codewords, and a payload CRC footer.
//
// Grounded on the teacher's enc_frame.go (encodeFrame/encodeFrameHeader),
// whose per-frame encode loop Encode follows (here the header and payload
// are buffered and then checksummed with crc16.Checksum), and the teacher's
// frame NewFrame/NewHeader, whose read-then-verify-CRC shape
// ParseHeaderBytes/DecodeAt descend from —
// generalized from FLAC's variable-width bit-packed header into the spec's
// fixed byte-aligned one, and from FLAC's single CRC-16 frame footer into
// two CRC-16-CCITT checks (header and payload) with non-fatal
// resynchronization on failure, which FLAC itself does not support.
package frame

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/mewkiz/pkg/errutil"

	"github.com/psiphi75/x3go/block"
	"github.com/psiphi75/x3go/errs"
	"github.com/psiphi75/x3go/internal/bits"
	"github.com/psiphi75/x3go/internal/crcutil/crc16"
	"github.com/psiphi75/x3go/predictor"
)

// SyncWord is the fixed 16-bit pattern that opens every frame.
const SyncWord = 0x7FFF

// HeaderSize is the byte-aligned frame header's fixed length in bytes:
// sync(2) + channels(1) + blockCount(1) + payloadBytes(2) +
// validSamples(2) + timecode(6) + crc(2).
const HeaderSize = 2 + 1 + 1 + 2 + 2 + 6 + 2

// Header is the fixed byte-aligned frame header described in spec.md §4.5.
type Header struct {
	Channels     uint8
	BlockCount   uint8
	PayloadBytes uint16
	// ValidSamples is the number of samples per channel, starting from the
	// first, that are real rather than zero-padding added to fill out the
	// frame's BlockCount*blockLen capacity. Every frame but the last in an
	// archive has ValidSamples == BlockCount*blockLen.
	ValidSamples uint16
	Timecode     uint64 // 48-bit monotonically increasing sample offset
}

// Codec encodes and decodes frames for a fixed block configuration. One
// Codec instance is shared across an archive; predictor memory for each
// channel is reset at the start of every frame and threaded through the
// frame's blocks.
type Codec struct {
	Block *block.Codec
}

// WriteHeader serializes hdr to w, including its trailing CRC-16.
func WriteHeader(w io.Writer, hdr Header) error {
	buf := &bytes.Buffer{}
	buf.Grow(HeaderSize - 2)
	if err := binary.Write(buf, binary.BigEndian, uint16(SyncWord)); err != nil {
		return errutil.Err(err)
	}
	buf.WriteByte(hdr.Channels)
	buf.WriteByte(hdr.BlockCount)
	if err := binary.Write(buf, binary.BigEndian, hdr.PayloadBytes); err != nil {
		return errutil.Err(err)
	}
	if err := binary.Write(buf, binary.BigEndian, hdr.ValidSamples); err != nil {
		return errutil.Err(err)
	}
	if err := writeUint48(buf, hdr.Timecode); err != nil {
		return errutil.Err(err)
	}

	crc := crc16.Checksum(buf.Bytes())
	if _, err := w.Write(buf.Bytes()); err != nil {
		return errutil.Err(err)
	}
	if err := binary.Write(w, binary.BigEndian, crc); err != nil {
		return errutil.Err(err)
	}
	return nil
}

// ParseHeaderBytes validates and decodes a HeaderSize-byte raw frame header,
// including its sync word and CRC-16. raw[0:2] is expected to already equal
// SyncWord; callers that located the sync word via bit-level scanning (see
// StreamDecoder) pass it through rather than re-reading it.
func ParseHeaderBytes(raw []byte) (Header, error) {
	if len(raw) != HeaderSize {
		return Header{}, errs.ErrCorruptBlock
	}
	if binary.BigEndian.Uint16(raw[0:2]) != SyncWord {
		return Header{}, errs.ErrCorruptBlock
	}
	want := binary.BigEndian.Uint16(raw[HeaderSize-2:])
	got := crc16.Checksum(raw[:HeaderSize-2])
	if got != want {
		return Header{}, errs.ErrCorruptBlock
	}
	hdr := Header{
		Channels:     raw[2],
		BlockCount:   raw[3],
		PayloadBytes: binary.BigEndian.Uint16(raw[4:6]),
		ValidSamples: binary.BigEndian.Uint16(raw[6:8]),
		Timecode:     readUint48(raw[8:14]),
	}
	return hdr, nil
}

// Encode writes one frame containing blockCount blocks of blockLen samples
// per channel, starting at the given timecode. samples holds one slice per
// channel, each of length blockCount*blockLen; validSamples, 1..len(samples[ch]),
// records how many samples per channel (from the first) are real rather
// than zero-padding, so the final, possibly short, frame of a recording
// round-trips to its original length rather than a full-capacity one.
// Predictor memory is reset at the start of the frame and carried
// block-to-block within it, per channel.
func (c *Codec) Encode(w io.Writer, samples [][]int32, blockCount int, timecode uint64, validSamples int) error {
	nchannels := len(samples)
	payload := &bytes.Buffer{}
	blockLen := c.Block.BlockLen

	if validSamples <= 0 || validSamples > blockCount*blockLen {
		return errutil.Newf("frame: validSamples %d out of range 1..%d", validSamples, blockCount*blockLen)
	}
	for ch := 0; ch < nchannels; ch++ {
		if len(samples[ch]) != blockCount*blockLen {
			return errutil.Newf("frame: channel %d: expected %d samples, got %d", ch, blockCount*blockLen, len(samples[ch]))
		}
		bw := bits.NewWriter()
		var mem predictor.Memory
		for b := 0; b < blockCount; b++ {
			start := b * blockLen
			blk := samples[ch][start : start+blockLen]
			var err error
			mem, err = c.Block.Encode(bw, blk, mem)
			if err != nil {
				return errutil.Err(err)
			}
		}
		if _, err := bw.ByteAlign(); err != nil {
			return errutil.Err(err)
		}
		chanBytes, err := bw.Bytes()
		if err != nil {
			return errutil.Err(err)
		}
		payload.Write(chanBytes)
	}

	payloadBytes := payload.Bytes()
	hdr := Header{
		Channels:     uint8(nchannels),
		BlockCount:   uint8(blockCount),
		PayloadBytes: uint16(len(payloadBytes)),
		ValidSamples: uint16(validSamples),
		Timecode:     timecode,
	}
	if err := WriteHeader(w, hdr); err != nil {
		return errutil.Err(err)
	}
	if _, err := w.Write(payloadBytes); err != nil {
		return errutil.Err(err)
	}
	crc := crc16.Checksum(payloadBytes)
	if err := binary.Write(w, binary.BigEndian, crc); err != nil {
		return errutil.Err(err)
	}
	return nil
}

// Decoded is one successfully decoded frame's samples and timecode.
type Decoded struct {
	Samples  [][]int32
	Timecode uint64
}

// DecodeAt decodes one frame from the payload bytes already read alongside
// hdr, validating the payload CRC. It returns errs.ErrCorruptBlock if the
// payload CRC mismatches, a block header is invalid, or the payload is
// short relative to hdr.PayloadBytes.
func DecodeAt(c *Codec, hdr Header, payload []byte, payloadCRC uint16) (Decoded, error) {
	if len(payload) != int(hdr.PayloadBytes) {
		return Decoded{}, errs.ErrCorruptBlock
	}
	if crc16.Checksum(payload) != payloadCRC {
		return Decoded{}, errs.ErrCorruptBlock
	}

	blockLen := c.Block.BlockLen
	capacity := int(hdr.BlockCount) * blockLen
	if int(hdr.ValidSamples) > capacity || hdr.ValidSamples == 0 {
		return Decoded{}, errs.ErrCorruptBlock
	}
	samples := make([][]int32, hdr.Channels)
	br := bits.NewReader(bytes.NewReader(payload))
	for ch := 0; ch < int(hdr.Channels); ch++ {
		chanSamples := make([]int32, 0, capacity)
		var mem predictor.Memory
		for b := 0; b < int(hdr.BlockCount); b++ {
			got, updated, err := c.Block.Decode(br, mem)
			if err != nil {
				return Decoded{}, err
			}
			mem = updated
			chanSamples = append(chanSamples, got...)
		}
		br.ByteAlign()
		// Drop trailing zero-padding the encoder added to fill out the
		// frame's block capacity; only the first ValidSamples are real.
		samples[ch] = chanSamples[:hdr.ValidSamples]
	}
	return Decoded{Samples: samples, Timecode: hdr.Timecode}, nil
}

func writeUint48(w io.Writer, v uint64) error {
	var b [6]byte
	b[0] = byte(v >> 40)
	b[1] = byte(v >> 32)
	b[2] = byte(v >> 24)
	b[3] = byte(v >> 16)
	b[4] = byte(v >> 8)
	b[5] = byte(v)
	_, err := w.Write(b[:])
	return err
}

func readUint48(b []byte) uint64 {
	return uint64(b[0])<<40 | uint64(b[1])<<32 | uint64(b[2])<<24 |
		uint64(b[3])<<16 | uint64(b[4])<<8 | uint64(b[5])
}

// StreamDecoder implements the decoder resynchronization state machine of
// spec.md §4.5: SEEK_SYNC -> READ_HEADER -> VALIDATE_HEADER -> READ_PAYLOAD
// -> VALIDATE_PAYLOAD -> EMIT_SAMPLES -> SEEK_SYNC. It reads the archive
// through a bit cursor (rather than a byte cursor) so that resynchronization
// after corruption can land on a sync word at any bit offset, not only a
// byte boundary.
type StreamDecoder struct {
	r *bits.Reader
	c *Codec
}

// NewStreamDecoder returns a StreamDecoder reading frames from r under c's
// block configuration.
func NewStreamDecoder(r io.Reader, c *Codec) *StreamDecoder {
	return &StreamDecoder{r: bits.NewReader(r), c: c}
}

// Next decodes and returns the next frame. It returns io.EOF once the
// stream is exhausted with no further sync word found (the END_OF_STREAM
// terminal state). A *errs.FrameCorruptError is returned, non-fatal, when a
// header or payload fails validation; the cursor is left where that read
// ended, and the next call scans forward from there to the following sync
// word (returning io.EOF if there is none), so the caller should record the
// event and call Next again to continue.
func (d *StreamDecoder) Next() (Decoded, error) {
	offset, err := d.r.SkipToSync(SyncWord, 16)
	if err != nil {
		if err == bits.ErrNotFound {
			return Decoded{}, io.EOF
		}
		return Decoded{}, err
	}

	raw := make([]byte, HeaderSize)
	binary.BigEndian.PutUint16(raw[0:2], SyncWord)
	if err := d.readAlignedBytes(raw[2:]); err != nil {
		return Decoded{}, err
	}
	hdr, err := ParseHeaderBytes(raw)
	if err != nil {
		return Decoded{}, &errs.FrameCorruptError{SkippedBits: offset, Cause: err}
	}

	payload := make([]byte, hdr.PayloadBytes)
	if err := d.readAlignedBytes(payload); err != nil {
		return Decoded{}, err
	}
	crcBits, err := d.r.ReadBits(16)
	if err != nil {
		return Decoded{}, err
	}

	decoded, err := DecodeAt(d.c, hdr, payload, uint16(crcBits))
	if err != nil {
		return Decoded{}, &errs.FrameCorruptError{SkippedBits: offset, Cause: err}
	}
	return decoded, nil
}

// readAlignedBytes fills dst one byte (8 bits) at a time from the bit
// cursor. Every field this is used for is byte-aligned relative to the start
// of its frame; because it reads 8 bits at a time rather than whole bytes of
// the underlying stream, it also reads correctly when SkipToSync found the
// frame at a bit offset that is not a multiple of 8.
func (d *StreamDecoder) readAlignedBytes(dst []byte) error {
	for i := range dst {
		v, err := d.r.ReadBits(8)
		if err != nil {
			return err
		}
		dst[i] = byte(v)
	}
	return nil
}
