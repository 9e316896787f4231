// Package bits provides the big-endian, MSB-first bit cursor used by the
// block and frame codecs: a byte-backed writer/reader that can append or
// consume an arbitrary bit count, report its position, and resynchronise on
// a literal bit pattern.
//
// It wraps github.com/icza/bitio, which already implements the MSB-first
// bit-packing primitives; this package adds the unary code, overflow-capped
// unary decoding, byte-alignment accounting, and sync-word scanning that the
// codec layers need on top of it.
package bits

import (
	"bytes"
	"io"

	"github.com/icza/bitio"
	"github.com/mewkiz/pkg/errutil"

	"github.com/psiphi75/x3go/errs"
)

// ErrUnaryOverflow is returned by Reader.ReadUnary when the unary prefix
// exceeds the configured maximum, guarding against adversarial input hangs.
var ErrUnaryOverflow = errutil.New("bits: unary code exceeds maximum run length")

// ErrNotFound is returned by Reader.SkipToSync when the pattern does not
// occur before the underlying reader is exhausted.
var ErrNotFound = errutil.New("bits: sync pattern not found")

// Writer appends bits MSB-first to an in-memory buffer. The zero value is not
// usable; create one with NewWriter.
type Writer struct {
	buf *bytes.Buffer
	bw  *bitio.Writer
	pos int64 // bits written so far

	// maxBits caps the buffer size in bits; 0 means unbounded.
	maxBits int64
}

// NewWriter returns a Writer that appends to an internal, unbounded buffer.
func NewWriter() *Writer {
	buf := new(bytes.Buffer)
	return &Writer{buf: buf, bw: bitio.NewWriter(buf)}
}

// NewBoundedWriter returns a Writer that fails with *errs.BufferFullError
// once more than maxBits bits have been requested.
func NewBoundedWriter(maxBits int64) *Writer {
	w := NewWriter()
	w.maxBits = maxBits
	return w
}

// WriteBits writes the nBits lowest bits of value, 1 <= nBits <= 32,
// zero-extended, MSB-first.
func (w *Writer) WriteBits(value uint32, nBits uint8) error {
	if nBits < 1 || nBits > 32 {
		return errutil.Newf("bits: invalid bit width %d", nBits)
	}
	if w.maxBits != 0 && w.pos+int64(nBits) > w.maxBits {
		return &errs.BufferFullError{Requested: w.pos + int64(nBits), Capacity: w.maxBits}
	}
	if err := w.bw.WriteBits(uint64(value), nBits); err != nil {
		return errutil.Err(err)
	}
	w.pos += int64(nBits)
	return nil
}

// WriteUnary writes k one-bits followed by a single zero-bit, the unary
// prefix used by Rice coding.
func (w *Writer) WriteUnary(k uint32) error {
	if w.maxBits != 0 && w.pos+int64(k)+1 > w.maxBits {
		return &errs.BufferFullError{Requested: w.pos + int64(k) + 1, Capacity: w.maxBits}
	}
	for ; k >= 32; k -= 32 {
		if err := w.bw.WriteBits(0xFFFFFFFF, 32); err != nil {
			return errutil.Err(err)
		}
		w.pos += 32
	}
	// After the loop k <= 31, so the k one-bits and the terminating zero-bit
	// fit in a single write of k+1 <= 32 bits.
	ones := uint64(1<<k) - 1
	if err := w.bw.WriteBits(ones<<1, uint8(k+1)); err != nil {
		return errutil.Err(err)
	}
	w.pos += int64(k) + 1
	return nil
}

// ByteAlign pads zero bits so the next write starts on a byte boundary, and
// reports how many bits were padded.
func (w *Writer) ByteAlign() (padded uint8, err error) {
	padded, err = w.bw.Align()
	if err != nil {
		return 0, errutil.Err(err)
	}
	w.pos += int64(padded)
	return padded, nil
}

// PositionBits returns the number of bits written so far.
func (w *Writer) PositionBits() int64 { return w.pos }

// PositionBytes returns the number of whole bytes written so far, rounding
// down any partially-written trailing byte.
func (w *Writer) PositionBytes() int64 { return w.pos / 8 }

// Bytes flushes any cached bits (zero-padding to a byte boundary) and
// returns the accumulated buffer. The writer must not be used afterwards.
func (w *Writer) Bytes() ([]byte, error) {
	if _, err := w.bw.Align(); err != nil {
		return nil, errutil.Err(err)
	}
	return w.buf.Bytes(), nil
}

// Reader consumes bits MSB-first from an io.Reader.
type Reader struct {
	br  *bitio.Reader
	pos int64 // bits consumed so far

	// pending holds bits read ahead of the logical cursor for PeekBits, in
	// its low pendingN bits; the highest of those is the next bit to read.
	pending  uint64
	pendingN uint8

	// maxUnary bounds ReadUnary's run length; 0 means unbounded (only safe
	// for trusted input).
	maxUnary uint32
}

// NewReader returns a Reader consuming from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bitio.NewReader(r)}
}

// SetMaxUnary sets the maximum unary run length ReadUnary will tolerate
// before returning ErrUnaryOverflow. Pass 0 to disable the check.
func (r *Reader) SetMaxUnary(max uint32) { r.maxUnary = max }

// fill ensures at least n pending bits are buffered, reading from the
// underlying bit reader as needed.
func (r *Reader) fill(n uint8) error {
	for r.pendingN < n {
		want := n - r.pendingN
		u, err := r.br.ReadBits(want)
		if err != nil {
			return err
		}
		r.pending = r.pending<<want | u
		r.pendingN += want
	}
	return nil
}

// take removes and returns the top n bits of the pending queue. Caller must
// have ensured pendingN >= n via fill.
func (r *Reader) take(n uint8) uint32 {
	shift := r.pendingN - n
	v := uint32(r.pending >> shift)
	r.pending &= (1 << shift) - 1
	r.pendingN = shift
	return v
}

// ReadBits reads nBits, 1 <= nBits <= 32, MSB-first, and returns them
// zero-extended.
func (r *Reader) ReadBits(nBits uint8) (uint32, error) {
	if nBits < 1 || nBits > 32 {
		return 0, errutil.Newf("bits: invalid bit width %d", nBits)
	}
	if err := r.fill(nBits); err != nil {
		return 0, wrapFillErr(err, nBits, r.pendingN)
	}
	v := r.take(nBits)
	r.pos += int64(nBits)
	return v, nil
}

// PeekBits returns the next nBits without advancing the cursor.
func (r *Reader) PeekBits(nBits uint8) (uint32, error) {
	if nBits < 1 || nBits > 32 {
		return 0, errutil.Newf("bits: invalid bit width %d", nBits)
	}
	if err := r.fill(nBits); err != nil {
		return 0, wrapFillErr(err, nBits, r.pendingN)
	}
	shift := r.pendingN - nBits
	return uint32(r.pending >> shift), nil
}

// wrapFillErr turns a fill() failure into *errs.UnexpectedEOFError: by the
// time ReadBits or PeekBits calls fill, the caller has committed to wanting
// nBits more bits, so running out partway through is unexpected rather than
// a clean end of stream (contrast SkipToSync, which treats running out as a
// normal "no sync word left to find" outcome and does not use this helper).
func wrapFillErr(err error, wanted, have uint8) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return &errs.UnexpectedEOFError{Wanted: int(wanted - have)}
	}
	return errutil.Err(err)
}

// ReadUnary decodes a unary-coded value: the number of leading one-bits
// before a terminating zero-bit. It fails with ErrUnaryOverflow if the run
// exceeds the configured maximum (see SetMaxUnary), to bound decode time on
// adversarial input.
func (r *Reader) ReadUnary() (uint32, error) {
	var k uint32
	for {
		bit, err := r.ReadBits(1)
		if err != nil {
			return 0, errutil.Err(err)
		}
		if bit == 0 {
			return k, nil
		}
		k++
		if r.maxUnary != 0 && k > r.maxUnary {
			return 0, ErrUnaryOverflow
		}
	}
}

// ByteAlign discards any partially-consumed byte, so the next read starts on
// a byte boundary, and reports how many bits were skipped. This must clear
// both this package's own peek-ahead queue and the underlying bitio.Reader's
// sub-byte cache: fill() can leave bits cached inside bitio itself (whenever
// it pulled a whole byte to satisfy a request for fewer than 8 bits), and
// those are invisible to pendingN.
func (r *Reader) ByteAlign() uint8 {
	skipped := r.pendingN
	r.pending, r.pendingN = 0, 0
	skipped += r.br.Align()
	r.pos += int64(skipped)
	return skipped
}

// PositionBits returns the number of bits consumed so far.
func (r *Reader) PositionBits() int64 { return r.pos }

// PositionBytes returns the number of whole bytes consumed so far.
func (r *Reader) PositionBytes() int64 { return r.pos / 8 }

// SkipToSync scans bit-by-bit for the literal nBits-wide pattern, starting
// at the current cursor. On success it returns the bit offset (relative to
// the start of the scan) at which the pattern begins and leaves the cursor
// immediately after the matched pattern. On failure it returns ErrNotFound
// once the underlying reader is exhausted.
func (r *Reader) SkipToSync(pattern uint32, nBits uint8) (offset int64, err error) {
	if err := r.fill(nBits); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, ErrNotFound
		}
		return 0, errutil.Err(err)
	}
	mask := uint32(1)<<nBits - 1
	pattern &= mask
	var scanned int64
	for {
		if uint32(r.pending>>(r.pendingN-nBits))&mask == pattern {
			r.take(nBits)
			r.pos += int64(nBits)
			return scanned, nil
		}
		// Advance by one bit and refill.
		r.take(1)
		r.pos++
		scanned++
		if err := r.fill(nBits); err != nil {
			if err == io.EOF {
				return 0, ErrNotFound
			}
			return 0, errutil.Err(err)
		}
	}
}
