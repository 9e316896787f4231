// Package errs defines the error taxonomy the x3 codec propagates to
// callers: sentinel and typed errors distinguishable with errors.Is/As, so a
// caller can tell a fatal bit-layer or header error from a recoverable
// frame-level one without parsing strings.
package errs

import "fmt"

// Sentinel errors for conditions with no extra payload.
var (
	// ErrUnsupportedFormat is returned when the input is not 16-bit PCM, or
	// an archive advertises a channel count or version this codec does not
	// implement.
	ErrUnsupportedFormat = sentinel("unsupported format")

	// ErrArchiveHeaderCorrupt is returned when the archive magic does not
	// match or the archive header CRC fails at open.
	ErrArchiveHeaderCorrupt = sentinel("archive header corrupt")

	// ErrEncodeOverflow is returned when a residual cannot be represented
	// under any configured Rice parameter and BFP is disabled or would
	// itself overflow.
	ErrEncodeOverflow = sentinel("encode overflow: residual not representable")

	// ErrCorruptBlock is returned when a unary run or selector inside an
	// otherwise syntactically valid frame is impossible; it is promoted to
	// FrameCorrupt by the frame decoder before reaching the caller.
	ErrCorruptBlock = sentinel("corrupt block")
)

type sentinelError string

func sentinel(msg string) error { return sentinelError(msg) }

func (e sentinelError) Error() string { return string(e) }

// BufferFullError is returned by the bit layer when a write would exceed a
// bounded buffer's capacity.
type BufferFullError struct {
	Requested, Capacity int64
}

func (e *BufferFullError) Error() string {
	return fmt.Sprintf("buffer full: requested %d bits, capacity %d bits", e.Requested, e.Capacity)
}

// UnexpectedEOFError is returned by the bit layer when a read runs past the
// end of the available bits.
type UnexpectedEOFError struct {
	Wanted int
}

func (e *UnexpectedEOFError) Error() string {
	return fmt.Sprintf("unexpected EOF: wanted %d more bits", e.Wanted)
}

// FrameCorruptError reports a recoverable frame-level failure: a header or
// payload CRC mismatch, or a CorruptBlock promoted from the block decoder.
// The decoder continues with the next frame; this error is surfaced to the
// caller alongside that continuation, never in place of it.
type FrameCorruptError struct {
	// SkippedBits is the number of bits the decoder scanned past, from where
	// its previous read ended, before finding the sync word of the frame
	// that failed.
	SkippedBits int64
	// Cause is the underlying reason (CRC mismatch, CorruptBlock, ...).
	Cause error
}

func (e *FrameCorruptError) Error() string {
	return fmt.Sprintf("frame corrupt (skipped %d bits): %v", e.SkippedBits, e.Cause)
}

func (e *FrameCorruptError) Unwrap() error { return e.Cause }
