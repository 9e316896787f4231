// Package predictor implements the fixed-order integer linear predictors
// used by the block codec: order 0 (no prediction), order 1 (previous
// sample), order 2 (linear extrapolation), and an optional order 3, plus
// their residual/reconstruction inverses.
//
// Grounded on the teacher's fixedCoeffs table and lpcDecode in
// frame/subframe.go (FLAC's fixed predictors, from which the spec's orders
// 0-3 descend) and the residual computation in encode_subframe.go's
// getLPCResiduals, generalized here to operate directly on a short
// carried-memory window instead of a whole warm-up prefix, since the x3
// predictor's memory persists across blocks within a frame rather than
// resetting at each subframe.
package predictor

import "math"

// MaxOrder is the highest predictor order this package implements.
const MaxOrder = 3

// Coeffs are the fixed integer polynomial coefficients per order, matching
// the FLAC fixed-predictor family:
//
//	order 0: 0
//	order 1: s[i-1]
//	order 2: 2*s[i-1] - s[i-2]
//	order 3: 3*s[i-1] - 3*s[i-2] + s[i-3]
var Coeffs = [MaxOrder + 1][]int64{
	0: {},
	1: {1},
	2: {2, -1},
	3: {3, -3, 1},
}

// Memory holds the trailing decoded samples needed to predict the next
// value, most-recent first (taps[0] == s[i-1]). It carries across blocks
// within a frame and is reset to zero at frame boundaries.
type Memory struct {
	taps [MaxOrder]int64
}

// Reset zeroes the predictor memory, as required at the first block of a
// frame.
func (m *Memory) Reset() {
	for i := range m.taps {
		m.taps[i] = 0
	}
}

// Push records a newly decoded sample, shifting older taps down.
func (m *Memory) Push(sample int32) {
	copy(m.taps[1:], m.taps[:len(m.taps)-1])
	m.taps[0] = int64(sample)
}

// predict returns the order-th predictor's estimate given the current
// memory, without mutating it.
func predict(order uint8, m *Memory) int64 {
	var sum int64
	for j, c := range Coeffs[order] {
		sum += c * m.taps[j]
	}
	return sum
}

// overflows32 reports whether v cannot be represented in a signed 32-bit
// integer.
func overflows32(v int64) bool {
	return v < math.MinInt32 || v > math.MaxInt32
}

// Residuals computes the order-th predictor's residuals for samples, a
// window of block_len samples from one channel, starting from mem. mem is
// taken by value, so the caller's copy is left unchanged; to prime the next
// block, push this block's samples into it (or use Reconstruct's returned
// memory). It returns (nil, false) if any residual would
// overflow signed 32-bit, in which case the caller should demote to a lower
// order.
func Residuals(order uint8, samples []int32, mem Memory) (residuals []int32, ok bool) {
	residuals = make([]int32, len(samples))
	for i, s := range samples {
		pred := predict(order, &mem)
		res := int64(s) - pred
		if overflows32(res) {
			return nil, false
		}
		residuals[i] = int32(res)
		mem.Push(s)
	}
	return residuals, true
}

// Reconstruct inverts Residuals: given the order-th predictor's residuals
// and the memory state at the start of the block, it returns the decoded
// samples and the memory state updated to the block's trailing samples.
func Reconstruct(order uint8, residuals []int32, mem Memory) (samples []int32, updated Memory) {
	samples = make([]int32, len(residuals))
	for i, res := range residuals {
		pred := predict(order, &mem)
		s := int32(int64(res) + pred)
		samples[i] = s
		mem.Push(s)
	}
	return samples, mem
}

// BestOrder evaluates every order from maxOrder down to 0 and returns the
// residuals of the highest order that does not overflow signed 32-bit,
// demoting as spec'd in §4.3. It does not perform Rice-length comparison;
// that joint (order, k) selection is the block codec's responsibility.
func BestOrder(maxOrder uint8, samples []int32, mem Memory) (order uint8, residuals []int32) {
	for o := maxOrder; ; o-- {
		if res, ok := Residuals(o, samples, mem); ok {
			return o, res
		}
		if o == 0 {
			// Order 0 (residual == sample) can only overflow if a sample
			// itself does not fit in int32, which cannot happen for 16-bit
			// input; this is unreachable in practice but terminates the
			// loop defensively.
			return 0, samples
		}
	}
}
