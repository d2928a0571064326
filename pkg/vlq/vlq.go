// Package vlq implements the variable-length-quantity integer encoding used
// by the trace-string wire format. It is the same scheme source maps use:
// the value's sign lives in the least-significant bit, the magnitude is split
// into 5-bit groups, and each group is rendered as one character of a base64
// alphabet with the sixth bit acting as a continuation flag.
package vlq

import "errors"

// Alphabet is the base64 alphabet VLQ digits are drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// MaxEncodedLen is the worst case number of characters a single value
// occupies: 64 magnitude bits + 1 sign bit split into 5-bit groups.
const MaxEncodedLen = 13

var (
	// ErrBadDigit reports a character outside the VLQ alphabet.
	ErrBadDigit = errors.New("vlq: invalid digit")
	// ErrTruncated reports input that ends mid-value.
	ErrTruncated = errors.New("vlq: truncated value")
	// ErrOverflow reports a value that does not fit in 64 bits.
	ErrOverflow = errors.New("vlq: value overflows 64 bits")
)

const (
	shift        = 5
	groupMask    = 1<<shift - 1 // 0b11111
	continuation = 1 << shift   // 0b100000
)

// reverse maps alphabet bytes back to their 6-bit values, 0xff = invalid.
var reverse = func() [256]byte {
	var r [256]byte
	for i := range r {
		r[i] = 0xff
	}
	for i := 0; i < len(Alphabet); i++ {
		r[Alphabet[i]] = byte(i)
	}
	return r
}()

// Append encodes v and appends the digits to dst, returning the extended
// slice. It never fails; callers that need a bounded buffer pass a slice
// with capacity >= MaxEncodedLen and len 0. Every value in
// (math.MinInt64, math.MaxInt64] round-trips; MinInt64 itself has no
// representable magnitude and is not supported.
func Append(dst []byte, v int64) []byte {
	// Fold the sign into bit zero. The magnitude of MinInt64 does not fit
	// an int64, so negate via uint64 arithmetic.
	var u uint64
	if v < 0 {
		u = (-uint64(v))<<1 | 1
	} else {
		u = uint64(v) << 1
	}
	for {
		group := byte(u & groupMask)
		u >>= shift
		if u != 0 {
			group |= continuation
		}
		dst = append(dst, Alphabet[group])
		if u == 0 {
			return dst
		}
	}
}

// Decode reads one value from the front of src, returning the value and the
// number of bytes consumed.
func Decode(src []byte) (v int64, n int, err error) {
	var u uint64
	var bits uint
	for n < len(src) {
		d := reverse[src[n]]
		if d == 0xff {
			return 0, n, ErrBadDigit
		}
		n++
		if bits >= 64 {
			if d&groupMask != 0 {
				return 0, n, ErrOverflow
			}
		} else if bits+shift > 64 && uint64(d&groupMask)>>(64-bits) != 0 {
			return 0, n, ErrOverflow
		}
		u |= uint64(d&groupMask) << bits
		bits += shift
		if d&continuation == 0 {
			neg := u&1 != 0
			u >>= 1
			if neg {
				return -int64(u), n, nil
			}
			return int64(u), n, nil
		}
	}
	return 0, n, ErrTruncated
}

// SplitAddr splits a 64-bit address into the (high, low) 32-bit halves the
// wire format carries as two consecutive VLQs.
func SplitAddr(addr uint64) (hi, lo int64) {
	return int64(addr >> 32), int64(addr & 0xffffffff)
}

// JoinAddr rebuilds an address from the halves produced by SplitAddr.
func JoinAddr(hi, lo int64) uint64 {
	return uint64(hi)<<32 | uint64(lo)&0xffffffff
}
