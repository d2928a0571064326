package vlq

import (
	"math"
	"testing"
)

func TestKnownEncodings(t *testing.T) {
	// Spot checks against the source-map encoding the format borrows.
	tests := []struct {
		value int64
		want  string
	}{
		{0, "A"},
		{1, "C"},
		{-1, "D"},
		{2, "E"},
		{15, "e"},
		{16, "gB"},
		{-16, "hB"},
		{1000, "w+B"},
	}

	for _, tt := range tests {
		got := string(Append(nil, tt.value))
		if got != tt.want {
			t.Errorf("Append(%d) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	values := []int64{
		0, 1, -1, 2, -2, 31, 32, -32, 1 << 16, -(1 << 16),
		math.MaxInt32, math.MinInt32, int64(math.MaxUint32),
		math.MaxInt64, math.MinInt64 + 1,
	}
	// Dense sweep around zero plus coarse sweep across the int32 range.
	for v := int64(-4096); v <= 4096; v++ {
		values = append(values, v)
	}
	for v := int64(math.MinInt32); v <= math.MaxInt32; v += 104729 {
		values = append(values, v)
	}

	for _, v := range values {
		enc := Append(nil, v)
		got, n, err := Decode(enc)
		if err != nil {
			t.Fatalf("Decode(Append(%d)) error: %v", v, err)
		}
		if n != len(enc) {
			t.Errorf("Decode(Append(%d)) consumed %d of %d bytes", v, n, len(enc))
		}
		if got != v {
			t.Errorf("round trip %d = %d", v, got)
		}
	}
}

func TestDecodeConsumesOneValue(t *testing.T) {
	buf := Append(nil, 42)
	split := len(buf)
	buf = Append(buf, -7)

	v1, n1, err := Decode(buf)
	if err != nil || v1 != 42 || n1 != split {
		t.Fatalf("first Decode = (%d, %d, %v), want (42, %d, nil)", v1, n1, err, split)
	}
	v2, n2, err := Decode(buf[n1:])
	if err != nil || v2 != -7 || n1+n2 != len(buf) {
		t.Fatalf("second Decode = (%d, %d, %v)", v2, n2, err)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		err  error
	}{
		{"empty", "", ErrTruncated},
		{"dangling continuation", "g", ErrTruncated},
		{"bad digit", "!", ErrBadDigit},
		{"bad digit mid value", "g!", ErrBadDigit},
		{"overflow", "//////////////A", ErrOverflow},
	}

	for _, tt := range tests {
		if _, _, err := Decode([]byte(tt.in)); err != tt.err {
			t.Errorf("%s: Decode(%q) error = %v, want %v", tt.name, tt.in, err, tt.err)
		}
	}
}

func TestAppendBounded(t *testing.T) {
	for _, v := range []int64{0, math.MaxInt64, math.MinInt64 + 1} {
		if n := len(Append(nil, v)); n > MaxEncodedLen {
			t.Errorf("Append(%d) produced %d digits, cap is %d", v, n, MaxEncodedLen)
		}
	}
}

func TestSplitJoinAddr(t *testing.T) {
	addrs := []uint64{0, 0x1000, 0xdeadbeef, 0x7fff_ffff_ffff, math.MaxUint64}
	for _, a := range addrs {
		hi, lo := SplitAddr(a)
		if hi < 0 || lo < 0 {
			t.Errorf("SplitAddr(%#x) produced negative half (%d, %d)", a, hi, lo)
		}
		if got := JoinAddr(hi, lo); got != a {
			t.Errorf("JoinAddr(SplitAddr(%#x)) = %#x", a, got)
		}
	}
}
