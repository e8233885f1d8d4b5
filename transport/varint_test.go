package transport

import "testing"

func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{
		0, 1, 63, 64, 16383, 16384,
		1073741823, 1073741824,
		4611686018427387903,
	}
	for _, v := range values {
		buf := make([]byte, varintLen(v))
		n := putVarint(buf, v)
		if n != len(buf) {
			t.Fatalf("putVarint(%d) wrote %d bytes, want %d", v, n, len(buf))
		}
		var got uint64
		consumed := getVarint(buf, &got)
		if consumed != n {
			t.Fatalf("getVarint(%d) consumed %d bytes, want %d", v, consumed, n)
		}
		if got != v {
			t.Fatalf("round trip %d -> %d", v, got)
		}
	}
}

func TestVarintLenBoundaries(t *testing.T) {
	cases := []struct {
		v    uint64
		want int
	}{
		{0, 1},
		{varint1ByteMax, 1},
		{varint1ByteMax + 1, 2},
		{varint2ByteMax, 2},
		{varint2ByteMax + 1, 4},
		{varint4ByteMax, 4},
		{varint4ByteMax + 1, 8},
		{varint8ByteMax, 8},
	}
	for _, c := range cases {
		if got := varintLen(c.v); got != c.want {
			t.Fatalf("varintLen(%d) = %d, want %d", c.v, got, c.want)
		}
	}
}

func TestGetVarintIncompleteBuffer(t *testing.T) {
	buf := []byte{0x80, 0x00, 0x00} // claims a 4-byte encoding, only 3 present
	var v uint64
	if n := getVarint(buf, &v); n != 0 {
		t.Fatalf("getVarint on truncated buffer returned %d, want 0", n)
	}
	if n := getVarint(nil, &v); n != 0 {
		t.Fatalf("getVarint on empty buffer returned %d, want 0", n)
	}
}

func TestPacketNumberLen(t *testing.T) {
	cases := []struct {
		pn, leastUnacked uint64
		want             int
	}{
		{100, 100, 1},
		{100 + 1<<7 - 1, 100, 1},
		{100 + 1<<7, 100, 2},
		{100 + 1<<15 - 1, 100, 2},
		{100 + 1<<15, 100, 4},
		{100 + 1<<31 - 1, 100, 4},
		{100 + 1<<31, 100, 6},
	}
	for _, c := range cases {
		if got := packetNumberLen(c.pn, c.leastUnacked); got != c.want {
			t.Fatalf("packetNumberLen(%d, %d) = %d, want %d", c.pn, c.leastUnacked, got, c.want)
		}
	}
}

// TestPacketNumberReconstruction: the reconstructed value equals the true
// packet number iff it lies within 2^(k-1) of the receiver's next-expected
// number.
func TestPacketNumberReconstruction(t *testing.T) {
	for _, length := range []int{1, 2} {
		bits := uint(length * 8)
		win := uint64(1) << bits
		for _, expectedNext := range []uint64{0, 1, win / 2, win, win * 3, 1 << 20} {
			for delta := -int64(win/2) + 1; delta < int64(win/2); delta++ {
				n := int64(expectedNext) + delta
				if n < 0 {
					continue
				}
				truncated := uint64(n) & (win - 1)
				got := decodePacketNumber(expectedNext, truncated, length)
				if got != uint64(n) {
					t.Fatalf("length=%d expectedNext=%d delta=%d: decodePacketNumber = %d, want %d",
						length, expectedNext, delta, got, n)
				}
			}
		}
	}

	// For wider truncations, sample the window edges instead of scanning
	// every delta: the property is the same, only the window is bigger.
	for _, length := range []int{4, 6} {
		bits := uint(length * 8)
		win := uint64(1) << bits
		half := int64(win / 2)
		for _, expectedNext := range []uint64{0, win, 1 << 40} {
			for _, delta := range []int64{0, 1, -1, half - 1, -(half - 1), half / 2, -(half / 2)} {
				n := int64(expectedNext) + delta
				if n < 0 {
					continue
				}
				truncated := uint64(n) & (win - 1)
				got := decodePacketNumber(expectedNext, truncated, length)
				if got != uint64(n) {
					t.Fatalf("length=%d expectedNext=%d delta=%d: decodePacketNumber = %d, want %d",
						length, expectedNext, delta, got, n)
				}
			}
		}
	}
}

func TestUint24RoundTrip(t *testing.T) {
	var buf [3]byte
	v := uint64(1<<24 - 1)
	putUint24(buf[:], v)
	if got := getUint24(buf[:]); got != v {
		t.Fatalf("uint24 round trip = %d, want %d", got, v)
	}
}

func TestUint48RoundTrip(t *testing.T) {
	var buf [6]byte
	v := uint64(1<<48 - 1)
	putUint48(buf[:], v)
	if got := getUint48(buf[:]); got != v {
		t.Fatalf("uint48 round trip = %d, want %d", got, v)
	}
}
