package transport

import "testing"

func encodeFrame(t *testing.T, f frame) []byte {
	t.Helper()
	b := make([]byte, f.encodedLen())
	n, err := f.encode(b)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if n != len(b) {
		t.Fatalf("encode wrote %d bytes, encodedLen reported %d", n, len(b))
	}
	return b
}

func TestStreamFrameRoundTrip(t *testing.T) {
	cases := []*streamFrame{
		newStreamFrame(4, []byte("hello"), 0, false),
		newStreamFrame(4, []byte("hello"), 100, true),
		newStreamFrame(0, nil, 0, true),
	}
	for _, want := range cases {
		b := encodeFrame(t, want)
		got := &streamFrame{}
		n, err := got.decode(b)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if n != len(b) {
			t.Fatalf("decode consumed %d bytes, want %d", n, len(b))
		}
		if got.streamID != want.streamID || got.offset != want.offset || got.fin != want.fin {
			t.Fatalf("decoded %+v, want %+v", got, want)
		}
		if string(got.data) != string(want.data) {
			t.Fatalf("decoded data %q, want %q", got.data, want.data)
		}
	}
}

func TestResetStreamFrameRoundTrip(t *testing.T) {
	want := newResetStreamFrame(7, uint64(StreamCancelled), 12345)
	b := encodeFrame(t, want)
	got := &resetStreamFrame{}
	if _, err := got.decode(b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *got != *want {
		t.Fatalf("decoded %+v, want %+v", got, want)
	}
}

func TestCryptoFrameRoundTrip(t *testing.T) {
	want := newCryptoFrame([]byte("client hello bytes"), 42)
	b := encodeFrame(t, want)
	got := &cryptoFrame{}
	if _, err := got.decode(b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.offset != want.offset || string(got.data) != string(want.data) {
		t.Fatalf("decoded %+v, want %+v", got, want)
	}
}

// TestCryptoFrameDecodeDoesNotAliasInput: the decoder must not retain
// slices into the input buffer, so mutating the wire buffer after decode
// must not change the decoded frame's data.
func TestCryptoFrameDecodeDoesNotAliasInput(t *testing.T) {
	want := newCryptoFrame([]byte("don't alias me"), 0)
	b := encodeFrame(t, want)
	got := &cryptoFrame{}
	if _, err := got.decode(b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i := range b {
		b[i] = 0xFF
	}
	if string(got.data) != "don't alias me" {
		t.Fatalf("decoded data changed after mutating the wire buffer: %q", got.data)
	}
}

func TestGoAwayFrameRoundTrip(t *testing.T) {
	want := newGoAwayFrame(uint64(PeerGoingAway), 3, []byte("shutting down"))
	b := encodeFrame(t, want)
	got := &goAwayFrame{}
	if _, err := got.decode(b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.errorCode != want.errorCode || got.lastGoodStream != want.lastGoodStream {
		t.Fatalf("decoded %+v, want %+v", got, want)
	}
	if string(got.reason) != string(want.reason) {
		t.Fatalf("decoded reason %q, want %q", got.reason, want.reason)
	}
}

func TestAckFrameRoundTripSingleRange(t *testing.T) {
	rs := newRangeSet()
	rs.add(5, 10)
	want := newAckFrame(1234, rs)

	b := encodeFrame(t, want)
	got := &ackFrame{}
	if _, err := got.decode(b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.largestAck != want.largestAck || got.firstAckRange != want.firstAckRange {
		t.Fatalf("decoded %+v, want %+v", got, want)
	}

	decodedRanges := got.toRangeSet().ranges()
	if len(decodedRanges) != 1 || decodedRanges[0].smallest != 5 || decodedRanges[0].largest != 10 {
		t.Fatalf("decoded ranges = %+v, want [5,10]", decodedRanges)
	}
}

func TestAckFrameRoundTripMultipleRanges(t *testing.T) {
	rs := newRangeSet()
	rs.add(1, 2)
	rs.add(5, 5)
	rs.add(8, 10)
	want := newAckFrame(500, rs)

	b := encodeFrame(t, want)
	got := &ackFrame{}
	if _, err := got.decode(b); err != nil {
		t.Fatalf("decode: %v", err)
	}

	gotRanges := got.toRangeSet().ranges()
	wantRanges := rs.ranges()
	if len(gotRanges) != len(wantRanges) {
		t.Fatalf("decoded %d ranges, want %d", len(gotRanges), len(wantRanges))
	}
	for i := range wantRanges {
		if gotRanges[i] != wantRanges[i] {
			t.Fatalf("range %d = %+v, want %+v", i, gotRanges[i], wantRanges[i])
		}
	}
}

func TestPingAndPaddingFrames(t *testing.T) {
	p := &pingFrame{}
	b := encodeFrame(t, p)
	if len(b) != 1 || b[0] != frameTypePing {
		t.Fatalf("ping frame encoding = %v, want [frameTypePing]", b)
	}

	pad := newPaddingFrame(16)
	b = encodeFrame(t, pad)
	if len(b) != 16 {
		t.Fatalf("padding frame encoded length = %d, want 16", len(b))
	}
	for _, c := range b {
		if c != frameTypePadding {
			t.Fatalf("padding frame contains non-zero byte %#x", c)
		}
	}
}

func TestMaxDataFrameRoundTrip(t *testing.T) {
	want := newMaxDataFrame(1 << 20)
	b := encodeFrame(t, want)
	got := &maxDataFrame{}
	if _, err := got.decode(b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.maximumData != want.maximumData {
		t.Fatalf("decoded maximumData = %d, want %d", got.maximumData, want.maximumData)
	}
}
