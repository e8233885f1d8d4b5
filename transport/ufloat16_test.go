package transport

import "testing"

func TestUfloat16SmallValuesExact(t *testing.T) {
	for _, v := range []uint64{0, 1, 100, 2047} {
		enc := encodeUfloat16(v)
		if got := decodeUfloat16(enc); got != v {
			t.Fatalf("encodeUfloat16(%d) round trip = %d, want exact", v, got)
		}
	}
}

// TestUfloat16PrecisionAcrossRange checks the encoding keeps ~0.5%
// precision across 0-16s (in microseconds, 0-16_000_000).
func TestUfloat16PrecisionAcrossRange(t *testing.T) {
	for _, v := range []uint64{0, 1, 2047, 2048, 100000, 1000000, 16000000} {
		enc := encodeUfloat16(v)
		got := decodeUfloat16(enc)
		if v < 1<<ufloat16MantissaBits {
			if got != v {
				t.Fatalf("encodeUfloat16(%d) = %d, want exact below mantissa range", v, got)
			}
			continue
		}
		diff := int64(got) - int64(v)
		if diff < 0 {
			diff = -diff
		}
		allowed := v/200 + 1 // ~0.5%
		if uint64(diff) > allowed {
			t.Fatalf("encodeUfloat16(%d) decoded to %d, off by %d > allowed %d", v, got, diff, allowed)
		}
	}
}

func TestUfloat16Monotonic(t *testing.T) {
	prev := uint16(0)
	for _, v := range []uint64{0, 1, 1000, 100000, 16000000} {
		enc := encodeUfloat16(v)
		if enc < prev {
			t.Fatalf("encodeUfloat16 not monotonic at %d: got %d after %d", v, enc, prev)
		}
		prev = enc
	}
}

func TestUfloat16SaturatesAtMax(t *testing.T) {
	if got := encodeUfloat16(ufloat16MaxValue + 1000); got != 0xFFFF {
		t.Fatalf("encodeUfloat16 above max = %#x, want 0xFFFF", got)
	}
}
