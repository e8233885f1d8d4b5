package transport

import (
	"testing"
	"time"
)

// newSendTestConn is newTestConn plus the recovery state sendFrames needs.
func newSendTestConn(t *testing.T) *Conn {
	t.Helper()
	s := newTestConn(10)
	s.handshakeConfirmed = true // suppress HANDSHAKE_DONE
	s.recovery.init(time.Unix(0, 0), defaultRecoveryConfig(), defaultCongestionConfig(), 25*time.Millisecond)
	return s
}

func framesOf[T frame](op *outgoingPacket) []T {
	var out []T
	for _, f := range op.frames {
		if v, ok := f.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// TestStreamDataBlockedSentOncePerLimit drives the sender's blocked
// signalling through sendFrames: a stream with buffered data but no send
// window emits STREAM_DATA_BLOCKED exactly once, and data flows (with no
// further BLOCKED) once the window advances.
func TestStreamDataBlockedSentOncePerLimit(t *testing.T) {
	s := newSendTestConn(t)
	now := time.Unix(1, 0)
	st, err := s.getOrCreateStream(4, false)
	if err != nil {
		t.Fatalf("getOrCreateStream: %v", err)
	}
	if _, err := st.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	op := newOutgoingPacket(1, now)
	s.sendFrames(op, packetSpaceApplication, 1200, now)
	if got := framesOf[*streamFrame](op); len(got) != 0 {
		t.Fatalf("stream frames with a zero send window = %d, want 0", len(got))
	}
	blocked := framesOf[*streamDataBlockedFrame](op)
	if len(blocked) != 1 || blocked[0].streamID != 4 {
		t.Fatalf("stream_data_blocked frames = %v, want exactly one for stream 4", blocked)
	}

	op = newOutgoingPacket(2, now)
	s.sendFrames(op, packetSpaceApplication, 1200, now)
	if got := framesOf[*streamDataBlockedFrame](op); len(got) != 0 {
		t.Fatalf("stream_data_blocked repeated for an unchanged limit")
	}

	st.flow.setMaxSend(100)
	op = newOutgoingPacket(3, now)
	s.sendFrames(op, packetSpaceApplication, 1200, now)
	streams := framesOf[*streamFrame](op)
	if len(streams) != 1 || string(streams[0].data) != "hello" {
		t.Fatalf("stream frames after the window advanced = %v, want the buffered data", streams)
	}
	if got := framesOf[*streamDataBlockedFrame](op); len(got) != 0 {
		t.Fatalf("stream_data_blocked sent although no longer gated")
	}
	if st.flow.sent != 5 {
		t.Fatalf("stream bytes sent = %d, want 5", st.flow.sent)
	}
}

// TestFinOnlyStreamFrameSent covers closing a stream after all data went
// out: the final STREAM frame carries FIN with no bytes, is resent until
// acknowledged, and stops once the ack lands.
func TestFinOnlyStreamFrameSent(t *testing.T) {
	s := newSendTestConn(t)
	now := time.Unix(1, 0)
	st, err := s.getOrCreateStream(4, false)
	if err != nil {
		t.Fatalf("getOrCreateStream: %v", err)
	}
	st.flow.setMaxSend(100)
	st.Close()

	op := newOutgoingPacket(1, now)
	s.sendFrames(op, packetSpaceApplication, 1200, now)
	streams := framesOf[*streamFrame](op)
	if len(streams) != 1 {
		t.Fatalf("stream frames = %d, want one fin-only frame", len(streams))
	}
	f := streams[0]
	if !f.fin || len(f.data) != 0 || f.offset != 0 {
		t.Fatalf("fin-only frame = %v, want fin=true offset=0 no data", f)
	}

	st.send.ack(0, 0)
	if !st.send.complete() {
		t.Fatalf("send side not complete after the fin ack")
	}
	op = newOutgoingPacket(2, now)
	s.sendFrames(op, packetSpaceApplication, 1200, now)
	if got := framesOf[*streamFrame](op); len(got) != 0 {
		t.Fatalf("fin-only frame resent after it was acknowledged")
	}
}

// TestStreamsBlockedQueuedWhenPeerLimitHit checks that a local stream
// creation refused by the peer's MAX_STREAMS quota queues a single
// STREAMS_BLOCKED frame for the next packet.
func TestStreamsBlockedQueuedWhenPeerLimitHit(t *testing.T) {
	s := newSendTestConn(t)
	now := time.Unix(1, 0)
	s.streams.setPeerMaxStreamsBidi(1)
	if _, err := s.Stream(1); err != nil {
		t.Fatalf("Stream(1): %v", err)
	}
	if _, err := s.Stream(5); err == nil {
		t.Fatalf("Stream(5) should fail: peer granted one bidi stream")
	}
	if s.streamsBlocked == nil {
		t.Fatalf("no STREAMS_BLOCKED queued after hitting the peer's limit")
	}

	op := newOutgoingPacket(1, now)
	s.sendFrames(op, packetSpaceApplication, 1200, now)
	blocked := framesOf[*streamsBlockedFrame](op)
	if len(blocked) != 1 || !blocked[0].bidi || blocked[0].streamLimit != 1 {
		t.Fatalf("streams_blocked frames = %v, want one bidi frame at limit 1", blocked)
	}
	if s.streamsBlocked != nil {
		t.Fatalf("queued STREAMS_BLOCKED not cleared after sending")
	}
}
