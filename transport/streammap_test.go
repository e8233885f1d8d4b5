package transport

import "testing"

func TestIsStreamLocalAndBidi(t *testing.T) {
	cases := []struct {
		id       uint64
		isClient bool
		local    bool
		bidi     bool
	}{
		{0, true, true, true},   // client-initiated bidi
		{1, true, false, true},  // server-initiated bidi, seen by a client
		{2, true, true, false},  // client-initiated uni
		{3, true, false, false}, // server-initiated uni, seen by a client
		{0, false, false, true}, // client-initiated bidi, seen by a server
	}
	for _, c := range cases {
		if got := isStreamLocal(c.id, c.isClient); got != c.local {
			t.Fatalf("isStreamLocal(%d, client=%v) = %v, want %v", c.id, c.isClient, got, c.local)
		}
		if got := isStreamBidi(c.id); got != c.bidi {
			t.Fatalf("isStreamBidi(%d) = %v, want %v", c.id, got, c.bidi)
		}
	}
}

func TestStreamMapCreateEnforcesPeerLimit(t *testing.T) {
	var m streamMap
	m.init(0, 0)
	m.setPeerMaxStreamsBidi(2) // peer grants us streams with index 0 and 1

	if _, err := m.create(0, true, true); err != nil {
		t.Fatalf("create(0): %v", err)
	}
	if _, err := m.create(4, true, true); err != nil {
		t.Fatalf("create(4): %v", err)
	}
	if _, err := m.create(8, true, true); err == nil {
		t.Fatalf("create(8) should fail: peer only granted 2 bidi streams")
	}
}

func TestStreamMapCreateEnforcesOwnLimit(t *testing.T) {
	var m streamMap
	m.init(1, 0) // we grant the peer exactly 1 bidi stream

	if _, err := m.create(1, false, true); err != nil {
		t.Fatalf("create(1): %v", err)
	}
	if _, err := m.create(5, false, true); err == nil {
		t.Fatalf("create(5) should fail: only 1 peer-initiated bidi stream is allowed")
	}
}

func TestStreamMapUniStreamsGetHeaderPriority(t *testing.T) {
	var m streamMap
	m.init(10, 10)
	st, err := m.create(2, false, false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if st.priority != priorityHeader {
		t.Fatalf("uni stream priority = %d, want priorityHeader", st.priority)
	}
}
