package transport

// streamMap owns every stream a connection has created or accepted, plus
// the per-direction, per-initiator stream-count limits.
type streamMap struct {
	streams map[uint64]*Stream
	blocked writeBlockedList

	maxStreamsBidi     uint64 // limit we grant the peer to open
	maxStreamsUni      uint64
	peerMaxStreamsBidi uint64 // limit the peer grants us
	peerMaxStreamsUni  uint64
}

func (m *streamMap) init(maxStreamsBidi, maxStreamsUni uint64) {
	m.streams = make(map[uint64]*Stream)
	m.maxStreamsBidi = maxStreamsBidi
	m.maxStreamsUni = maxStreamsUni
}

func (m *streamMap) get(id uint64) *Stream {
	return m.streams[id]
}

func (m *streamMap) setPeerMaxStreamsBidi(v uint64) {
	if v > m.peerMaxStreamsBidi {
		m.peerMaxStreamsBidi = v
	}
}

func (m *streamMap) setPeerMaxStreamsUni(v uint64) {
	if v > m.peerMaxStreamsUni {
		m.peerMaxStreamsUni = v
	}
}

// create allocates a new stream for id, enforcing whichever stream-count
// limit applies: ours, if id is peer-initiated, or the peer's, if it is
// ours.
func (m *streamMap) create(id uint64, local, bidi bool) (*Stream, error) {
	index := id >> 2
	var limit uint64
	if local {
		if bidi {
			limit = m.peerMaxStreamsBidi
		} else {
			limit = m.peerMaxStreamsUni
		}
	} else {
		if bidi {
			limit = m.maxStreamsBidi
		} else {
			limit = m.maxStreamsUni
		}
	}
	if index >= limit {
		return nil, newError(TooManyOpenStreams, sprint("stream limit exceeded: ", id))
	}
	priority := priorityData
	if !bidi {
		priority = priorityHeader
	}
	st := &Stream{id: id, bidi: bidi, local: local, priority: priority}
	st.send.init()
	m.streams[id] = st
	return st, nil
}

// highestPeerInitiated returns the highest stream id this endpoint has
// accepted from the peer so far, or 0 if none, used to pick the
// last-good-stream value a GOAWAY advertises.
func (m *streamMap) highestPeerInitiated() uint64 {
	var highest uint64
	var found bool
	for id, st := range m.streams {
		if st.local {
			continue
		}
		if !found || id > highest {
			highest = id
			found = true
		}
	}
	return highest
}

// hasFlushable reports whether any stream has data or a window update
// ready to send.
func (m *streamMap) hasFlushable() bool {
	for _, st := range m.streams {
		if st.hasFlushable() || st.updateMaxData {
			return true
		}
	}
	return false
}

// orderedFlushable returns the IDs of every stream with send work pending,
// header-priority streams first.
func (m *streamMap) orderedFlushable() []uint64 {
	return m.blocked.order(m.streams)
}

// isStreamLocal reports whether id was (or would be) opened by this
// endpoint, per the low initiator bit of a QUIC stream ID.
func isStreamLocal(id uint64, isClient bool) bool {
	clientInitiated := id&0x1 == 0
	return clientInitiated == isClient
}

// isStreamBidi reports whether id names a bidirectional stream, per the
// direction bit of a QUIC stream ID.
func isStreamBidi(id uint64) bool {
	return id&0x2 == 0
}
