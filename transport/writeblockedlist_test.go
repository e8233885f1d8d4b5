package transport

import "testing"

func flushableStream(id uint64, priority int, data string) *Stream {
	st := &Stream{id: id, priority: priority}
	st.send.init()
	st.send.write([]byte(data))
	return st
}

// TestWriteBlockedListOrdersByPriorityThenFIFO: the header-priority band
// is served before any data stream, and streams within one priority are
// visited in the order they were created (QUIC stream IDs of one class are
// handed out in creation order, so ascending ID is a FIFO proxy).
func TestWriteBlockedListOrdersByPriorityThenFIFO(t *testing.T) {
	streams := map[uint64]*Stream{
		12: flushableStream(12, priorityData, "c"),
		4:  flushableStream(4, priorityData, "a"),
		8:  flushableStream(8, priorityData, "b"),
		3:  flushableStream(3, priorityHeader, "headers"),
	}

	var l writeBlockedList
	order := l.order(streams)

	want := []uint64{3, 4, 8, 12}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestWriteBlockedListSkipsStreamsWithNothingToSend(t *testing.T) {
	idle := &Stream{id: 4, priority: priorityData}
	idle.send.init()

	streams := map[uint64]*Stream{4: idle}
	var l writeBlockedList
	if order := l.order(streams); len(order) != 0 {
		t.Fatalf("order = %v, want empty (nothing flushable)", order)
	}

	idle.updateMaxData = true
	if order := l.order(streams); len(order) != 1 {
		t.Fatalf("order = %v, want the stream once a window update is pending", order)
	}
}
