package transport

import "sort"

// Stream priority bands: header/control streams are scheduled ahead of
// ordinary data streams whenever packet budget is scarce. CRYPTO data is
// scheduled outside of this list entirely, always ahead of both.
const (
	priorityHeader = 0
	priorityData   = 1
)

// writeBlockedList orders streams with pending send work by priority band,
// then by stream ID as a stable FIFO proxy, since IDs of one type are
// always handed out in the order the streams were created.
type writeBlockedList struct{}

func (writeBlockedList) order(streams map[uint64]*Stream) []uint64 {
	ids := make([]uint64, 0, len(streams))
	for id, st := range streams {
		if st.hasFlushable() || st.updateMaxData {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		pi, pj := streams[ids[i]].priority, streams[ids[j]].priority
		if pi != pj {
			return pi < pj
		}
		return ids[i] < ids[j]
	})
	return ids
}
