package monitor

// history is a transition log. With a positive capacity it keeps only the most
// recent entries; with a negative capacity it grows without bound.
type history struct {
	capacity int
	entries  []Transition
	start    int // index of the oldest entry once the ring is full
	total    int64
}

func newHistory(capacity int) *history {
	h := &history{capacity: capacity}
	if capacity > 0 {
		h.entries = make([]Transition, 0, capacity)
	}
	return h
}

func (h *history) add(t Transition) {
	h.total++
	if h.capacity <= 0 || len(h.entries) < h.capacity {
		h.entries = append(h.entries, t)
		return
	}
	h.entries[h.start] = t
	h.start = (h.start + 1) % h.capacity
}

// list returns the retained entries, oldest first.
func (h *history) list() []Transition {
	out := make([]Transition, 0, len(h.entries))
	out = append(out, h.entries[h.start:]...)
	out = append(out, h.entries[:h.start]...)
	return out
}

// last returns up to n of the most recent entries, oldest first.
func (h *history) last(n int) []Transition {
	all := h.list()
	if n >= 0 && n < len(all) {
		return all[len(all)-n:]
	}
	return all
}
