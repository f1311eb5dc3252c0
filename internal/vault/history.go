package vault

import "github.com/toanps/agentvault/internal/model"

// historyRing is a fixed-capacity circular buffer of executed disbursements.
// The write index wraps modulo capacity; the oldest record is silently
// overwritten. Readers only ever see reconstructed chronological order,
// never the raw internal layout.
type historyRing struct {
	buf   []model.TransferRecord
	next  int
	count int
}

func newHistoryRing(capacity int) *historyRing {
	return &historyRing{buf: make([]model.TransferRecord, capacity)}
}

// append records one executed disbursement, evicting the oldest when full.
func (h *historyRing) append(rec model.TransferRecord) {
	h.buf[h.next] = rec
	h.next = (h.next + 1) % len(h.buf)
	if h.count < len(h.buf) {
		h.count++
	}
}

// recent returns up to n records in chronological order, oldest first and
// newest last. Asking for more than the buffer holds returns everything
// retained.
func (h *historyRing) recent(n int) []model.TransferRecord {
	if n > h.count {
		n = h.count
	}
	if n <= 0 {
		return nil
	}
	out := make([]model.TransferRecord, n)
	start := h.next - n
	if start < 0 {
		start += len(h.buf)
	}
	for i := 0; i < n; i++ {
		out[i] = h.buf[(start+i)%len(h.buf)]
	}
	return out
}

// snapshot returns every retained record, chronological.
func (h *historyRing) snapshot() []model.TransferRecord {
	return h.recent(h.count)
}
