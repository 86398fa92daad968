package conn

import "sync/atomic"

// closeCounters are process-global, relaxed-ordering atomics tracking why
// connections closed, generalized from the original implementation's
// conn_close_counters (a static struct of std::atomic<uint64_t> fields
// incremented with memory_order_relaxed at each close site).
var closeCounters struct {
	readError  atomic.Uint64
	readEOF    atomic.Uint64
	parseError atomic.Uint64
	writeError atomic.Uint64
	closeHdr   atomic.Uint64
}

// CloseMetrics is a point-in-time snapshot of connection-close reasons.
type CloseMetrics struct {
	ReadError  uint64
	ReadEOF    uint64
	ParseError uint64
	WriteError uint64
	CloseHdr   uint64
}

// Snapshot returns the current close-reason counters.
func Snapshot() CloseMetrics {
	return CloseMetrics{
		ReadError:  closeCounters.readError.Load(),
		ReadEOF:    closeCounters.readEOF.Load(),
		ParseError: closeCounters.parseError.Load(),
		WriteError: closeCounters.writeError.Load(),
		CloseHdr:   closeCounters.closeHdr.Load(),
	}
}
