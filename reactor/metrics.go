package reactor

import (
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// acceptCounters are process-global, relaxed-ordering atomics tracking
// accept(2) failures by reason, generalized from the original
// implementation's accept_error_counters — a static struct of
// std::atomic<uint64_t> fields incremented with memory_order_relaxed, one
// per errno class, plus a count of successful EMFILE recoveries.
var acceptCounters struct {
	emfile    atomic.Uint64
	enfile    atomic.Uint64
	enomem    atomic.Uint64
	enobufs   atomic.Uint64
	other     atomic.Uint64
	recovered atomic.Uint64
}

// AcceptMetrics is a point-in-time snapshot of accept-error counters.
type AcceptMetrics struct {
	EMFILE    uint64
	ENFILE    uint64
	ENOMEM    uint64
	ENOBUFS   uint64
	Other     uint64
	Recovered uint64
}

// AcceptSnapshot returns the current accept-error counters.
func AcceptSnapshot() AcceptMetrics {
	return AcceptMetrics{
		EMFILE:    acceptCounters.emfile.Load(),
		ENFILE:    acceptCounters.enfile.Load(),
		ENOMEM:    acceptCounters.enomem.Load(),
		ENOBUFS:   acceptCounters.enobufs.Load(),
		Other:     acceptCounters.other.Load(),
		Recovered: acceptCounters.recovered.Load(),
	}
}

// countAcceptError classifies err into the right bucket.
func countAcceptError(err error) {
	switch err {
	case unix.EMFILE:
		acceptCounters.emfile.Add(1)
	case unix.ENFILE:
		acceptCounters.enfile.Add(1)
	case unix.ENOMEM:
		acceptCounters.enomem.Add(1)
	case unix.ENOBUFS:
		acceptCounters.enobufs.Add(1)
	default:
		acceptCounters.other.Add(1)
	}
}

func countEMFILERecovery() {
	acceptCounters.recovered.Add(1)
}
