// Package metrics records engine run statistics in the process-wide
// codahale registry.
// Defined metrics:
//
//	vm.runs (counter)
//	vm.state.Halt (counter)
//	vm.state.Fault (counter)
//	vm.fault.KIND (counter, one per fault kind)
//	vm.gas (histogram)
//	vm.latency (histogram, microseconds)
package metrics

import (
	"strings"
	"time"

	"github.com/codahale/metrics"
)

const (
	maxGas     = 1 << 40
	maxLatency = int64(10 * time.Minute / time.Microsecond)
)

var (
	gasHist     = metrics.NewHistogram("vm.gas", 0, maxGas, 3)
	latencyHist = metrics.NewHistogram("vm.latency", 0, maxLatency, 3)
)

// RecordRun counts one finished run. Fault is empty for runs that
// halted.
func RecordRun(state, fault string, gas int64) {
	metrics.Counter("vm.runs").Add()
	metrics.Counter("vm.state." + state).Add()
	if fault != "" {
		metrics.Counter("vm.fault." + fault).Add()
	}
	gasHist.RecordValue(clamp(gas, maxGas))
}

// RecordElapsed records the time since t in the latency histogram.
func RecordElapsed(t time.Time) {
	us := int64(time.Since(t) / time.Microsecond)
	latencyHist.RecordValue(clamp(us, maxLatency))
}

// Counts returns the current value of every vm counter.
func Counts() map[string]uint64 {
	c, _ := metrics.Snapshot()
	out := make(map[string]uint64)
	for k, v := range c {
		if strings.HasPrefix(k, "vm.") {
			out[k] = v
		}
	}
	return out
}

func clamp(v, max int64) int64 {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
