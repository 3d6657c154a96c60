package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

// Recorder collects request latencies.
type Recorder struct {
	mu        sync.Mutex
	histogram *hdrhistogram.Histogram
	total     int64
	failed    int64
}

// Summary is a snapshot of recorded latencies.
type Summary struct {
	Count  int64         `json:"count"`
	Failed int64         `json:"failed"`
	Min    time.Duration `json:"min"`
	Max    time.Duration `json:"max"`
	Mean   time.Duration `json:"mean"`
	P50    time.Duration `json:"p50"`
	P95    time.Duration `json:"p95"`
	P99    time.Duration `json:"p99"`
}

func NewRecorder() *Recorder {
	return &Recorder{
		// 1us to 60s range, 3 significant digits
		histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, 3),
	}
}

// Record adds one request latency.
func (r *Recorder) Record(duration time.Duration, failed bool) {
	latencyUs := duration.Microseconds()
	if latencyUs < minLatencyUs {
		latencyUs = minLatencyUs
	}
	if latencyUs > maxLatencyUs {
		latencyUs = maxLatencyUs
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_ = r.histogram.RecordValue(latencyUs)
	r.total++
	if failed {
		r.failed++
	}
}

// Summary returns the current percentiles. All durations are zero when
// nothing was recorded.
func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.total == 0 {
		return Summary{}
	}

	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	return Summary{
		Count:  r.total,
		Failed: r.failed,
		Min:    us(r.histogram.Min()),
		Max:    us(r.histogram.Max()),
		Mean:   time.Duration(r.histogram.Mean() * float64(time.Microsecond)),
		P50:    us(r.histogram.ValueAtQuantile(50)),
		P95:    us(r.histogram.ValueAtQuantile(95)),
		P99:    us(r.histogram.ValueAtQuantile(99)),
	}
}

// Reset clears all recorded values.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.histogram.Reset()
	r.total = 0
	r.failed = 0
}
