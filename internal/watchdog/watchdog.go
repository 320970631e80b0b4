// Package watchdog decides whether the process is close enough to its
// memory ceiling that streaming producers should stop buffering.
//
// One Watchdog is built at startup and passed to every component that
// makes backpressure decisions; heap usage is a whole-process quantity.
package watchdog

import (
	"fmt"
	rtmetrics "runtime/metrics"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/KimMachineGun/automemlimit/memlimit"

	"github.com/withObsrvr/obsrvr-datajoin/internal/metrics"
)

const (
	// LimitEnv names the environment setting holding the ceiling in bytes,
	// or "auto" to derive it from the cgroup or system memory.
	LimitEnv = "MEM_LIMIT"

	// DefaultLimit is 16 GiB.
	DefaultLimit int64 = 17179869184

	// DefaultWaterLevel is the fraction of available memory that counts
	// as at risk.
	DefaultWaterLevel = 0.9

	// SampleInterval is the minimum spacing between unforced heap samples.
	SampleInterval = 700 * time.Millisecond

	maxReserved int64 = 2 << 30
)

const heapObjectsMetric = "/memory/classes/heap/objects:bytes"

// Sampler reports current heap usage in bytes.
type Sampler func() uint64

// HeapObjects samples the bytes occupied by heap objects, live or not yet
// swept.
func HeapObjects() uint64 {
	s := []rtmetrics.Sample{{Name: heapObjectsMetric}}
	rtmetrics.Read(s)
	if s[0].Value.Kind() != rtmetrics.KindUint64 {
		return 0
	}
	return s[0].Value.Uint64()
}

// ParseLimit interprets a MEM_LIMIT value. Empty means DefaultLimit.
func ParseLimit(v string) (int64, error) {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "":
		return DefaultLimit, nil
	case "auto":
		limit, err := memlimit.ApplyFallback(memlimit.FromCgroup, memlimit.FromSystem)()
		if err != nil || limit == 0 {
			return DefaultLimit, nil
		}
		return int64(limit), nil
	}

	limit, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not an integer byte count", LimitEnv, v)
	}
	if limit <= 0 {
		return 0, fmt.Errorf("%s=%q must be positive", LimitEnv, v)
	}
	return limit, nil
}

// Config configures a Watchdog. Zero fields take defaults.
type Config struct {
	Limit   int64
	Sampler Sampler
	Now     func() time.Time
	Metrics *metrics.Metrics
}

// Watchdog samples heap usage at most once per SampleInterval and
// compares it against a threshold derived from the ceiling.
type Watchdog struct {
	mu          sync.Mutex
	limit       int64
	sampler     Sampler
	now         func() time.Time
	metrics     *metrics.Metrics
	lastSampled time.Time
	heap        uint64
}

// New builds a Watchdog and takes an initial sample.
func New(cfg Config) *Watchdog {
	w := &Watchdog{
		limit:   cfg.Limit,
		sampler: cfg.Sampler,
		now:     cfg.Now,
		metrics: cfg.Metrics,
	}
	if w.limit <= 0 {
		w.limit = DefaultLimit
	}
	if w.sampler == nil {
		w.sampler = HeapObjects
	}
	if w.now == nil {
		w.now = time.Now
	}
	w.metrics.SetMemLimit(w.limit)

	w.mu.Lock()
	w.sampleLocked(true)
	w.mu.Unlock()
	return w
}

func (w *Watchdog) sampleLocked(force bool) {
	now := w.now()
	if !force && now.Sub(w.lastSampled) < SampleInterval {
		return
	}
	w.heap = w.sampler()
	w.lastSampled = now
	w.metrics.ObserveHeapSample(w.heap)
}

// CheckRisk reports whether sampled heap usage has reached waterLevel of
// the available memory. The sample is refreshed if it is older than
// SampleInterval or force is set. Sampling and comparison happen under
// one lock.
func (w *Watchdog) CheckRisk(waterLevel float64, force bool) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.sampleLocked(force)
	atRisk := float64(w.heap) >= w.thresholdLocked(waterLevel)
	w.metrics.IncRiskCheck(atRisk)
	return atRisk
}

// CheckRiskDefault is CheckRisk(DefaultWaterLevel, false).
func (w *Watchdog) CheckRiskDefault() bool {
	return w.CheckRisk(DefaultWaterLevel, false)
}

// Threshold returns the heap size at which CheckRisk(waterLevel, ...)
// starts reporting risk.
func (w *Watchdog) Threshold(waterLevel float64) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.thresholdLocked(waterLevel)
}

// available = limit - min(limit/2, 2 GiB)
func (w *Watchdog) thresholdLocked(waterLevel float64) float64 {
	reserved := w.limit / 2
	if reserved > maxReserved {
		reserved = maxReserved
	}
	return float64(w.limit-reserved) * waterLevel
}

// Limit returns the configured ceiling in bytes.
func (w *Watchdog) Limit() int64 {
	return w.limit
}

// LastSample returns the cached heap sample and when it was taken.
func (w *Watchdog) LastSample() (uint64, time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.heap, w.lastSampled
}
