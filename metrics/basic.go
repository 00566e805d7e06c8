package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
)

// BasicProvider is an in-memory Provider suitable for tests, examples, and
// lightweight embedding. Instruments are created on first use and shared by
// name; requesting an existing name as a different instrument kind panics,
// since two channels recording into one registry must agree on what each
// name means.
type BasicProvider struct {
	mu          sync.Mutex
	instruments map[string]any
}

// NewBasicProvider constructs an empty BasicProvider.
func NewBasicProvider() *BasicProvider {
	return &BasicProvider{instruments: make(map[string]any)}
}

// Counter returns the monotonic counter registered under name, creating it
// on first use.
func (p *BasicProvider) Counter(name string, opts ...InstrumentOption) Counter {
	return lookup(p, name, opts, func(InstrumentConfig) *BasicCounter {
		return &BasicCounter{}
	})
}

// UpDownCounter returns the up/down counter registered under name, creating
// it on first use.
func (p *BasicProvider) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	return lookup(p, name, opts, func(InstrumentConfig) *BasicUpDownCounter {
		return &BasicUpDownCounter{}
	})
}

// Histogram returns the bucketed histogram registered under name, creating
// it on first use. Bucket bounds come from WithBuckets, or
// DefaultParkBuckets when the option is absent.
func (p *BasicProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	return lookup(p, name, opts, newBasicHistogram)
}

// lookup resolves name in the provider's registry, building the instrument
// on first use. Options only take effect at creation.
func lookup[I any](p *BasicProvider, name string, opts []InstrumentOption, build func(InstrumentConfig) I) I {
	var cfg InstrumentConfig
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.instruments[name]; ok {
		typed, ok := existing.(I)
		if !ok {
			panic("metrics: instrument " + name + " already registered as a different kind")
		}
		return typed
	}
	inst := build(cfg)
	p.instruments[name] = inst
	return inst
}

// BasicCounter is a concurrency-safe monotonic counter.
type BasicCounter struct {
	val atomic.Int64
}

// Add increments the counter by n.
func (c *BasicCounter) Add(n int64) { c.val.Add(n) }

// Snapshot returns the current value.
func (c *BasicCounter) Snapshot() int64 { return c.val.Load() }

// BasicUpDownCounter is a concurrency-safe up/down counter.
type BasicUpDownCounter struct {
	val atomic.Int64
}

// Add adds n, positive or negative, to the current value.
func (u *BasicUpDownCounter) Add(n int64) { u.val.Add(n) }

// Snapshot returns the current value.
func (u *BasicUpDownCounter) Snapshot() int64 { return u.val.Load() }

// BasicHistogram aggregates measurements into fixed buckets. It keeps no
// samples: each recording lands in the bucket of the first upper bound not
// below it, with an implicit overflow bucket above the last bound. Quantiles
// are estimated by linear interpolation inside the owning bucket, which is
// as much resolution as park-time monitoring needs at constant memory.
type BasicHistogram struct {
	mu     sync.Mutex
	bounds []float64 // ascending upper bounds
	counts []int64   // len(bounds)+1; last is the overflow bucket
	count  int64
	sum    float64
}

func newBasicHistogram(cfg InstrumentConfig) *BasicHistogram {
	bounds := cfg.Buckets
	if len(bounds) == 0 {
		bounds = DefaultParkBuckets
	}
	bounds = append([]float64(nil), bounds...)
	sort.Float64s(bounds)
	return &BasicHistogram{
		bounds: bounds,
		counts: make([]int64, len(bounds)+1),
	}
}

// Record adds a measurement to its bucket.
func (h *BasicHistogram) Record(v float64) {
	idx := sort.SearchFloat64s(h.bounds, v)
	h.mu.Lock()
	h.counts[idx]++
	h.count++
	h.sum += v
	h.mu.Unlock()
}

// Buckets returns the histogram's upper bounds.
func (h *BasicHistogram) Buckets() []float64 {
	return append([]float64(nil), h.bounds...)
}

// Quantile estimates the q-th quantile (clamped to [0, 1]) of the recorded
// measurements. Within a bucket the distribution is assumed uniform; ranks
// landing in the overflow bucket report the last finite bound. A histogram
// with no recordings reports 0.
func (h *BasicHistogram) Quantile(q float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.quantileLocked(q)
}

func (h *BasicHistogram) quantileLocked(q float64) float64 {
	if h.count == 0 {
		return 0
	}
	if q < 0 {
		q = 0
	}
	if q > 1 {
		q = 1
	}
	rank := q * float64(h.count)
	cum := 0.0
	for i, c := range h.counts {
		cum += float64(c)
		if cum < rank {
			continue
		}
		if i == len(h.bounds) {
			break // overflow bucket: report the last finite bound
		}
		lower := 0.0
		if i > 0 {
			lower = h.bounds[i-1]
		}
		upper := h.bounds[i]
		if c == 0 {
			return upper
		}
		return lower + (upper-lower)*((rank-(cum-float64(c)))/float64(c))
	}
	return h.bounds[len(h.bounds)-1]
}

// HistSnapshot is an immutable view of a BasicHistogram.
type HistSnapshot struct {
	Count int64
	Sum   float64
	Mean  float64
	P50   float64
	P95   float64
	P99   float64
}

// Snapshot returns the histogram state, including the stall percentiles, at
// the time of the call.
func (h *BasicHistogram) Snapshot() HistSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := HistSnapshot{Count: h.count, Sum: h.sum}
	if h.count > 0 {
		s.Mean = h.sum / float64(h.count)
	}
	s.P50 = h.quantileLocked(0.50)
	s.P95 = h.quantileLocked(0.95)
	s.P99 = h.quantileLocked(0.99)
	return s
}
