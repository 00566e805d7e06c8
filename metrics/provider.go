// Package metrics is the observability contract of the channels module. A
// channel records deliveries, parked operations, conflated overwrites, and
// closures through the instruments below; park times go to a bucketed
// histogram so stall percentiles stay answerable without retaining samples.
package metrics

// Provider constructs the instruments a channel records into.
// Implementations must be safe for concurrent use.
//
// The interface is intentionally small and stable; add optional capability
// interfaces rather than growing this one.
type Provider interface {
	Counter(name string, opts ...InstrumentOption) Counter
	UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter
	Histogram(name string, opts ...InstrumentOption) Histogram
}

// Counter records monotonic counts: sends and receives delivered, parks,
// conflated overwrites, closes. Methods must be safe for concurrent use.
type Counter interface {
	Add(n int64)
}

// UpDownCounter records values that move both ways, such as the number of
// currently parked operations. Methods must be safe for concurrent use.
type UpDownCounter interface {
	Add(n int64)
}

// Histogram records distributions of float64 measurements, such as how long
// an operation stayed parked, in seconds. Methods must be safe for
// concurrent use.
type Histogram interface {
	Record(v float64)
}

// InstrumentConfig carries optional instrument metadata. Unit is advisory;
// Buckets configures histogram resolution.
type InstrumentConfig struct {
	Unit    string
	Buckets []float64
}

// InstrumentOption mutates InstrumentConfig.
type InstrumentOption func(*InstrumentConfig)

// WithUnit sets an advisory unit for the instrument (e.g. "1", "seconds").
func WithUnit(unit string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Unit = unit }
}

// WithBuckets sets a histogram's bucket upper bounds. Bounds must be
// positive; they are sorted ascending and an overflow bucket is implied
// above the last. Histograms without this option use DefaultParkBuckets.
func WithBuckets(bounds ...float64) InstrumentOption {
	return func(c *InstrumentConfig) { c.Buckets = bounds }
}

// DefaultParkBuckets are histogram upper bounds, in seconds, sized for
// operation park times: the low end resolves an uncontended handoff, the
// high end keeps multi-second stalls visible.
var DefaultParkBuckets = []float64{
	1e-6, 1e-5, 1e-4, 1e-3, 1e-2, 0.1, 0.5, 1, 5, 30,
}

// Noop is a Provider whose instruments discard every measurement; it is the
// default for channels constructed without WithMetrics.
type Noop struct{}

// NewNoopProvider constructs the discarding Provider.
func NewNoopProvider() Noop { return Noop{} }

func (Noop) Counter(_ string, _ ...InstrumentOption) Counter             { return noopInstrument{} }
func (Noop) UpDownCounter(_ string, _ ...InstrumentOption) UpDownCounter { return noopInstrument{} }
func (Noop) Histogram(_ string, _ ...InstrumentOption) Histogram         { return noopInstrument{} }

// noopInstrument satisfies every instrument interface with no-ops.
type noopInstrument struct{}

func (noopInstrument) Add(_ int64)      {}
func (noopInstrument) Record(_ float64) {}
