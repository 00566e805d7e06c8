package channels

import "github.com/ygrebnov/channels/metrics"

// Option configures a channel at construction time.
type Option func(*channelOptions)

type channelOptions struct {
	metrics metrics.Provider
}

// WithMetrics attaches a metrics provider. Instruments are created once per
// channel; by default all measurements are discarded.
func WithMetrics(p metrics.Provider) Option {
	return func(o *channelOptions) {
		if p == nil {
			panic(Namespace + ": nil metrics provider")
		}
		o.metrics = p
	}
}

func buildOptions(opts []Option) *channelOptions {
	o := &channelOptions{metrics: metrics.NewNoopProvider()}
	for _, opt := range opts {
		if opt == nil {
			panic(Namespace + ": nil channel option")
		}
		opt(o)
	}
	return o
}
