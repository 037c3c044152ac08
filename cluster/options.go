package cluster

import "log/slog"

// DefaultDistance is the default clustering distance threshold in pixels.
const DefaultDistance = 20

type options struct {
	distance  float64
	groupKey  string
	indexKey  string
	extractor GeometryExtractor
	logger    *Logger
	metrics   MetricsCollector
}

// Option configures a cluster Source at construction.
type Option func(*options)

// WithDistance sets the distance threshold in pixels within which features
// are clustered together. Default: 20.
func WithDistance(distance float64) Option {
	return func(o *options) {
		o.distance = distance
	}
}

// WithGroupKey sets the attribute name whose value partitions features:
// only features with equal values cluster together. An empty name (the
// default) reads an absent attribute on every feature, so all features share
// one partition.
func WithGroupKey(key string) Option {
	return func(o *options) {
		o.groupKey = key
	}
}

// WithIndexKey sets the attribute name whose numeric coercion is collected
// into each cluster's identifier list.
func WithIndexKey(key string) Option {
	return func(o *options) {
		o.indexKey = key
	}
}

// WithGeometryExtractor sets the point-extraction policy. The default
// requires point geometries and treats anything else as a configuration
// error.
func WithGeometryExtractor(extractor GeometryExtractor) Option {
	return func(o *options) {
		if extractor != nil {
			o.extractor = extractor
		}
	}
}

// WithLogger configures structured logging. Pass nil to keep logging
// disabled.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithLogLevel creates a text logger at the given level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for clustering
// operations.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc != nil {
			o.metrics = mc
		}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		distance:  DefaultDistance,
		extractor: DefaultGeometryExtractor,
		logger:    NoopLogger(),
		metrics:   NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
