package quarry

import (
	"log/slog"
	"time"

	"github.com/hupe1980/quarry/index"
	"github.com/hupe1980/quarry/internal/codec"
	"github.com/hupe1980/quarry/resource"
)

// Compression selects the block compression of new segments.
type Compression = codec.Compression

const (
	CompressionNone = codec.CompressionNone
	CompressionLZ4  = codec.CompressionLZ4
	CompressionZSTD = codec.CompressionZSTD
)

// DefaultField is the field searched when no other is configured.
const DefaultField = "body"

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	compression      Compression
	resourceConfig   *resource.Config
	cacheBytes       int64
	blobCacheBytes   int64
	defaultField     string
	protocolChecks   bool
}

func defaultOptions() options {
	return options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		compression:      CompressionLZ4,
		cacheBytes:       index.DefaultCacheSize,
		defaultField:     DefaultField,
	}
}

// Option configures Open.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &quarry.BasicMetricsCollector{}
//	db, _ := quarry.Open(ctx, store, quarry.WithMetricsCollector(metrics))
//	// ... use db ...
//	stats := metrics.GetStats()
//	fmt.Printf("Searches: %d, Avg latency: %dns\n", stats.SearchCount, stats.SearchAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := quarry.NewJSONLogger(slog.LevelInfo)
//	db, _ := quarry.Open(ctx, store, quarry.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithCompression sets the block compression of segments written by Commit.
// Existing segments keep the compression they were written with.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithResourceConfig bounds memory held by cached segments, the number
// of segments searched concurrently and the segment IO rate.
func WithResourceConfig(cfg resource.Config) Option {
	return func(o *options) {
		o.resourceConfig = &cfg
	}
}

// WithCacheSize sets the decoded segment cache budget in bytes.
func WithCacheSize(bytes int64) Option {
	return func(o *options) {
		o.cacheBytes = bytes
	}
}

// WithBlobCache caches up to bytes of raw blob content in front of the
// store. Useful for remote stores, where every segment read is a request.
func WithBlobCache(bytes int64) Option {
	return func(o *options) {
		o.blobCacheBytes = bytes
	}
}

// WithDefaultField sets the field Search matches query terms against.
func WithDefaultField(field string) Option {
	return func(o *options) {
		if field != "" {
			o.defaultField = field
		}
	}
}

// WithProtocolChecks validates every scorer against the iterator
// contract while searching. A violation panics with *search.ProtocolError.
func WithProtocolChecks(enabled bool) Option {
	return func(o *options) {
		o.protocolChecks = enabled
	}
}

type searchOptions struct {
	positiveOnly bool
	parallel     bool
	timeout      time.Duration
	field        string
}

// SearchOption configures a single search.
type SearchOption func(*searchOptions)

// WithPositiveScoresOnly drops hits whose score is not a finite number above zero.
func WithPositiveScoresOnly() SearchOption {
	return func(o *searchOptions) {
		o.positiveOnly = true
	}
}

// WithParallel searches segments concurrently. Concurrency is bounded by
// resource.Config.MaxSearchWorkers.
func WithParallel() SearchOption {
	return func(o *searchOptions) {
		o.parallel = true
	}
}

// WithTimeout bounds the time spent collecting hits. A sequential search
// that runs out of time returns the hits collected so far together with
// an error wrapping ErrTimeout.
func WithTimeout(d time.Duration) SearchOption {
	return func(o *searchOptions) {
		o.timeout = d
	}
}

// WithField overrides the default field for one search.
func WithField(field string) SearchOption {
	return func(o *searchOptions) {
		o.field = field
	}
}
