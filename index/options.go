package index

import (
	"log/slog"

	"github.com/hupe1980/quarry/internal/codec"
	"github.com/hupe1980/quarry/resource"
)

type options struct {
	logger      *slog.Logger
	compression codec.Compression
	rc          *resource.Controller
	cacheBytes  int64
	loader      *Loader
}

func defaultOptions() options {
	return options{
		logger:      slog.New(slog.DiscardHandler),
		compression: codec.CompressionLZ4,
		cacheBytes:  DefaultCacheSize,
	}
}

// Option configures a Writer or Reader.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCompression sets the block compression of new segments.
func WithCompression(c codec.Compression) Option {
	return func(o *options) { o.compression = c }
}

// WithResourceController charges the segment cache against rc's memory
// limit and throttles segment reads and writes by its IO limit.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) { o.rc = rc }
}

// WithCacheSize sets the decoded segment cache budget in bytes.
func WithCacheSize(bytes int64) Option {
	return func(o *options) {
		if bytes >= 0 {
			o.cacheBytes = bytes
		}
	}
}

// WithLoader shares a segment loader, and with it the decoded segment
// cache, between a Writer and its Readers.
func WithLoader(l *Loader) Option {
	return func(o *options) { o.loader = l }
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
