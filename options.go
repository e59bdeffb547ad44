package tablespace

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/hupe1980/tablespace/blobstore"
	"github.com/hupe1980/tablespace/codec"
	"github.com/hupe1980/tablespace/resource"
	"github.com/hupe1980/tablespace/table"
)

// DefaultTempPrefix prefixes names handed out by GiveTempVarName.
const DefaultTempPrefix = "tablespace_tmp_"

type options struct {
	name             string
	mode             Mode
	concurrency      int
	blobs            blobstore.BlobStore
	codec            codec.Codec
	compression      table.Compression
	logger           *Logger
	metricsCollector MetricsCollector
	resources        *resource.Controller
	tempPrefix       string
	preflight        int
}

// Option configures a Workspace.
type Option func(*options)

func applyOptions(opts []Option) options {
	o := options{
		mode:        Pooled,
		concurrency: DefaultConcurrency,
		codec:       codec.Default,
		compression: table.CompressionNone,
		tempPrefix:  DefaultTempPrefix,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.name == "" {
		o.name = uuid.NewString()
	}
	if o.blobs == nil {
		o.blobs = blobstore.NewLocalStore(".")
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	return o
}

// WithName names the workspace in logs and stats. Defaults to a random UUID.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithMode selects the initial scheduling mode. Defaults to Pooled.
func WithMode(mode Mode) Option {
	return func(o *options) {
		o.mode = mode
	}
}

// WithConcurrency sets the Pooled worker count.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithBlobStore configures where table files are read from and written to.
// Defaults to the current directory.
func WithBlobStore(s blobstore.BlobStore) Option {
	return func(o *options) {
		o.blobs = s
	}
}

// WithCodec configures the payload codec of exported table files.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression configures compression of exported table files.
func WithCompression(c table.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := tablespace.NewJSONLogger(slog.LevelInfo)
//	ws, _ := tablespace.New(tablespace.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
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

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &tablespace.BasicMetricsCollector{}
//	ws, _ := tablespace.New(tablespace.WithMetricsCollector(metrics))
//	// ... use ws ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithResourceController bounds resident table memory, concurrent transfers
// and transfer throughput.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithTempPrefix sets the prefix of names handed out by GiveTempVarName.
func WithTempPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.tempPrefix = prefix
		}
	}
}

// WithPreflight makes LoadAll check that every input exists before
// scheduling anything, using up to parallelism concurrent checks.
func WithPreflight(parallelism int) Option {
	return func(o *options) {
		if parallelism < 1 {
			parallelism = 1
		}
		o.preflight = parallelism
	}
}
