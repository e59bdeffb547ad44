package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	gojson "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/tablespace"
	"github.com/hupe1980/tablespace/internal/directive"
	"github.com/hupe1980/tablespace/prom"
	"github.com/hupe1980/tablespace/resource"
	"github.com/hupe1980/tablespace/scheduler"
	"github.com/hupe1980/tablespace/table"
)

type config struct {
	mode      string
	workers   int
	store     string
	logLevel  string
	logFormat string
	name      string

	copies      []string
	index       bool
	compression string
	memoryLimit string
	ioLimit     string
	preflight   int
	metricsAddr string
}

func defaultConfig() *config {
	return &config{
		mode:        scheduler.Pooled.String(),
		workers:     tablespace.DefaultConcurrency,
		store:       ".",
		logLevel:    "info",
		logFormat:   "text",
		compression: table.CompressionNone.String(),
		memoryLimit: "0",
		ioLimit:     "0",
	}
}

// options translates flags into workspace options.
func (c *config) options() ([]tablespace.Option, error) {
	mode, err := scheduler.ParseMode(c.mode)
	if err != nil {
		return nil, err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.logLevel)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	var logger *tablespace.Logger
	switch strings.ToLower(c.logFormat) {
	case "text":
		logger = tablespace.NewTextLogger(level)
	case "json":
		logger = tablespace.NewJSONLogger(level)
	default:
		return nil, fmt.Errorf("unknown log format %q", c.logFormat)
	}

	opts := []tablespace.Option{
		tablespace.WithName(c.name),
		tablespace.WithMode(mode),
		tablespace.WithConcurrency(c.workers),
		tablespace.WithLogger(logger),
	}

	if c.compression != "" {
		comp, err := table.ParseCompression(c.compression)
		if err != nil {
			return nil, err
		}
		opts = append(opts, tablespace.WithCompression(comp))
	}

	memLimit, err := parseBytes("memory limit", c.memoryLimit)
	if err != nil {
		return nil, err
	}
	ioLimit, err := parseBytes("io limit", c.ioLimit)
	if err != nil {
		return nil, err
	}
	if memLimit > 0 || ioLimit > 0 {
		opts = append(opts, tablespace.WithResourceController(resource.NewController(resource.Config{
			MemoryLimitBytes:   memLimit,
			IOLimitBytesPerSec: ioLimit,
		})))
	}

	if c.preflight > 0 {
		opts = append(opts, tablespace.WithPreflight(c.preflight))
	}
	return opts, nil
}

func parseBytes(what, s string) (int64, error) {
	if s == "" || s == "0" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("%s: %q is too large", what, s)
	}
	return int64(n), nil
}

type copyPair struct {
	src, dst string
}

func parseCopies(values []string) ([]copyPair, error) {
	pairs := make([]copyPair, 0, len(values))
	for _, v := range values {
		src, dst, ok := strings.Cut(v, ":")
		if !ok || src == "" || dst == "" {
			return nil, fmt.Errorf("copy %q: want src:dst", v)
		}
		pairs = append(pairs, copyPair{src: src, dst: dst})
	}
	return pairs, nil
}

// checkInputs rejects directives that load the same file twice. A second
// load of a name would wait forever on the first one's lock.
func checkInputs(args []string) error {
	targets, err := directive.Parse(directive.In, args)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(targets))
	for _, tg := range targets {
		if seen[tg.Resource] {
			return &directive.ConfigurationError{Directive: tg.Key, Reason: fmt.Sprintf("%q is loaded more than once", tg.Filename)}
		}
		seen[tg.Resource] = true
	}
	return nil
}

// indexRenames maps each literal data input to the name IndexAll put its
// indexed copy under.
func indexRenames(before, after []string) (map[string]string, error) {
	orig, err := directive.Parse(directive.In, before)
	if err != nil {
		return nil, err
	}
	next, err := directive.Parse(directive.In, after)
	if err != nil {
		return nil, err
	}

	renames := make(map[string]string)
	for i := range orig {
		if i < len(next) && orig[i].Resource != next[i].Resource {
			renames[orig[i].Resource] = next[i].Resource
		}
	}
	return renames, nil
}

// runBatch loads every input, optionally indexes the data tables, applies
// copies and exports every output. Each phase completes before the next
// starts.
func runBatch(ctx context.Context, cfg *config, args []string, out io.Writer) error {
	copies, err := parseCopies(cfg.copies)
	if err != nil {
		return err
	}
	if err := checkInputs(args); err != nil {
		return err
	}

	opts, err := cfg.options()
	if err != nil {
		return err
	}

	blobs, closer, err := openStore(ctx, cfg.store)
	if err != nil {
		return err
	}
	defer closer.Close()
	opts = append(opts, tablespace.WithBlobStore(blobs))

	var reg *prometheus.Registry
	if cfg.metricsAddr != "" {
		reg = prometheus.NewRegistry()
		collector, err := prom.New(reg)
		if err != nil {
			return err
		}
		opts = append(opts, tablespace.WithMetricsCollector(collector))
	}

	ws, err := tablespace.New(opts...)
	if err != nil {
		return err
	}
	defer ws.Close()

	if reg != nil {
		srv := newStatusServer(cfg.metricsAddr, ws, reg)
		srv.start()
		defer func() {
			if err := srv.stop(); err != nil {
				fmt.Fprintln(out, "metrics server:", err)
			}
		}()
	}

	loaded, err := ws.LoadAll(ctx, args)
	if err != nil {
		return err
	}
	if err := ws.WaitAll(ctx); err != nil {
		return err
	}
	for _, name := range loaded {
		if err := ws.Purge(name); err != nil {
			return err
		}
	}

	renames := map[string]string{}
	if cfg.index {
		rewritten, err := ws.IndexAll(ctx, args)
		if err != nil {
			return err
		}
		if err := ws.WaitAll(ctx); err != nil {
			return err
		}
		if renames, err = indexRenames(args, rewritten); err != nil {
			return err
		}
	}

	for _, c := range copies {
		src := c.src
		if r, ok := renames[src]; ok {
			src = r
		}
		err := ws.Schedule(func(ctx context.Context) error {
			ok, err := ws.Copy(ctx, src, c.dst)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("copy %q: %w", c.src, tablespace.ErrUnsupportedShape)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	if err := ws.WaitAll(ctx); err != nil {
		return err
	}

	if err := ws.ExportAll(ctx, args); err != nil {
		return err
	}
	if err := ws.WaitAll(ctx); err != nil {
		return err
	}

	fmt.Fprintf(out, "loaded %d, copied %d, mode %s\n", len(loaded), len(copies), ws.Mode())
	return nil
}

type inspectResult struct {
	File string               `json:"file"`
	Info tablespace.TableInfo `json:"info"`
}

// inspect prints one JSON line per file describing its table.
func inspect(ctx context.Context, cfg *config, files []string, out io.Writer) error {
	blobs, closer, err := openStore(ctx, cfg.store)
	if err != nil {
		return err
	}
	defer closer.Close()

	ws, err := tablespace.New(
		tablespace.WithName(cfg.name),
		tablespace.WithMode(scheduler.Inline),
		tablespace.WithBlobStore(blobs),
	)
	if err != nil {
		return err
	}
	defer ws.Close()

	enc := gojson.NewEncoder(out)
	for _, f := range files {
		t, err := ws.Attach(ctx, f)
		if err != nil {
			return err
		}
		info := table.Describe(t)
		ws.Detach(f)

		if err := enc.Encode(inspectResult{File: f, Info: info}); err != nil {
			return err
		}
	}
	return nil
}
