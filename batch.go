package tablespace

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/tablespace/blobstore"
	"github.com/hupe1980/tablespace/distance"
	"github.com/hupe1980/tablespace/internal/directive"
	"github.com/hupe1980/tablespace/table"
)

// LoadAll schedules one load per file named by the --<key>_in directives in
// args and returns the resource names in scheduling order.
//
// Keys containing "references" or "queries" and all numbered sequences load
// into the data family; everything else loads into the parameter family.
// Malformed directives fail with a *ConfigurationError before anything is
// scheduled. In the asynchronous modes each loaded name stays locked until
// the caller Purges it.
func (ws *Workspace) LoadAll(ctx context.Context, args []string) ([]string, error) {
	targets, err := directive.Parse(directive.In, args)
	if err != nil {
		return nil, err
	}
	if ws.opts.preflight > 0 {
		if err := ws.preflight(ctx, targets); err != nil {
			return nil, err
		}
	}

	names := make([]string, 0, len(targets))
	for _, tg := range targets {
		family := table.FamilyParameters
		if tg.Data {
			family = table.FamilyData
		}
		err := ws.schedule("load "+tg.Filename, func(ctx context.Context) error {
			return ws.Load(ctx, tg.Resource, tg.Filename, family)
		})
		if err != nil {
			return names, err
		}
		names = append(names, tg.Resource)
	}
	return names, nil
}

// preflight checks concurrently that every input exists.
func (ws *Workspace) preflight(ctx context.Context, targets []directive.Target) error {
	missing := make([]bool, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ws.opts.preflight)
	for i, tg := range targets {
		g.Go(func() error {
			ok, err := blobstore.Exists(gctx, ws.opts.blobs, tg.Filename)
			if err != nil {
				return fmt.Errorf("preflight %s: %w", tg.Filename, err)
			}
			missing[i] = !ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, m := range missing {
		if m {
			return &ConfigurationError{
				Directive: "--" + targets[i].Key + "_in",
				Reason:    fmt.Sprintf("input %q does not exist", targets[i].Filename),
			}
		}
	}
	return nil
}

// ExportAll schedules one export per file named by the --<key>_out
// directives in args. Each file is written from the resource of the same
// name; resources that were never produced are skipped with a warning.
func (ws *Workspace) ExportAll(ctx context.Context, args []string) error {
	targets, err := directive.Parse(directive.Out, args)
	if err != nil {
		return err
	}

	for _, tg := range targets {
		err := ws.schedule("export "+tg.Filename, func(ctx context.Context) error {
			return ws.Export(ctx, tg.Resource, tg.Filename)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// indexConfig reads metric=, metric_weights_in= and leaf_size= from args.
func indexConfig(args []string) (table.IndexConfig, string, error) {
	cfg := table.DefaultIndexConfig()

	if v, ok := directive.Value(args, "metric"); ok {
		m, err := distance.ParseMetric(v)
		if err != nil {
			return cfg, "", err
		}
		cfg.Metric = m
	}

	if v, ok := directive.Value(args, "leaf_size"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, "", &ConfigurationError{Directive: "leaf_size=" + v, Reason: "leaf size must be a positive integer"}
		}
		cfg.LeafSize = n
	}

	weights, _ := directive.Value(args, "metric_weights_in")
	if cfg.Metric == distance.MetricWeightedL2 && weights == "" {
		return cfg, "", &ConfigurationError{Directive: "metric=" + cfg.Metric.String(), Reason: "requires --metric_weights_in"}
	}
	if cfg.Metric != distance.MetricWeightedL2 {
		weights = ""
	}
	return cfg, weights, nil
}

// weightsOf extracts a weight vector from a one-row or one-column dense
// table, or from the first vector of a parameter table.
func weightsOf(t table.Table) ([]float32, error) {
	switch v := t.(type) {
	case *table.Dense:
		if v.NumRows() == 1 || v.NumCols() == 1 {
			return append([]float32(nil), v.Data()...), nil
		}
	case *table.Parameter:
		if names := v.Names(); len(names) > 0 {
			vec, _ := v.Get(names[0])
			out := make([]float32, len(vec))
			for i, x := range vec {
				out[i] = float32(x)
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: %s table with %dx%d cells is not a weight vector", ErrUnsupportedShape, t.Kind(), t.NumRows(), t.NumCols())
}

func (ws *Workspace) resolveWeights(ctx context.Context, cfg table.IndexConfig, name string) (table.IndexConfig, error) {
	if name == "" {
		return cfg, nil
	}
	t, err := ws.Attach(ctx, name)
	if err != nil {
		return cfg, fmt.Errorf("metric weights: %w", err)
	}
	defer ws.Detach(name)

	w, err := weightsOf(t)
	if err != nil {
		return cfg, fmt.Errorf("metric weights %q: %w", name, err)
	}
	cfg.Weights = w
	return cfg, nil
}

// IndexAll indexes every table named by a literal --references_in or
// --queries_in directive in args, using metric= (default l2),
// metric_weights_in= and leaf_size= (default 20).
//
// In Inline mode tables are indexed in place and args is returned unchanged.
// In the asynchronous modes each table is copied to a temporary name that is
// indexed instead, and the returned directives refer to the temporary names.
func (ws *Workspace) IndexAll(ctx context.Context, args []string) ([]string, error) {
	cfg, weights, err := indexConfig(args)
	if err != nil {
		return nil, err
	}
	targets, err := directive.Parse(directive.In, args)
	if err != nil {
		return nil, err
	}

	inline := ws.Mode() == Inline
	renames := make(map[string]string)

	for _, tg := range targets {
		if !tg.Data || tg.Sequence {
			continue
		}
		src := tg.Resource

		if inline {
			err = ws.schedule("index "+src, func(ctx context.Context) error {
				icfg, err := ws.resolveWeights(ctx, cfg, weights)
				if err != nil {
					return err
				}
				return ws.Index(ctx, src, icfg)
			})
		} else {
			dst, ok := renames[src]
			if !ok {
				dst = ws.GiveTempVarName()
				renames[src] = dst
			}
			err = ws.schedule("index "+src, func(ctx context.Context) error {
				icfg, err := ws.resolveWeights(ctx, cfg, weights)
				if err != nil {
					return err
				}
				return ws.indexCopy(ctx, src, dst, icfg)
			})
		}
		if err != nil {
			return nil, err
		}
	}

	if inline {
		return append([]string(nil), args...), nil
	}
	return rewriteInputs(args, renames), nil
}

// indexCopy clones src into dst and indexes the clone while holding dst's
// lock, so no consumer sees dst unindexed.
func (ws *Workspace) indexCopy(ctx context.Context, src, dst string, cfg table.IndexConfig) error {
	l, err := ws.locks.Lock(ctx, dst)
	if err != nil {
		return err
	}
	defer l.Unlock()

	t, err := ws.Attach(ctx, src)
	if err != nil {
		return err
	}
	if !table.FamilyData.Contains(t.Kind()) {
		ws.Detach(src)
		return fmt.Errorf("index %q: %w: %s", src, ErrUnsupportedShape, t.Kind())
	}
	clone := t.CloneData()
	ws.Detach(src)

	ix, ok := clone.(table.Indexable)
	if !ok {
		return fmt.Errorf("index %q: %w: %s", src, ErrUnsupportedShape, clone.Kind())
	}
	if err := ix.IndexData(cfg); err != nil {
		return fmt.Errorf("index %q: %w", src, err)
	}
	return ws.install(dst, clone)
}

// rewriteInputs replaces renamed files in literal data directives.
func rewriteInputs(args []string, renames map[string]string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = arg

		flag, value, ok := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if !ok || !strings.HasPrefix(arg, "--") || !strings.HasSuffix(flag, "_in") ||
			strings.HasSuffix(flag, "_prefix_in") || strings.HasSuffix(flag, "_num_in") ||
			!directive.IsData(flag) {
			continue
		}

		files := directive.Split(value)
		for j, f := range files {
			if r, ok := renames[f]; ok {
				files[j] = r
			}
		}
		out[i] = "--" + flag + "=" + strings.Join(files, ",")
	}
	return out
}
