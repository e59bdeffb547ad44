// Command tablespace runs load, copy and export batches against a blob store.
//
//	tablespace run --store ./data --copy refs.tbl:out.tbl -- \
//	    --references_in=refs.tbl --result_out=out.tbl
//
// Everything after "--" is a list of directives: --<key>_in=<files>,
// --<key>_prefix_in=<prefix> with --<key>_num_in=<n>, and --<key>_out=<files>.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := defaultConfig()

	root := &cobra.Command{
		Use:           "tablespace",
		Short:         "Concurrent named-table workspace",
		Long:          `Loads table files into a workspace of named tables, transforms them and exports the results.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfg.mode, "mode", cfg.mode, "scheduling mode: pooled, threaded or inline")
	pf.IntVar(&cfg.workers, "workers", cfg.workers, "worker count in pooled mode")
	pf.StringVar(&cfg.store, "store", cfg.store, "blob store: directory, memory://, sqlite:<path>, s3://bucket/prefix or minio://host/bucket/prefix")
	pf.StringVar(&cfg.logLevel, "log-level", cfg.logLevel, "log level: debug, info, warn or error")
	pf.StringVar(&cfg.logFormat, "log-format", cfg.logFormat, "log format: text or json")
	pf.StringVar(&cfg.name, "name", cfg.name, "workspace name used in logs (random if empty)")

	root.AddCommand(newRunCmd(cfg), newInspectCmd(cfg))
	return root
}

func newRunCmd(cfg *config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] -- <directives>",
		Short: "Load inputs, apply copies and export outputs",
		Example: `  tablespace run --mode threaded -- --references_in=a.tbl,b.tbl --result_out=a.tbl
  tablespace run --index -- --references_prefix_in=chunk_ --references_num_in=4 --references_in=r.tbl --metric=l2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("no directives given")
			}
			return runBatch(cmd.Context(), cfg, args, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&cfg.copies, "copy", nil, "copy a data table to a new name before export (src:dst, repeatable)")
	f.BoolVar(&cfg.index, "index", false, "index the loaded references and queries tables")
	f.StringVar(&cfg.compression, "compression", cfg.compression, "compression of exported files: none, zstd or lz4")
	f.StringVar(&cfg.memoryLimit, "memory-limit", cfg.memoryLimit, "limit on resident table memory, e.g. 512MiB (0 means unlimited)")
	f.StringVar(&cfg.ioLimit, "io-limit", cfg.ioLimit, "transfer throughput limit per second, e.g. 50MB (0 means unlimited)")
	f.IntVar(&cfg.preflight, "preflight", 0, "check inputs exist with this many concurrent probes before loading")
	f.StringVar(&cfg.metricsAddr, "metrics-addr", "", "serve /metrics, /healthz and /stats on this address while running")
	return cmd
}

func newInspectCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>...",
		Short: "Print the shape of table files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspect(cmd.Context(), cfg, args, cmd.OutOrStdout())
		},
	}
}
