// Package tablespace provides a concurrent named-resource workspace for
// table-shaped data.
//
// A Workspace holds tables under string names, guards every name with its
// own lock and runs tasks under one of three interchangeable scheduling
// modes. It also loads and exports whole batches of tables from directive
// lists such as --references_in=a.tbl,b.tbl.
//
// # Quick Start
//
//	ctx := context.Background()
//	ws, _ := tablespace.New(
//	    tablespace.WithBlobStore(blobstore.NewLocalStore("./data")),
//	    tablespace.WithMode(tablespace.Inline),
//	)
//	defer ws.Close()
//
//	args := []string{"--references_in=refs.tbl", "--distances_out=dist.tbl"}
//	ws.LoadAll(ctx, args)
//	ws.Schedule(func(ctx context.Context) error {
//	    refs, err := ws.Attach(ctx, "refs.tbl")
//	    if err != nil {
//	        return err
//	    }
//	    defer ws.Detach("refs.tbl")
//	    // ... compute and Insert "dist.tbl" ...
//	    return nil
//	})
//	ws.ExportAll(ctx, args)
//	err := ws.WaitAll(ctx)
//
// # Scheduling Modes
//
//   - Pooled: a fixed number of workers drain an unbounded FIFO queue
//   - Threaded: one goroutine per task
//   - Inline: tasks run on the caller's goroutine, in submission order
//
// SetMode switches modes while the workspace is idle.
//
// # Ordering Between Tasks
//
// Asynchronous modes guarantee no order between tasks. Tasks touching the
// same name are ordered by its lock only. A load in Pooled or Threaded mode
// keeps the loaded name locked until the caller calls Purge, so consumers
// scheduled next to the load wait until the producer side declares the
// table ready.
//
// # Failure Handling
//
// The first task error or panic faults the workspace. From then on Pooled
// and Threaded refuse new work with ErrFaulted, and WaitAll cancels what is
// still outstanding before returning the failure. Inline still runs tasks
// but reports each Schedule as a *FatalError. Later failures are kept as
// secondary diagnostics.
package tablespace
