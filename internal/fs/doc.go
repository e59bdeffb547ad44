// Package fs abstracts the file-system calls made by the local blob store so
// tests can inject write, sync, close and rename failures.
//
// Production code uses fs.Default ([LocalFS]). Tests wrap it in a [FaultyFS]:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".tbl", fs.Fault{FailAfterBytes: 16})
//	store := blobstore.NewLocalStore(dir, blobstore.WithFileSystem(ffs))
//
// There are no context parameters here. Cancellation happens one level up in
// the blob store.
package fs
