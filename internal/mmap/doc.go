// Package mmap maps table files read-only into memory.
//
//	m, err := mmap.Open("references.tbl")
//	if err != nil { ... }
//	defer m.Close()
//	data := m.Bytes()
//
// On Unix the file is mapped with mmap(2) and the kernel is told the
// mapping will be read sequentially. Other platforms fall back to reading
// the whole file into memory behind the same API.
//
// Close is idempotent. Callers must not use the slice returned by Bytes after
// Close returns.
package mmap
