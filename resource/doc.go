// Package resource bounds what a workspace may consume.
//
// A Controller tracks three budgets:
//
//   - memory: estimated bytes of resident tables, checked on insert
//   - transfers: how many loads and exports may stream at once
//   - I/O: bytes per second read by loads and written by exports
//
// A nil *Controller imposes no limits, so callers never need to check for it.
package resource
