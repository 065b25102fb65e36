// Package rotation hands out credentials and proxies in round-robin order.
//
// A Registry holds one cursor per resource kind. Cursors are reset whenever
// the stores are reloaded at the start of a cycle, and never remove an item
// on their own: a proxy that failed in one run is still offered to the next.
// The registry performs no network I/O.
package rotation
