// Package store reads and writes the newline-delimited text stores:
// the plain credential store, the account store, the proxy store and the
// append-only rejection sink.
//
// Every store is re-read on demand, so edits made by the operator while the
// program runs are picked up at the start of the next cycle.
package store
