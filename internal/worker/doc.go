// Package worker processes one credential at a time.
//
// A Coordinator runs the unit of work for a credential through each proxy of
// the pool in order, then once more over a direct connection. A TaskUnit is
// the unit of work itself: a pipeline that claims tasks, links a wallet and
// prints the balance over a single transport.
package worker
