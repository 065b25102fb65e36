// Package api is the client of the remote task-reward service.
//
// A Client is bound to one credential and at most one forward proxy for its
// whole lifetime. It never retries: the first failure is returned to the
// caller, classified as a *TransportError, *StatusError or *ApplicationError,
// and rotation decisions are left to the worker package.
package api
