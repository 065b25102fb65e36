// Package pipeline runs the unit of work for one credential as an ordered
// list of steps sharing a model.CredentialRun.
//
// A step is critical by default: its error stops the pipeline and is
// returned to the caller, which treats it as a request-level failure and
// rotates to the next proxy. Steps that implement NonCritical and report
// true only record their error in the run and let the remaining steps go on.
package pipeline
