// Package model defines the core data structures used throughout claimbot.
//
// This package contains the following main types:
//   - Credential: A bearer secret plus the metadata that identifies one account
//   - Task and PointStats: Records returned by the remote task-reward API
//   - Outcome: The terminal result of processing one credential
//   - CycleSummary: The aggregated result of one pass over every credential
//
// The models live in their own package so that the worker, cycle, database
// and report packages can share them without import cycles.
package model
