package model

import "time"

// OutcomeKind tags the terminal state of one credential run.
type OutcomeKind int

const (
	// OutcomeSuccess means one attempt completed the whole unit of work.
	// Individual claims inside the unit may still have failed.
	OutcomeSuccess OutcomeKind = iota

	// OutcomeExhausted means every proxy and the direct fallback failed.
	OutcomeExhausted
)

// String returns a human-readable name of the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Counts are the per-task claim counters of one unit of work.
type Counts struct {
	Claimed        int `json:"claimed"`
	AlreadyClaimed int `json:"alreadyClaimed"`
	Failed         int `json:"failed"`
}

// Add returns the element-wise sum of c and o.
func (c Counts) Add(o Counts) Counts {
	return Counts{
		Claimed:        c.Claimed + o.Claimed,
		AlreadyClaimed: c.AlreadyClaimed + o.AlreadyClaimed,
		Failed:         c.Failed + o.Failed,
	}
}

// Attempt records one execution of the unit of work.
type Attempt struct {
	// Proxy is the original proxy line, or empty for a direct connection.
	Proxy string `json:"proxy,omitempty"`

	// Err is the request-level failure, or empty when the attempt succeeded.
	Err string `json:"error,omitempty"`
}

// Direct reports whether the attempt bypassed the proxy pool.
func (a Attempt) Direct() bool {
	return a.Proxy == ""
}

// Outcome is the terminal result of processing one credential.
type Outcome struct {
	Kind     OutcomeKind `json:"kind"`
	Counts   Counts      `json:"counts"`
	Attempts []Attempt   `json:"attempts"`
}

// Succeeded reports whether the outcome is OutcomeSuccess.
func (o Outcome) Succeeded() bool {
	return o.Kind == OutcomeSuccess
}

// LastProxy returns the proxy of the final attempt, or empty for direct.
func (o Outcome) LastProxy() string {
	if len(o.Attempts) == 0 {
		return ""
	}
	return o.Attempts[len(o.Attempts)-1].Proxy
}

// LastError returns the error of the final failed attempt, if any.
func (o Outcome) LastError() string {
	for i := len(o.Attempts) - 1; i >= 0; i-- {
		if o.Attempts[i].Err != "" {
			return o.Attempts[i].Err
		}
	}
	return ""
}

// CredentialResult pairs a credential label with its outcome.
type CredentialResult struct {
	Label   string  `json:"label"`
	Outcome Outcome `json:"outcome"`
}

// CycleSummary is the aggregated result of one pass over every credential.
type CycleSummary struct {
	ID         string             `json:"id"`
	Number     int                `json:"number"`
	Store      string             `json:"store"`
	StartedAt  time.Time          `json:"startedAt"`
	FinishedAt time.Time          `json:"finishedAt"`
	Proxies    int                `json:"proxies"`
	Totals     Counts             `json:"totals"`
	Results    []CredentialResult `json:"results"`
}

// Add appends a credential result and folds its counts into the totals.
func (s *CycleSummary) Add(label string, o Outcome) {
	s.Results = append(s.Results, CredentialResult{Label: label, Outcome: o})
	s.Totals = s.Totals.Add(o.Counts)
}

// Exhausted returns the number of credentials whose every attempt failed.
func (s *CycleSummary) Exhausted() int {
	n := 0
	for _, r := range s.Results {
		if r.Outcome.Kind == OutcomeExhausted {
			n++
		}
	}
	return n
}

// Duration returns how long the cycle took.
func (s *CycleSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
