package model

import "time"

// RejectedProxy is a proxy line that was rejected at load time or failed a
// request, as recorded in the run history.
type RejectedProxy struct {
	Line       string    `json:"line"`
	RecordedAt time.Time `json:"recordedAt"`
}

// History is a snapshot of the run history for reporting.
type History struct {
	GeneratedAt time.Time       `json:"generatedAt"`
	Cycles      []*CycleSummary `json:"cycles"`
	Rejected    []RejectedProxy `json:"rejected,omitempty"`
}

// Totals returns the claim counters summed over every cycle.
func (h *History) Totals() Counts {
	var total Counts
	for _, c := range h.Cycles {
		total = total.Add(c.Totals)
	}
	return total
}

// ExhaustedCount returns the number of credential runs whose every attempt failed.
func (h *History) ExhaustedCount() int {
	n := 0
	for _, c := range h.Cycles {
		n += c.Exhausted()
	}
	return n
}
