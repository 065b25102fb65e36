package model

// Task statuses reported by the remote API.
const (
	TaskStatusIdle    = "idle"
	TaskStatusPending = "pending"
	TaskStatusClaimed = "claimed"
)

// Task is one claimable task of a credential.
type Task struct {
	ID          string  `json:"_id"`
	Name        string  `json:"name"`
	Status      string  `json:"status"`
	PointAmount float64 `json:"pointAmount"`
}

// IsClaimed reports whether the task was already claimed before this run touched it.
func (t Task) IsClaimed() bool {
	return t.Status == TaskStatusClaimed
}

// PointStats holds the reward statistics of one credential.
type PointStats struct {
	TotalPointEarned   float64 `json:"totalPointEarned"`
	TotalPointTask     float64 `json:"totalPointTask"`
	TotalPointInternet float64 `json:"totalPointInternet"`
	TotalPointReferral float64 `json:"totalPointReferral"`
	TodayPointEarned   float64 `json:"todayPointEarned"`
	EarningRate        float64 `json:"earningRate"`
}
