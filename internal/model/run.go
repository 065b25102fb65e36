package model

// StepError records a failed pipeline step.
type StepError struct {
	Step string
	Err  error
}

// CredentialRun is the working state of one attempt at processing a
// credential. Pipeline steps read and update it in order.
type CredentialRun struct {
	// Credential is the account being processed. Steps may update its
	// wallet address in place.
	Credential *Credential

	// Proxy is the original proxy line of the attempt, empty for direct.
	Proxy string

	// Counts are the claim counters accumulated by the claim step.
	Counts Counts

	// Tasks is the task list fetched at the start of the attempt.
	Tasks []Task

	// Stats are the point statistics, if they could be fetched.
	Stats *PointStats

	// LinkedWallet is the address linked during this attempt, if any.
	LinkedWallet string

	// PerformedSteps lists the steps that ran, in order.
	PerformedSteps []string

	// Errors holds the failures of non-critical steps.
	Errors []StepError
}

// NewCredentialRun creates the run state for cred over the given proxy.
func NewCredentialRun(cred *Credential, proxy string) *CredentialRun {
	return &CredentialRun{Credential: cred, Proxy: proxy}
}

// Label returns the display label of the credential.
func (r *CredentialRun) Label() string {
	if r.Credential == nil {
		return ""
	}
	return r.Credential.Label
}

// AddError records a failed step.
func (r *CredentialRun) AddError(step string, err error) {
	r.Errors = append(r.Errors, StepError{Step: step, Err: err})
}
