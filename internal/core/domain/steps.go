package domain

// Step names used in reports of listing writes.
const (
	StepUploadImage   = "upload_image"
	StepInsertListing = "insert_listing"
	StepRemoveImage   = "remove_image"
	StepDeleteListing = "delete_listing"
)

// StepPolicy decides what a failing step does to the rest of a multi-step write.
type StepPolicy int

const (
	// ContinueOnFailure records the failure and moves on to the next step.
	ContinueOnFailure StepPolicy = iota
	// AbortOnFailure stops the sequence; later steps are not attempted.
	AbortOnFailure
)

func (p StepPolicy) String() string {
	if p == AbortOnFailure {
		return "abort_on_failure"
	}
	return "continue_on_failure"
}

// StepResult is the outcome of one step. Err is nil on success.
type StepResult struct {
	Step   string
	Target string
	Policy StepPolicy
	Err    error
}

// OK reports whether the step succeeded.
func (r StepResult) OK() bool { return r.Err == nil }

// StepReport collects the results of a multi-step write in execution order.
// Steps that never ran because an earlier one aborted are absent.
type StepReport struct {
	Results []StepResult
}

// Failed returns the failed steps.
func (r StepReport) Failed() []StepResult {
	var out []StepResult
	for _, res := range r.Results {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// Succeeded counts the successful steps named step.
func (r StepReport) Succeeded(step string) int {
	n := 0
	for _, res := range r.Results {
		if res.Step == step && res.OK() {
			n++
		}
	}
	return n
}
