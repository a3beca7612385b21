package domain

// Job names for the job_run_log table.
const (
	JobGroupSelector = "group_selector"
	JobPriceImport   = "price_import"
)

// Job run statuses. A run is a success only when no asset or group errored.
const (
	JobStatusSuccess        = "success"
	JobStatusPartialSuccess = "partial_success"
)

// JobRun is one job execution summary. One row per job name, overwritten
// on each run with the latest status and details.
type JobRun struct {
	Name    string
	Status  string
	Details any // marshaled to JSON by the store; nil allowed
}
