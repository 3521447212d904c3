package profile

const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusCancelled = "cancelled"
	RunStatusFailed    = "failed"
)

// ImportRun is the audit record of one applied import session.
type ImportRun struct {
	ID            string
	SessionID     string
	Filename      string
	Status        string
	NewCount      int
	ExistingCount int
	InvalidCount  int
}
