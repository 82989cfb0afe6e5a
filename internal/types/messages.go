package types

import "time"

// CrashRecord is produced when a fuzzing run terminates early with a crash.
type CrashRecord struct {
	TestCase string // path to the persisted reproducer input on the host
	Output   string // raw captured stderr/stdout of the run
}

// VerdictMessage is the JSON payload published for each classified crash.
type VerdictMessage struct {
	SessionID   string    `json:"session_id"`
	ProjectName string    `json:"project_name,omitempty"`
	TargetName  string    `json:"target_name"`
	TestCase    string    `json:"test_case"`
	Verdict     string    `json:"verdict"`
	CreatedAt   time.Time `json:"created_at"`
}
