package domain

import "time"

// StepOutcome describes how a single step of an instance finished.
type StepOutcome struct {
	Name     string        `json:"name,omitzero"`
	CacheKey string        `json:"cache_key,omitzero"`
	Cached   bool          `json:"cached,omitzero"`
	ExitCode int           `json:"exit_code,omitzero"`
	Duration time.Duration `json:"duration,omitzero"`
}

// RunRecord represents the persisted result of one job instance run.
type RunRecord struct {
	Instance  string        `json:"instance,omitzero"`
	Job       string        `json:"job,omitzero"`
	Status    string        `json:"status,omitzero"`
	Steps     []StepOutcome `json:"steps,omitzero"`
	Timestamp time.Time     `json:"timestamp,omitzero"`
}
