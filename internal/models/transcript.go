package models

import "time"

// CaseSummary describes a recorded case.
type CaseSummary struct {
	ID        string
	Scenario  string
	Guilty    string
	StartedAt time.Time
	// Verdict is nil while the case is open.
	Verdict *Verdict
}

// Transcript is the recorded course of a case. Histories are keyed by suspect name.
type Transcript struct {
	Case      CaseSummary
	Suspects  []string
	Histories map[string][]Turn
}
