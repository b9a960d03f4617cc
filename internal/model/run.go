package model

import "time"

// RunRecord is one invocation of a batch command, kept for auditing how the
// enrichment pipeline has been running.
type RunRecord struct {
	ID         string    `json:"id"`
	Command    string    `json:"command"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Processed  int       `json:"processed"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
}
