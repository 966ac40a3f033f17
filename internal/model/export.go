package model

import "time"

// ProgressExport is the top-level JSON structure for the progress export.
type ProgressExport struct {
	GeneratedAt time.Time         `json:"generatedAt"`
	Students    []StudentProgress `json:"students"`
}

// StudentProgress holds one student's sessions for export.
type StudentProgress struct {
	ProfileID int64             `json:"profileId"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	School    string            `json:"school,omitempty"`
	Group     string            `json:"group,omitempty"`
	Weekly    WeeklySummary     `json:"weekly"`
	Sessions  []TutoringSession `json:"sessions"`
}
