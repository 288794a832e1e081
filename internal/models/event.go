package models

type ThesisCompletedEvent struct {
	ThesisID  string `json:"thesis_id"`
	StudentID string `json:"student_id"`
	DefenseID string `json:"defense_id"`
	Timestamp int64  `json:"timestamp"`
}

type DefenseScheduledEvent struct {
	DefenseID   string `json:"defense_id"`
	ThesisID    string `json:"thesis_id"`
	StudentID   string `json:"student_id"`
	DefenseDate string `json:"defense_date"`
	Timestamp   int64  `json:"timestamp"`
}

type DefenseGradedEvent struct {
	DefenseID string  `json:"defense_id"`
	ThesisID  string  `json:"thesis_id"`
	StudentID string  `json:"student_id"`
	Grade     float64 `json:"grade"`
	Timestamp int64   `json:"timestamp"`
}
