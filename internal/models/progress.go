package models

import "time"

// ProgressEntry is one row of the append-only access/completion ledger.
// Repeats per (user, course) are expected: retaking a quiz appends a new row.
// The set of distinct course IDs per user doubles as the free-tier meter.
type ProgressEntry struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	CourseID    string    `json:"course_id" db:"course_id"`
	QuizID      *string   `json:"quiz_id,omitempty" db:"quiz_id"`
	Score       *int      `json:"score,omitempty" db:"score"`
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`

	// Joined course fields for history views.
	CourseTitle string `json:"course_title,omitempty" db:"-"`
	Level       Level  `json:"level,omitempty" db:"-"`
	Subject     string `json:"subject,omitempty" db:"-"`
}

// SubjectStat is the per-subject aggregate of a user's ledger.
type SubjectStat struct {
	Subject      string  `json:"subject"`
	Count        int     `json:"count"`
	AverageScore float64 `json:"avg_score"`
}

// UserStats summarizes a user's learning history.
type UserStats struct {
	TotalCourses int           `json:"totalCourses"`
	AverageScore int           `json:"averageScore"`
	BySubject    []SubjectStat `json:"bySubject"`
}
