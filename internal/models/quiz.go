package models

import "time"

// Question is a single multiple-choice quiz question. Correct is the index
// into Options of the expected answer.
type Question struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Correct int      `json:"correct"`
}

// Quiz belongs to a course and carries its questions inline.
type Quiz struct {
	ID          string     `json:"id" db:"id"`
	CourseID    string     `json:"course_id" db:"course_id"`
	Title       string     `json:"title" db:"title"`
	Questions   []Question `json:"questions" db:"-"`
	CourseTitle string     `json:"course_title,omitempty" db:"-"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}
