package models

import "time"

// Level is the school level a course targets.
type Level string

const (
	LevelPrimary Level = "primary"
	LevelMiddle  Level = "middle"
	LevelHigh    Level = "high"
)

// ValidLevel reports whether l is a known school level.
func ValidLevel(l Level) bool {
	switch l {
	case LevelPrimary, LevelMiddle, LevelHigh:
		return true
	}
	return false
}

// Course is a catalog entry with optional video and PDF content.
type Course struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Level       Level     `json:"level" db:"level"`
	Subject     string    `json:"subject" db:"subject"`
	Description string    `json:"description,omitempty" db:"description"`
	TeacherID   string    `json:"teacher_id" db:"teacher_id"`
	TeacherName string    `json:"teacher_name,omitempty" db:"-"`
	VideoURL    *string   `json:"video_url,omitempty" db:"video_url"`
	PDFURL      *string   `json:"pdf_url,omitempty" db:"pdf_url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
