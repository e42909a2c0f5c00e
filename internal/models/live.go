package models

import "time"

// LiveSession is a scheduled or running video classroom tied to a course.
type LiveSession struct {
	ID          string     `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description,omitempty" db:"description"`
	CourseID    string     `json:"course_id" db:"course_id"`
	RoomName    string     `json:"room_name" db:"room_name"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty" db:"scheduled_at"`
	CreatedBy   string     `json:"created_by" db:"created_by"`
	Status      string     `json:"status" db:"status"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}
