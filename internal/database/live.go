package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/Scolaria-io/scolaria/internal/models"
	"github.com/google/uuid"
)

// CreateLiveSession persists a new live classroom session.
func (d *DB) CreateLiveSession(ctx context.Context, session *models.LiveSession) error {
	session.ID = uuid.NewString()
	session.CreatedAt = time.Now().UTC()
	if session.Status == "" {
		session.Status = "active"
	}

	// Sessions may stand alone; an empty course link is stored as NULL.
	courseID := sql.NullString{String: session.CourseID, Valid: session.CourseID != ""}

	_, err := d.conn.ExecContext(ctx,
		d.bind(`INSERT INTO live_sessions (id, title, description, course_id, room_name, scheduled_at, created_by, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		session.ID, session.Title, session.Description, courseID,
		session.RoomName, session.ScheduledAt, session.CreatedBy, session.Status, session.CreatedAt,
	)
	return err
}

// ListLiveSessions returns sessions newest first.
func (d *DB) ListLiveSessions(ctx context.Context) ([]*models.LiveSession, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT id, title, description, course_id, room_name, scheduled_at, created_by, status, created_at
		FROM live_sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.LiveSession
	for rows.Next() {
		session := &models.LiveSession{}
		var description, courseID sql.NullString
		err := rows.Scan(
			&session.ID, &session.Title, &description, &courseID,
			&session.RoomName, &session.ScheduledAt, &session.CreatedBy,
			&session.Status, &session.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		session.Description = description.String
		session.CourseID = courseID.String
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}
