package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Scolaria-io/scolaria/internal/models"
	"github.com/google/uuid"
)

const courseColumns = `c.id, c.title, c.level, c.subject, c.description, c.teacher_id,
	COALESCE(u.name, ''), c.video_url, c.pdf_url, c.created_at, c.updated_at`

func scanCourse(row interface{ Scan(...any) error }) (*models.Course, error) {
	course := &models.Course{}
	var description sql.NullString
	err := row.Scan(
		&course.ID,
		&course.Title,
		&course.Level,
		&course.Subject,
		&description,
		&course.TeacherID,
		&course.TeacherName,
		&course.VideoURL,
		&course.PDFURL,
		&course.CreatedAt,
		&course.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	course.Description = description.String
	return course, nil
}

// CreateCourse inserts a new catalog entry.
func (d *DB) CreateCourse(ctx context.Context, course *models.Course) error {
	now := time.Now().UTC()
	course.ID = uuid.NewString()
	course.CreatedAt = now
	course.UpdatedAt = now

	_, err := d.conn.ExecContext(ctx,
		d.bind(`INSERT INTO courses (id, title, level, subject, description, teacher_id, video_url, pdf_url, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		course.ID, course.Title, course.Level, course.Subject, course.Description,
		course.TeacherID, course.VideoURL, course.PDFURL, course.CreatedAt, course.UpdatedAt,
	)
	return err
}

// GetCourse retrieves one course with its teacher's name joined in.
func (d *DB) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	row := d.conn.QueryRowContext(ctx,
		d.bind("SELECT "+courseColumns+" FROM courses c LEFT JOIN users u ON c.teacher_id = u.id WHERE c.id = ?"),
		id)
	return scanCourse(row)
}

// CourseFilter narrows catalog listings.
type CourseFilter struct {
	Level   models.Level
	Subject string
	Search  string
}

// ListCourses returns catalog entries matching the filter, newest first.
func (d *DB) ListCourses(ctx context.Context, filter CourseFilter) ([]*models.Course, error) {
	query := "SELECT " + courseColumns + " FROM courses c LEFT JOIN users u ON c.teacher_id = u.id WHERE 1=1"
	var args []any

	if filter.Level != "" {
		query += " AND c.level = ?"
		args = append(args, filter.Level)
	}
	if filter.Subject != "" {
		query += " AND c.subject = ?"
		args = append(args, filter.Subject)
	}
	if filter.Search != "" {
		query += " AND (c.title LIKE ? OR c.description LIKE ?)"
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	query += " ORDER BY c.created_at DESC"

	rows, err := d.conn.QueryContext(ctx, d.bind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []*models.Course
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}
	return courses, rows.Err()
}

// UpdateCourse rewrites the editable fields of a course.
func (d *DB) UpdateCourse(ctx context.Context, course *models.Course) error {
	result, err := d.conn.ExecContext(ctx,
		d.bind(`UPDATE courses SET title = ?, level = ?, subject = ?, description = ?,
			video_url = ?, pdf_url = ?, updated_at = ? WHERE id = ?`),
		course.Title, course.Level, course.Subject, course.Description,
		course.VideoURL, course.PDFURL, time.Now().UTC(), course.ID,
	)
	if err != nil {
		return err
	}
	return requireRowsAffected(result)
}

// DeleteCourse removes a course and, through cascading foreign keys, its
// quizzes and ledger rows.
func (d *DB) DeleteCourse(ctx context.Context, id string) error {
	result, err := d.conn.ExecContext(ctx, d.bind("DELETE FROM courses WHERE id = ?"), id)
	if err != nil {
		return err
	}
	return requireRowsAffected(result)
}

// CountCourses returns the catalog size.
func (d *DB) CountCourses(ctx context.Context) (int, error) {
	var count int
	err := d.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM courses").Scan(&count)
	return count, err
}
