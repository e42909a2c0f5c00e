package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/Scolaria-io/scolaria/internal/models"
	"github.com/google/uuid"
)

// AppendProgress adds one ledger row. The ledger is append-only and repeats
// per (user, course) are expected; nothing here deduplicates.
func (d *DB) AppendProgress(ctx context.Context, entry *models.ProgressEntry) error {
	entry.ID = uuid.NewString()
	if entry.CompletedAt.IsZero() {
		entry.CompletedAt = time.Now().UTC()
	}

	_, err := d.conn.ExecContext(ctx,
		d.bind("INSERT INTO progress (id, user_id, course_id, quiz_id, score, completed_at) VALUES (?, ?, ?, ?, ?, ?)"),
		entry.ID, entry.UserID, entry.CourseID, entry.QuizID, entry.Score, entry.CompletedAt,
	)
	return err
}

// DistinctCourseCount computes the free-tier meter: the number of distinct
// courses present in the user's ledger.
func (d *DB) DistinctCourseCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := d.conn.QueryRowContext(ctx,
		d.bind("SELECT COUNT(DISTINCT course_id) FROM progress WHERE user_id = ?"), userID,
	).Scan(&count)
	return count, err
}

// HasAccessedCourse reports whether the course already appears in the
// user's ledger.
func (d *DB) HasAccessedCourse(ctx context.Context, userID, courseID string) (bool, error) {
	var exists bool
	err := d.conn.QueryRowContext(ctx,
		d.bind("SELECT EXISTS(SELECT 1 FROM progress WHERE user_id = ? AND course_id = ?)"),
		userID, courseID,
	).Scan(&exists)
	return exists, err
}

const progressJoin = `SELECT p.id, p.user_id, p.course_id, p.quiz_id, p.score, p.completed_at,
	COALESCE(c.title, ''), COALESCE(c.level, ''), COALESCE(c.subject, '')
	FROM progress p LEFT JOIN courses c ON p.course_id = c.id`

func (d *DB) queryProgress(ctx context.Context, query string, args ...any) ([]*models.ProgressEntry, error) {
	rows, err := d.conn.QueryContext(ctx, d.bind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.ProgressEntry
	for rows.Next() {
		entry := &models.ProgressEntry{}
		err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.CourseID, &entry.QuizID, &entry.Score,
			&entry.CompletedAt, &entry.CourseTitle, &entry.Level, &entry.Subject,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ListProgress returns a user's full ledger, newest first, with course
// details joined in.
func (d *DB) ListProgress(ctx context.Context, userID string) ([]*models.ProgressEntry, error) {
	return d.queryProgress(ctx, progressJoin+" WHERE p.user_id = ? ORDER BY p.completed_at DESC", userID)
}

// ListCourseProgress returns a user's ledger rows for one course.
func (d *DB) ListCourseProgress(ctx context.Context, userID, courseID string) ([]*models.ProgressEntry, error) {
	return d.queryProgress(ctx,
		progressJoin+" WHERE p.user_id = ? AND p.course_id = ? ORDER BY p.completed_at DESC",
		userID, courseID)
}

// ActivityEntry is a ledger row joined with the user's name for the admin
// dashboard activity feed.
type ActivityEntry struct {
	models.ProgressEntry
	UserName string `json:"user_name"`
}

// RecentActivity returns the newest ledger rows across all users.
func (d *DB) RecentActivity(ctx context.Context, limit int) ([]*ActivityEntry, error) {
	rows, err := d.conn.QueryContext(ctx,
		d.bind(`SELECT p.id, p.user_id, p.course_id, p.quiz_id, p.score, p.completed_at,
			COALESCE(c.title, ''), COALESCE(c.level, ''), COALESCE(c.subject, ''), COALESCE(u.name, '')
			FROM progress p
			LEFT JOIN courses c ON p.course_id = c.id
			LEFT JOIN users u ON p.user_id = u.id
			ORDER BY p.completed_at DESC LIMIT ?`),
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*ActivityEntry
	for rows.Next() {
		entry := &ActivityEntry{}
		err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.CourseID, &entry.QuizID, &entry.Score,
			&entry.CompletedAt, &entry.CourseTitle, &entry.Level, &entry.Subject, &entry.UserName,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// UserStats aggregates a user's ledger: distinct course count, rounded
// average score, and a per-subject breakdown.
func (d *DB) UserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	stats := &models.UserStats{}

	if err := d.conn.QueryRowContext(ctx,
		d.bind("SELECT COUNT(DISTINCT course_id) FROM progress WHERE user_id = ?"), userID,
	).Scan(&stats.TotalCourses); err != nil {
		return nil, err
	}

	var avg sql.NullFloat64
	if err := d.conn.QueryRowContext(ctx,
		d.bind("SELECT AVG(score) FROM progress WHERE user_id = ? AND score IS NOT NULL"), userID,
	).Scan(&avg); err != nil {
		return nil, err
	}
	if avg.Valid {
		stats.AverageScore = int(avg.Float64 + 0.5)
	}

	rows, err := d.conn.QueryContext(ctx,
		d.bind(`SELECT COALESCE(c.subject, ''), COUNT(*), COALESCE(AVG(p.score), 0)
			FROM progress p
			LEFT JOIN courses c ON p.course_id = c.id
			WHERE p.user_id = ?
			GROUP BY c.subject
			ORDER BY c.subject`),
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var stat models.SubjectStat
		if err := rows.Scan(&stat.Subject, &stat.Count, &stat.AverageScore); err != nil {
			return nil, err
		}
		stats.BySubject = append(stats.BySubject, stat)
	}
	return stats, rows.Err()
}

// CountEnrollments counts distinct (user, course) pairs in the ledger.
func (d *DB) CountEnrollments(ctx context.Context) (int, error) {
	var count int
	err := d.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM (SELECT DISTINCT user_id, course_id FROM progress) e",
	).Scan(&count)
	return count, err
}
