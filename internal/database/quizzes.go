package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Scolaria-io/scolaria/internal/models"
	"github.com/google/uuid"
)

func scanQuiz(row interface{ Scan(...any) error }, withCourseTitle bool) (*models.Quiz, error) {
	quiz := &models.Quiz{}
	var questions string

	dest := []any{&quiz.ID, &quiz.CourseID, &quiz.Title, &questions, &quiz.CreatedAt}
	if withCourseTitle {
		dest = append(dest, &quiz.CourseTitle)
	}

	err := row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(questions), &quiz.Questions); err != nil {
		return nil, fmt.Errorf("failed to decode quiz questions: %w", err)
	}
	return quiz, nil
}

// CreateQuiz inserts a quiz with its questions serialized as JSON.
func (d *DB) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	questions, err := json.Marshal(quiz.Questions)
	if err != nil {
		return fmt.Errorf("failed to encode quiz questions: %w", err)
	}

	quiz.ID = uuid.NewString()
	quiz.CreatedAt = time.Now().UTC()

	_, err = d.conn.ExecContext(ctx,
		d.bind("INSERT INTO quizzes (id, course_id, title, questions, created_at) VALUES (?, ?, ?, ?, ?)"),
		quiz.ID, quiz.CourseID, quiz.Title, string(questions), quiz.CreatedAt,
	)
	return err
}

// GetQuiz retrieves a quiz by ID.
func (d *DB) GetQuiz(ctx context.Context, id string) (*models.Quiz, error) {
	row := d.conn.QueryRowContext(ctx,
		d.bind("SELECT id, course_id, title, questions, created_at FROM quizzes WHERE id = ?"), id)
	return scanQuiz(row, false)
}

// GetQuizByCourse retrieves the quiz attached to a course.
func (d *DB) GetQuizByCourse(ctx context.Context, courseID string) (*models.Quiz, error) {
	row := d.conn.QueryRowContext(ctx,
		d.bind("SELECT id, course_id, title, questions, created_at FROM quizzes WHERE course_id = ? ORDER BY created_at DESC LIMIT 1"),
		courseID)
	return scanQuiz(row, false)
}

// UpdateQuiz rewrites a quiz's title and questions.
func (d *DB) UpdateQuiz(ctx context.Context, id, title string, questions []models.Question) error {
	encoded, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("failed to encode quiz questions: %w", err)
	}

	result, err := d.conn.ExecContext(ctx,
		d.bind("UPDATE quizzes SET title = ?, questions = ? WHERE id = ?"),
		title, string(encoded), id,
	)
	if err != nil {
		return err
	}
	return requireRowsAffected(result)
}

// DeleteQuiz removes a quiz.
func (d *DB) DeleteQuiz(ctx context.Context, id string) error {
	result, err := d.conn.ExecContext(ctx, d.bind("DELETE FROM quizzes WHERE id = ?"), id)
	if err != nil {
		return err
	}
	return requireRowsAffected(result)
}

// ListQuizzes returns all quizzes with their course title joined in.
func (d *DB) ListQuizzes(ctx context.Context) ([]*models.Quiz, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT q.id, q.course_id, q.title, q.questions, q.created_at, COALESCE(c.title, '')
		FROM quizzes q LEFT JOIN courses c ON q.course_id = c.id
		ORDER BY q.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quizzes []*models.Quiz
	for rows.Next() {
		quiz, err := scanQuiz(rows, true)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, rows.Err()
}
