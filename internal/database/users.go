package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/Scolaria-io/scolaria/internal/models"
	"github.com/google/uuid"
)

const userColumns = "id, email, password, role, name, grade, parent_id, photo_url, created_at, updated_at"

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Password,
		&user.Role,
		&user.Name,
		&user.Grade,
		&user.ParentID,
		&user.PhotoURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser inserts a new account. The caller supplies email, hashed
// password, role and profile fields; ID and timestamps are filled in here.
func (d *DB) CreateUser(ctx context.Context, user *models.User) error {
	var exists bool
	err := d.conn.QueryRowContext(ctx,
		d.bind("SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)"), user.Email,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateEmail
	}

	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = d.conn.ExecContext(ctx,
		d.bind(`INSERT INTO users (id, email, password, role, name, grade, parent_id, photo_url, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		user.ID, user.Email, user.Password, user.Role, user.Name,
		user.Grade, user.ParentID, user.PhotoURL, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		// The unique index backstops the existence check above.
		if strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// GetUserByEmail retrieves a user by exact email match.
func (d *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := d.conn.QueryRowContext(ctx,
		d.bind("SELECT "+userColumns+" FROM users WHERE email = ?"), email)
	return scanUser(row)
}

// GetUserByID retrieves a user by ID.
func (d *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	row := d.conn.QueryRowContext(ctx,
		d.bind("SELECT "+userColumns+" FROM users WHERE id = ?"), id)
	return scanUser(row)
}

// UpdateUserProfile updates the self-editable profile fields.
func (d *DB) UpdateUserProfile(ctx context.Context, id, name string, grade, photoURL *string) error {
	result, err := d.conn.ExecContext(ctx,
		d.bind("UPDATE users SET name = ?, grade = ?, photo_url = ?, updated_at = ? WHERE id = ?"),
		name, grade, photoURL, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRowsAffected(result)
}

// UpdateUserPhoto sets only the profile photo URL.
func (d *DB) UpdateUserPhoto(ctx context.Context, id, photoURL string) error {
	result, err := d.conn.ExecContext(ctx,
		d.bind("UPDATE users SET photo_url = ?, updated_at = ? WHERE id = ?"),
		photoURL, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRowsAffected(result)
}

// UpdateUserPassword replaces the stored password hash.
func (d *DB) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	result, err := d.conn.ExecContext(ctx,
		d.bind("UPDATE users SET password = ?, updated_at = ? WHERE id = ?"),
		passwordHash, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRowsAffected(result)
}

// UpdateUser applies an admin edit to an account.
func (d *DB) UpdateUser(ctx context.Context, user *models.User) error {
	result, err := d.conn.ExecContext(ctx,
		d.bind("UPDATE users SET email = ?, role = ?, name = ?, grade = ?, parent_id = ?, updated_at = ? WHERE id = ?"),
		user.Email, user.Role, user.Name, user.Grade, user.ParentID, time.Now().UTC(), user.ID,
	)
	if err != nil {
		return err
	}
	return requireRowsAffected(result)
}

// DeleteUser removes an account. This is a hard delete.
func (d *DB) DeleteUser(ctx context.Context, id string) error {
	result, err := d.conn.ExecContext(ctx, d.bind("DELETE FROM users WHERE id = ?"), id)
	if err != nil {
		return err
	}
	return requireRowsAffected(result)
}

// ListChildren returns the student accounts linked to a parent.
func (d *DB) ListChildren(ctx context.Context, parentID string) ([]*models.User, error) {
	rows, err := d.conn.QueryContext(ctx,
		d.bind("SELECT "+userColumns+" FROM users WHERE parent_id = ? ORDER BY created_at"), parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// IsChildOf reports whether childID is a student account linked to parentID.
func (d *DB) IsChildOf(ctx context.Context, childID, parentID string) (bool, error) {
	var exists bool
	err := d.conn.QueryRowContext(ctx,
		d.bind("SELECT EXISTS(SELECT 1 FROM users WHERE id = ? AND parent_id = ?)"),
		childID, parentID,
	).Scan(&exists)
	return exists, err
}

// UserFilter narrows admin user listings.
type UserFilter struct {
	Role   models.Role
	Search string
}

// ListUsers returns accounts matching the filter, newest first.
func (d *DB) ListUsers(ctx context.Context, filter UserFilter) ([]*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE 1=1"
	var args []any

	if filter.Role != "" {
		query += " AND role = ?"
		args = append(args, filter.Role)
	}
	if filter.Search != "" {
		query += " AND (name LIKE ? OR email LIKE ?)"
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	query += " ORDER BY created_at DESC"

	rows, err := d.conn.QueryContext(ctx, d.bind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// CountUsers returns the total number of accounts.
func (d *DB) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := d.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// RoleCount is one row of the users-by-role breakdown.
type RoleCount struct {
	Role  models.Role `json:"role"`
	Count int         `json:"count"`
}

// CountUsersByRole returns how many accounts exist per role.
func (d *DB) CountUsersByRole(ctx context.Context) ([]RoleCount, error) {
	rows, err := d.conn.QueryContext(ctx, "SELECT role, COUNT(*) FROM users GROUP BY role ORDER BY role")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []RoleCount
	for rows.Next() {
		var rc RoleCount
		if err := rows.Scan(&rc.Role, &rc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, rc)
	}
	return counts, rows.Err()
}

func requireRowsAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
