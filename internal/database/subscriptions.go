package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Scolaria-io/scolaria/internal/models"
	"github.com/google/uuid"
)

const subscriptionColumns = "id, user_id, plan, status, start_date, end_date, created_at"

func scanSubscription(row interface{ Scan(...any) error }) (*models.Subscription, error) {
	sub := &models.Subscription{}
	err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.Plan,
		&sub.Status,
		&sub.StartDate,
		&sub.EndDate,
		&sub.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// CreateSubscription inserts a new subscription row. Historical rows are
// never updated on plan changes except through UpdateSubscription.
func (d *DB) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	sub.ID = uuid.NewString()
	sub.CreatedAt = time.Now().UTC()

	_, err := d.conn.ExecContext(ctx,
		d.bind(`INSERT INTO subscriptions (id, user_id, plan, status, start_date, end_date, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`),
		sub.ID, sub.UserID, sub.Plan, sub.Status, sub.StartDate, sub.EndDate, sub.CreatedAt,
	)
	return err
}

// LatestSubscription returns the most recently created subscription row for
// a user, which is the authoritative one.
func (d *DB) LatestSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	row := d.conn.QueryRowContext(ctx,
		d.bind("SELECT "+subscriptionColumns+" FROM subscriptions WHERE user_id = ? ORDER BY created_at DESC LIMIT 1"),
		userID)
	return scanSubscription(row)
}

// UpdateSubscription rewrites the plan fields of an existing row.
func (d *DB) UpdateSubscription(ctx context.Context, id string, plan models.Plan, status string, start time.Time, end *time.Time) error {
	result, err := d.conn.ExecContext(ctx,
		d.bind("UPDATE subscriptions SET plan = ?, status = ?, start_date = ?, end_date = ? WHERE id = ?"),
		plan, status, start, end, id,
	)
	if err != nil {
		return err
	}
	return requireRowsAffected(result)
}
