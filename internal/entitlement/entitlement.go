// Package entitlement decides whether an account may access a course.
//
// Non-premium accounts are metered against the progress ledger: the number
// of distinct courses ever accessed is compared to the free limit. Courses
// already present in the ledger stay free forever. The premium state is a
// flag in the key-value cache, mirrored from the subscription row with its
// own expiry; the two can drift because nothing links the writes.
package entitlement

import (
	"context"
	"fmt"
	"time"

	"github.com/Scolaria-io/scolaria/internal/cache"
	"github.com/Scolaria-io/scolaria/internal/database"
	"github.com/Scolaria-io/scolaria/internal/models"
	"go.uber.org/zap"
)

// Access decision reason codes.
const (
	ReasonPremium         = "premium"
	ReasonAlreadyAccessed = "already_accessed"
	ReasonUnderLimit      = "under_limit"
	ReasonLimitReached    = "limit_reached"
)

const premiumDuration = 365 * 24 * time.Hour

// Decision is the outcome of a checkAccess call. AccessedCount and Limit
// are only reported on the metered paths.
type Decision struct {
	Granted       bool   `json:"granted"`
	Reason        string `json:"reason"`
	AccessedCount *int   `json:"accessedCount,omitempty"`
	Limit         *int   `json:"limit,omitempty"`
	Message       string `json:"message,omitempty"`
}

// Summary describes an account's subscription state for the client.
type Summary struct {
	Subscription    *models.Subscription `json:"subscription"`
	IsPremium       bool                 `json:"isPremium"`
	CoursesAccessed int                  `json:"coursesAccessed"`
	Limit           *int                 `json:"limit"` // nil for premium accounts
}

// Engine evaluates access entitlements against the store and flag cache.
type Engine struct {
	store  *database.DB
	flags  *cache.Cache
	limit  int
	logger *zap.Logger
}

// New creates an Engine with the given free-tier course limit.
func New(store *database.DB, flags *cache.Cache, limit int, logger *zap.Logger) *Engine {
	return &Engine{store: store, flags: flags, limit: limit, logger: logger}
}

func premiumKey(userID string) string {
	return "premium:" + userID
}

// IsPremium reports whether the account's premium flag is set and unexpired.
func (e *Engine) IsPremium(ctx context.Context, userID string) (bool, error) {
	value, ok, err := e.flags.Get(ctx, premiumKey(userID))
	if err != nil {
		return false, err
	}
	return ok && value == "true", nil
}

// CheckAccess decides whether userID may open courseID. The checks run in
// strict order: premium flag, prior access, then the distinct-count meter.
// The count read and any later ledger append are not linked by a
// transaction, so concurrent first-time checks at the limit boundary can
// each be granted.
func (e *Engine) CheckAccess(ctx context.Context, userID, courseID string) (*Decision, error) {
	premium, err := e.IsPremium(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read premium flag: %w", err)
	}
	if premium {
		return &Decision{Granted: true, Reason: ReasonPremium}, nil
	}

	accessed, err := e.store.DistinctCourseCount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count accessed courses: %w", err)
	}

	already, err := e.store.HasAccessedCourse(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to check prior access: %w", err)
	}
	if already {
		// Revisits to unlocked courses never count against the cap.
		return &Decision{Granted: true, Reason: ReasonAlreadyAccessed}, nil
	}

	if accessed < e.limit {
		return &Decision{
			Granted:       true,
			Reason:        ReasonUnderLimit,
			AccessedCount: &accessed,
			Limit:         &e.limit,
		}, nil
	}

	return &Decision{
		Granted:       false,
		Reason:        ReasonLimitReached,
		AccessedCount: &accessed,
		Limit:         &e.limit,
		Message:       "Free course limit reached. Upgrade to premium for unlimited access.",
	}, nil
}

// Upgrade idempotently moves the account to the premium plan: the latest
// subscription row is rewritten (or a new one created) and the premium flag
// is mirrored into the cache with a matching expiry. The two writes are
// independent; a failure between them leaves the representations drifted.
func (e *Engine) Upgrade(ctx context.Context, userID string) (*models.Subscription, error) {
	start := time.Now().UTC()
	end := start.Add(premiumDuration)

	sub, err := e.store.LatestSubscription(ctx, userID)
	switch {
	case err == nil:
		sub.Plan = models.PlanPremium
		sub.Status = "active"
		sub.StartDate = start
		sub.EndDate = &end
		if err := e.store.UpdateSubscription(ctx, sub.ID, sub.Plan, sub.Status, sub.StartDate, sub.EndDate); err != nil {
			return nil, fmt.Errorf("failed to update subscription: %w", err)
		}
	case err == database.ErrNotFound:
		sub = &models.Subscription{
			UserID:    userID,
			Plan:      models.PlanPremium,
			Status:    "active",
			StartDate: start,
			EndDate:   &end,
		}
		if err := e.store.CreateSubscription(ctx, sub); err != nil {
			return nil, fmt.Errorf("failed to create subscription: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}

	if err := e.flags.Put(ctx, premiumKey(userID), "true", premiumDuration); err != nil {
		return nil, fmt.Errorf("failed to set premium flag: %w", err)
	}

	e.logger.Info("account upgraded to premium",
		zap.String("user_id", userID),
		zap.Time("end_date", end))

	return sub, nil
}

// RecordCompletion appends one ledger row. Duplicate (user, course) pairs
// are expected; this is how retakes are modeled. This is the only mutator
// of the meter CheckAccess reads.
func (e *Engine) RecordCompletion(ctx context.Context, userID, courseID string, quizID *string, score *int) (*models.ProgressEntry, error) {
	entry := &models.ProgressEntry{
		UserID:   userID,
		CourseID: courseID,
		QuizID:   quizID,
		Score:    score,
	}
	if err := e.store.AppendProgress(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append progress: %w", err)
	}
	return entry, nil
}

// Summarize reports the account's subscription state. Accounts with no
// subscription row are treated as free.
func (e *Engine) Summarize(ctx context.Context, userID string) (*Summary, error) {
	summary := &Summary{}

	sub, err := e.store.LatestSubscription(ctx, userID)
	switch {
	case err == nil:
		summary.Subscription = sub
	case err == database.ErrNotFound:
		summary.Subscription = &models.Subscription{
			UserID: userID,
			Plan:   models.PlanFree,
			Status: "active",
		}
	default:
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}

	premium, err := e.IsPremium(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read premium flag: %w", err)
	}
	summary.IsPremium = premium

	accessed, err := e.store.DistinctCourseCount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count accessed courses: %w", err)
	}
	summary.CoursesAccessed = accessed

	if !premium {
		limit := e.limit
		summary.Limit = &limit
	}
	return summary, nil
}

// Limit returns the configured free-tier course cap.
func (e *Engine) Limit() int {
	return e.limit
}
