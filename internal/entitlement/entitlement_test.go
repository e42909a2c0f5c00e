package entitlement

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Scolaria-io/scolaria/internal/cache"
	"github.com/Scolaria-io/scolaria/internal/config"
	"github.com/Scolaria-io/scolaria/internal/database"
	"github.com/Scolaria-io/scolaria/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	engine *Engine
	store  *database.DB
	flags  *cache.Cache
	ctx    context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := database.Init(&config.Config{
		DatabaseType: "sqlite",
		DatabasePath: filepath.Join(t.TempDir(), "entitlement.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	flags := cache.New(store)
	return &fixture{
		engine: New(store, flags, 3, zap.NewNop()),
		store:  store,
		flags:  flags,
		ctx:    context.Background(),
	}
}

func (f *fixture) newStudent(t *testing.T, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Password: "h", Role: models.RoleStudent, Name: "Student"}
	require.NoError(t, f.store.CreateUser(f.ctx, user))
	return user
}

func (f *fixture) newCourse(t *testing.T, title string) *models.Course {
	t.Helper()
	teacher := &models.User{Email: title + "-prof@example.com", Password: "h", Role: models.RoleTeacher, Name: "Prof"}
	require.NoError(t, f.store.CreateUser(f.ctx, teacher))
	course := &models.Course{Title: title, Level: models.LevelMiddle, Subject: "math", TeacherID: teacher.ID}
	require.NoError(t, f.store.CreateCourse(f.ctx, course))
	return course
}

func (f *fixture) access(t *testing.T, userID, courseID string) {
	t.Helper()
	_, err := f.engine.RecordCompletion(f.ctx, userID, courseID, nil, nil)
	require.NoError(t, err)
}

func TestCheckAccessUnderLimit(t *testing.T) {
	f := newFixture(t)
	student := f.newStudent(t, "fresh@example.com")
	course := f.newCourse(t, "A")

	decision, err := f.engine.CheckAccess(f.ctx, student.ID, course.ID)
	require.NoError(t, err)
	assert.True(t, decision.Granted)
	assert.Equal(t, ReasonUnderLimit, decision.Reason)
	require.NotNil(t, decision.AccessedCount)
	assert.Equal(t, 0, *decision.AccessedCount)
	require.NotNil(t, decision.Limit)
	assert.Equal(t, 3, *decision.Limit)
}

func TestFreeLimitSequence(t *testing.T) {
	f := newFixture(t)
	student := f.newStudent(t, "seq@example.com")
	a := f.newCourse(t, "A")
	b := f.newCourse(t, "B")
	c := f.newCourse(t, "C")
	d := f.newCourse(t, "D")

	for _, course := range []*models.Course{a, b, c} {
		decision, err := f.engine.CheckAccess(f.ctx, student.ID, course.ID)
		require.NoError(t, err)
		assert.True(t, decision.Granted)
		assert.Equal(t, ReasonUnderLimit, decision.Reason)
		f.access(t, student.ID, course.ID)
	}

	// Fourth distinct course is refused.
	decision, err := f.engine.CheckAccess(f.ctx, student.ID, d.ID)
	require.NoError(t, err)
	assert.False(t, decision.Granted)
	assert.Equal(t, ReasonLimitReached, decision.Reason)
	require.NotNil(t, decision.AccessedCount)
	assert.Equal(t, 3, *decision.AccessedCount)

	// Courses already in the ledger stay reachable past the cap.
	decision, err = f.engine.CheckAccess(f.ctx, student.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, decision.Granted)
	assert.Equal(t, ReasonAlreadyAccessed, decision.Reason)
	assert.Nil(t, decision.AccessedCount)
}

func TestPremiumAlwaysGrants(t *testing.T) {
	f := newFixture(t)
	student := f.newStudent(t, "vip@example.com")
	courses := []*models.Course{
		f.newCourse(t, "A"), f.newCourse(t, "B"),
		f.newCourse(t, "C"), f.newCourse(t, "D"), f.newCourse(t, "E"),
	}

	_, err := f.engine.Upgrade(f.ctx, student.ID)
	require.NoError(t, err)

	for _, course := range courses {
		decision, err := f.engine.CheckAccess(f.ctx, student.ID, course.ID)
		require.NoError(t, err)
		assert.True(t, decision.Granted)
		assert.Equal(t, ReasonPremium, decision.Reason)
		f.access(t, student.ID, course.ID)
	}
}

func TestExpiredPremiumFlagDoesNotGrant(t *testing.T) {
	f := newFixture(t)
	student := f.newStudent(t, "lapsed@example.com")
	course := f.newCourse(t, "A")

	require.NoError(t, f.flags.Put(f.ctx, "premium:"+student.ID, "true", -time.Second))

	premium, err := f.engine.IsPremium(f.ctx, student.ID)
	require.NoError(t, err)
	assert.False(t, premium)

	decision, err := f.engine.CheckAccess(f.ctx, student.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, ReasonUnderLimit, decision.Reason)
}

func TestUpgradeCreatesSubscriptionWhenNoneExists(t *testing.T) {
	f := newFixture(t)
	student := f.newStudent(t, "new-sub@example.com")

	sub, err := f.engine.Upgrade(f.ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPremium, sub.Plan)
	assert.Equal(t, "active", sub.Status)
	require.NotNil(t, sub.EndDate)
	assert.WithinDuration(t, time.Now().AddDate(1, 0, 0), *sub.EndDate, time.Minute)

	premium, err := f.engine.IsPremium(f.ctx, student.ID)
	require.NoError(t, err)
	assert.True(t, premium)
}

func TestUpgradeRewritesLatestSubscription(t *testing.T) {
	f := newFixture(t)
	student := f.newStudent(t, "free-first@example.com")

	free := &models.Subscription{
		UserID:    student.ID,
		Plan:      models.PlanFree,
		Status:    "active",
		StartDate: time.Now().UTC(),
	}
	require.NoError(t, f.store.CreateSubscription(f.ctx, free))

	sub, err := f.engine.Upgrade(f.ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, free.ID, sub.ID)
	assert.Equal(t, models.PlanPremium, sub.Plan)

	latest, err := f.store.LatestSubscription(f.ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, free.ID, latest.ID)
	assert.Equal(t, models.PlanPremium, latest.Plan)
}

func TestConcurrentChecksAtBoundaryAllGrant(t *testing.T) {
	f := newFixture(t)
	student := f.newStudent(t, "racer@example.com")
	f.access(t, student.ID, f.newCourse(t, "A").ID)
	f.access(t, student.ID, f.newCourse(t, "B").ID)
	fresh := f.newCourse(t, "C")

	// No transaction links the count read to any later append, so every
	// concurrent first-time check at count=2 sees room under the cap.
	const n = 5
	decisions := make([]*Decision, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decisions[i], errs[i] = f.engine.CheckAccess(f.ctx, student.ID, fresh.ID)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.True(t, decisions[i].Granted)
		assert.Equal(t, ReasonUnderLimit, decisions[i].Reason)
	}
}

func TestSummarize(t *testing.T) {
	f := newFixture(t)
	student := f.newStudent(t, "summary@example.com")
	f.access(t, student.ID, f.newCourse(t, "A").ID)

	summary, err := f.engine.Summarize(f.ctx, student.ID)
	require.NoError(t, err)
	assert.False(t, summary.IsPremium)
	assert.Equal(t, 1, summary.CoursesAccessed)
	require.NotNil(t, summary.Limit)
	assert.Equal(t, 3, *summary.Limit)
	assert.Equal(t, models.PlanFree, summary.Subscription.Plan)

	_, err = f.engine.Upgrade(f.ctx, student.ID)
	require.NoError(t, err)

	summary, err = f.engine.Summarize(f.ctx, student.ID)
	require.NoError(t, err)
	assert.True(t, summary.IsPremium)
	assert.Nil(t, summary.Limit)
	assert.Equal(t, models.PlanPremium, summary.Subscription.Plan)
}
