package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Scolaria-io/scolaria/internal/config"
	"github.com/Scolaria-io/scolaria/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type StoreTestSuite struct {
	suite.Suite
	db  *DB
	ctx context.Context
}

func (s *StoreTestSuite) SetupTest() {
	cfg := &config.Config{
		DatabaseType: "sqlite",
		DatabasePath: filepath.Join(s.T().TempDir(), "test.db"),
	}
	db, err := Init(cfg)
	require.NoError(s.T(), err)
	s.db = db
	s.ctx = context.Background()
}

func (s *StoreTestSuite) TearDownTest() {
	s.db.Close()
}

func (s *StoreTestSuite) createUser(email string, role models.Role) *models.User {
	user := &models.User{
		Email:    email,
		Password: "hashed-password",
		Role:     role,
		Name:     "Test " + string(role),
	}
	require.NoError(s.T(), s.db.CreateUser(s.ctx, user))
	return user
}

func (s *StoreTestSuite) createCourse(teacherID, title, subject string) *models.Course {
	course := &models.Course{
		Title:     title,
		Level:     models.LevelMiddle,
		Subject:   subject,
		TeacherID: teacherID,
	}
	require.NoError(s.T(), s.db.CreateCourse(s.ctx, course))
	return course
}

func (s *StoreTestSuite) TestCreateAndGetUser() {
	user := s.createUser("amine@example.com", models.RoleStudent)
	assert.NotEmpty(s.T(), user.ID)

	byEmail, err := s.db.GetUserByEmail(s.ctx, "amine@example.com")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), user.ID, byEmail.ID)
	assert.Equal(s.T(), models.RoleStudent, byEmail.Role)

	byID, err := s.db.GetUserByID(s.ctx, user.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "amine@example.com", byID.Email)

	_, err = s.db.GetUserByID(s.ctx, "no-such-id")
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *StoreTestSuite) TestDuplicateEmailRejected() {
	s.createUser("dup@example.com", models.RoleStudent)

	err := s.db.CreateUser(s.ctx, &models.User{
		Email:    "dup@example.com",
		Password: "other",
		Role:     models.RoleTeacher,
		Name:     "Other",
	})
	assert.ErrorIs(s.T(), err, ErrDuplicateEmail)
}

func (s *StoreTestSuite) TestParentChildLink() {
	parent := s.createUser("parent@example.com", models.RoleParent)
	child := &models.User{
		Email:    "child@example.com",
		Password: "h",
		Role:     models.RoleStudent,
		Name:     "Child",
		ParentID: &parent.ID,
	}
	require.NoError(s.T(), s.db.CreateUser(s.ctx, child))
	stranger := s.createUser("stranger@example.com", models.RoleStudent)

	children, err := s.db.ListChildren(s.ctx, parent.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), children, 1)
	assert.Equal(s.T(), child.ID, children[0].ID)

	linked, err := s.db.IsChildOf(s.ctx, child.ID, parent.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), linked)

	linked, err = s.db.IsChildOf(s.ctx, stranger.ID, parent.ID)
	require.NoError(s.T(), err)
	assert.False(s.T(), linked)
}

func (s *StoreTestSuite) TestUpdateAndDeleteUser() {
	user := s.createUser("edit@example.com", models.RoleStudent)

	grade := "5"
	require.NoError(s.T(), s.db.UpdateUserProfile(s.ctx, user.ID, "New Name", &grade, nil))
	updated, err := s.db.GetUserByID(s.ctx, user.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "New Name", updated.Name)
	require.NotNil(s.T(), updated.Grade)
	assert.Equal(s.T(), "5", *updated.Grade)

	require.NoError(s.T(), s.db.UpdateUserPassword(s.ctx, user.ID, "new-hash"))
	updated, err = s.db.GetUserByID(s.ctx, user.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "new-hash", updated.Password)

	require.NoError(s.T(), s.db.DeleteUser(s.ctx, user.ID))
	_, err = s.db.GetUserByID(s.ctx, user.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)

	assert.ErrorIs(s.T(), s.db.DeleteUser(s.ctx, user.ID), ErrNotFound)
}

func (s *StoreTestSuite) TestListUsersFilters() {
	s.createUser("t1@example.com", models.RoleTeacher)
	s.createUser("t2@example.com", models.RoleTeacher)
	s.createUser("s1@example.com", models.RoleStudent)

	teachers, err := s.db.ListUsers(s.ctx, UserFilter{Role: models.RoleTeacher})
	require.NoError(s.T(), err)
	assert.Len(s.T(), teachers, 2)

	found, err := s.db.ListUsers(s.ctx, UserFilter{Search: "t1@"})
	require.NoError(s.T(), err)
	require.Len(s.T(), found, 1)
	assert.Equal(s.T(), "t1@example.com", found[0].Email)

	total, err := s.db.CountUsers(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 3, total)

	byRole, err := s.db.CountUsersByRole(s.ctx)
	require.NoError(s.T(), err)
	assert.Len(s.T(), byRole, 2)
}

func (s *StoreTestSuite) TestSubscriptionLifecycle() {
	user := s.createUser("sub@example.com", models.RoleStudent)

	first := &models.Subscription{
		UserID:    user.ID,
		Plan:      models.PlanFree,
		Status:    "active",
		StartDate: time.Now().UTC(),
	}
	require.NoError(s.T(), s.db.CreateSubscription(s.ctx, first))

	time.Sleep(10 * time.Millisecond)
	end := time.Now().UTC().AddDate(1, 0, 0)
	second := &models.Subscription{
		UserID:    user.ID,
		Plan:      models.PlanPremium,
		Status:    "active",
		StartDate: time.Now().UTC(),
		EndDate:   &end,
	}
	require.NoError(s.T(), s.db.CreateSubscription(s.ctx, second))

	latest, err := s.db.LatestSubscription(s.ctx, user.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), second.ID, latest.ID)
	assert.Equal(s.T(), models.PlanPremium, latest.Plan)
	require.NotNil(s.T(), latest.EndDate)

	require.NoError(s.T(), s.db.UpdateSubscription(s.ctx, latest.ID, models.PlanFree, "cancelled", latest.StartDate, nil))
	latest, err = s.db.LatestSubscription(s.ctx, user.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.PlanFree, latest.Plan)
	assert.Equal(s.T(), "cancelled", latest.Status)
	assert.Nil(s.T(), latest.EndDate)

	_, err = s.db.LatestSubscription(s.ctx, "nobody")
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *StoreTestSuite) TestCourseCatalog() {
	teacher := s.createUser("prof@example.com", models.RoleTeacher)
	math := s.createCourse(teacher.ID, "Fractions", "math")
	s.createCourse(teacher.ID, "Grammar", "french")

	got, err := s.db.GetCourse(s.ctx, math.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Fractions", got.Title)
	assert.Equal(s.T(), teacher.Name, got.TeacherName)

	bySubject, err := s.db.ListCourses(s.ctx, CourseFilter{Subject: "math"})
	require.NoError(s.T(), err)
	assert.Len(s.T(), bySubject, 1)

	bySearch, err := s.db.ListCourses(s.ctx, CourseFilter{Search: "Gram"})
	require.NoError(s.T(), err)
	require.Len(s.T(), bySearch, 1)
	assert.Equal(s.T(), "Grammar", bySearch[0].Title)

	math.Title = "Advanced Fractions"
	require.NoError(s.T(), s.db.UpdateCourse(s.ctx, math))
	got, err = s.db.GetCourse(s.ctx, math.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Advanced Fractions", got.Title)

	require.NoError(s.T(), s.db.DeleteCourse(s.ctx, math.ID))
	_, err = s.db.GetCourse(s.ctx, math.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *StoreTestSuite) TestQuizRoundTrip() {
	teacher := s.createUser("quiz-prof@example.com", models.RoleTeacher)
	course := s.createCourse(teacher.ID, "Algebra", "math")

	quiz := &models.Quiz{
		CourseID: course.ID,
		Title:    "Chapter 1",
		Questions: []models.Question{
			{Prompt: "2+2?", Options: []string{"3", "4"}, Correct: 1},
			{Prompt: "3*3?", Options: []string{"9", "6"}, Correct: 0},
		},
	}
	require.NoError(s.T(), s.db.CreateQuiz(s.ctx, quiz))

	got, err := s.db.GetQuiz(s.ctx, quiz.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), got.Questions, 2)
	assert.Equal(s.T(), 1, got.Questions[0].Correct)

	byCourse, err := s.db.GetQuizByCourse(s.ctx, course.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), quiz.ID, byCourse.ID)

	require.NoError(s.T(), s.db.UpdateQuiz(s.ctx, quiz.ID, "Chapter 1 (revised)", got.Questions[:1]))
	got, err = s.db.GetQuiz(s.ctx, quiz.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Chapter 1 (revised)", got.Title)
	assert.Len(s.T(), got.Questions, 1)

	all, err := s.db.ListQuizzes(s.ctx)
	require.NoError(s.T(), err)
	require.Len(s.T(), all, 1)
	assert.Equal(s.T(), "Algebra", all[0].CourseTitle)

	require.NoError(s.T(), s.db.DeleteQuiz(s.ctx, quiz.ID))
	_, err = s.db.GetQuiz(s.ctx, quiz.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *StoreTestSuite) TestProgressLedger() {
	teacher := s.createUser("ledger-prof@example.com", models.RoleTeacher)
	student := s.createUser("ledger-student@example.com", models.RoleStudent)
	math := s.createCourse(teacher.ID, "Fractions", "math")
	french := s.createCourse(teacher.ID, "Grammar", "french")

	score1, score2 := 80, 100
	require.NoError(s.T(), s.db.AppendProgress(s.ctx, &models.ProgressEntry{
		UserID: student.ID, CourseID: math.ID, Score: &score1,
	}))
	// Retake of the same course: appends, never deduplicates.
	require.NoError(s.T(), s.db.AppendProgress(s.ctx, &models.ProgressEntry{
		UserID: student.ID, CourseID: math.ID, Score: &score2,
	}))
	require.NoError(s.T(), s.db.AppendProgress(s.ctx, &models.ProgressEntry{
		UserID: student.ID, CourseID: french.ID,
	}))

	count, err := s.db.DistinctCourseCount(s.ctx, student.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 2, count)

	accessed, err := s.db.HasAccessedCourse(s.ctx, student.ID, math.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), accessed)

	entries, err := s.db.ListProgress(s.ctx, student.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), entries, 3)

	forMath, err := s.db.ListCourseProgress(s.ctx, student.ID, math.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), forMath, 2)

	stats, err := s.db.UserStats(s.ctx, student.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 2, stats.TotalCourses)
	assert.Equal(s.T(), 90, stats.AverageScore)
	assert.Len(s.T(), stats.BySubject, 2)

	enrollments, err := s.db.CountEnrollments(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 2, enrollments)

	activity, err := s.db.RecentActivity(s.ctx, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), activity, 3)
	assert.Equal(s.T(), student.Name, activity[0].UserName)
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func TestBind(t *testing.T) {
	assert.Equal(t, "SELECT * FROM users WHERE id = ?",
		Bind("sqlite", "SELECT * FROM users WHERE id = ?"))
	assert.Equal(t, "SELECT * FROM users WHERE id = $1 AND role = $2",
		Bind("postgres", "SELECT * FROM users WHERE id = ? AND role = ?"))
}
