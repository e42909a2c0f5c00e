package api

import (
	"math"
	"net/http"

	"github.com/Scolaria-io/scolaria/internal/auth"
	"github.com/Scolaria-io/scolaria/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// GetQuizHandler returns a quiz with its questions. Correct answer indices
// are included; clients are trusted to render, scoring happens server-side.
func (api *Api) GetQuizHandler(w http.ResponseWriter, r *http.Request) {
	quiz, err := api.store.GetQuiz(r.Context(), chi.URLParam(r, "quizID"))
	if err != nil {
		api.respondStoreError(w, err, "quiz not found")
		return
	}
	api.respondJSON(w, http.StatusOK, map[string]*models.Quiz{"quiz": quiz})
}

// GetCourseQuizHandler returns the quiz attached to a course.
func (api *Api) GetCourseQuizHandler(w http.ResponseWriter, r *http.Request) {
	quiz, err := api.store.GetQuizByCourse(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		api.respondStoreError(w, err, "quiz not found")
		return
	}
	api.respondJSON(w, http.StatusOK, map[string]*models.Quiz{"quiz": quiz})
}

type quizRequest struct {
	CourseID  string            `json:"courseId"`
	Title     string            `json:"title"`
	Questions []models.Question `json:"questions"`
}

func validQuestions(questions []models.Question) bool {
	if len(questions) == 0 {
		return false
	}
	for _, q := range questions {
		if q.Prompt == "" || len(q.Options) < 2 {
			return false
		}
		if q.Correct < 0 || q.Correct >= len(q.Options) {
			return false
		}
	}
	return true
}

// CreateQuizHandler attaches a quiz to a course.
func (api *Api) CreateQuizHandler(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := decodeJSON(r, &req); err != nil {
		api.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CourseID == "" || req.Title == "" {
		api.respondError(w, http.StatusBadRequest, "courseId and title are required")
		return
	}
	if !validQuestions(req.Questions) {
		api.respondError(w, http.StatusBadRequest, "questions are malformed")
		return
	}

	// The course must exist; quizzes cannot dangle.
	if _, err := api.store.GetCourse(r.Context(), req.CourseID); err != nil {
		api.respondStoreError(w, err, "course not found")
		return
	}

	quiz := &models.Quiz{
		CourseID:  req.CourseID,
		Title:     req.Title,
		Questions: req.Questions,
	}
	if err := api.store.CreateQuiz(r.Context(), quiz); err != nil {
		api.logger.Error("failed to create quiz", zap.Error(err))
		api.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	api.respondJSON(w, http.StatusCreated, map[string]*models.Quiz{"quiz": quiz})
}

// UpdateQuizHandler rewrites a quiz's title and questions.
func (api *Api) UpdateQuizHandler(w http.ResponseWriter, r *http.Request) {
	quizID := chi.URLParam(r, "quizID")

	var req quizRequest
	if err := decodeJSON(r, &req); err != nil {
		api.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" || !validQuestions(req.Questions) {
		api.respondError(w, http.StatusBadRequest, "title and well-formed questions are required")
		return
	}

	if err := api.store.UpdateQuiz(r.Context(), quizID, req.Title, req.Questions); err != nil {
		api.respondStoreError(w, err, "quiz not found")
		return
	}

	quiz, err := api.store.GetQuiz(r.Context(), quizID)
	if err != nil {
		api.respondStoreError(w, err, "quiz not found")
		return
	}
	api.respondJSON(w, http.StatusOK, map[string]*models.Quiz{"quiz": quiz})
}

// DeleteQuizHandler removes a quiz. Ledger rows referencing it survive.
func (api *Api) DeleteQuizHandler(w http.ResponseWriter, r *http.Request) {
	if err := api.store.DeleteQuiz(r.Context(), chi.URLParam(r, "quizID")); err != nil {
		api.respondStoreError(w, err, "quiz not found")
		return
	}
	api.respondJSON(w, http.StatusOK, map[string]string{"message": "quiz deleted"})
}

type submitQuizRequest struct {
	Answers []int `json:"answers"`
}

type submitQuizResponse struct {
	Score          int `json:"score"`
	CorrectAnswers int `json:"correctAnswers"`
	TotalQuestions int `json:"totalQuestions"`
}

// SubmitQuizHandler scores a submission and appends the result to the
// progress ledger. Retakes append new rows; history is never overwritten.
func (api *Api) SubmitQuizHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	quiz, err := api.store.GetQuiz(r.Context(), chi.URLParam(r, "quizID"))
	if err != nil {
		api.respondStoreError(w, err, "quiz not found")
		return
	}

	var req submitQuizRequest
	if err := decodeJSON(r, &req); err != nil {
		api.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Answers) != len(quiz.Questions) {
		api.respondError(w, http.StatusBadRequest, "answer count does not match question count")
		return
	}

	correct := 0
	for i, q := range quiz.Questions {
		if req.Answers[i] == q.Correct {
			correct++
		}
	}
	score := int(math.Round(float64(correct) / float64(len(quiz.Questions)) * 100))

	if _, err := api.entitlements.RecordCompletion(r.Context(), claims.UserID, quiz.CourseID, &quiz.ID, &score); err != nil {
		api.logger.Error("failed to record quiz completion", zap.Error(err))
		api.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	api.respondJSON(w, http.StatusOK, submitQuizResponse{
		Score:          score,
		CorrectAnswers: correct,
		TotalQuestions: len(quiz.Questions),
	})
}
