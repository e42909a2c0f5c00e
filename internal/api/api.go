package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Scolaria-io/scolaria/internal/auth"
	"github.com/Scolaria-io/scolaria/internal/cache"
	"github.com/Scolaria-io/scolaria/internal/config"
	"github.com/Scolaria-io/scolaria/internal/database"
	"github.com/Scolaria-io/scolaria/internal/entitlement"
	"github.com/Scolaria-io/scolaria/internal/live"
	"github.com/Scolaria-io/scolaria/internal/models"
	"github.com/Scolaria-io/scolaria/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Api holds the wired application: config, store, caches and route table.
type Api struct {
	Config       config.Config
	Router       *chi.Mux
	logger       *zap.Logger
	store        *database.DB
	flags        *cache.Cache
	tokens       *auth.TokenManager
	entitlements *entitlement.Engine
	live         *live.TokenIssuer
	blobs        *storage.Client
}

// NewApi wires all components and builds the route table. The blob store is
// optional: with no storage endpoint configured, upload routes return 503.
func NewApi(cfg config.Config, logger *zap.Logger, store *database.DB) (*Api, error) {
	flags := cache.New(store)

	var blobs *storage.Client
	if cfg.StorageEndpoint != "" || cfg.StorageBucket != "" {
		var err error
		blobs, err = storage.NewClient(
			cfg.StorageEndpoint, cfg.StorageRegion, cfg.StorageBucket,
			cfg.StorageAccessKey, cfg.StorageSecretKey,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
	}

	api := &Api{
		Config:       cfg,
		Router:       chi.NewRouter(),
		logger:       logger,
		store:        store,
		flags:        flags,
		tokens:       auth.NewTokenManager(cfg.JWTSecret),
		entitlements: entitlement.New(store, flags, cfg.FreeCourseLimit, logger),
		live:         live.NewTokenIssuer(cfg.LiveKitAPIKey, cfg.LiveKitAPISecret, cfg.LiveKitURL),
		blobs:        blobs,
	}

	api.setupRoutes()
	return api, nil
}

func (api *Api) setupRoutes() {
	r := api.Router

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/heartbeat"))

	requireAuth := auth.Middleware(api.tokens)
	staffOnly := auth.RequireRole(models.RoleTeacher, models.RoleAdmin)
	adminOnly := auth.RequireRole(models.RoleAdmin)

	// Public
	r.Post("/auth/register", api.RegisterHandler)
	r.Post("/auth/login", api.LoginHandler)
	r.Get("/courses", api.ListCoursesHandler)
	r.Get("/courses/{courseID}", api.GetCourseHandler)
	r.Get("/courses/{courseID}/pdf", api.ServeCoursePDFHandler)
	r.Get("/quizzes/{quizID}", api.GetQuizHandler)
	r.Get("/quizzes/course/{courseID}", api.GetCourseQuizHandler)
	r.Get("/live/sessions", api.ListLiveSessionsHandler)

	// Authenticated
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Post("/auth/logout", api.LogoutHandler)
		r.Get("/auth/me", api.MeHandler)

		r.Get("/users/profile", api.GetProfileHandler)
		r.Put("/users/profile", api.UpdateProfileHandler)
		r.Put("/users/password", api.ChangePasswordHandler)
		r.Post("/users/photo", api.UploadPhotoHandler)
		r.Get("/users/{userID}/photo", api.ServePhotoHandler)
		r.Get("/users/children", api.ListChildrenHandler)

		r.Post("/quizzes/{quizID}/submit", api.SubmitQuizHandler)

		r.Post("/progress", api.RecordProgressHandler)
		r.Get("/progress", api.ListProgressHandler)
		r.Get("/progress/course/{courseID}", api.ListCourseProgressHandler)
		r.Get("/progress/stats", api.UserStatsHandler)
		r.Get("/progress/child/{childID}", api.ChildProgressHandler)
		r.Get("/progress/child/{childID}/stats", api.ChildStatsHandler)

		r.Get("/subscriptions", api.SubscriptionSummaryHandler)
		r.Post("/subscriptions/upgrade", api.UpgradeHandler)
		r.Get("/subscriptions/check-access/{courseID}", api.CheckAccessHandler)

		r.Post("/live/token", api.LiveTokenHandler)

		// Teacher and admin
		r.Group(func(r chi.Router) {
			r.Use(staffOnly)

			r.Post("/courses", api.CreateCourseHandler)
			r.Put("/courses/{courseID}", api.UpdateCourseHandler)
			r.Delete("/courses/{courseID}", api.DeleteCourseHandler)
			r.Post("/courses/{courseID}/pdf", api.UploadCoursePDFHandler)

			r.Post("/quizzes", api.CreateQuizHandler)
			r.Put("/quizzes/{quizID}", api.UpdateQuizHandler)
			r.Delete("/quizzes/{quizID}", api.DeleteQuizHandler)

			r.Post("/live/sessions", api.CreateLiveSessionHandler)
		})

		// Admin
		r.Group(func(r chi.Router) {
			r.Use(adminOnly)

			r.Get("/admin/stats", api.AdminStatsHandler)
			r.Get("/admin/activity", api.AdminActivityHandler)
			r.Get("/admin/courses", api.AdminListCoursesHandler)
			r.Get("/admin/quizzes", api.AdminListQuizzesHandler)
			r.Get("/admin/users", api.AdminListUsersHandler)
			r.Post("/admin/users", api.AdminCreateUserHandler)
			r.Put("/admin/users/{userID}", api.AdminUpdateUserHandler)
			r.Delete("/admin/users/{userID}", api.AdminDeleteUserHandler)
		})
	})
}

// Serve starts the HTTP listener and the background cache sweeper. It
// blocks until the listener fails.
func (api *Api) Serve() error {
	go api.sweepExpiredFlags()

	addr := fmt.Sprintf("0.0.0.0:%d", api.Config.APIPort)
	api.logger.Info("starting API server", zap.String("addr", addr))
	return http.ListenAndServe(addr, api.Router)
}

// sweepExpiredFlags periodically removes expired cache entries so the
// kv_entries table does not grow without bound.
func (api *Api) sweepExpiredFlags() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for {
		if err := api.flags.CleanupExpired(context.Background()); err != nil {
			api.logger.Warn("cache cleanup failed", zap.Error(err))
		}
		<-ticker.C
	}
}
