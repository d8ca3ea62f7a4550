package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dentaflow/clinic-scheduling/internal/directory"
	"github.com/dentaflow/clinic-scheduling/internal/scheduling"
)

type RouterConfig struct {
	Scheduling *scheduling.Service
	Directory  *directory.Service
	PgPool     *pgxpool.Pool
	Redis      *redis.Client
	Logger     *slog.Logger
	Env        string
	Version    string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Group(func(r chi.Router) {
		r.Use(TenantAuth)

		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", createAppointmentHandler(cfg.Scheduling))
			r.Get("/", listAppointmentsHandler(cfg.Scheduling))
			r.Get("/status-counts", statusCountsHandler(cfg.Scheduling))
			r.Get("/{id}", getAppointmentHandler(cfg.Scheduling))
			r.Patch("/{id}", updateAppointmentHandler(cfg.Scheduling))
			r.Delete("/{id}", deleteAppointmentHandler(cfg.Scheduling))
			r.Post("/{id}/restore", restoreAppointmentHandler(cfg.Scheduling))
			r.Post("/{id}/complete", completeAppointmentHandler(cfg.Scheduling))
		})

		r.Route("/doctors", func(r chi.Router) {
			r.Post("/", createDoctorHandler(cfg.Directory))
			r.Get("/", listDoctorsHandler(cfg.Directory))
			r.Get("/{id}", getDoctorHandler(cfg.Directory))
			r.Delete("/{id}", deleteDoctorHandler(cfg.Directory))
			r.Post("/{id}/restore", restoreDoctorHandler(cfg.Directory))
		})

		r.Route("/patients", func(r chi.Router) {
			r.Post("/", createPatientHandler(cfg.Directory))
			r.Get("/", listPatientsHandler(cfg.Directory))
			r.Get("/{id}", getPatientHandler(cfg.Directory))
			r.Delete("/{id}", deletePatientHandler(cfg.Directory))
			r.Post("/{id}/restore", restorePatientHandler(cfg.Directory))
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", createUserHandler(cfg.Directory))
			r.Get("/", listUsersHandler(cfg.Directory))
			r.Get("/{id}", getUserHandler(cfg.Directory))
			r.Delete("/{id}", deleteUserHandler(cfg.Directory))
			r.Post("/{id}/restore", restoreUserHandler(cfg.Directory))
		})
	})

	return r
}
