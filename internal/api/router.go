package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rrattigan/Belleview-Hospital/internal/clinic"
)

type RouterConfig struct {
	Service *clinic.Service
	PgPool  *pgxpool.Pool // nil when running in-memory
	Redis   *redis.Client // nil when using the local locker
	Env     string
	Version string
	Logger  zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Patient registry
	r.Post("/patients", registerPatientHandler(cfg.Service))
	r.Get("/patients", listPatientsHandler(cfg.Service))
	r.Get("/patients/{id}", getPatientHandler(cfg.Service))
	r.Get("/patients/{id}/appointments", patientAppointmentsHandler(cfg.Service))

	// Doctor registry and availability calendar
	r.Post("/doctors", registerDoctorHandler(cfg.Service))
	r.Get("/doctors", listDoctorsHandler(cfg.Service))
	r.Get("/doctors/{id}/schedule", doctorScheduleHandler(cfg.Service))
	r.Post("/doctors/{id}/schedule", addAvailabilityHandler(cfg.Service))

	// Appointment lifecycle
	r.Post("/appointments", bookAppointmentHandler(cfg.Service))
	r.Get("/appointments", listAppointmentsHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/bill", generateBillHandler(cfg.Service))

	return r
}
