package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// NewRouter builds the chi router with the global middleware stack.
func NewRouter(h *BookingHandler, log *logrus.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(log))
	r.Use(CORS)

	r.Get("/health", HealthCheck)

	r.Route("/availability", func(r chi.Router) {
		r.Get("/", h.CheckAvailability)
		r.Get("/calendar", h.Calendar)
	})
	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", h.CreateBooking)
		r.Get("/", h.ListBookings)
		r.Get("/{id}", h.GetBooking)
		r.Post("/{id}/status", h.UpdateStatus)
	})
	return r
}
