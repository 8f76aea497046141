// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/anonymous-error404/FarmHouse-Website-Backend/internal/model"
	"github.com/anonymous-error404/FarmHouse-Website-Backend/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// BookingHandler holds all HTTP handlers for the booking API.
type BookingHandler struct {
	svc      *service.BookingService
	validate *validator.Validate
	log      *logrus.Logger
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(svc *service.BookingService, log *logrus.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, validate: newValidator(), log: log}
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// A zero Date counts as missing for `required`.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		d, ok := field.Interface().(model.Date)
		if !ok || d.IsZero() {
			return nil
		}
		return d.String()
	}, model.Date{})
	return v
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps the service error taxonomy to HTTP. Business-rule
// violations use validationStatus.
func (h *BookingHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, validationStatus int) {
	var (
		ve *model.ValidationError
		ce *model.ConflictError
	)
	switch {
	case errors.As(err, &ve):
		writeError(w, validationStatus, ve.Reason)
	case errors.As(err, &ce):
		writeJSON(w, http.StatusConflict, model.ConflictResponse{
			Status:           "unavailable",
			Message:          "The requested dates are not available",
			AlternativeDates: ce.Alternatives,
		})
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "booking not found")
	case errors.Is(err, model.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func parseDateParam(r *http.Request, name string, required bool) (model.Date, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		if required {
			return model.Date{}, errors.New(name + " is required (YYYY-MM-DD)")
		}
		return model.Date{}, nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return model.Date{}, errors.New(name + ": " + err.Error())
	}
	return d, nil
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// CheckAvailability handles GET /availability?check_in=&check_out=
func (h *BookingHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	checkIn, err := parseDateParam(r, "check_in", true)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	checkOut, err := parseDateParam(r, "check_out", true)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.svc.CheckAvailability(r.Context(), checkIn, checkOut)
	if err != nil {
		h.writeServiceError(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Calendar handles GET /availability/calendar?start=&end=
// Both parameters are optional.
func (h *BookingHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	start, err := parseDateParam(r, "start", false)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseDateParam(r, "end", false)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.svc.Calendar(r.Context(), start, end)
	if err != nil {
		h.writeServiceError(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateBooking handles POST /bookings
// The booking is stored as PENDING whatever payment_status the client sends.
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req model.CreateBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make(map[string]string, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields[fe.Field()] = fe.Tag()
			}
			writeJSON(w, http.StatusUnprocessableEntity, model.ErrorResponse{Error: "validation failed", Fields: fields})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.CreateBooking(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err, http.StatusUnprocessableEntity)
		return
	}

	body := model.BookingResult{Booking: res.Booking}
	if res.NotifyErr != nil {
		body.NotificationError = res.NotifyErr.Error()
	}
	writeJSON(w, http.StatusCreated, body)
}

// ListBookings handles GET /bookings[?status=0|1|2]
func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	var f model.ListFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "status must be 0, 1 or 2")
			return
		}
		st := model.PaymentStatus(n)
		f.Status = &st
	}

	bookings, err := h.svc.ListBookings(r.Context(), f)
	if err != nil {
		h.writeServiceError(w, r, err, http.StatusBadRequest)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if bookings == nil {
		bookings = []model.Booking{}
	}
	writeJSON(w, http.StatusOK, bookings)
}

// GetBooking handles GET /bookings/{id}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.GetBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// UpdateStatus handles POST /bookings/{id}/status
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req model.StatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.PaymentStatus == nil {
		writeError(w, http.StatusBadRequest, "payment_status is required")
		return
	}

	res, err := h.svc.TransitionPaymentStatus(r.Context(), chi.URLParam(r, "id"), *req.PaymentStatus)
	if err != nil {
		h.writeServiceError(w, r, err, http.StatusBadRequest)
		return
	}

	body := model.BookingResult{Booking: res.Booking}
	if res.NotifyErr != nil {
		body.NotificationError = res.NotifyErr.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
