// Package api exposes the reservation HTTP surface.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mgn-dev/alx-backend/internal/domain"
	"github.com/mgn-dev/alx-backend/internal/metrics"
	"github.com/mgn-dev/alx-backend/internal/queue"
	"github.com/mgn-dev/alx-backend/internal/reservation"
	"github.com/mgn-dev/alx-backend/internal/store"
)

// Server holds the API's collaborators.
type Server struct {
	log      *zap.Logger
	jobs     store.JobStore
	pool     *queue.Pool
	seats    *reservation.SeatService
	products *reservation.ProductService
}

// New creates the API server.
func New(log *zap.Logger, jobs store.JobStore, pool *queue.Pool,
	seats *reservation.SeatService, products *reservation.ProductService) *Server {
	return &Server{log: log, jobs: jobs, pool: pool, seats: seats, products: products}
}

// Routes builds the router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.log))

	r.Get("/available_seats", s.availableSeats)
	r.Get("/reserve_seat", s.reserveSeat)
	r.Get("/process", s.process)
	r.Get("/list_products", s.listProducts)
	r.Get("/list_products/{itemId}", s.getProduct)
	r.Get("/reserve_product/{itemId}", s.reserveProduct)
	r.Get("/jobs/{id}", s.getJob)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *Server) availableSeats(w http.ResponseWriter, r *http.Request) {
	n, err := s.seats.Available(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	metrics.AvailableSeats.Set(float64(n))
	s.respond(w, http.StatusOK, map[string]int64{"numberOfAvailableSeats": n})
}

func (s *Server) reserveSeat(w http.ResponseWriter, r *http.Request) {
	if !s.seats.Accepting() {
		s.respond(w, http.StatusOK, map[string]string{"status": "Reservations are blocked"})
		return
	}

	ctx := r.Context()
	j, err := s.jobs.Create(ctx, domain.TypeReserveSeat, nil)
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := s.jobs.Enqueue(ctx, j.ID); err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"status": "Reservation in process"})
}

func (s *Server) process(w http.ResponseWriter, _ *http.Request) {
	s.pool.Start()
	s.respond(w, http.StatusOK, map[string]string{"status": "Queue processing"})
}

func (s *Server) listProducts(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, s.products.List())
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "itemId"))
	if err != nil {
		s.respond(w, http.StatusNotFound, map[string]string{"status": "Product not found"})
		return
	}
	p, err := s.products.Get(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		s.respond(w, http.StatusNotFound, map[string]string{"status": "Product not found"})
		return
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, p)
}

func (s *Server) reserveProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "itemId"))
	if err != nil {
		s.respond(w, http.StatusNotFound, map[string]string{"status": "Product not found"})
		return
	}

	switch err := s.products.Reserve(r.Context(), id); {
	case errors.Is(err, domain.ErrNotFound):
		s.respond(w, http.StatusNotFound, map[string]string{"status": "Product not found"})
	case errors.Is(err, domain.ErrCapacityExceeded):
		s.respond(w, http.StatusBadRequest, map[string]any{"status": "Not enough stock available", "itemId": id})
	case err != nil:
		s.fail(w, err)
	default:
		s.respond(w, http.StatusOK, map[string]any{"status": "Reservation confirmed", "itemId": id})
	}
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	j, err := s.jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrNotFound) {
		s.respond(w, http.StatusNotFound, map[string]string{"status": "Job not found"})
		return
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, j)
}

func (s *Server) respond(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("response encode failed", zap.Error(err))
	}
}

// fail maps unexpected errors to a 500 with a bare status string;
// internal detail stays in the logs.
func (s *Server) fail(w http.ResponseWriter, err error) {
	s.log.Error("request failed", zap.Error(err))
	s.respond(w, http.StatusInternalServerError, map[string]string{"status": "Internal error"})
}
