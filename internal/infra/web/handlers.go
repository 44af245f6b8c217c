package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"marathon-billing/internal/domain"
	"marathon-billing/internal/domain/model"
)

// orderView is the wire shape of an order. Amounts go out in major units
// (rubles), matching what the mobile client displays.
type orderView struct {
	ID           string    `json:"id"`
	OrderNumber  string    `json:"orderNumber"`
	Status       string    `json:"status"`
	Amount       float64   `json:"amount"`
	Currency     string    `json:"currency"`
	Description  string    `json:"description"`
	PaymentURL   string    `json:"paymentUrl,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toOrderView(o *model.Order) orderView {
	return orderView{
		ID:           o.ID,
		OrderNumber:  o.OrderNumber,
		Status:       string(o.Status),
		Amount:       float64(o.Amount) / 100,
		Currency:     o.Currency,
		Description:  o.Description,
		PaymentURL:   o.PaymentURL,
		ErrorMessage: o.ErrorMessage,
		CreatedAt:    o.CreatedAt,
	}
}

type createPremiumRequest struct {
	Amount       float64 `json:"amount"` // major units
	Description  string  `json:"description"`
	PlanType     string  `json:"planType"`
	DurationDays int     `json:"durationDays"`
}

func (s *Server) handleCreatePremium(w http.ResponseWriter, r *http.Request) {
	var req createPremiumRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.Amount <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "amount must be positive")
		return
	}
	order, err := s.orderUC.CreatePremium(r.Context(), UserID(r.Context()),
		int64(req.Amount*100), req.Description, req.PlanType, req.DurationDays)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toOrderView(order))
}

type createExerciseRequest struct {
	ExerciseID   string  `json:"exerciseId"`
	ExerciseName string  `json:"exerciseName"`
	Price        float64 `json:"price"` // major units
}

func (s *Server) handleCreateExercise(w http.ResponseWriter, r *http.Request) {
	var req createExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.Price <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "price must be positive")
		return
	}
	order, err := s.orderUC.CreateExercise(r.Context(), UserID(r.Context()),
		req.ExerciseID, req.ExerciseName, int64(req.Price*100))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toOrderView(order))
}

type createMarathonRequest struct {
	MarathonID string `json:"marathonId"`
}

func (s *Server) handleCreateMarathon(w http.ResponseWriter, r *http.Request) {
	var req createMarathonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	order, err := s.orderUC.CreateMarathon(r.Context(), UserID(r.Context()), req.MarathonID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toOrderView(order))
}

// handleStatus reconciles and returns the order. Owner-only: polling someone
// else's order is a 403, not a 404, since order ids are not secrets.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "paymentID")
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "payment id is required")
		return
	}
	order, err := s.reconcileUC.Reconcile(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if order.UserID != UserID(r.Context()) {
		respondError(w, http.StatusForbidden, "access_denied", "access denied")
		return
	}
	respondJSON(w, http.StatusOK, toOrderView(order))
}

// handleStatusPublic is the unauthenticated variant used by the hosted success
// page. It exposes only the fields the page needs.
func (s *Server) handleStatusPublic(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orderID")
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "order id is required")
		return
	}
	order, err := s.reconcileUC.Reconcile(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, struct {
		OrderNumber string  `json:"orderNumber"`
		Status      string  `json:"status"`
		Amount      float64 `json:"amount"`
	}{order.OrderNumber, string(order.Status), float64(order.Amount) / 100})
}

type webhookRequest struct {
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	Status      string `json:"status"`
}

// handleWebhook answers fast and never 5xxs on reconciliation trouble: the bank
// retries on error responses, and the sweeper will converge the order anyway.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	id := req.OrderID
	if id == "" {
		id = req.OrderNumber
	}
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "orderId or orderNumber is required")
		return
	}

	order, err := s.reconcileUC.Reconcile(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "order not found")
			return
		}
		s.log.Error().Err(err).Str("order_id", id).Msg("webhook reconciliation failed")
		respondJSON(w, http.StatusOK, map[string]string{"result": "accepted"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"result": "ok", "status": string(order.Status)})
}

// handleCallback is the browser return from the bank's checkout page. It always
// redirects: success lands on the frontend's status page, every failure mode on
// the error page with a machine-readable reason.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("orderId")
	if orderID == "" {
		s.redirectError(w, r, "missing_order_id")
		return
	}

	order, err := s.reconcileUC.Reconcile(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			s.redirectError(w, r, "payment_not_found")
			return
		}
		s.log.Error().Err(err).Str("order_id", orderID).Msg("callback reconciliation failed")
		s.redirectError(w, r, "internal_error")
		return
	}

	target := fmt.Sprintf("%s/payment/success?orderId=%s&status=%s",
		s.frontendURL, url.QueryEscape(order.ID), url.QueryEscape(string(order.Status)))
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) redirectError(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, s.frontendURL+"/payment/error?reason="+url.QueryEscape(reason), http.StatusFound)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	orders, total, err := s.orderUC.History(r.Context(), UserID(r.Context()), page, limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toOrderView(o))
	}
	respondJSON(w, http.StatusOK, struct {
		Data  []orderView `json:"data"`
		Total int         `json:"total"`
	}{views, total})
}
