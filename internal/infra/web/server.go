package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"autopay-billing/internal/domain"
	"autopay-billing/internal/domain/model"
)

// PlanService is the slice of the plan use case the API needs.
type PlanService interface {
	Create(ctx context.Context, merchantID, merchantAccount, name, currency string, amount int64, interval time.Duration, maxFailures int) (*model.Plan, error)
	Deactivate(ctx context.Context, merchantID, planID string) error
	Get(ctx context.Context, planID string) (*model.Plan, error)
	List(ctx context.Context) ([]*model.Plan, error)
}

// BillingService is the slice of the billing use case the API needs.
// Charge is deliberately absent: charges arrive only through the scheduler.
type BillingService interface {
	Subscribe(ctx context.Context, subscriberID, subscriberAccount, planID string) (*model.Subscription, error)
	Cancel(ctx context.Context, subscriberID, subscriptionID string) error
	CloseVault(ctx context.Context, subscriberID, subscriptionID string) error
	Get(ctx context.Context, subscriptionID string) (*model.Subscription, error)
	CountByStatus(ctx context.Context) (map[model.SubscriptionStatus]int, error)
}

type Server struct {
	plans   PlanService
	billing BillingService
	auth    *AuthManager
	apiKey  string
	log     *zerolog.Logger
}

func NewServer(plans PlanService, billing BillingService, auth *AuthManager, apiKey string, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	return &Server{plans: plans, billing: billing, auth: auth, apiKey: apiKey, log: &l}
}

// Router builds the chi router with all API routes attached.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/v1/auth/token", s.handleMintToken)

	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler { return s.auth.RequireActor(RoleMerchant, next) })
		r.Post("/api/v1/plans", s.handleCreatePlan)
		r.Post("/api/v1/plans/{planID}/deactivate", s.handleDeactivatePlan)
	})

	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler { return s.auth.RequireActor("", next) })
		r.Get("/api/v1/plans", s.handleListPlans)
		r.Get("/api/v1/plans/{planID}", s.handleGetPlan)
		r.Get("/api/v1/stats", s.handleStats)
	})

	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler { return s.auth.RequireActor(RoleSubscriber, next) })
		r.Post("/api/v1/subscriptions", s.handleSubscribe)
		r.Get("/api/v1/subscriptions/{subID}", s.handleGetSubscription)
		r.Post("/api/v1/subscriptions/{subID}/cancel", s.handleCancel)
		r.Post("/api/v1/subscriptions/{subID}/close-vault", s.handleCloseVault)
	})

	return r
}

// ----- handlers -----

func (s *Server) handleMintToken(w http.ResponseWriter, r *http.Request) {
	if s.apiKey == "" {
		s.log.Error().Msg("api key is not configured")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if r.Header.Get("X-API-Key") != s.apiKey {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	var req struct {
		ActorID string `json:"actor_id"`
		Role    string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	token, err := s.auth.Mint(req.ActorID, req.Role)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	var req struct {
		Name            string `json:"name"`
		Currency        string `json:"currency"`
		Amount          int64  `json:"amount"`
		IntervalSeconds int64  `json:"interval_seconds"`
		MaxFailures     int    `json:"max_failures"`
		MerchantAccount string `json:"merchant_account"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	plan, err := s.plans.Create(r.Context(), actor.Subject, req.MerchantAccount, req.Name, req.Currency,
		req.Amount, time.Duration(req.IntervalSeconds)*time.Second, req.MaxFailures)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, planView(plan))
}

func (s *Server) handleDeactivatePlan(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	if err := s.plans.Deactivate(r.Context(), actor.Subject, chi.URLParam(r, "planID")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.plans.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(plans))
	for _, p := range plans {
		out = append(out, planView(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.plans.Get(r.Context(), chi.URLParam(r, "planID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, planView(plan))
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	var req struct {
		PlanID  string `json:"plan_id"`
		Account string `json:"account"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	sub, err := s.billing.Subscribe(r.Context(), actor.Subject, req.Account, req.PlanID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, subscriptionView(sub))
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	sub, err := s.billing.Get(r.Context(), chi.URLParam(r, "subID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if sub.SubscriberID != actor.Subject {
		s.writeError(w, domain.ErrWrongCaller)
		return
	}
	writeJSON(w, http.StatusOK, subscriptionView(sub))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	if err := s.billing.Cancel(r.Context(), actor.Subject, chi.URLParam(r, "subID")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCloseVault(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	if err := s.billing.CloseVault(r.Context(), actor.Subject, chi.URLParam(r, "subID")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.billing.CountByStatus(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make(map[string]int, len(counts))
	for status, n := range counts {
		out[string(status)] = n
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscriptions": out})
}

// ----- views and error mapping -----

func planView(p *model.Plan) map[string]any {
	return map[string]any{
		"id":               p.ID,
		"merchant_id":      p.MerchantID,
		"name":             p.Name,
		"currency":         p.Currency,
		"amount":           p.Amount,
		"interval_seconds": int64(p.Interval / time.Second),
		"max_failures":     p.MaxFailures,
		"active":           p.Active,
	}
}

func subscriptionView(s *model.Subscription) map[string]any {
	return map[string]any{
		"id":            s.ID,
		"subscriber_id": s.SubscriberID,
		"plan_id":       s.PlanID,
		"vault_id":      s.VaultID,
		"status":        string(s.Status),
		"failure_count": s.FailureCount,
		"last_exec_at":  s.LastExecAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInactivePlan),
		errors.Is(err, domain.ErrCurrencyMismatch),
		errors.Is(err, domain.ErrNotActive):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrWrongCaller):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	}
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
	}
	http.Error(w, err.Error(), status)
}
