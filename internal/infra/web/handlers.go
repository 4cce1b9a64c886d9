// File: internal/infra/web/handlers.go
package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"recruitment-billing/internal/domain"
	"recruitment-billing/internal/domain/model"
	"recruitment-billing/internal/infra/metrics"
)

const maxWebhookBody = 1 << 20

// ===== Response DTOs =====

type packageResponse struct {
	Code         string         `json:"code"`
	Name         string         `json:"name"`
	PackageType  string         `json:"package_type"`
	Price        int64          `json:"price"`
	Currency     string         `json:"currency"`
	DurationDays int            `json:"duration_days"`
	Quotas       map[string]int `json:"quotas"`
	Version      int            `json:"version"`
}

func toPackageResponse(p *model.PaymentPackage) packageResponse {
	return packageResponse{
		Code:         p.Code,
		Name:         p.Name,
		PackageType:  string(p.PackageType),
		Price:        p.Price,
		Currency:     p.Currency,
		DurationDays: p.DurationDays,
		Quotas:       p.Quotas,
		Version:      p.Version,
	}
}

type paymentResponse struct {
	ID             string     `json:"id"`
	OrderRef       string     `json:"order_ref"`
	Amount         int64      `json:"amount"`
	Currency       string     `json:"currency"`
	Gateway        string     `json:"gateway"`
	Status         string     `json:"status"`
	FailReason     string     `json:"fail_reason,omitempty"`
	SubscriptionID *string    `json:"subscription_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
	// CheckoutURL is set for redirect-flow gateways on purchase.
	CheckoutURL string `json:"checkout_url,omitempty"`
}

func toPaymentResponse(p *model.Payment) paymentResponse {
	return paymentResponse{
		ID:             p.ID,
		OrderRef:       p.OrderRef,
		Amount:         p.Amount,
		Currency:       p.Currency,
		Gateway:        p.Gateway,
		Status:         string(p.Status),
		FailReason:     p.FailReason,
		SubscriptionID: p.SubscriptionID,
		CreatedAt:      p.CreatedAt,
		ProcessedAt:    p.ProcessedAt,
	}
}

type subscriptionResponse struct {
	ID                string         `json:"id"`
	PackageType       string         `json:"package_type"`
	Status            string         `json:"status"`
	StartDate         time.Time      `json:"start_date"`
	EndDate           time.Time      `json:"end_date"`
	GracePeriodEnds   *time.Time     `json:"grace_period_ends,omitempty"`
	PaymentRetryCount int            `json:"payment_retry_count"`
	QuotaUsed         map[string]int `json:"quota_used"`
}

func toSubscriptionResponse(s *model.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:                s.ID,
		PackageType:       string(s.PackageType),
		Status:            string(s.Status),
		StartDate:         s.StartDate,
		EndDate:           s.EndDate,
		GracePeriodEnds:   s.GracePeriodEnds,
		PaymentRetryCount: s.PaymentRetryCount,
		QuotaUsed:         s.QuotaUsed,
	}
}

// ===== Webhook ingress =====

// signatureHeaderFor names the header each provider signs with. VNPay signs
// in-band so its value is empty and unused.
func signatureHeaderFor(gateway string) string {
	if gateway == "stripe" {
		return "Stripe-Signature"
	}
	return "X-Signature"
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	gateway := strings.ToLower(chi.URLParam(r, "gateway"))
	started := time.Now()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "BAD_BODY", "unreadable request body")
		return
	}

	ev, err := s.webhookUC.Handle(r.Context(), gateway, r.Header.Get(signatureHeaderFor(gateway)), body)
	if err != nil {
		if domain.KindOf(err) == domain.KindWebhookVerification {
			metrics.IncWebhookVerifyFailure(gateway)
		}
		s.log.Warn().Err(err).Str("gateway", gateway).Msg("webhook rejected")
		writeDomainError(w, err)
		return
	}

	metrics.IncWebhook(gateway, string(ev.Result))
	metrics.ObserveWebhookLatency(gateway, float64(time.Since(started).Milliseconds()))
	writeJSON(w, http.StatusOK, map[string]string{"result": string(ev.Result)})
}

// ===== Catalog =====

func (s *Server) handleListPackages(w http.ResponseWriter, r *http.Request) {
	pkgs, err := s.pkgUC.ListActive(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]packageResponse, 0, len(pkgs))
	for _, p := range pkgs {
		out = append(out, toPackageResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (s *Server) handleGetPackage(w http.ResponseWriter, r *http.Request) {
	pkg, err := s.pkgUC.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPackageResponse(pkg))
}

type packageCreateRequest struct {
	Code         string         `json:"code"`
	Name         string         `json:"name"`
	PackageType  string         `json:"package_type"`
	Price        int64          `json:"price"`
	Currency     string         `json:"currency"`
	DurationDays int            `json:"duration_days"`
	Quotas       map[string]int `json:"quotas"`
}

func (s *Server) handleCreatePackage(w http.ResponseWriter, r *http.Request) {
	var req packageCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "BAD_BODY", "invalid request body")
		return
	}
	pkg, err := s.pkgUC.Create(r.Context(), req.Code, req.Name, model.PackageType(req.PackageType), req.Price, req.Currency, req.DurationDays, req.Quotas)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPackageResponse(pkg))
}

type packagePublishRequest struct {
	Price        int64          `json:"price"`
	DurationDays int            `json:"duration_days"`
	Quotas       map[string]int `json:"quotas"`
}

func (s *Server) handlePublishPackage(w http.ResponseWriter, r *http.Request) {
	var req packagePublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "BAD_BODY", "invalid request body")
		return
	}
	pkg, err := s.pkgUC.Publish(r.Context(), chi.URLParam(r, "code"), req.Price, req.DurationDays, req.Quotas)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPackageResponse(pkg))
}

func (s *Server) handleDeactivatePackage(w http.ResponseWriter, r *http.Request) {
	if err := s.pkgUC.Deactivate(r.Context(), chi.URLParam(r, "code")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== Payments =====

type purchaseRequest struct {
	PackageCode string `json:"package_code"`
	Gateway     string `json:"gateway"`
	MethodToken string `json:"method_token"`
}

// checkoutURLer is implemented by redirect-flow gateways.
type checkoutURLer interface {
	CheckoutURL(orderRef string, amount int64, description string) (string, error)
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "BAD_BODY", "invalid request body")
		return
	}
	userID := claimsFrom(r.Context()).Subject

	p, err := s.paymentUC.Purchase(r.Context(), userID, req.PackageCode, req.Gateway, req.MethodToken)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := toPaymentResponse(p)
	if gw, ok := s.gateways[strings.ToLower(p.Gateway)]; ok {
		if c, ok := gw.(checkoutURLer); ok {
			url, err := c.CheckoutURL(p.OrderRef, p.Amount, req.PackageCode)
			if err != nil {
				s.log.Error().Err(err).Str("gateway", p.Gateway).Msg("checkout url build failed")
			} else {
				resp.CheckoutURL = url
			}
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	p, err := s.paymentUC.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	// Users only see their own ledger rows.
	if p.UserID != claims.Subject && claims.Role != "admin" {
		writeJSONError(w, http.StatusNotFound, "NOT_FOUND", "payment not found")
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(p))
}

type refundRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleRefund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "BAD_BODY", "invalid request body")
		return
	}
	p, err := s.paymentUC.Refund(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	metrics.IncRefund(p.Gateway)
	writeJSON(w, http.StatusOK, toPaymentResponse(p))
}

func (s *Server) handleRevenue(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "month"
	}
	total, err := s.paymentUC.RevenueByPeriod(r.Context(), period)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"period": period, "total": total})
}

// ===== Subscriptions & quota =====

func (s *Server) handleCurrentSubscription(w http.ResponseWriter, r *http.Request) {
	userID := claimsFrom(r.Context()).Subject
	pkgType := model.PackageType(r.URL.Query().Get("type"))
	if pkgType == "" {
		writeJSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "type query parameter is required")
		return
	}
	sub, err := s.subUC.Current(r.Context(), userID, pkgType)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

func (s *Server) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	userID := claimsFrom(r.Context()).Subject
	sub, err := s.subUC.Cancel(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

func (s *Server) handleCheckQuota(w http.ResponseWriter, r *http.Request) {
	userID := claimsFrom(r.Context()).Subject
	quotaType := chi.URLParam(r, "type")
	pkgType := model.PackageType(r.URL.Query().Get("package_type"))
	if pkgType == "" {
		writeJSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "package_type query parameter is required")
		return
	}
	current, limit, err := s.subUC.CheckQuota(r.Context(), userID, pkgType, quotaType)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"quota_type": quotaType,
		"current":    current,
		"limit":      limit,
	})
}

type consumeQuotaRequest struct {
	PackageType string `json:"package_type"`
	Amount      int    `json:"amount"`
}

func (s *Server) handleConsumeQuota(w http.ResponseWriter, r *http.Request) {
	var req consumeQuotaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "BAD_BODY", "invalid request body")
		return
	}
	if req.Amount <= 0 {
		req.Amount = 1
	}
	userID := claimsFrom(r.Context()).Subject
	err := s.subUC.ConsumeQuota(r.Context(), userID, model.PackageType(req.PackageType), chi.URLParam(r, "type"), req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== Operations =====

func (s *Server) handleDeadLetters(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	recs, err := s.notifUC.DeadLetters(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	type deadLetter struct {
		ID        string    `json:"id"`
		UserID    string    `json:"user_id"`
		EventType string    `json:"event_type"`
		Attempts  int       `json:"attempts"`
		LastError string    `json:"last_error"`
		CreatedAt time.Time `json:"created_at"`
	}
	out := make([]deadLetter, 0, len(recs))
	for _, rec := range recs {
		out = append(out, deadLetter{
			ID:        rec.ID,
			UserID:    rec.UserID,
			EventType: string(rec.EventType),
			Attempts:  rec.Attempts,
			LastError: rec.LastError,
			CreatedAt: rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

// ===== Encoding helpers =====

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]errorBody{"error": {Code: code, Message: message}})
}

// writeDomainError maps the error taxonomy onto status classes. Internal
// kinds keep their message out of the response body.
func writeDomainError(w http.ResponseWriter, err error) {
	status := domain.HTTPStatus(err)
	body := errorBody{Code: "INTERNAL_ERROR", Message: "internal error"}
	var de *domain.Error
	if errors.As(err, &de) && status < http.StatusInternalServerError {
		body = errorBody{Code: de.Code, Message: de.Message, Details: de.Details}
	}
	writeJSON(w, status, map[string]errorBody{"error": body})
}
