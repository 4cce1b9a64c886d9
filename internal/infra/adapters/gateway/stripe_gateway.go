// File: internal/infra/adapters/gateway/stripe_gateway.go
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"recruitment-billing/internal/config"
	"recruitment-billing/internal/domain"
	"recruitment-billing/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*StripeGateway)(nil)

const stripeAPIBase = "https://api.stripe.com/v1"

// StripeGateway talks to the Stripe REST API directly: form-encoded
// requests, Bearer auth, and the t=...,v1=... webhook signature scheme
// (HMAC-SHA256 over "<timestamp>.<body>").
type StripeGateway struct {
	cfg     config.StripeConfig
	httpCli *http.Client
	baseURL string
	log     *zerolog.Logger
	now     func() time.Time
}

func NewStripeGateway(cfg config.StripeConfig, logger *zerolog.Logger) *StripeGateway {
	l := logger.With().Str("component", "StripeGateway").Logger()
	return &StripeGateway{
		cfg:     cfg,
		httpCli: &http.Client{Timeout: 15 * time.Second},
		baseURL: stripeAPIBase,
		log:     &l,
		now:     time.Now,
	}
}

func (g *StripeGateway) Name() string { return "stripe" }

func (g *StripeGateway) Charge(ctx context.Context, methodToken string, amount int64, currency, orderRef, description string) (string, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", strings.ToLower(currency))
	form.Set("payment_method", methodToken)
	form.Set("confirm", "true")
	form.Set("description", description)
	form.Set("metadata[order_ref]", orderRef)

	var out struct {
		ID string `json:"id"`
	}
	if err := g.post(ctx, "/payment_intents", form, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// VerifyWebhook validates the Stripe-Signature header: parses t and v1,
// bounds the timestamp drift, and compares the HMAC over "<t>.<body>".
func (g *StripeGateway) VerifyWebhook(signatureHeader string, rawBody []byte) error {
	var ts string
	var sigs []string
	for _, part := range strings.Split(signatureHeader, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts = kv[1]
		case "v1":
			sigs = append(sigs, kv[1])
		}
	}
	if ts == "" || len(sigs) == 0 {
		return errors.New("malformed signature header")
	}
	tsInt, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return errors.New("malformed signature timestamp")
	}
	drift := g.now().Sub(time.Unix(tsInt, 0))
	if drift < 0 {
		drift = -drift
	}
	if drift > g.cfg.SignatureTolerance {
		return errors.New("signature timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(g.cfg.WebhookSecret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(rawBody)
	want := hex.EncodeToString(mac.Sum(nil))
	for _, sig := range sigs {
		if hmac.Equal([]byte(sig), []byte(want)) {
			return nil
		}
	}
	return errors.New("no matching v1 signature")
}

// stripeEvent is the subset of the event envelope the reconciler needs.
type stripeEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID            string `json:"id"`
			Amount        int64  `json:"amount"`
			AmountPaid    int64  `json:"amount_paid"`
			AmountDue     int64  `json:"amount_due"`
			AmountTotal   int64  `json:"amount_total"`
			Currency      string `json:"currency"`
			Subscription  string `json:"subscription"`
			PaymentIntent string `json:"payment_intent"`
			Metadata      struct {
				OrderRef string `json:"order_ref"`
			} `json:"metadata"`
			LastPaymentError struct {
				Message string `json:"message"`
			} `json:"last_payment_error"`
		} `json:"object"`
	} `json:"data"`
}

func (g *StripeGateway) ParseWebhook(rawBody []byte) (*adapter.Notification, error) {
	var ev stripeEvent
	if err := json.Unmarshal(rawBody, &ev); err != nil {
		return nil, err
	}
	obj := ev.Data.Object

	n := &adapter.Notification{
		EventType:    ev.Type,
		GatewayRef:   obj.ID,
		OrderRef:     obj.Metadata.OrderRef,
		GatewaySubID: obj.Subscription,
		Currency:     strings.ToUpper(obj.Currency),
	}
	switch ev.Type {
	case "invoice.paid", "invoice.payment_succeeded":
		n.Outcome = adapter.OutcomeSucceeded
		n.Amount = obj.AmountPaid
	case "payment_intent.succeeded":
		n.Outcome = adapter.OutcomeSucceeded
		n.Amount = obj.Amount
	case "checkout.session.completed":
		n.Outcome = adapter.OutcomeSucceeded
		n.Amount = obj.AmountTotal
		// Refunds key off the payment intent, not the session id.
		if obj.PaymentIntent != "" {
			n.GatewayRef = obj.PaymentIntent
		}
	case "invoice.payment_failed":
		n.Outcome = adapter.OutcomeFailed
		n.Amount = obj.AmountDue
		n.FailReason = failReason(obj.LastPaymentError.Message)
	case "payment_intent.payment_failed":
		n.Outcome = adapter.OutcomeFailed
		n.Amount = obj.Amount
		n.FailReason = failReason(obj.LastPaymentError.Message)
	case "customer.subscription.deleted":
		n.Outcome = adapter.OutcomeSubscriptionCancelled
		n.GatewaySubID = obj.ID
	default:
		n.Outcome = adapter.OutcomeUnknown
	}
	return n, nil
}

func (g *StripeGateway) Refund(ctx context.Context, gatewayRef string, amount int64, reason string) (adapter.RefundResult, error) {
	form := url.Values{}
	form.Set("payment_intent", gatewayRef)
	form.Set("amount", strconv.FormatInt(amount, 10))
	if reason != "" {
		form.Set("metadata[reason]", reason)
	}

	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Amount int64  `json:"amount"`
	}
	if err := g.post(ctx, "/refunds", form, &out); err != nil {
		return adapter.RefundResult{}, err
	}
	return adapter.RefundResult{RefID: out.ID, Status: out.Status, Amount: out.Amount, At: g.now()}, nil
}

func (g *StripeGateway) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpCli.Do(req)
	if err != nil {
		return domain.NewGatewayError("stripe", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.NewGatewayError("stripe", err)
	}
	if resp.StatusCode >= 400 {
		g.log.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("stripe call rejected")
		return domain.NewGatewayError("stripe", fmt.Errorf("stripe %s: HTTP %d", path, resp.StatusCode))
	}
	return json.Unmarshal(body, out)
}

func failReason(msg string) string {
	if msg == "" {
		return "payment failed"
	}
	return msg
}
