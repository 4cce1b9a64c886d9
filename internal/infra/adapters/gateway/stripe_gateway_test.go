// File: internal/infra/adapters/gateway/stripe_gateway_test.go
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"recruitment-billing/internal/config"
	"recruitment-billing/internal/domain"
	"recruitment-billing/internal/domain/ports/adapter"
)

func newTestStripe(t *testing.T) *StripeGateway {
	t.Helper()
	l := zerolog.Nop()
	g := NewStripeGateway(config.StripeConfig{
		SecretKey:          "sk_test_123",
		WebhookSecret:      "whsec_test",
		SignatureTolerance: 5 * time.Minute,
	}, &l)
	g.now = func() time.Time { return time.Unix(1_700_000_100, 0) }
	return g
}

func stripeSign(secret, body string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, body)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestStripeVerifyWebhook(t *testing.T) {
	g := newTestStripe(t)
	body := `{"type":"invoice.paid"}`

	t.Run("accepts a fresh valid signature", func(t *testing.T) {
		header := stripeSign("whsec_test", body, 1_700_000_000)
		if err := g.VerifyWebhook(header, []byte(body)); err != nil {
			t.Fatalf("VerifyWebhook: %v", err)
		}
	})

	t.Run("rejects a wrong secret", func(t *testing.T) {
		header := stripeSign("whsec_other", body, 1_700_000_000)
		if err := g.VerifyWebhook(header, []byte(body)); err == nil {
			t.Fatal("expected signature mismatch")
		}
	})

	t.Run("rejects a tampered body", func(t *testing.T) {
		header := stripeSign("whsec_test", body, 1_700_000_000)
		if err := g.VerifyWebhook(header, []byte(`{"type":"invoice.voided"}`)); err == nil {
			t.Fatal("expected signature mismatch after tampering")
		}
	})

	t.Run("rejects a stale timestamp", func(t *testing.T) {
		header := stripeSign("whsec_test", body, 1_700_000_100-3600)
		if err := g.VerifyWebhook(header, []byte(body)); err == nil {
			t.Fatal("expected tolerance rejection")
		}
	})

	t.Run("accepts when any v1 matches", func(t *testing.T) {
		good := stripeSign("whsec_test", body, 1_700_000_000)
		header := "t=1700000000,v1=deadbeef," + good[len("t=1700000000,"):]
		if err := g.VerifyWebhook(header, []byte(body)); err != nil {
			t.Fatalf("VerifyWebhook: %v", err)
		}
	})

	t.Run("rejects a malformed header", func(t *testing.T) {
		if err := g.VerifyWebhook("garbage", []byte(body)); err == nil {
			t.Fatal("expected malformed header error")
		}
	})
}

func TestStripeParseWebhook(t *testing.T) {
	g := newTestStripe(t)

	cases := []struct {
		name    string
		body    string
		outcome adapter.NotificationOutcome
		check   func(t *testing.T, n *adapter.Notification)
	}{
		{
			name:    "invoice paid",
			body:    `{"type":"invoice.paid","data":{"object":{"id":"in_1","amount_paid":29900,"currency":"usd","subscription":"sub_9"}}}`,
			outcome: adapter.OutcomeSucceeded,
			check: func(t *testing.T, n *adapter.Notification) {
				if n.Amount != 29900 || n.Currency != "USD" || n.GatewaySubID != "sub_9" {
					t.Fatalf("notification wrong: %+v", n)
				}
			},
		},
		{
			name:    "payment intent succeeded carries order ref",
			body:    `{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","amount":500000,"currency":"vnd","metadata":{"order_ref":"ORD01X"}}}}`,
			outcome: adapter.OutcomeSucceeded,
			check: func(t *testing.T, n *adapter.Notification) {
				if n.OrderRef != "ORD01X" || n.GatewayRef != "pi_1" {
					t.Fatalf("refs wrong: %+v", n)
				}
			},
		},
		{
			name:    "checkout session completed keys off the payment intent",
			body:    `{"type":"checkout.session.completed","data":{"object":{"id":"cs_1","amount_total":29900,"currency":"usd","payment_intent":"pi_7","metadata":{"order_ref":"ORD01Y"}}}}`,
			outcome: adapter.OutcomeSucceeded,
			check: func(t *testing.T, n *adapter.Notification) {
				if n.GatewayRef != "pi_7" || n.OrderRef != "ORD01Y" || n.Amount != 29900 {
					t.Fatalf("notification wrong: %+v", n)
				}
			},
		},
		{
			name:    "invoice payment failed carries reason",
			body:    `{"type":"invoice.payment_failed","data":{"object":{"id":"in_2","amount_due":29900,"currency":"usd","last_payment_error":{"message":"card declined"}}}}`,
			outcome: adapter.OutcomeFailed,
			check: func(t *testing.T, n *adapter.Notification) {
				if n.FailReason != "card declined" || n.Amount != 29900 {
					t.Fatalf("failure wrong: %+v", n)
				}
			},
		},
		{
			name:    "subscription deleted maps to cancellation",
			body:    `{"type":"customer.subscription.deleted","data":{"object":{"id":"sub_9"}}}`,
			outcome: adapter.OutcomeSubscriptionCancelled,
			check: func(t *testing.T, n *adapter.Notification) {
				if n.GatewaySubID != "sub_9" {
					t.Fatalf("gateway sub id = %q", n.GatewaySubID)
				}
			},
		},
		{
			name:    "unrecognized event maps to unknown",
			body:    `{"type":"charge.updated","data":{"object":{"id":"ch_1"}}}`,
			outcome: adapter.OutcomeUnknown,
			check:   func(t *testing.T, n *adapter.Notification) {},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := g.ParseWebhook([]byte(tc.body))
			if err != nil {
				t.Fatalf("ParseWebhook: %v", err)
			}
			if n.Outcome != tc.outcome {
				t.Fatalf("outcome = %s, want %s", n.Outcome, tc.outcome)
			}
			tc.check(t, n)
		})
	}
}

func TestStripeChargeAndRefund(t *testing.T) {
	t.Run("charge posts a confirmed payment intent", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/payment_intents" {
				t.Errorf("path = %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer sk_test_123" {
				t.Errorf("auth = %q", got)
			}
			_ = r.ParseForm()
			if r.PostForm.Get("confirm") != "true" || r.PostForm.Get("metadata[order_ref]") != "ORD01X" {
				t.Errorf("form = %v", r.PostForm)
			}
			fmt.Fprint(w, `{"id":"pi_123"}`)
		}))
		defer srv.Close()

		g := newTestStripe(t)
		g.baseURL = srv.URL
		ref, err := g.Charge(context.Background(), "pm_card", 29900, "USD", "ORD01X", "Pro plan")
		if err != nil {
			t.Fatalf("Charge: %v", err)
		}
		if ref != "pi_123" {
			t.Fatalf("ref = %q", ref)
		}
	})

	t.Run("api rejection surfaces as a gateway error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"message":"no such payment_method"}}`, http.StatusPaymentRequired)
		}))
		defer srv.Close()

		g := newTestStripe(t)
		g.baseURL = srv.URL
		_, err := g.Charge(context.Background(), "pm_bad", 100, "USD", "ORD01X", "")
		var de *domain.Error
		if !errors.As(err, &de) || de.Kind != domain.KindGateway {
			t.Fatalf("err = %v, want gateway kind", err)
		}
	})

	t.Run("refund returns the provider reference", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/refunds" {
				t.Errorf("path = %s", r.URL.Path)
			}
			fmt.Fprint(w, `{"id":"re_1","status":"succeeded","amount":29900}`)
		}))
		defer srv.Close()

		g := newTestStripe(t)
		g.baseURL = srv.URL
		res, err := g.Refund(context.Background(), "pi_123", 29900, "duplicate order")
		if err != nil {
			t.Fatalf("Refund: %v", err)
		}
		if res.RefID != "re_1" || res.Amount != 29900 {
			t.Fatalf("result = %+v", res)
		}
	})
}
