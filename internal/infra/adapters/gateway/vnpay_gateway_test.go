// File: internal/infra/adapters/gateway/vnpay_gateway_test.go
package gateway

import (
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"recruitment-billing/internal/config"
	"recruitment-billing/internal/domain/ports/adapter"
)

func newTestVNPay(t *testing.T) *VNPayGateway {
	t.Helper()
	l := zerolog.Nop()
	return NewVNPayGateway(config.VNPayConfig{
		TerminalCode: "TESTTMN",
		HashSecret:   "supersecret",
		PayURL:       "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:    "https://example.com/return",
	}, &l)
}

// signedIPN builds a query string signed the way VNPay signs its IPN calls.
func signedIPN(secret string, params map[string]string) string {
	q := canonicalQuery(params)
	return q + "&vnp_SecureHash=" + signHMAC512(secret, q)
}

func TestVNPayVerifyWebhook(t *testing.T) {
	g := newTestVNPay(t)
	params := map[string]string{
		"vnp_TmnCode":       "TESTTMN",
		"vnp_TxnRef":        "ORD01ABC",
		"vnp_TransactionNo": "14226112",
		"vnp_ResponseCode":  "00",
		"vnp_Amount":        "50000000",
	}

	t.Run("accepts a correctly signed body", func(t *testing.T) {
		body := signedIPN("supersecret", params)
		if err := g.VerifyWebhook("", []byte(body)); err != nil {
			t.Fatalf("VerifyWebhook: %v", err)
		}
	})

	t.Run("rejects a wrong secret", func(t *testing.T) {
		body := signedIPN("wrongsecret", params)
		if err := g.VerifyWebhook("", []byte(body)); err == nil {
			t.Fatal("expected checksum mismatch")
		}
	})

	t.Run("rejects a tampered amount", func(t *testing.T) {
		body := signedIPN("supersecret", params)
		tampered := strings.Replace(body, "vnp_Amount=50000000", "vnp_Amount=1", 1)
		if err := g.VerifyWebhook("", []byte(tampered)); err == nil {
			t.Fatal("expected checksum mismatch after tampering")
		}
	})

	t.Run("rejects a missing signature", func(t *testing.T) {
		if err := g.VerifyWebhook("", []byte(canonicalQuery(params))); err == nil {
			t.Fatal("expected missing signature error")
		}
	})
}

func TestVNPayParseWebhook(t *testing.T) {
	g := newTestVNPay(t)

	t.Run("success code maps to succeeded", func(t *testing.T) {
		body := signedIPN("supersecret", map[string]string{
			"vnp_TxnRef":        "ORD01ABC",
			"vnp_TransactionNo": "14226112",
			"vnp_ResponseCode":  "00",
			"vnp_Amount":        "50000000",
		})
		n, err := g.ParseWebhook([]byte(body))
		if err != nil {
			t.Fatalf("ParseWebhook: %v", err)
		}
		if n.Outcome != adapter.OutcomeSucceeded {
			t.Fatalf("outcome = %s, want succeeded", n.Outcome)
		}
		if n.GatewayRef != "14226112" || n.OrderRef != "ORD01ABC" {
			t.Fatalf("refs wrong: %+v", n)
		}
		if n.Amount != 500000 {
			t.Fatalf("amount = %d, want 500000 (wire value / 100)", n.Amount)
		}
	})

	t.Run("non-zero code maps to failed", func(t *testing.T) {
		body := signedIPN("supersecret", map[string]string{
			"vnp_TxnRef":        "ORD01ABC",
			"vnp_TransactionNo": "14226113",
			"vnp_ResponseCode":  "24",
			"vnp_Amount":        "50000000",
		})
		n, err := g.ParseWebhook([]byte(body))
		if err != nil {
			t.Fatalf("ParseWebhook: %v", err)
		}
		if n.Outcome != adapter.OutcomeFailed || n.FailReason == "" {
			t.Fatalf("outcome = %s/%s, want failed with reason", n.Outcome, n.FailReason)
		}
	})
}

func TestVNPayCheckoutURL(t *testing.T) {
	g := newTestVNPay(t)

	raw, err := g.CheckoutURL("ORD01ABC", 500000, "Basic job posting")
	if err != nil {
		t.Fatalf("CheckoutURL: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	q := u.Query()
	if q.Get("vnp_TxnRef") != "ORD01ABC" {
		t.Error("order ref missing from pay url")
	}
	if q.Get("vnp_Amount") != "50000000" {
		t.Errorf("vnp_Amount = %s, want minor units times 100", q.Get("vnp_Amount"))
	}
	sig := q.Get("vnp_SecureHash")
	if sig == "" {
		t.Fatal("pay url is unsigned")
	}

	// The signature must cover exactly the non-signature params.
	q.Del("vnp_SecureHash")
	params := map[string]string{}
	for k := range q {
		params[k] = q.Get(k)
	}
	if want := signHMAC512("supersecret", canonicalQuery(params)); sig != want {
		t.Error("pay url signature does not verify")
	}
}
