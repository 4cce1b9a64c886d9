// File: internal/infra/adapters/gateway/vnpay_gateway.go
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"recruitment-billing/internal/config"
	"recruitment-billing/internal/domain"
	"recruitment-billing/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*VNPayGateway)(nil)

// VNPayGateway implements the VNPay redirect flow. The shopper is sent to a
// signed pay URL; the outcome arrives as an IPN whose parameters carry their
// own HMAC-SHA512 signature. Amounts on the wire are minor units times 100.
type VNPayGateway struct {
	cfg config.VNPayConfig
	log *zerolog.Logger
	now func() time.Time
}

func NewVNPayGateway(cfg config.VNPayConfig, logger *zerolog.Logger) *VNPayGateway {
	l := logger.With().Str("component", "VNPayGateway").Logger()
	return &VNPayGateway{cfg: cfg, log: &l, now: time.Now}
}

func (g *VNPayGateway) Name() string { return "vnpay" }

// Charge is a no-op for the redirect flow: the provider transaction number
// only exists once the shopper pays, and reaches us through the IPN. The
// ledger row is matched back by order reference.
func (g *VNPayGateway) Charge(_ context.Context, _ string, _ int64, _, _, _ string) (string, error) {
	return "", nil
}

// CheckoutURL builds the signed redirect URL the shopper is sent to.
func (g *VNPayGateway) CheckoutURL(orderRef string, amount int64, description string) (string, error) {
	if g.cfg.PayURL == "" || g.cfg.HashSecret == "" {
		return "", errors.New("vnpay is not configured")
	}
	now := g.now()
	params := map[string]string{
		"vnp_Version":    "2.1.0",
		"vnp_Command":    "pay",
		"vnp_TmnCode":    g.cfg.TerminalCode,
		"vnp_Amount":     strconv.FormatInt(amount*100, 10),
		"vnp_CurrCode":   "VND",
		"vnp_TxnRef":     orderRef,
		"vnp_OrderInfo":  description,
		"vnp_OrderType":  "other",
		"vnp_Locale":     "vn",
		"vnp_ReturnUrl":  g.cfg.ReturnURL,
		"vnp_CreateDate": now.Format("20060102150405"),
		"vnp_ExpireDate": now.Add(15 * time.Minute).Format("20060102150405"),
	}
	query := canonicalQuery(params)
	sig := signHMAC512(g.cfg.HashSecret, query)
	return fmt.Sprintf("%s?%s&vnp_SecureHash=%s", g.cfg.PayURL, query, sig), nil
}

// VerifyWebhook checks the HMAC carried inside the IPN parameters. The
// rawBody is the raw query string; the signature header is unused because
// VNPay signs in-band.
func (g *VNPayGateway) VerifyWebhook(_ string, rawBody []byte) error {
	values, err := url.ParseQuery(string(rawBody))
	if err != nil {
		return err
	}
	got := values.Get("vnp_SecureHash")
	if got == "" {
		return errors.New("missing vnp_SecureHash")
	}
	values.Del("vnp_SecureHash")
	values.Del("vnp_SecureHashType")

	params := make(map[string]string, len(values))
	for k := range values {
		params[k] = values.Get(k)
	}
	want := signHMAC512(g.cfg.HashSecret, canonicalQuery(params))
	if !hmac.Equal([]byte(strings.ToLower(got)), []byte(want)) {
		return errors.New("checksum mismatch")
	}
	return nil
}

func (g *VNPayGateway) ParseWebhook(rawBody []byte) (*adapter.Notification, error) {
	values, err := url.ParseQuery(string(rawBody))
	if err != nil {
		return nil, err
	}
	code := values.Get("vnp_ResponseCode")
	amount, _ := strconv.ParseInt(values.Get("vnp_Amount"), 10, 64)

	n := &adapter.Notification{
		EventType:  "vnpay.ipn",
		GatewayRef: values.Get("vnp_TransactionNo"),
		OrderRef:   values.Get("vnp_TxnRef"),
		Amount:     amount / 100,
		Currency:   "VND",
	}
	if code == "00" {
		n.Outcome = adapter.OutcomeSucceeded
	} else {
		n.Outcome = adapter.OutcomeFailed
		n.FailReason = "vnpay response code " + code
	}
	return n, nil
}

// Refund is not exposed by the integration contract for this terminal; the
// merchant portal handles manual refunds.
func (g *VNPayGateway) Refund(_ context.Context, _ string, _ int64, _ string) (adapter.RefundResult, error) {
	return adapter.RefundResult{}, domain.NewGatewayError("vnpay", errors.New("refunds are not supported"))
}

// canonicalQuery renders params as sorted, URL-encoded k=v pairs joined by
// '&', the exact byte string VNPay signs.
func canonicalQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	return b.String()
}

func signHMAC512(secret, payload string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
