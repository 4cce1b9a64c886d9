// File: internal/infra/web/mock_test.go
package web

import (
	"context"
	"time"

	"recruitment-billing/internal/domain/model"
	"recruitment-billing/internal/domain/ports/adapter"
	"recruitment-billing/internal/domain/ports/repository"
	"recruitment-billing/internal/usecase"
)

type mockPaymentUC struct {
	PurchaseFunc        func(ctx context.Context, userID, packageCode, gateway, methodToken string) (*model.Payment, error)
	RefundFunc          func(ctx context.Context, paymentID, reason string) (*model.Payment, error)
	RevenueByPeriodFunc func(ctx context.Context, period string) (int64, error)
	FindByIDFunc        func(ctx context.Context, id string) (*model.Payment, error)
}

var _ usecase.PaymentUseCase = (*mockPaymentUC)(nil)

func (m *mockPaymentUC) Purchase(ctx context.Context, userID, packageCode, gateway, methodToken string) (*model.Payment, error) {
	return m.PurchaseFunc(ctx, userID, packageCode, gateway, methodToken)
}

func (m *mockPaymentUC) EnsureForNotification(context.Context, repository.Tx, string, *adapter.Notification, string, string) (*model.Payment, bool, error) {
	panic("not wired in web tests")
}

func (m *mockPaymentUC) MarkSucceeded(context.Context, repository.Tx, *model.Payment, []byte) (bool, error) {
	panic("not wired in web tests")
}

func (m *mockPaymentUC) MarkFailed(context.Context, repository.Tx, *model.Payment, string, []byte) (bool, error) {
	panic("not wired in web tests")
}

func (m *mockPaymentUC) Refund(ctx context.Context, paymentID, reason string) (*model.Payment, error) {
	return m.RefundFunc(ctx, paymentID, reason)
}

func (m *mockPaymentUC) ReconcileStalePending(context.Context, time.Duration, int) (int, error) {
	panic("not wired in web tests")
}

func (m *mockPaymentUC) RevenueByPeriod(ctx context.Context, period string) (int64, error) {
	return m.RevenueByPeriodFunc(ctx, period)
}

func (m *mockPaymentUC) FindByID(ctx context.Context, id string) (*model.Payment, error) {
	return m.FindByIDFunc(ctx, id)
}

type mockSubUC struct {
	CancelFunc       func(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error)
	CurrentFunc      func(ctx context.Context, userID string, pkgType model.PackageType) (*model.Subscription, error)
	CheckQuotaFunc   func(ctx context.Context, userID string, pkgType model.PackageType, quotaType string) (int, int, error)
	ConsumeQuotaFunc func(ctx context.Context, userID string, pkgType model.PackageType, quotaType string, amount int) error
}

var _ usecase.SubscriptionUseCase = (*mockSubUC)(nil)

func (m *mockSubUC) GrantOrExtend(context.Context, repository.Tx, string, *model.PaymentPackage, *string) (*model.Subscription, []model.DomainEvent, error) {
	panic("not wired in web tests")
}

func (m *mockSubUC) RecordBillingFailure(context.Context, repository.Tx, string, model.PackageType) (*model.Subscription, []model.DomainEvent, error) {
	panic("not wired in web tests")
}

func (m *mockSubUC) FindByGatewaySubID(context.Context, repository.Tx, string) (*model.Subscription, error) {
	panic("not wired in web tests")
}

func (m *mockSubUC) Cancel(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error) {
	return m.CancelFunc(ctx, userID, subscriptionID)
}

func (m *mockSubUC) Current(ctx context.Context, userID string, pkgType model.PackageType) (*model.Subscription, error) {
	return m.CurrentFunc(ctx, userID, pkgType)
}

func (m *mockSubUC) ExpireDue(context.Context, time.Time) (int, error) {
	panic("not wired in web tests")
}

func (m *mockSubUC) CheckQuota(ctx context.Context, userID string, pkgType model.PackageType, quotaType string) (int, int, error) {
	return m.CheckQuotaFunc(ctx, userID, pkgType, quotaType)
}

func (m *mockSubUC) ConsumeQuota(ctx context.Context, userID string, pkgType model.PackageType, quotaType string, amount int) error {
	return m.ConsumeQuotaFunc(ctx, userID, pkgType, quotaType, amount)
}

type mockPkgUC struct {
	CreateFunc     func(ctx context.Context, code, name string, pkgType model.PackageType, price int64, currency string, durationDays int, quotas map[string]int) (*model.PaymentPackage, error)
	PublishFunc    func(ctx context.Context, code string, price int64, durationDays int, quotas map[string]int) (*model.PaymentPackage, error)
	DeactivateFunc func(ctx context.Context, code string) error
	GetByCodeFunc  func(ctx context.Context, code string) (*model.PaymentPackage, error)
	ListActiveFunc func(ctx context.Context) ([]*model.PaymentPackage, error)
}

var _ usecase.PackageUseCase = (*mockPkgUC)(nil)

func (m *mockPkgUC) Create(ctx context.Context, code, name string, pkgType model.PackageType, price int64, currency string, durationDays int, quotas map[string]int) (*model.PaymentPackage, error) {
	return m.CreateFunc(ctx, code, name, pkgType, price, currency, durationDays, quotas)
}

func (m *mockPkgUC) Publish(ctx context.Context, code string, price int64, durationDays int, quotas map[string]int) (*model.PaymentPackage, error) {
	return m.PublishFunc(ctx, code, price, durationDays, quotas)
}

func (m *mockPkgUC) Deactivate(ctx context.Context, code string) error {
	return m.DeactivateFunc(ctx, code)
}

func (m *mockPkgUC) GetByCode(ctx context.Context, code string) (*model.PaymentPackage, error) {
	return m.GetByCodeFunc(ctx, code)
}

func (m *mockPkgUC) ListActive(ctx context.Context) ([]*model.PaymentPackage, error) {
	return m.ListActiveFunc(ctx)
}

type mockWebhookUC struct {
	HandleFunc func(ctx context.Context, gatewayName, signatureHeader string, rawBody []byte) (*model.WebhookEvent, error)
}

var _ usecase.WebhookUseCase = (*mockWebhookUC)(nil)

func (m *mockWebhookUC) Handle(ctx context.Context, gatewayName, signatureHeader string, rawBody []byte) (*model.WebhookEvent, error) {
	return m.HandleFunc(ctx, gatewayName, signatureHeader, rawBody)
}

type mockNotifUC struct {
	DeadLettersFunc func(ctx context.Context, limit int) ([]*model.NotificationRecord, error)
}

var _ usecase.NotificationUseCase = (*mockNotifUC)(nil)

func (m *mockNotifUC) HandleEvent(context.Context, model.DomainEvent) {}

func (m *mockNotifUC) DeadLetters(ctx context.Context, limit int) ([]*model.NotificationRecord, error) {
	return m.DeadLettersFunc(ctx, limit)
}

// redirectGateway is a minimal gateway whose purchases complete on a hosted
// checkout page.
type redirectGateway struct{}

var _ adapter.PaymentGateway = (*redirectGateway)(nil)

func (g *redirectGateway) Name() string { return "vnpay" }

func (g *redirectGateway) Charge(context.Context, string, int64, string, string, string) (string, error) {
	return "", nil
}

func (g *redirectGateway) VerifyWebhook(string, []byte) error { return nil }

func (g *redirectGateway) ParseWebhook([]byte) (*adapter.Notification, error) {
	return &adapter.Notification{Outcome: adapter.OutcomeUnknown}, nil
}

func (g *redirectGateway) Refund(context.Context, string, int64, string) (adapter.RefundResult, error) {
	return adapter.RefundResult{}, nil
}

func (g *redirectGateway) CheckoutURL(orderRef string, amount int64, description string) (string, error) {
	return "https://pay.example.com/checkout?ref=" + orderRef, nil
}
