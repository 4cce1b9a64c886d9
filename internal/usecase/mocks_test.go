// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"recruitment-billing/internal/domain/model"
	"recruitment-billing/internal/domain/ports/adapter"
	"recruitment-billing/internal/domain/ports/repository"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// Hand-rolled mocks: each port method is a settable func field, so every
// test states exactly the behavior it needs.

type mockTxManager struct {
	mu     sync.Mutex
	locked []string

	// CommitErr simulates a transaction that runs its body but fails to
	// commit: the body's writes are lost and WithTx reports the error.
	CommitErr error
}

func (m *mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := fn(ctx, repository.NoTX); err != nil {
		return err
	}
	return m.CommitErr
}

func (m *mockTxManager) LockKey(_ context.Context, _ repository.Tx, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locked = append(m.locked, key)
	return nil
}

type mockPaymentRepo struct {
	InsertFunc               func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	SaveFunc                 func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	FindByIDFunc             func(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error)
	FindByGatewayRefFunc     func(ctx context.Context, tx repository.Tx, gateway, gatewayRef string) (*model.Payment, error)
	FindByOrderRefFunc       func(ctx context.Context, tx repository.Tx, orderRef string) (*model.Payment, error)
	UpdateStatusIfFunc       func(ctx context.Context, tx repository.Tx, id string, from []model.PaymentStatus, to model.PaymentStatus, failReason string, rawPayload []byte, processedAt *time.Time) (bool, error)
	SetSubscriptionIDFunc    func(ctx context.Context, tx repository.Tx, paymentID, subscriptionID string) error
	ListPendingOlderThanFunc func(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error)
	SumSucceededFunc         func(ctx context.Context, tx repository.Tx, period string) (int64, error)
}

func (m *mockPaymentRepo) Insert(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	return m.InsertFunc(ctx, tx, p)
}
func (m *mockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	return m.SaveFunc(ctx, tx, p)
}
func (m *mockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	return m.FindByIDFunc(ctx, tx, id)
}
func (m *mockPaymentRepo) FindByGatewayRef(ctx context.Context, tx repository.Tx, gateway, gatewayRef string) (*model.Payment, error) {
	return m.FindByGatewayRefFunc(ctx, tx, gateway, gatewayRef)
}
func (m *mockPaymentRepo) FindByOrderRef(ctx context.Context, tx repository.Tx, orderRef string) (*model.Payment, error) {
	return m.FindByOrderRefFunc(ctx, tx, orderRef)
}
func (m *mockPaymentRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, id string, from []model.PaymentStatus, to model.PaymentStatus, failReason string, rawPayload []byte, processedAt *time.Time) (bool, error) {
	return m.UpdateStatusIfFunc(ctx, tx, id, from, to, failReason, rawPayload, processedAt)
}
func (m *mockPaymentRepo) SetSubscriptionID(ctx context.Context, tx repository.Tx, paymentID, subscriptionID string) error {
	return m.SetSubscriptionIDFunc(ctx, tx, paymentID, subscriptionID)
}
func (m *mockPaymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	return m.ListPendingOlderThanFunc(ctx, tx, olderThan, limit)
}
func (m *mockPaymentRepo) SumSucceededByPeriod(ctx context.Context, tx repository.Tx, period string) (int64, error) {
	return m.SumSucceededFunc(ctx, tx, period)
}

type mockSubscriptionRepo struct {
	SaveFunc                     func(ctx context.Context, tx repository.Tx, s *model.Subscription) error
	FindByIDFunc                 func(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error)
	FindCurrentByUserAndTypeFunc func(ctx context.Context, tx repository.Tx, userID string, pkgType model.PackageType) (*model.Subscription, error)
	FindByGatewaySubIDFunc       func(ctx context.Context, tx repository.Tx, gatewaySubID string) (*model.Subscription, error)
	ListDueForExpiryFunc         func(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Subscription, error)
	CountActiveByTypeFunc        func(ctx context.Context, tx repository.Tx) (map[string]int, error)
}

func (m *mockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	return m.SaveFunc(ctx, tx, s)
}
func (m *mockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	return m.FindByIDFunc(ctx, tx, id)
}
func (m *mockSubscriptionRepo) FindCurrentByUserAndType(ctx context.Context, tx repository.Tx, userID string, pkgType model.PackageType) (*model.Subscription, error) {
	return m.FindCurrentByUserAndTypeFunc(ctx, tx, userID, pkgType)
}
func (m *mockSubscriptionRepo) FindByGatewaySubID(ctx context.Context, tx repository.Tx, gatewaySubID string) (*model.Subscription, error) {
	return m.FindByGatewaySubIDFunc(ctx, tx, gatewaySubID)
}
func (m *mockSubscriptionRepo) ListDueForExpiry(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Subscription, error) {
	return m.ListDueForExpiryFunc(ctx, tx, now, limit)
}
func (m *mockSubscriptionRepo) CountActiveByPackageType(ctx context.Context, tx repository.Tx) (map[string]int, error) {
	return m.CountActiveByTypeFunc(ctx, tx)
}

type mockPackageRepo struct {
	SaveFunc         func(ctx context.Context, tx repository.Tx, pkg *model.PaymentPackage) error
	DeactivateFunc   func(ctx context.Context, tx repository.Tx, id string) error
	FindByIDFunc     func(ctx context.Context, tx repository.Tx, id string) (*model.PaymentPackage, error)
	FindByCodeFunc   func(ctx context.Context, tx repository.Tx, code string) (*model.PaymentPackage, error)
	ListActiveFunc   func(ctx context.Context, tx repository.Tx) ([]*model.PaymentPackage, error)
	FindFreeTierFunc func(ctx context.Context, tx repository.Tx, pkgType model.PackageType) (*model.PaymentPackage, error)
}

func (m *mockPackageRepo) Save(ctx context.Context, tx repository.Tx, pkg *model.PaymentPackage) error {
	return m.SaveFunc(ctx, tx, pkg)
}
func (m *mockPackageRepo) Deactivate(ctx context.Context, tx repository.Tx, id string) error {
	return m.DeactivateFunc(ctx, tx, id)
}
func (m *mockPackageRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentPackage, error) {
	return m.FindByIDFunc(ctx, tx, id)
}
func (m *mockPackageRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.PaymentPackage, error) {
	return m.FindByCodeFunc(ctx, tx, code)
}
func (m *mockPackageRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.PaymentPackage, error) {
	return m.ListActiveFunc(ctx, tx)
}
func (m *mockPackageRepo) FindFreeTier(ctx context.Context, tx repository.Tx, pkgType model.PackageType) (*model.PaymentPackage, error) {
	return m.FindFreeTierFunc(ctx, tx, pkgType)
}

type mockWebhookEventRepo struct {
	mu    sync.Mutex
	saved []*model.WebhookEvent

	ListByGatewayRefFunc func(ctx context.Context, tx repository.Tx, gateway, gatewayRef string) ([]*model.WebhookEvent, error)
}

func (m *mockWebhookEventRepo) Save(_ context.Context, _ repository.Tx, ev *model.WebhookEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, ev)
	return nil
}
func (m *mockWebhookEventRepo) ListByGatewayRef(ctx context.Context, tx repository.Tx, gateway, gatewayRef string) ([]*model.WebhookEvent, error) {
	return m.ListByGatewayRefFunc(ctx, tx, gateway, gatewayRef)
}

type mockNotificationLogRepo struct {
	mu    sync.Mutex
	saved []*model.NotificationRecord

	ListDeadLettersFunc func(ctx context.Context, tx repository.Tx, limit int) ([]*model.NotificationRecord, error)
}

func (m *mockNotificationLogRepo) Save(_ context.Context, _ repository.Tx, rec *model.NotificationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, rec)
	return nil
}
func (m *mockNotificationLogRepo) ListDeadLetters(ctx context.Context, tx repository.Tx, limit int) ([]*model.NotificationRecord, error) {
	return m.ListDeadLettersFunc(ctx, tx, limit)
}

type mockGateway struct {
	name              string
	ChargeFunc        func(ctx context.Context, methodToken string, amount int64, currency, orderRef, description string) (string, error)
	VerifyWebhookFunc func(signatureHeader string, rawBody []byte) error
	ParseWebhookFunc  func(rawBody []byte) (*adapter.Notification, error)
	RefundFunc        func(ctx context.Context, gatewayRef string, amount int64, reason string) (adapter.RefundResult, error)
}

func (m *mockGateway) Name() string { return m.name }
func (m *mockGateway) Charge(ctx context.Context, methodToken string, amount int64, currency, orderRef, description string) (string, error) {
	return m.ChargeFunc(ctx, methodToken, amount, currency, orderRef, description)
}
func (m *mockGateway) VerifyWebhook(signatureHeader string, rawBody []byte) error {
	return m.VerifyWebhookFunc(signatureHeader, rawBody)
}
func (m *mockGateway) ParseWebhook(rawBody []byte) (*adapter.Notification, error) {
	return m.ParseWebhookFunc(rawBody)
}
func (m *mockGateway) Refund(ctx context.Context, gatewayRef string, amount int64, reason string) (adapter.RefundResult, error) {
	return m.RefundFunc(ctx, gatewayRef, amount, reason)
}

type mockEventPublisher struct {
	mu     sync.Mutex
	events []model.DomainEvent
}

func (m *mockEventPublisher) Publish(_ context.Context, ev model.DomainEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mockEventPublisher) byType(t model.EventType) []model.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.DomainEvent
	for _, ev := range m.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type mockSender struct {
	SendFunc func(ctx context.Context, userID, eventType string, payload []byte) error
}

func (m *mockSender) Send(ctx context.Context, userID, eventType string, payload []byte) error {
	return m.SendFunc(ctx, userID, eventType, payload)
}

// fullQueue rejects every submit, standing in for a saturated pool.
type fullQueue struct{}

func (q *fullQueue) Submit(adapter.Job) error {
	return errors.New("worker queue full")
}

// syncQueue executes jobs inline with a fixed attempt bound, standing in for
// the background pool.
type syncQueue struct {
	maxAttempts int
}

func (q *syncQueue) Submit(job adapter.Job) error {
	attempts := q.maxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		lastErr = job.Run(context.Background())
		if lastErr == nil {
			return nil
		}
	}
	if job.OnDead != nil {
		job.OnDead(context.Background(), attempts, lastErr)
	}
	return nil
}
