//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"marathon-billing/internal/domain"
	"marathon-billing/internal/domain/model"
	"marathon-billing/internal/domain/ports/adapter"
	"marathon-billing/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// =============================
// Repositories
// =============================

// MockOrderRepo is an in-memory OrderRepository. Each method can be overridden
// with a Func hook to simulate failures or observe calls.
type MockOrderRepo struct {
	mu    sync.Mutex
	store map[string]*model.Order

	SaveFunc                      func(ctx context.Context, tx repository.Tx, o *model.Order) error
	UpdateStatusIfNotTerminalFunc func(ctx context.Context, tx repository.Tx, id string, status model.OrderStatus, errorMessage *string) (bool, error)
}

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{store: make(map[string]*model.Order)}
}

var _ repository.OrderRepository = (*MockOrderRepo)(nil)

func (m *MockOrderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.store[o.ID] = &cp
	return nil
}

func (m *MockOrderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrderRepo) FindByLocalOrExternalID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.store {
		if o.ID == id || o.ExternalID == id || o.OrderNumber == id {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockOrderRepo) MarkRegistered(ctx context.Context, tx repository.Tx, id, externalID, paymentURL string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if o.Status != model.OrderStatusPending {
		return false, nil
	}
	o.Status = model.OrderStatusAwaitingPayment
	o.ExternalID = externalID
	o.PaymentURL = paymentURL
	o.UpdatedAt = time.Now()
	return true, nil
}

func (m *MockOrderRepo) UpdateStatusIfNotTerminal(ctx context.Context, tx repository.Tx, id string, status model.OrderStatus, errorMessage *string) (bool, error) {
	if m.UpdateStatusIfNotTerminalFunc != nil {
		return m.UpdateStatusIfNotTerminalFunc(ctx, tx, id, status, errorMessage)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if o.Status.Terminal() {
		return false, nil
	}
	o.Status = status
	if errorMessage != nil {
		o.ErrorMessage = *errorMessage
	}
	o.UpdatedAt = time.Now()
	return true, nil
}

func (m *MockOrderRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, offset, limit int) ([]*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Order
	for _, o := range m.store {
		if o.UserID == userID {
			cp := *o
			out = append(out, &cp)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockOrderRepo) CountByUser(ctx context.Context, tx repository.Tx, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.store {
		if o.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *MockOrderRepo) ListAwaitingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Order
	for _, o := range m.store {
		if o.Status == model.OrderStatusAwaitingPayment && o.CreatedAt.Before(olderThan) {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Get returns the stored order directly for assertions.
func (m *MockOrderRepo) Get(id string) *model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store[id]
}

// ---- MockUserRepo ----

type MockUserRepo struct {
	mu    sync.Mutex
	store map[string]*model.User

	SaveFunc func(ctx context.Context, tx repository.Tx, u *model.User) error
}

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{store: make(map[string]*model.User)}
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func (m *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, u)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.store[u.ID] = &cp
	return nil
}

func (m *MockUserRepo) Get(id string) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store[id]
}

// ---- MockGrantRepo ----

type MockGrantRepo struct {
	mu    sync.Mutex
	store map[string]*model.EntitlementGrant

	CreateIfAbsentFunc func(ctx context.Context, tx repository.Tx, g *model.EntitlementGrant) (bool, error)
}

func NewMockGrantRepo() *MockGrantRepo {
	return &MockGrantRepo{store: make(map[string]*model.EntitlementGrant)}
}

var _ repository.GrantRepository = (*MockGrantRepo)(nil)

func (m *MockGrantRepo) CreateIfAbsent(ctx context.Context, tx repository.Tx, g *model.EntitlementGrant) (bool, error) {
	if m.CreateIfAbsentFunc != nil {
		return m.CreateIfAbsentFunc(ctx, tx, g)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.store[g.OrderID]; exists {
		return false, nil
	}
	cp := *g
	m.store[g.OrderID] = &cp
	return true, nil
}

func (m *MockGrantRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.EntitlementGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.store[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

// Delete removes a grant; used to unwind state when a mock tx "rolls back".
func (m *MockGrantRepo) Delete(orderID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, orderID)
}

func (m *MockGrantRepo) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store)
}

// ---- MockPurchaseRepo ----

type MockPurchaseRepo struct {
	mu    sync.Mutex
	store map[string]*model.PurchasedItemAccess // keyed by order id

	UpsertFunc func(ctx context.Context, tx repository.Tx, p *model.PurchasedItemAccess) error
}

func NewMockPurchaseRepo() *MockPurchaseRepo {
	return &MockPurchaseRepo{store: make(map[string]*model.PurchasedItemAccess)}
}

var _ repository.PurchaseRepository = (*MockPurchaseRepo)(nil)

func (m *MockPurchaseRepo) Upsert(ctx context.Context, tx repository.Tx, p *model.PurchasedItemAccess) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.OrderID] = &cp
	return nil
}

func (m *MockPurchaseRepo) FindActiveByUserAndExercise(ctx context.Context, tx repository.Tx, userID, exerciseID string, now time.Time) (*model.PurchasedItemAccess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.store {
		if p.UserID == userID && p.ExerciseID == exerciseID && p.Active(now) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPurchaseRepo) ListActiveByUser(ctx context.Context, tx repository.Tx, userID string, now time.Time) ([]*model.PurchasedItemAccess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PurchasedItemAccess
	for _, p := range m.store {
		if p.UserID == userID && p.Active(now) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockPurchaseRepo) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store)
}

// ---- MockEnrollmentRepo ----

type MockEnrollmentRepo struct {
	mu    sync.Mutex
	store map[string]*model.Enrollment // keyed by userID+"/"+programID

	SaveFunc func(ctx context.Context, tx repository.Tx, e *model.Enrollment) error
}

func NewMockEnrollmentRepo() *MockEnrollmentRepo {
	return &MockEnrollmentRepo{store: make(map[string]*model.Enrollment)}
}

var _ repository.EnrollmentRepository = (*MockEnrollmentRepo)(nil)

func enrollmentKey(userID, programID string) string { return userID + "/" + programID }

func (m *MockEnrollmentRepo) Save(ctx context.Context, tx repository.Tx, e *model.Enrollment) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	cp.CompletedDays = append([]int(nil), e.CompletedDays...)
	m.store[enrollmentKey(e.UserID, e.ProgramID)] = &cp
	return nil
}

func (m *MockEnrollmentRepo) FindByUserAndProgram(ctx context.Context, tx repository.Tx, userID, programID string) (*model.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.store[enrollmentKey(userID, programID)]
	if !ok {
		return nil, domain.ErrEnrollmentNotFound
	}
	cp := *e
	cp.CompletedDays = append([]int(nil), e.CompletedDays...)
	return &cp, nil
}

func (m *MockEnrollmentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Enrollment
	for _, e := range m.store {
		if e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- MockProgramRepo ----

type MockProgramRepo struct {
	mu    sync.Mutex
	store map[string]*model.Program
}

func NewMockProgramRepo() *MockProgramRepo {
	return &MockProgramRepo{store: make(map[string]*model.Program)}
}

var _ repository.ProgramRepository = (*MockProgramRepo)(nil)

func (m *MockProgramRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Program, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrProgramNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockProgramRepo) Put(p *model.Program) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
}

// =============================
// Gateway / tx / lock
// =============================

// MockGateway simulates the bank. Configure per-test with the Func hooks or the
// Status field.
type MockGateway struct {
	mu     sync.Mutex
	Status adapter.StatusCode

	RegisterOrderFunc func(ctx context.Context, orderNumber string, amount int64, description, email string, meta map[string]string) (adapter.Registration, error)
	FetchStatusFunc   func(ctx context.Context, externalID string) (adapter.StatusCode, error)

	Calls struct {
		Register int
		Fetch    int
	}
}

var _ adapter.PaymentGateway = (*MockGateway)(nil)

func (m *MockGateway) Name() string { return "mock" }

func (m *MockGateway) RegisterOrder(ctx context.Context, orderNumber string, amount int64, description, email string, meta map[string]string) (adapter.Registration, error) {
	m.mu.Lock()
	m.Calls.Register++
	m.mu.Unlock()
	if m.RegisterOrderFunc != nil {
		return m.RegisterOrderFunc(ctx, orderNumber, amount, description, email, meta)
	}
	return adapter.Registration{ExternalID: "ext-" + orderNumber, PaymentURL: "https://bank.test/pay/" + orderNumber}, nil
}

func (m *MockGateway) FetchStatus(ctx context.Context, externalID string) (adapter.StatusCode, error) {
	m.mu.Lock()
	m.Calls.Fetch++
	m.mu.Unlock()
	if m.FetchStatusFunc != nil {
		return m.FetchStatusFunc(ctx, externalID)
	}
	return m.Status, nil
}

// MapStatus mirrors the production mapping so reconciler tests exercise the
// same canonical statuses.
func (m *MockGateway) MapStatus(code adapter.StatusCode) adapter.CanonicalStatus {
	switch code {
	case 2:
		return adapter.CanonicalSucceeded
	case 3, 4:
		return adapter.CanonicalCanceled
	case 6:
		return adapter.CanonicalFailed
	default:
		return adapter.CanonicalPending
	}
}

// MockTxManager runs the callback without a real transaction. Rollback
// semantics are approximated by the test observing the returned error.
type MockTxManager struct {
	WithTxFunc func(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) WithTx(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, opts, fn)
	}
	return fn(ctx, repository.NoTX)
}

// MockLocker is a process-local lock with the same contract as the redis one.
type MockLocker struct {
	mu   sync.Mutex
	held map[string]string
	Busy bool // force TryLock to fail
}

func NewMockLocker() *MockLocker {
	return &MockLocker{held: make(map[string]string)}
}

func (m *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Busy {
		return "", domain.ErrLockNotAcquired
	}
	if _, taken := m.held[key]; taken {
		return "", domain.ErrLockNotAcquired
	}
	token := key + "-token"
	m.held[key] = token
	return token, nil
}

func (m *MockLocker) Unlock(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] == token {
		delete(m.held, key)
	}
	return nil
}
