package reversal

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/gocql/gocql"

	"lumea_back_end/internal/models"
)

// Mocks partagés par les tests du package.

type mockOrderStore struct {
	orders   map[gocql.UUID]*models.Order
	applyErr error
	applied  []models.StatusHistoryEntry
}

func newMockOrderStore(orders ...*models.Order) *mockOrderStore {
	m := &mockOrderStore{orders: make(map[gocql.UUID]*models.Order)}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *mockOrderStore) Get(ctx context.Context, orderID gocql.UUID) (*models.Order, error) {
	o, ok := m.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (m *mockOrderStore) ApplyReversal(ctx context.Context, o *models.Order, entry models.StatusHistoryEntry) error {
	if m.applyErr != nil {
		return m.applyErr
	}
	o.Status = entry.Status
	o.StatusHistory = append(o.StatusHistory, entry)
	m.applied = append(m.applied, entry)
	return nil
}

type mockRequestStore struct {
	requests         map[gocql.UUID]*models.ReversalRequest
	pending          map[gocql.UUID]gocql.UUID
	insertErr        error
	denyTransition   bool
	inserted         []*models.ReversalRequest
	released         []gocql.UUID
	transitionCalled int
}

func newMockRequestStore(requests ...*models.ReversalRequest) *mockRequestStore {
	m := &mockRequestStore{
		requests: make(map[gocql.UUID]*models.ReversalRequest),
		pending:  make(map[gocql.UUID]gocql.UUID),
	}
	for _, r := range requests {
		m.requests[r.ID] = r
		if r.IsPending() {
			m.pending[r.OrderID] = r.ID
		}
	}
	return m
}

func (m *mockRequestStore) Get(ctx context.Context, requestID gocql.UUID) (*models.ReversalRequest, error) {
	r, ok := m.requests[requestID]
	if !ok {
		return nil, ErrRequestNotFound
	}
	// Copie : le coordinateur mute la demande avant le compare-and-swap
	cp := *r
	return &cp, nil
}

func (m *mockRequestStore) Insert(ctx context.Context, r *models.ReversalRequest) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.requests[r.ID] = r
	m.inserted = append(m.inserted, r)
	return nil
}

func (m *mockRequestStore) ClaimPending(ctx context.Context, orderID, requestID gocql.UUID) (bool, error) {
	if _, taken := m.pending[orderID]; taken {
		return false, nil
	}
	m.pending[orderID] = requestID
	return true, nil
}

func (m *mockRequestStore) ReleasePending(ctx context.Context, orderID gocql.UUID) {
	delete(m.pending, orderID)
	m.released = append(m.released, orderID)
}

func (m *mockRequestStore) HasPending(ctx context.Context, orderID gocql.UUID) (bool, error) {
	_, ok := m.pending[orderID]
	return ok, nil
}

func (m *mockRequestStore) Transition(ctx context.Context, r *models.ReversalRequest, from string) (bool, error) {
	m.transitionCalled++
	if m.denyTransition {
		return false, nil
	}
	stored, ok := m.requests[r.ID]
	if !ok || stored.Status != from {
		return false, nil
	}
	m.requests[r.ID] = r
	return true, nil
}

func (m *mockRequestStore) ListByOrder(ctx context.Context, orderID gocql.UUID) ([]models.ReversalRequest, error) {
	var out []models.ReversalRequest
	for _, r := range m.requests {
		if r.OrderID == orderID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockRequestStore) ListByUser(ctx context.Context, userID string) ([]models.ReversalRequest, error) {
	var out []models.ReversalRequest
	for _, r := range m.requests {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockRequestStore) List(ctx context.Context, status string, limit int) ([]models.ReversalRequest, error) {
	var out []models.ReversalRequest
	for _, r := range m.requests {
		if status == "" || r.Status == status {
			out = append(out, *r)
		}
	}
	return out, nil
}

type mockGuard struct {
	bannedIPs map[string]time.Duration
	counts    map[string]int
	recorded  []string
}

func newMockGuard() *mockGuard {
	return &mockGuard{
		bannedIPs: make(map[string]time.Duration),
		counts:    make(map[string]int),
	}
}

func (m *mockGuard) IsBanned(ctx context.Context, ip string) (bool, time.Duration) {
	remaining, ok := m.bannedIPs[ip]
	return ok, remaining
}

func (m *mockGuard) Check(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration) {
	if m.counts[key] >= limit {
		return false, window
	}
	return true, 0
}

func (m *mockGuard) Record(ctx context.Context, key string, window time.Duration) {
	m.counts[key]++
	m.recorded = append(m.recorded, key)
}

type mockEvidenceStore struct {
	uploads   []string
	uploadErr error
}

func (m *mockEvidenceStore) UploadEvidence(ctx context.Context, requestID string, fh *multipart.FileHeader) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	m.uploads = append(m.uploads, fh.Filename)
	return "https://cdn.test/reversals/" + requestID + "/" + fh.Filename, nil
}

type mockStockLedger struct {
	restored []gocql.UUID
	err      error
}

func (m *mockStockLedger) Restore(ctx context.Context, o *models.Order) error {
	m.restored = append(m.restored, o.ID)
	return m.err
}

type mockGateway struct {
	outcome  Outcome
	calls    int
	lastType string
}

func (m *mockGateway) Reconcile(ctx context.Context, o *models.Order, requestType, forwardedIP string) Outcome {
	m.calls++
	m.lastType = requestType
	return m.outcome
}

type mockNotifier struct{}

func (mockNotifier) ReversalDecided(r *models.ReversalRequest, o *models.Order) {}

type mockViewCache struct {
	invalidated []gocql.UUID
}

func (m *mockViewCache) InvalidateOrder(orderID gocql.UUID) {
	m.invalidated = append(m.invalidated, orderID)
}

func makeOrder(userID, status, paymentMethod string) *models.Order {
	return &models.Order{
		ID:            gocql.TimeUUID(),
		OrderNumber:   fmt.Sprintf("LUM-%d", time.Now().UnixNano()%100000),
		UserID:        userID,
		Status:        status,
		PaymentStatus: models.PaymentStatusPaid,
		PaymentMethod: paymentMethod,
		TotalPrice:    1500,
		PaymentID:     "pi_test_123",
		CreatedAt:     time.Now(),
	}
}

func makePendingRequest(o *models.Order, requestType string) *models.ReversalRequest {
	return &models.ReversalRequest{
		ID:        gocql.TimeUUID(),
		OrderID:   o.ID,
		UserID:    o.UserID,
		Type:      requestType,
		Status:    models.ReversalStatusPending,
		CreatedAt: time.Now(),
	}
}

var errBoom = errors.New("boom")
