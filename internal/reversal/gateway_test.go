package reversal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumea_back_end/internal/models"
)

type refundCall struct {
	transactionID string
	amount        float64
	clientIP      string
}

type mockPaymentAPI struct {
	cancelErr  error
	refundErrs map[string]error
	cancels    []string
	refunds    []refundCall
}

func (m *mockPaymentAPI) CancelPayment(ctx context.Context, paymentID, clientIP string) error {
	m.cancels = append(m.cancels, paymentID)
	return m.cancelErr
}

func (m *mockPaymentAPI) RefundTransaction(ctx context.Context, transactionID string, amount float64, clientIP string) error {
	m.refunds = append(m.refunds, refundCall{transactionID, amount, clientIP})
	return m.refundErrs[transactionID]
}

func newTestGateway(api *mockPaymentAPI) *GatewayClient {
	return &GatewayClient{
		api:        api,
		enabled:    true,
		fallbackIP: "85.34.78.112",
		timeout:    time.Second,
	}
}

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		orderTotal float64
		want       float64
		wantOK     bool
	}{
		{"montant simple", "1500", 1500, 1500, true},
		{"virgule décimale", "1500,50", 1500, 1500.50, true},
		{"point décimal", "1500.50", 1500, 1500.50, true},
		{"centimes détectés", "150000", 1500, 1500, true},
		{"centimes avec virgule", "150050,00", 1500, 1500.50, true},
		{"juste sous le seuil", "15000", 1500, 15000, true},
		{"illisible", "abc", 1500, 0, false},
		{"vide", "", 1500, 0, false},
		{"infini", "Inf", 1500, 0, false},
		{"NaN", "NaN", 1500, 0, false},
		{"total nul, pas de correction", "150000", 0, 150000, true},
		{"arrondi 2 décimales", "99,999", 1500, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeAmount(tt.raw, tt.orderTotal)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 0.001)
			}
		})
	}
}

func TestNormalizeClientIP(t *testing.T) {
	tests := []struct {
		name      string
		forwarded string
		want      string
	}{
		{"ipv4 simple", "203.0.113.7", "203.0.113.7"},
		{"liste de proxies", "203.0.113.7, 10.0.0.1, 10.0.0.2", "203.0.113.7"},
		{"ipv6 mappée", "::ffff:203.0.113.7", "203.0.113.7"},
		{"ipv6 pure", "2001:db8::1", "85.34.78.112"},
		{"vide", "", "85.34.78.112"},
		{"espaces", "  203.0.113.7  ", "203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeClientIP(tt.forwarded, "85.34.78.112"))
		})
	}
}

func TestReconcileSkipsNonCardOrders(t *testing.T) {
	api := &mockPaymentAPI{}
	g := newTestGateway(api)
	order := makeOrder("u1", models.OrderStatusPending, models.PaymentMethodBankTransfer)

	out := g.Reconcile(context.Background(), order, models.ReversalTypeCancellation, "")

	assert.Equal(t, OutcomeSuccess, out.Status)
	assert.Empty(t, api.cancels)
	assert.Empty(t, api.refunds)
}

func TestReconcileSkipsWhenDisabled(t *testing.T) {
	api := &mockPaymentAPI{}
	g := newTestGateway(api)
	g.enabled = false
	order := makeOrder("u1", models.OrderStatusPending, models.PaymentMethodCard)

	out := g.Reconcile(context.Background(), order, models.ReversalTypeCancellation, "")

	assert.Equal(t, OutcomeSuccess, out.Status)
	assert.Empty(t, api.cancels)
}

func TestReconcileCancellationVoidSucceeds(t *testing.T) {
	api := &mockPaymentAPI{}
	g := newTestGateway(api)
	order := makeOrder("u1", models.OrderStatusPending, models.PaymentMethodCard)
	order.Transactions = []models.PaymentTransaction{{TransactionID: "tx_1", RawPrice: "1500"}}

	out := g.Reconcile(context.Background(), order, models.ReversalTypeCancellation, "203.0.113.7")

	assert.Equal(t, OutcomeSuccess, out.Status)
	assert.Equal(t, []string{"pi_test_123"}, api.cancels)
	assert.Empty(t, api.refunds, "void réussi, aucun remboursement attendu")
}

func TestReconcileCancellationFallsBackToRefunds(t *testing.T) {
	api := &mockPaymentAPI{cancelErr: errBoom}
	g := newTestGateway(api)
	order := makeOrder("u1", models.OrderStatusPending, models.PaymentMethodCard)
	order.Transactions = []models.PaymentTransaction{
		{TransactionID: "tx_1", RawPrice: "1000"},
		{TransactionID: "tx_2", RawPrice: "500,00"},
	}

	out := g.Reconcile(context.Background(), order, models.ReversalTypeCancellation, "203.0.113.7")

	assert.Equal(t, OutcomeSuccess, out.Status)
	assert.Contains(t, out.Message, "Annulation refusée")
	require.Len(t, api.refunds, 2)
	assert.Equal(t, 1000.0, api.refunds[0].amount)
	assert.Equal(t, 500.0, api.refunds[1].amount)
	assert.Equal(t, "203.0.113.7", api.refunds[0].clientIP)
}

func TestReconcileReturnRefundsEachTransaction(t *testing.T) {
	api := &mockPaymentAPI{}
	g := newTestGateway(api)
	order := makeOrder("u1", models.OrderStatusDelivered, models.PaymentMethodCard)
	order.Transactions = []models.PaymentTransaction{
		{TransactionID: "tx_1", RawPrice: "150000"}, // stocké en centimes
		{TransactionID: "tx_2", RawPrice: "n/a"},    // illisible, ignoré
	}

	out := g.Reconcile(context.Background(), order, models.ReversalTypeReturn, "")

	assert.Equal(t, OutcomeSuccess, out.Status)
	assert.Empty(t, api.cancels, "un retour ne tente jamais de void")
	require.Len(t, api.refunds, 1)
	assert.Equal(t, "tx_1", api.refunds[0].transactionID)
	assert.Equal(t, 1500.0, api.refunds[0].amount)
	assert.Equal(t, "85.34.78.112", api.refunds[0].clientIP, "IP absente remplacée par le repli")
}

func TestReconcilePartialRefundFailureIsReported(t *testing.T) {
	api := &mockPaymentAPI{refundErrs: map[string]error{"tx_2": errBoom}}
	g := newTestGateway(api)
	order := makeOrder("u1", models.OrderStatusDelivered, models.PaymentMethodCard)
	order.Transactions = []models.PaymentTransaction{
		{TransactionID: "tx_1", RawPrice: "1000"},
		{TransactionID: "tx_2", RawPrice: "500"},
		{TransactionID: "tx_3", RawPrice: "100"},
	}

	out := g.Reconcile(context.Background(), order, models.ReversalTypeReturn, "")

	assert.Equal(t, OutcomeFailure, out.Status)
	assert.Contains(t, out.Message, "tx_2")
	assert.Len(t, api.refunds, 3, "l'échec d'une transaction n'arrête pas les autres")
}

func TestReconcileNoRefundableTransactions(t *testing.T) {
	api := &mockPaymentAPI{}
	g := newTestGateway(api)
	order := makeOrder("u1", models.OrderStatusDelivered, models.PaymentMethodCard)
	order.Transactions = []models.PaymentTransaction{
		{TransactionID: "tx_1", RawPrice: "???"},
	}

	out := g.Reconcile(context.Background(), order, models.ReversalTypeReturn, "")

	assert.Equal(t, OutcomeFailure, out.Status)
	assert.Contains(t, out.Message, "Aucune transaction remboursable")
}
