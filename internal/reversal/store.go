package reversal

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"lumea_back_end/internal/database"
	"lumea_back_end/internal/models"
)

// OrderStore charge et fait transiter les commandes côté reversal.
type OrderStore interface {
	Get(ctx context.Context, orderID gocql.UUID) (*models.Order, error)
	ApplyReversal(ctx context.Context, o *models.Order, entry models.StatusHistoryEntry) error
}

// RequestStore gère le cycle de vie des demandes de reversal. ClaimPending et
// Transition sont les deux points de sérialisation du sous-système (LWT).
type RequestStore interface {
	Get(ctx context.Context, requestID gocql.UUID) (*models.ReversalRequest, error)
	Insert(ctx context.Context, r *models.ReversalRequest) error
	ClaimPending(ctx context.Context, orderID, requestID gocql.UUID) (bool, error)
	ReleasePending(ctx context.Context, orderID gocql.UUID)
	HasPending(ctx context.Context, orderID gocql.UUID) (bool, error)
	Transition(ctx context.Context, r *models.ReversalRequest, from string) (bool, error)
	ListByOrder(ctx context.Context, orderID gocql.UUID) ([]models.ReversalRequest, error)
	ListByUser(ctx context.Context, userID string) ([]models.ReversalRequest, error)
	List(ctx context.Context, status string, limit int) ([]models.ReversalRequest, error)
}

// --- Implémentation ScyllaDB ---

type ScyllaOrderStore struct{}

func (ScyllaOrderStore) Get(ctx context.Context, orderID gocql.UUID) (*models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, fmt.Errorf("erreur connexion base commandes: %v", err)
	}

	var o models.Order
	var cancelledAt, refundedAt time.Time

	if err := session.Query(
		`SELECT order_id, order_number, user_id, status, payment_status, payment_method,
		        total_price, payment_id, conversation_id, cancelled_at, refunded_at, created_at
		 FROM orders WHERE order_id = ?`,
		orderID,
	).WithContext(ctx).Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.PaymentStatus, &o.PaymentMethod,
		&o.TotalPrice, &o.PaymentID, &o.ConversationID, &cancelledAt, &refundedAt, &o.CreatedAt,
	); err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("erreur lecture commande: %v", err)
	}

	// Scylla renvoie le zéro Go pour les timestamps null
	if !cancelledAt.IsZero() {
		o.CancelledAt = &cancelledAt
	}
	if !refundedAt.IsZero() {
		o.RefundedAt = &refundedAt
	}

	if err := loadOrderItems(ctx, session, &o); err != nil {
		return nil, err
	}
	if err := loadOrderTransactions(ctx, session, &o); err != nil {
		return nil, err
	}
	if err := loadOrderHistory(ctx, session, &o); err != nil {
		return nil, err
	}

	return &o, nil
}

func loadOrderItems(ctx context.Context, session *gocql.Session, o *models.Order) error {
	iter := session.Query(
		`SELECT item_id, product_id, variant_id, variant_info, quantity
		 FROM order_items WHERE order_id = ?`,
		o.ID,
	).WithContext(ctx).Iter()

	var item models.OrderLineItem
	var variantID gocql.UUID
	for iter.Scan(&item.ItemID, &item.ProductID, &variantID, &item.VariantInfo, &item.Quantity) {
		item.VariantID = nil
		if variantID != (gocql.UUID{}) {
			v := variantID
			item.VariantID = &v
		}
		o.Items = append(o.Items, item)
	}
	if err := iter.Close(); err != nil {
		return fmt.Errorf("erreur lecture articles commande: %v", err)
	}
	return nil
}

func loadOrderTransactions(ctx context.Context, session *gocql.Session, o *models.Order) error {
	iter := session.Query(
		`SELECT transaction_id, raw_price FROM payment_transactions WHERE order_id = ?`,
		o.ID,
	).WithContext(ctx).Iter()

	var tx models.PaymentTransaction
	for iter.Scan(&tx.TransactionID, &tx.RawPrice) {
		o.Transactions = append(o.Transactions, tx)
	}
	if err := iter.Close(); err != nil {
		return fmt.Errorf("erreur lecture transactions: %v", err)
	}
	return nil
}

func loadOrderHistory(ctx context.Context, session *gocql.Session, o *models.Order) error {
	iter := session.Query(
		`SELECT seq, status, previous_status, note, created_at
		 FROM order_status_history WHERE order_id = ?`,
		o.ID,
	).WithContext(ctx).Iter()

	var entry models.StatusHistoryEntry
	for iter.Scan(&entry.Seq, &entry.Status, &entry.PreviousStatus, &entry.Note, &entry.CreatedAt) {
		o.StatusHistory = append(o.StatusHistory, entry)
	}
	if err := iter.Close(); err != nil {
		return fmt.Errorf("erreur lecture historique: %v", err)
	}
	return nil
}

// ApplyReversal écrit la transition de la commande, l'entrée d'audit et la
// levée du verrou de demande en attente dans un même batch logged.
func (ScyllaOrderStore) ApplyReversal(ctx context.Context, o *models.Order, entry models.StatusHistoryEntry) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return fmt.Errorf("erreur connexion base commandes: %v", err)
	}

	batch := session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(
		`UPDATE orders SET status = ?, payment_status = ?, cancelled_at = ?, refunded_at = ?
		 WHERE order_id = ?`,
		entry.Status, o.PaymentStatus, o.CancelledAt, o.RefundedAt, o.ID,
	)
	AuditTrail{}.AddToBatch(batch, o.ID, entry)
	batch.Query(`DELETE FROM pending_reversals_by_order WHERE order_id = ?`, o.ID)

	if err := session.ExecuteBatch(batch); err != nil {
		return fmt.Errorf("erreur écriture transition commande: %v", err)
	}

	o.Status = entry.Status
	o.StatusHistory = append(o.StatusHistory, entry)
	return nil
}

type ScyllaRequestStore struct{}

func (ScyllaRequestStore) Get(ctx context.Context, requestID gocql.UUID) (*models.ReversalRequest, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, fmt.Errorf("erreur connexion base commandes: %v", err)
	}

	var r models.ReversalRequest
	var reviewedAt time.Time

	if err := session.Query(
		`SELECT request_id, order_id, user_id, type, reason, description, evidence_urls,
		        request_ip, status, admin_note, reviewed_by, reviewed_at,
		        return_address, return_instructions, created_at
		 FROM reversal_requests WHERE request_id = ?`,
		requestID,
	).WithContext(ctx).Scan(
		&r.ID, &r.OrderID, &r.UserID, &r.Type, &r.Reason, &r.Description, &r.EvidenceURLs,
		&r.RequestIP, &r.Status, &r.AdminNote, &r.ReviewedBy, &reviewedAt,
		&r.ReturnAddress, &r.ReturnInstructions, &r.CreatedAt,
	); err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("erreur lecture demande: %v", err)
	}

	if !reviewedAt.IsZero() {
		r.ReviewedAt = &reviewedAt
	}
	return &r, nil
}

func (ScyllaRequestStore) Insert(ctx context.Context, r *models.ReversalRequest) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return fmt.Errorf("erreur connexion base commandes: %v", err)
	}

	if err := session.Query(
		`INSERT INTO reversal_requests (request_id, order_id, user_id, type, reason, description,
		        evidence_urls, request_ip, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.OrderID, r.UserID, r.Type, r.Reason, r.Description,
		r.EvidenceURLs, r.RequestIP, r.Status, r.CreatedAt,
	).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("erreur enregistrement demande: %v", err)
	}
	return nil
}

// ClaimPending pose le verrou « une seule demande en attente par commande ».
// INSERT IF NOT EXISTS : le perdant de la course voit applied=false.
func (ScyllaRequestStore) ClaimPending(ctx context.Context, orderID, requestID gocql.UUID) (bool, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return false, fmt.Errorf("erreur connexion base commandes: %v", err)
	}

	applied, err := session.Query(
		`INSERT INTO pending_reversals_by_order (order_id, request_id, created_at)
		 VALUES (?, ?, ?) IF NOT EXISTS`,
		orderID, requestID, time.Now(),
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return false, fmt.Errorf("erreur pose du verrou de demande: %v", err)
	}
	return applied, nil
}

// ReleasePending lève le verrou après un échec de création (upload ou insert).
// Best-effort : un verrou orphelin est aussi levé au rejet de la demande.
func (ScyllaRequestStore) ReleasePending(ctx context.Context, orderID gocql.UUID) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return
	}
	_ = session.Query(
		`DELETE FROM pending_reversals_by_order WHERE order_id = ?`, orderID,
	).WithContext(ctx).Exec()
}

func (ScyllaRequestStore) HasPending(ctx context.Context, orderID gocql.UUID) (bool, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return false, fmt.Errorf("erreur connexion base commandes: %v", err)
	}

	var requestID gocql.UUID
	err = session.Query(
		`SELECT request_id FROM pending_reversals_by_order WHERE order_id = ?`, orderID,
	).WithContext(ctx).Scan(&requestID)
	if err == gocql.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("erreur vérification demande en attente: %v", err)
	}
	return true, nil
}

// Transition fait passer la demande de `from` vers r.Status par compare-and-
// swap. applied=false signifie qu'un autre opérateur a tranché en premier.
func (ScyllaRequestStore) Transition(ctx context.Context, r *models.ReversalRequest, from string) (bool, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return false, fmt.Errorf("erreur connexion base commandes: %v", err)
	}

	var prev string
	applied, err := session.Query(
		`UPDATE reversal_requests
		 SET status = ?, admin_note = ?, reviewed_by = ?, reviewed_at = ?,
		     return_address = ?, return_instructions = ?
		 WHERE request_id = ? IF status = ?`,
		r.Status, r.AdminNote, r.ReviewedBy, r.ReviewedAt,
		r.ReturnAddress, r.ReturnInstructions,
		r.ID, from,
	).WithContext(ctx).ScanCAS(&prev)
	if err != nil {
		return false, fmt.Errorf("erreur transition demande: %v", err)
	}
	return applied, nil
}

func (ScyllaRequestStore) ListByOrder(ctx context.Context, orderID gocql.UUID) ([]models.ReversalRequest, error) {
	return scanRequests(ctx,
		`SELECT request_id, order_id, user_id, type, reason, description, evidence_urls,
		        request_ip, status, admin_note, reviewed_by, reviewed_at,
		        return_address, return_instructions, created_at
		 FROM reversal_requests WHERE order_id = ? ALLOW FILTERING`,
		orderID)
}

func (ScyllaRequestStore) ListByUser(ctx context.Context, userID string) ([]models.ReversalRequest, error) {
	return scanRequests(ctx,
		`SELECT request_id, order_id, user_id, type, reason, description, evidence_urls,
		        request_ip, status, admin_note, reviewed_by, reviewed_at,
		        return_address, return_instructions, created_at
		 FROM reversal_requests WHERE user_id = ? ALLOW FILTERING`,
		userID)
}

func (ScyllaRequestStore) List(ctx context.Context, status string, limit int) ([]models.ReversalRequest, error) {
	if limit <= 0 {
		limit = 100
	}
	if status != "" {
		return scanRequests(ctx,
			`SELECT request_id, order_id, user_id, type, reason, description, evidence_urls,
			        request_ip, status, admin_note, reviewed_by, reviewed_at,
			        return_address, return_instructions, created_at
			 FROM reversal_requests WHERE status = ? LIMIT `+fmt.Sprint(limit)+` ALLOW FILTERING`,
			status)
	}
	return scanRequests(ctx,
		`SELECT request_id, order_id, user_id, type, reason, description, evidence_urls,
		        request_ip, status, admin_note, reviewed_by, reviewed_at,
		        return_address, return_instructions, created_at
		 FROM reversal_requests LIMIT `+fmt.Sprint(limit))
}

func scanRequests(ctx context.Context, cql string, args ...interface{}) ([]models.ReversalRequest, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, fmt.Errorf("erreur connexion base commandes: %v", err)
	}

	iter := session.Query(cql, args...).WithContext(ctx).Iter()

	var requests []models.ReversalRequest
	for {
		var r models.ReversalRequest
		var reviewedAt time.Time
		if !iter.Scan(
			&r.ID, &r.OrderID, &r.UserID, &r.Type, &r.Reason, &r.Description, &r.EvidenceURLs,
			&r.RequestIP, &r.Status, &r.AdminNote, &r.ReviewedBy, &reviewedAt,
			&r.ReturnAddress, &r.ReturnInstructions, &r.CreatedAt,
		) {
			break
		}
		if !reviewedAt.IsZero() {
			r.ReviewedAt = &reviewedAt
		}
		requests = append(requests, r)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("erreur lecture demandes: %v", err)
	}
	return requests, nil
}
