package reversal

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gocql/gocql"

	"lumea_back_end/internal/models"
)

type stockLedger interface {
	Restore(ctx context.Context, o *models.Order) error
}

type gatewayClient interface {
	Reconcile(ctx context.Context, o *models.Order, requestType, forwardedIP string) Outcome
}

type notifier interface {
	ReversalDecided(r *models.ReversalRequest, o *models.Order)
}

type viewCache interface {
	InvalidateOrder(orderID gocql.UUID)
}

// Reviewer est l'opérateur qui tranche la demande.
type Reviewer struct {
	ID    string
	Email string
	Role  string
}

type ApproveInput struct {
	RequestID          gocql.UUID
	Reviewer           Reviewer
	AdminNote          string
	ReturnAddress      string
	ReturnInstructions string
	ForwardedIP        string
}

type RejectInput struct {
	RequestID gocql.UUID
	Reviewer  Reviewer
	AdminNote string
}

type ApproveResult struct {
	Request        *models.ReversalRequest `json:"request"`
	Order          *models.Order           `json:"order"`
	Reconciliation Outcome                 `json:"reconciliation"`
}

// Coordinator exécute les décisions des opérateurs. L'ordre des effets est
// fixe : claim CAS de la demande, restitution du stock, réconciliation
// passerelle, puis transition de la commande en batch logged. La passerelle
// ne s'exécute jamais entre deux écritures du même batch.
type Coordinator struct {
	orders   OrderStore
	requests RequestStore
	stock    stockLedger
	gateway  gatewayClient
	audit    AuditTrail
	notify   notifier
	cache    viewCache
}

func NewCoordinator(orders OrderStore, requests RequestStore, stock stockLedger, gateway gatewayClient, notify notifier, cache viewCache) *Coordinator {
	return &Coordinator{
		orders:   orders,
		requests: requests,
		stock:    stock,
		gateway:  gateway,
		notify:   notify,
		cache:    cache,
	}
}

// Approve applique une décision favorable : la demande passe à APPROVED, le
// stock est restitué, le paiement renversé best-effort et la commande
// transite vers son statut terminal.
func (c *Coordinator) Approve(ctx context.Context, in ApproveInput) (*ApproveResult, error) {
	if in.Reviewer.Role != "admin" {
		return nil, ErrOperatorOnly
	}

	request, err := c.requests.Get(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if !request.IsPending() {
		return nil, &InvalidStateError{Reason: "Cette demande a déjà été traitée"}
	}
	if request.Type == models.ReversalTypeReturn && in.ReturnAddress == "" {
		return nil, &ValidationError{Reason: "Adresse de retour requise pour approuver un retour"}
	}

	order, err := c.orders.Get(ctx, request.OrderID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	request.Status = models.ReversalStatusApproved
	request.AdminNote = in.AdminNote
	request.ReviewedBy = in.Reviewer.ID
	request.ReviewedAt = &now
	request.ReturnAddress = in.ReturnAddress
	request.ReturnInstructions = in.ReturnInstructions

	applied, err := c.requests.Transition(ctx, request, models.ReversalStatusPending)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Un autre opérateur a tranché pendant l'examen
		return nil, &InvalidStateError{Reason: "Cette demande a déjà été traitée"}
	}

	if err := c.stock.Restore(ctx, order); err != nil {
		// Restitution et transition de commande vont ensemble : on s'arrête
		// avant toute écriture. La demande est déjà APPROVED, l'opérateur
		// relance une fois le keyspace produits rétabli.
		log.Printf("❌ Restitution de stock échouée pour la commande %s: %v", order.OrderNumber, err)
		return nil, fmt.Errorf("restitution du stock échouée, commande inchangée: %v", err)
	}

	outcome := c.gateway.Reconcile(ctx, order, request.Type, in.ForwardedIP)

	newStatus := models.OrderStatusCancelled
	if request.Type == models.ReversalTypeReturn {
		newStatus = models.OrderStatusRefunded
		order.RefundedAt = &now
	} else {
		order.CancelledAt = &now
	}
	if order.IsCardPayment() {
		order.PaymentStatus = models.PaymentStatusRefunded
	}

	note := fmt.Sprintf("Demande %s approuvée par %s", request.ID, in.Reviewer.Email)
	if in.AdminNote != "" {
		note += " — " + in.AdminNote
	}
	if outcome.Failed() {
		note += " — Réconciliation passerelle en échec, suivi manuel requis: " + outcome.Message
	}

	entry := c.audit.NextEntry(order, newStatus, note)
	if err := c.orders.ApplyReversal(ctx, order, entry); err != nil {
		// La demande est déjà APPROVED : l'opérateur doit voir l'échec
		return nil, err
	}

	go c.notify.ReversalDecided(request, order)
	c.cache.InvalidateOrder(order.ID)

	log.Printf("✅ Demande %s approuvée, commande %s → %s", request.ID, order.OrderNumber, newStatus)
	return &ApproveResult{Request: request, Order: order, Reconciliation: outcome}, nil
}

// Reject refuse la demande : la commande reste intacte, seul le verrou de
// demande en attente est levé.
func (c *Coordinator) Reject(ctx context.Context, in RejectInput) (*models.ReversalRequest, error) {
	if in.Reviewer.Role != "admin" {
		return nil, ErrOperatorOnly
	}

	request, err := c.requests.Get(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if !request.IsPending() {
		return nil, &InvalidStateError{Reason: "Cette demande a déjà été traitée"}
	}

	order, err := c.orders.Get(ctx, request.OrderID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	request.Status = models.ReversalStatusRejected
	request.AdminNote = in.AdminNote
	request.ReviewedBy = in.Reviewer.ID
	request.ReviewedAt = &now

	applied, err := c.requests.Transition(ctx, request, models.ReversalStatusPending)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, &InvalidStateError{Reason: "Cette demande a déjà été traitée"}
	}

	c.requests.ReleasePending(ctx, request.OrderID)

	go c.notify.ReversalDecided(request, order)
	c.cache.InvalidateOrder(order.ID)

	log.Printf("🚫 Demande %s rejetée par %s", request.ID, in.Reviewer.Email)
	return request, nil
}
