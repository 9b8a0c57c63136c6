package models

import (
	"time"

	"github.com/gocql/gocql"
)

// Statuts de commande
const (
	OrderStatusPending    = "PENDING"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusShipped    = "SHIPPED"
	OrderStatusDelivered  = "DELIVERED"
	OrderStatusCancelled  = "CANCELLED"
	OrderStatusRefunded   = "REFUNDED"
)

// Statuts de paiement
const (
	PaymentStatusPending  = "PENDING"
	PaymentStatusPaid     = "PAID"
	PaymentStatusRefunded = "REFUNDED"
)

// Méthodes de paiement
const (
	PaymentMethodCard         = "CARD"
	PaymentMethodBankTransfer = "BANK_TRANSFER"
	PaymentMethodCashOnSite   = "CASH_ON_SITE"
)

type Order struct {
	ID             gocql.UUID           `json:"id" db:"order_id"`
	OrderNumber    string               `json:"order_number" db:"order_number"`
	UserID         string               `json:"user_id" db:"user_id"`
	Status         string               `json:"status" db:"status"`
	PaymentStatus  string               `json:"payment_status" db:"payment_status"`
	PaymentMethod  string               `json:"payment_method" db:"payment_method"`
	TotalPrice     float64              `json:"total_price" db:"total_price"`
	PaymentID      string               `json:"payment_id,omitempty" db:"payment_id"`
	ConversationID string               `json:"conversation_id,omitempty" db:"conversation_id"`
	Items          []OrderLineItem      `json:"items,omitempty"`
	Transactions   []PaymentTransaction `json:"transactions,omitempty"`
	StatusHistory  []StatusHistoryEntry `json:"status_history,omitempty"`
	CancelledAt    *time.Time           `json:"cancelled_at,omitempty" db:"cancelled_at"`
	RefundedAt     *time.Time           `json:"refunded_at,omitempty" db:"refunded_at"`
	CreatedAt      time.Time            `json:"created_at" db:"created_at"`
}

// OrderLineItem identifie l'unité de stock à restituer lors d'un reversal.
// VariantID est nil quand l'article ne cible pas une variante précise.
type OrderLineItem struct {
	ItemID      gocql.UUID  `json:"item_id" db:"item_id"`
	ProductID   gocql.UUID  `json:"product_id" db:"product_id"`
	VariantID   *gocql.UUID `json:"variant_id,omitempty" db:"variant_id"`
	VariantInfo string      `json:"variant_info,omitempty" db:"variant_info"`
	Quantity    int         `json:"quantity" db:"quantity"`
}

// PaymentTransaction garde le montant brut tel qu'enregistré côté passerelle
// (unité parfois incohérente, voir la normalisation dans internal/reversal).
type PaymentTransaction struct {
	TransactionID string `json:"transaction_id" db:"transaction_id"`
	RawPrice      string `json:"raw_price" db:"raw_price"`
}

// StatusHistoryEntry est une ligne d'historique de statut. Les entrées
// existantes ne sont jamais réécrites : seq est strictement croissant.
type StatusHistoryEntry struct {
	Seq            int       `json:"seq" db:"seq"`
	Status         string    `json:"status" db:"status"`
	PreviousStatus string    `json:"previous_status" db:"previous_status"`
	Note           string    `json:"note,omitempty" db:"note"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// IsCardPayment indique si la commande a été réglée par carte (seule méthode
// concernée par la réconciliation passerelle).
func (o *Order) IsCardPayment() bool {
	return o.PaymentMethod == PaymentMethodCard
}
