package models

import (
	"time"

	"github.com/gocql/gocql"
)

// StockMovement journalise chaque variation de stock. Les restitutions de
// reversal y laissent une trace exploitable par les opérateurs en cas
// d'incident entre la restitution et l'écriture de la commande.
type StockMovement struct {
	ID        gocql.UUID  `json:"id"`
	ProductID gocql.UUID  `json:"product_id"`
	VariantID *gocql.UUID `json:"variant_id,omitempty"`
	Type      string      `json:"type"` // "sale", "restock", "restitution", "adjustment"
	Quantity  int         `json:"quantity"`
	PrevStock int         `json:"prev_stock"`
	NewStock  int         `json:"new_stock"`
	Reason    string      `json:"reason"`
	OrderID   *gocql.UUID `json:"order_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
