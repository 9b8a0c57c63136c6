package reversal

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gocql/gocql"

	"lumea_back_end/internal/database"
	"lumea_back_end/internal/models"
)

// StockRestitution est une ligne du plan de restitution : la variante si
// l'article en cible une, sinon le stock agrégé du produit parent.
type StockRestitution struct {
	ProductID gocql.UUID
	VariantID *gocql.UUID
	Quantity  int
}

// RestitutionPlan calcule les incréments de stock d'une commande. Action
// purement compensatoire : on n'enlève jamais de stock ici.
func RestitutionPlan(o *models.Order) []StockRestitution {
	plan := make([]StockRestitution, 0, len(o.Items))
	for _, item := range o.Items {
		plan = append(plan, StockRestitution{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}
	return plan
}

// ScyllaStockLedger applique le plan de restitution dans le keyspace
// products. Appelé exactement une fois par approbation — le coordinateur a
// déjà réclamé la demande via compare-and-swap avant d'arriver ici.
type ScyllaStockLedger struct{}

func (ScyllaStockLedger) Restore(ctx context.Context, o *models.Order) error {
	session, err := database.GetProductsSession()
	if err != nil {
		return fmt.Errorf("erreur connexion base produits: %v", err)
	}

	now := time.Now()
	for _, line := range RestitutionPlan(o) {
		var prevStock int

		if line.VariantID != nil {
			if err := session.Query(
				`SELECT stock FROM product_variants WHERE product_id = ? AND variant_id = ?`,
				line.ProductID, *line.VariantID,
			).WithContext(ctx).Scan(&prevStock); err != nil {
				return fmt.Errorf("variante %s introuvable: %v", *line.VariantID, err)
			}
			if err := session.Query(
				`UPDATE product_variants SET stock = ?, updated_at = ? WHERE product_id = ? AND variant_id = ?`,
				prevStock+line.Quantity, now, line.ProductID, *line.VariantID,
			).WithContext(ctx).Exec(); err != nil {
				return fmt.Errorf("erreur restitution stock variante %s: %v", *line.VariantID, err)
			}
		} else {
			if err := session.Query(
				`SELECT stock FROM products WHERE product_id = ?`,
				line.ProductID,
			).WithContext(ctx).Scan(&prevStock); err != nil {
				return fmt.Errorf("produit %s introuvable: %v", line.ProductID, err)
			}
			if err := session.Query(
				`UPDATE products SET stock = ?, updated_at = ? WHERE product_id = ?`,
				prevStock+line.Quantity, now, line.ProductID,
			).WithContext(ctx).Exec(); err != nil {
				return fmt.Errorf("erreur restitution stock produit %s: %v", line.ProductID, err)
			}
		}

		recordStockMovement(ctx, session, o, line, prevStock, now)
	}

	log.Printf("📦 Stock restitué pour la commande %s (%d ligne(s))", o.OrderNumber, len(o.Items))
	return nil
}

// recordStockMovement journalise la restitution, best-effort.
func recordStockMovement(ctx context.Context, session *gocql.Session, o *models.Order, line StockRestitution, prevStock int, now time.Time) {
	orderID := o.ID
	movement := models.StockMovement{
		ID:        gocql.TimeUUID(),
		ProductID: line.ProductID,
		VariantID: line.VariantID,
		Type:      "restitution",
		Quantity:  line.Quantity,
		PrevStock: prevStock,
		NewStock:  prevStock + line.Quantity,
		Reason:    fmt.Sprintf("Reversal commande %s", o.OrderNumber),
		OrderID:   &orderID,
		CreatedAt: now,
	}

	if err := session.Query(
		`INSERT INTO stock_movements (id, product_id, variant_id, type, quantity, prev_stock, new_stock, reason, order_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		movement.ID, movement.ProductID, movement.VariantID, movement.Type, movement.Quantity,
		movement.PrevStock, movement.NewStock, movement.Reason, movement.OrderID, movement.CreatedAt,
	).WithContext(ctx).Exec(); err != nil {
		log.Printf("⚠️ Erreur enregistrement mouvement stock: %v", err)
	}
}
