package reversal

import (
	"time"

	"github.com/gocql/gocql"

	"lumea_back_end/internal/models"
)

// AuditTrail construit les entrées d'historique de statut de commande.
// Chaque décision de reversal ajoute une ligne, jamais de réécriture.
type AuditTrail struct{}

// NextEntry prépare l'entrée suivante : seq strictement croissant, ancien
// statut conservé pour la traçabilité.
func (AuditTrail) NextEntry(o *models.Order, newStatus, note string) models.StatusHistoryEntry {
	return models.StatusHistoryEntry{
		Seq:            len(o.StatusHistory) + 1,
		Status:         newStatus,
		PreviousStatus: o.Status,
		Note:           note,
		CreatedAt:      time.Now(),
	}
}

// AddToBatch insère l'entrée dans le batch logged qui porte aussi la mise à
// jour de la commande : les deux écritures partent ensemble.
func (AuditTrail) AddToBatch(b *gocql.Batch, orderID gocql.UUID, entry models.StatusHistoryEntry) {
	b.Query(
		`INSERT INTO order_status_history (order_id, seq, status, previous_status, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		orderID, entry.Seq, entry.Status, entry.PreviousStatus, entry.Note, entry.CreatedAt,
	)
}
