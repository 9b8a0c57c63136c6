package models

import (
	"time"

	"github.com/gocql/gocql"
)

// Types de demande de reversal
const (
	ReversalTypeCancellation = "CANCELLATION"
	ReversalTypeReturn       = "RETURN"
)

// Statuts d'une demande : PENDING_ADMIN_APPROVAL est l'état initial, les deux
// autres sont terminaux (aucune transition sortante).
const (
	ReversalStatusPending  = "PENDING_ADMIN_APPROVAL"
	ReversalStatusApproved = "APPROVED"
	ReversalStatusRejected = "REJECTED"
)

// Motifs de retour
const (
	ReturnReasonDamaged       = "DAMAGED"
	ReturnReasonWrongProduct  = "WRONG_PRODUCT"
	ReturnReasonSpecsMismatch = "SPECS_MISMATCH"
)

// Motifs d'annulation
const (
	CancelReasonChangedMind      = "CHANGED_MIND"
	CancelReasonOrderedByMistake = "ORDERED_BY_MISTAKE"
	CancelReasonDeliveryTooSlow  = "DELIVERY_TOO_SLOW"
	CancelReasonOther            = "OTHER"
)

// ReversalRequest regroupe annulations et retours : champs communs + champs
// spécifiques au retour (adresse et consignes de renvoi, preuves photo).
type ReversalRequest struct {
	ID                 gocql.UUID `json:"id" db:"request_id"`
	OrderID            gocql.UUID `json:"order_id" db:"order_id"`
	UserID             string     `json:"user_id" db:"user_id"`
	Type               string     `json:"type" db:"type"`
	Reason             string     `json:"reason,omitempty" db:"reason"`
	Description        string     `json:"description,omitempty" db:"description"`
	EvidenceURLs       []string   `json:"evidence_urls,omitempty" db:"evidence_urls"`
	RequestIP          string     `json:"-" db:"request_ip"`
	Status             string     `json:"status" db:"status"`
	AdminNote          string     `json:"admin_note,omitempty" db:"admin_note"`
	ReviewedBy         string     `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt         *time.Time `json:"reviewed_at,omitempty" db:"reviewed_at"`
	ReturnAddress      string     `json:"return_address,omitempty" db:"return_address"`
	ReturnInstructions string     `json:"return_instructions,omitempty" db:"return_instructions"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
}

func (r *ReversalRequest) IsPending() bool {
	return r.Status == ReversalStatusPending
}

var reasonLabels = map[string]string{
	ReturnReasonDamaged:          "Produit endommagé",
	ReturnReasonWrongProduct:     "Mauvais produit reçu",
	ReturnReasonSpecsMismatch:    "Produit non conforme à la description",
	CancelReasonChangedMind:      "Changement d'avis",
	CancelReasonOrderedByMistake: "Commande passée par erreur",
	CancelReasonDeliveryTooSlow:  "Délai de livraison trop long",
	CancelReasonOther:            "Autre motif",
}

// ReasonLabel retourne le libellé français d'un motif (le code brut si inconnu).
func ReasonLabel(reason string) string {
	if label, ok := reasonLabels[reason]; ok {
		return label
	}
	return reason
}

// ValidReturnReason vérifie qu'un motif de retour fait partie de l'énumération.
func ValidReturnReason(reason string) bool {
	switch reason {
	case ReturnReasonDamaged, ReturnReasonWrongProduct, ReturnReasonSpecsMismatch:
		return true
	}
	return false
}

// ValidCancellationReason vérifie un motif d'annulation (optionnel côté client).
func ValidCancellationReason(reason string) bool {
	switch reason {
	case CancelReasonChangedMind, CancelReasonOrderedByMistake, CancelReasonDeliveryTooSlow, CancelReasonOther:
		return true
	}
	return false
}
