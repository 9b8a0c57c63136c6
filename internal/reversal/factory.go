package reversal

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"
	"time"

	"github.com/gocql/gocql"

	"lumea_back_end/internal/models"
)

// Limites anti-abus des créations de demandes
const (
	UserWindowLimit = 3  // demandes par utilisateur sur 24h
	IPWindowLimit   = 10 // demandes par IP sur 24h
	abuseWindow     = 24 * time.Hour
)

// Statuts de commande éligibles par type de demande. Une annulation n'a de
// sens qu'avant expédition, un retour qu'après.
var eligibleOrderStatuses = map[string]map[string]bool{
	models.ReversalTypeCancellation: {
		models.OrderStatusPending:    true,
		models.OrderStatusProcessing: true,
	},
	models.ReversalTypeReturn: {
		models.OrderStatusShipped:   true,
		models.OrderStatusDelivered: true,
	},
}

type abuseGuard interface {
	IsBanned(ctx context.Context, ip string) (bool, time.Duration)
	Check(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration)
	Record(ctx context.Context, key string, window time.Duration)
}

type evidenceStore interface {
	UploadEvidence(ctx context.Context, requestID string, fh *multipart.FileHeader) (string, error)
}

// CreateInput porte tout ce que le handler a extrait de la requête HTTP.
type CreateInput struct {
	UserID      string
	OrderID     gocql.UUID
	Type        string
	Reason      string
	Description string
	Evidence    []*multipart.FileHeader
	ClientIP    string
}

// Factory valide et enregistre les demandes de reversal côté acheteur.
type Factory struct {
	orders   OrderStore
	requests RequestStore
	guard    abuseGuard
	blobs    evidenceStore
}

func NewFactory(orders OrderStore, requests RequestStore, guard abuseGuard, blobs evidenceStore) *Factory {
	return &Factory{orders: orders, requests: requests, guard: guard, blobs: blobs}
}

// Create déroule le pipeline de création : ban IP, propriété de la commande,
// unicité de la demande en attente, éligibilité, motif, fenêtres anti-abus,
// preuves — puis seulement le verrou, les uploads et l'insert. Les compteurs
// ne sont incrémentés qu'après une création réussie.
func (f *Factory) Create(ctx context.Context, in CreateInput) (*models.ReversalRequest, error) {
	if in.UserID == "" {
		return nil, ErrAuthRequired
	}

	if banned, remaining := f.guard.IsBanned(ctx, in.ClientIP); banned {
		return nil, &BannedError{Remaining: remaining}
	}

	order, err := f.orders.Get(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	// Ne pas révéler l'existence d'une commande d'un autre client
	if order.UserID != in.UserID {
		return nil, ErrOrderNotFound
	}

	hasPending, err := f.requests.HasPending(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if hasPending {
		return nil, &InvalidStateError{Reason: "Une demande est déjà en attente pour cette commande"}
	}

	if err := f.checkEligibility(order, in.Type); err != nil {
		return nil, err
	}
	if err := checkReason(in.Type, in.Reason); err != nil {
		return nil, err
	}

	userKey := "reversal_user:" + in.UserID
	if ok, reset := f.guard.Check(ctx, userKey, UserWindowLimit, abuseWindow); !ok {
		return nil, &RateLimitedError{Reset: reset}
	}
	ipKey := "reversal_ip:" + in.ClientIP
	if ok, reset := f.guard.Check(ctx, ipKey, IPWindowLimit, abuseWindow); !ok {
		return nil, &RateLimitedError{Reset: reset}
	}

	// Les preuves photo n'accompagnent que les retours
	if in.Type == models.ReversalTypeCancellation && len(in.Evidence) > 0 {
		return nil, &ValidationError{Reason: "Les preuves photo ne concernent que les demandes de retour"}
	}
	if err := ValidateEvidence(in.Evidence); err != nil {
		return nil, err
	}

	request := &models.ReversalRequest{
		ID:          gocql.TimeUUID(),
		OrderID:     in.OrderID,
		UserID:      in.UserID,
		Type:        in.Type,
		Reason:      in.Reason,
		Description: in.Description,
		RequestIP:   in.ClientIP,
		Status:      models.ReversalStatusPending,
		CreatedAt:   time.Now(),
	}

	claimed, err := f.requests.ClaimPending(ctx, in.OrderID, request.ID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// Une demande concurrente a gagné la course entre HasPending et ici
		return nil, &InvalidStateError{Reason: "Une demande est déjà en attente pour cette commande"}
	}

	for _, fh := range in.Evidence {
		url, err := f.blobs.UploadEvidence(ctx, request.ID.String(), fh)
		if err != nil {
			f.requests.ReleasePending(ctx, in.OrderID)
			log.Printf("❌ Erreur upload preuve pour la demande %s: %v", request.ID, err)
			return nil, fmt.Errorf("erreur enregistrement des preuves: %v", err)
		}
		request.EvidenceURLs = append(request.EvidenceURLs, url)
	}

	if err := f.requests.Insert(ctx, request); err != nil {
		f.requests.ReleasePending(ctx, in.OrderID)
		return nil, err
	}

	f.guard.Record(ctx, userKey, abuseWindow)
	f.guard.Record(ctx, ipKey, abuseWindow)

	log.Printf("📨 Demande de reversal %s créée (%s) pour la commande %s", request.ID, request.Type, order.OrderNumber)
	return request, nil
}

func (f *Factory) checkEligibility(order *models.Order, requestType string) error {
	allowed, ok := eligibleOrderStatuses[requestType]
	if !ok {
		return &ValidationError{Reason: fmt.Sprintf("Type de demande inconnu: %s", requestType)}
	}
	if !allowed[order.Status] {
		return &InvalidStateError{Reason: fmt.Sprintf("La commande au statut %s n'est pas éligible à ce type de demande", order.Status)}
	}
	return nil
}

func checkReason(requestType, reason string) error {
	switch requestType {
	case models.ReversalTypeReturn:
		if !models.ValidReturnReason(reason) {
			return &ValidationError{Reason: "Motif de retour invalide"}
		}
	case models.ReversalTypeCancellation:
		// Motif optionnel à l'annulation, mais s'il est fourni il doit
		// appartenir à l'énumération
		if reason != "" && !models.ValidCancellationReason(reason) {
			return &ValidationError{Reason: "Motif d'annulation invalide"}
		}
	}
	return nil
}
