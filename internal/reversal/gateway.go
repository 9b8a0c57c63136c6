package reversal

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
	"github.com/stripe/stripe-go/v83/refund"

	"lumea_back_end/internal/models"
)

// Statuts d'un résultat de réconciliation
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Outcome est le résultat best-effort de la réconciliation passerelle.
// C'est une valeur, jamais une erreur : un échec est rapporté à l'opérateur
// mais ne bloque pas la transition de la commande.
type Outcome struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (o Outcome) Failed() bool { return o.Status == OutcomeFailure }

// paymentAPI isole les appels réseau Stripe pour les tests.
type paymentAPI interface {
	CancelPayment(ctx context.Context, paymentID, clientIP string) error
	RefundTransaction(ctx context.Context, transactionID string, amount float64, clientIP string) error
}

// GatewayClient pilote l'annulation/remboursement côté processeur de
// paiement. Les appels sont bornés par un timeout et ne s'exécutent jamais
// dans le chemin d'écriture base de données.
type GatewayClient struct {
	api        paymentAPI
	enabled    bool
	fallbackIP string
	timeout    time.Duration
}

func NewGatewayClient() *GatewayClient {
	fallback := os.Getenv("GATEWAY_FALLBACK_IP")
	if fallback == "" {
		fallback = "85.34.78.112"
	}
	return &GatewayClient{
		api:        stripeAPI{},
		enabled:    os.Getenv("STRIPE_GATEWAY_ENABLED") == "true",
		fallbackIP: fallback,
		timeout:    10 * time.Second,
	}
}

// Stratégie de réconciliation par type de demande : une annulation tente un
// void avant capture puis retombe sur les remboursements, un retour (colis
// déjà expédié, paiement capturé) rembourse directement.
var reconcileStrategies = map[string]func(*GatewayClient, context.Context, *models.Order, string) Outcome{
	models.ReversalTypeCancellation: (*GatewayClient).cancelThenRefund,
	models.ReversalTypeReturn:       (*GatewayClient).refundEachTransaction,
}

// Reconcile tente de renverser le paiement d'une commande. No-op si la
// commande n'est pas payée par carte, si l'intégration est désactivée ou si
// aucun identifiant passerelle n'est enregistré.
func (g *GatewayClient) Reconcile(ctx context.Context, o *models.Order, requestType, forwardedIP string) Outcome {
	if !o.IsCardPayment() || !g.enabled || o.PaymentID == "" {
		return Outcome{Status: OutcomeSuccess, Message: "Aucune action passerelle requise"}
	}

	strategy, ok := reconcileStrategies[requestType]
	if !ok {
		return Outcome{Status: OutcomeFailure, Message: fmt.Sprintf("Type de demande inconnu: %s", requestType)}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	clientIP := NormalizeClientIP(forwardedIP, g.fallbackIP)
	return strategy(g, ctx, o, clientIP)
}

func (g *GatewayClient) cancelThenRefund(ctx context.Context, o *models.Order, clientIP string) Outcome {
	err := g.api.CancelPayment(ctx, o.PaymentID, clientIP)
	if err == nil {
		log.Printf("💳 Paiement %s annulé avant capture", o.PaymentID)
		return Outcome{Status: OutcomeSuccess, Message: "Paiement annulé avant capture"}
	}

	// Déjà capturé (ou refusé) : on retombe sur un remboursement par
	// transaction, l'échec du void doit rester visible pour l'opérateur.
	log.Printf("⚠️ Annulation paiement %s refusée: %v", o.PaymentID, err)
	out := g.refundEachTransaction(ctx, o, clientIP)
	out.Message = fmt.Sprintf("Annulation refusée (%v) — %s", err, out.Message)
	return out
}

func (g *GatewayClient) refundEachTransaction(ctx context.Context, o *models.Order, clientIP string) Outcome {
	var failures []string
	attempted := 0

	for _, tx := range o.Transactions {
		amount, ok := NormalizeAmount(tx.RawPrice, o.TotalPrice)
		if !ok {
			log.Printf("⚠️ Montant illisible pour la transaction %s (%q), remboursement ignoré", tx.TransactionID, tx.RawPrice)
			continue
		}

		attempted++
		if err := g.api.RefundTransaction(ctx, tx.TransactionID, amount, clientIP); err != nil {
			// On continue : l'échec d'une transaction ne doit pas
			// empêcher les tentatives sur les autres.
			log.Printf("❌ Remboursement transaction %s échoué: %v", tx.TransactionID, err)
			failures = append(failures, fmt.Sprintf("transaction %s: %v", tx.TransactionID, err))
		}
	}

	if len(failures) > 0 {
		return Outcome{Status: OutcomeFailure, Message: "Remboursements en échec: " + strings.Join(failures, "; ")}
	}
	if attempted == 0 {
		return Outcome{Status: OutcomeFailure, Message: "Aucune transaction remboursable enregistrée"}
	}
	return Outcome{Status: OutcomeSuccess, Message: fmt.Sprintf("Remboursement envoyé pour %d transaction(s)", attempted)}
}

// NormalizeAmount lit un montant enregistré (point ou virgule décimale) et
// corrige l'incohérence d'unité amont : un montant à plus de 10× le total de
// la commande a presque toujours été stocké en centimes, on le divise par
// 100. Arrondi à 2 décimales. ok=false → transaction à ignorer.
func NormalizeAmount(raw string, orderTotal float64) (float64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}

	if orderTotal > 0 && v > orderTotal*10 {
		v /= 100
	}

	return math.Round(v*100) / 100, true
}

// NormalizeClientIP extrait la première adresse d'une liste X-Forwarded-For
// et la ramène en IPv4 : préfixe IPv6-mappé retiré, adresse IPv6 pure ou
// vide remplacée par l'IP de repli (la passerelle exige de l'IPv4).
func NormalizeClientIP(forwarded, fallback string) string {
	ip := forwarded
	if idx := strings.Index(ip, ","); idx >= 0 {
		ip = ip[:idx]
	}
	ip = strings.TrimSpace(ip)
	ip = strings.TrimPrefix(ip, "::ffff:")

	if ip == "" || strings.Contains(ip, ":") {
		return fallback
	}
	return ip
}

// --- Implémentation Stripe ---

type stripeAPI struct{}

func (stripeAPI) CancelPayment(ctx context.Context, paymentID, clientIP string) error {
	// L'API d'annulation Stripe ne transporte pas l'IP client
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String("requested_by_customer"),
	}
	params.Context = ctx

	_, err := paymentintent.Cancel(paymentID, params)
	return err
}

func (stripeAPI) RefundTransaction(ctx context.Context, transactionID string, amount float64, clientIP string) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(transactionID),
		Amount:        stripe.Int64(int64(math.Round(amount * 100))),
		Reason:        stripe.String("requested_by_customer"),
	}
	params.Context = ctx
	params.AddMetadata("client_ip", clientIP)

	_, err := refund.New(params)
	return err
}
