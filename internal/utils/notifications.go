package utils

import (
	"fmt"
	"log"
	"os"

	"github.com/wneessen/go-mail"

	"lumea_back_end/internal/database"
	"lumea_back_end/internal/models"
)

// Notifier envoie les emails de décision de reversal. Tout est best-effort :
// une décision n'échoue jamais parce que le SMTP est indisponible.
type Notifier struct{}

// ReversalDecided prévient le client du sort de sa demande. Appelé en
// goroutine par le coordinateur, d'où l'absence de retour d'erreur.
func (Notifier) ReversalDecided(r *models.ReversalRequest, o *models.Order) {
	email, err := lookupUserEmail(r.UserID)
	if err != nil {
		log.Printf("⚠️ Email de décision non envoyé (utilisateur %s): %v", r.UserID, err)
		return
	}

	subject := decisionEmailSubject(r)
	html := generateDecisionEmailHTML(r, o)

	if err := SendReversalEmail(email, subject, html); err != nil {
		log.Printf("❌ Erreur envoi email décision: %v", err)
		return
	}
	log.Printf("📧 Email de décision envoyé: %s → %s", r.Status, email)
}

func lookupUserEmail(userID string) (string, error) {
	session, err := database.GetUsersSession()
	if err != nil {
		return "", err
	}

	var email string
	if err := session.Query(
		`SELECT email FROM users WHERE user_id = ?`, userID,
	).Scan(&email); err != nil {
		return "", fmt.Errorf("utilisateur introuvable: %v", err)
	}
	return email, nil
}

// SendReversalEmail envoie un email HTML via le relais SMTP configuré.
func SendReversalEmail(to, subject, htmlBody string) error {
	msg := mail.NewMsg()

	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = "noreply@lumea.fr"
	}
	if err := msg.From(from); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	client, err := mail.NewClient(os.Getenv("SMTP_HOST"),
		mail.WithPort(587),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(os.Getenv("SMTP_USERNAME")),
		mail.WithPassword(os.Getenv("SMTP_PASSWORD")),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}

	log.Println("📤 Envoi de l'e-mail à", to)
	return client.DialAndSend(msg)
}

func decisionEmailSubject(r *models.ReversalRequest) string {
	switch {
	case r.Status == models.ReversalStatusApproved && r.Type == models.ReversalTypeReturn:
		return "✅ Votre demande de retour est acceptée - Lumea"
	case r.Status == models.ReversalStatusApproved:
		return "✅ Votre annulation est confirmée - Lumea"
	case r.Status == models.ReversalStatusRejected:
		return "❌ Votre demande n'a pas pu être acceptée - Lumea"
	default:
		return "📋 Mise à jour de votre demande - Lumea"
	}
}

func generateDecisionEmailHTML(r *models.ReversalRequest, o *models.Order) string {
	body := decisionEmailBody(r)

	returnBlock := ""
	if r.Status == models.ReversalStatusApproved && r.Type == models.ReversalTypeReturn {
		returnBlock = fmt.Sprintf(`
		<h3>Renvoi de votre colis</h3>
		<p><strong>Adresse de retour :</strong><br>%s</p>
		<p>%s</p>`, r.ReturnAddress, r.ReturnInstructions)
	}

	adminBlock := ""
	if r.AdminNote != "" {
		adminBlock = fmt.Sprintf(`<p style="color: #555;"><em>Note de notre équipe : %s</em></p>`, r.AdminNote)
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>Mise à jour de votre demande</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Commande %s</h2>
		<p>Bonjour,</p>
		%s
		%s
		%s
		<p style="margin-top: 30px; color: #555;">
			Cordialement,<br>
			<strong>L'équipe Lumea</strong>
		</p>
	</div>
</body>
</html>`, o.OrderNumber, body, returnBlock, adminBlock)
}

func decisionEmailBody(r *models.ReversalRequest) string {
	switch {
	case r.Status == models.ReversalStatusApproved && r.Type == models.ReversalTypeReturn:
		return `<p>Votre demande de retour a été acceptée. Le remboursement sera effectué après réception du colis.</p>`
	case r.Status == models.ReversalStatusApproved:
		return `<p>Votre demande d'annulation a été acceptée. Si votre commande avait été payée par carte, le remboursement apparaîtra sous quelques jours ouvrés.</p>`
	default:
		return `<p>Après examen, votre demande n'a pas pu être acceptée. Votre commande suit son cours normalement.</p>`
	}
}
