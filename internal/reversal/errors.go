package reversal

import (
	"errors"
	"fmt"
	"time"
)

// Erreurs sentinelles du sous-système de reversal. Les handlers les
// traduisent en codes HTTP + messages utilisateur.
var (
	ErrAuthRequired    = errors.New("authentification requise")
	ErrOperatorOnly    = errors.New("action réservée aux opérateurs")
	ErrOrderNotFound   = errors.New("commande introuvable")
	ErrRequestNotFound = errors.New("demande de reversal introuvable")
)

// InvalidStateError : demande déjà traitée, demande en attente déjà
// existante, ou statut de commande non éligible.
type InvalidStateError struct {
	Reason string
}

func (e *InvalidStateError) Error() string { return e.Reason }

// ValidationError : motif inconnu, adresse de retour manquante, preuves
// rejetées.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// BannedError porte la durée restante du ban pour l'afficher au client.
type BannedError struct {
	Remaining time.Duration
}

func (e *BannedError) Error() string {
	return fmt.Sprintf("Adresse IP temporairement bannie. Réessayez dans %d minutes", remainingMinutes(e.Remaining))
}

// RateLimitedError porte le délai avant réinitialisation de la fenêtre.
type RateLimitedError struct {
	Reset time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("Trop de demandes. Réessayez dans %d minutes", remainingMinutes(e.Reset))
}

func remainingMinutes(d time.Duration) int {
	m := int(d.Minutes())
	if d > time.Duration(m)*time.Minute {
		m++
	}
	if m < 1 {
		m = 1
	}
	return m
}
