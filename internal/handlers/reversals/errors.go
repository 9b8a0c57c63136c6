package reversals

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lumea_back_end/internal/reversal"
)

// respondReversalError traduit les erreurs du sous-système de reversal en
// réponses HTTP.
func respondReversalError(c *gin.Context, err error) {
	var invalidState *reversal.InvalidStateError
	var validation *reversal.ValidationError
	var banned *reversal.BannedError
	var rateLimited *reversal.RateLimitedError

	switch {
	case errors.Is(err, reversal.ErrAuthRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentification requise"})
	case errors.Is(err, reversal.ErrOperatorOnly):
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès réservé aux administrateurs"})
	case errors.Is(err, reversal.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
	case errors.Is(err, reversal.ErrRequestNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Demande introuvable"})
	case errors.As(err, &banned):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       banned.Error(),
			"retry_after": int(banned.Remaining.Seconds()),
		})
	case errors.As(err, &rateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       rateLimited.Error(),
			"retry_after": int(rateLimited.Reset.Seconds()),
		})
	case errors.As(err, &invalidState):
		c.JSON(http.StatusBadRequest, gin.H{"error": invalidState.Reason})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Reason})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne du serveur"})
	}
}
