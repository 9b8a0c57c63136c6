package reversals

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"lumea_back_end/internal/reversal"
)

func TestRespondReversalErrorStatusCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"authentification requise", reversal.ErrAuthRequired, http.StatusUnauthorized},
		{"réservé aux opérateurs", reversal.ErrOperatorOnly, http.StatusForbidden},
		{"commande introuvable", reversal.ErrOrderNotFound, http.StatusNotFound},
		{"demande introuvable", reversal.ErrRequestNotFound, http.StatusNotFound},
		{"IP bannie", &reversal.BannedError{Remaining: 30 * time.Minute}, http.StatusTooManyRequests},
		{"fenêtre épuisée", &reversal.RateLimitedError{Reset: time.Hour}, http.StatusTooManyRequests},
		{"état invalide", &reversal.InvalidStateError{Reason: "Cette demande a déjà été traitée"}, http.StatusBadRequest},
		{"validation", &reversal.ValidationError{Reason: "Motif de retour invalide"}, http.StatusBadRequest},
		{"erreur inattendue", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondReversalError(c, tt.err)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRespondReversalErrorCarriesRetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondReversalError(c, &reversal.RateLimitedError{Reset: 90 * time.Second})

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"retry_after":90`)
}
