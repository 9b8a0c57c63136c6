package reversals

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"lumea_back_end/internal/cache"
	"lumea_back_end/internal/models"
	"lumea_back_end/internal/reversal"
	"lumea_back_end/internal/search"
)

const requestsViewTTL = 5 * time.Minute

// Handler regroupe les dépendances des endpoints de reversal.
type Handler struct {
	factory     *reversal.Factory
	coordinator *reversal.Coordinator
	requests    reversal.RequestStore
	orders      reversal.OrderStore
}

// parseUUIDParam valide et convertit un identifiant fourni par le client.
func parseUUIDParam(raw string) (gocql.UUID, bool) {
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return gocql.UUID{}, false
	}
	return gocql.UUID(parsed), true
}

// Create gère POST /api/reversal-requests (multipart : order_id, type,
// reason, description, images[]).
func (h *Handler) Create(c *gin.Context) {
	userID := c.GetString("user_id")

	orderID, ok := parseUUIDParam(c.PostForm("order_id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_id invalide"})
		return
	}

	requestType := c.PostForm("type")
	if requestType != models.ReversalTypeCancellation && requestType != models.ReversalTypeReturn {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type doit être CANCELLATION ou RETURN"})
		return
	}

	in := reversal.CreateInput{
		UserID:      userID,
		OrderID:     orderID,
		Type:        requestType,
		Reason:      c.PostForm("reason"),
		Description: c.PostForm("description"),
		ClientIP:    c.ClientIP(),
	}

	if form, err := c.MultipartForm(); err == nil && form != nil {
		in.Evidence = form.File["images"]
	}

	request, err := h.factory.Create(c.Request.Context(), in)
	if err != nil {
		respondReversalError(c, err)
		return
	}

	go search.IndexReversalRequest(*request)
	cache.Invalidator{}.InvalidateOrder(orderID)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Demande enregistrée, elle sera examinée par notre équipe",
		"request": requestView(*request),
	})
}

// ListForOrder gère GET /api/reversal-requests?order=<id> : les demandes de
// la commande, avec un résumé pour le front. Vue cachée dans Redis.
func (h *Handler) ListForOrder(c *gin.Context) {
	userID := c.GetString("user_id")

	orderID, ok := parseUUIDParam(c.Query("order"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paramètre order invalide"})
		return
	}

	order, err := h.orders.Get(c.Request.Context(), orderID)
	if err != nil {
		respondReversalError(c, err)
		return
	}
	if order.UserID != userID && c.GetString("role") != "admin" {
		respondReversalError(c, reversal.ErrOrderNotFound)
		return
	}

	cacheKey := cache.RequestsViewKey(orderID)
	if cached, err := cache.GetCache(cacheKey); err == nil && cached != "" {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(cached))
		return
	}

	requests, err := h.requests.ListByOrder(c.Request.Context(), orderID)
	if err != nil {
		respondReversalError(c, err)
		return
	}

	hasPending := false
	views := make([]gin.H, 0, len(requests))
	for _, r := range requests {
		if r.IsPending() {
			hasPending = true
		}
		views = append(views, requestView(r))
	}

	payload := gin.H{
		"hasRequest":        len(requests) > 0,
		"hasPendingRequest": hasPending,
		"requests":          views,
	}

	if data, err := json.Marshal(payload); err == nil {
		_ = cache.SetCache(cacheKey, string(data), requestsViewTTL)
	}
	c.JSON(http.StatusOK, payload)
}

// Mine gère GET /api/reversal-requests/mine : l'historique de l'utilisateur.
func (h *Handler) Mine(c *gin.Context) {
	userID := c.GetString("user_id")

	requests, err := h.requests.ListByUser(c.Request.Context(), userID)
	if err != nil {
		respondReversalError(c, err)
		return
	}

	views := make([]gin.H, 0, len(requests))
	for _, r := range requests {
		views = append(views, requestView(r))
	}
	c.JSON(http.StatusOK, gin.H{"requests": views})
}

// requestView ajoute le libellé français du motif à la sérialisation.
func requestView(r models.ReversalRequest) gin.H {
	return gin.H{
		"id":                  r.ID,
		"order_id":            r.OrderID,
		"type":                r.Type,
		"reason":              r.Reason,
		"reason_label":        models.ReasonLabel(r.Reason),
		"description":         r.Description,
		"evidence_urls":       r.EvidenceURLs,
		"status":              r.Status,
		"admin_note":          r.AdminNote,
		"return_address":      r.ReturnAddress,
		"return_instructions": r.ReturnInstructions,
		"reviewed_at":         r.ReviewedAt,
		"created_at":          r.CreatedAt,
	}
}
