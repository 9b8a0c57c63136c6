package reversals

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lumea_back_end/internal/database"
	"lumea_back_end/internal/models"
	"lumea_back_end/internal/reversal"
	"lumea_back_end/internal/search"
)

// AdminDetail gère GET /api/admin/reversal-requests/:id : la demande, la
// commande, le demandeur et l'historique de statut sur un seul écran.
func (h *Handler) AdminDetail(c *gin.Context) {
	requestID, ok := parseUUIDParam(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id invalide"})
		return
	}

	request, err := h.requests.Get(c.Request.Context(), requestID)
	if err != nil {
		respondReversalError(c, err)
		return
	}

	order, err := h.orders.Get(c.Request.Context(), request.OrderID)
	if err != nil {
		respondReversalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"request":        request,
		"reason_label":   models.ReasonLabel(request.Reason),
		"order":          order,
		"status_history": order.StatusHistory,
		"requester":      lookupRequester(request.UserID),
	})
}

// AdminDecide gère PATCH /api/admin/reversal-requests/:id
// Corps JSON : {"action": "approve"|"reject", "admin_note": "...",
// "return_address": "...", "return_instructions": "..."}
func (h *Handler) AdminDecide(c *gin.Context) {
	requestID, ok := parseUUIDParam(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id invalide"})
		return
	}

	var body struct {
		Action             string `json:"action" binding:"required"`
		AdminNote          string `json:"admin_note"`
		ReturnAddress      string `json:"return_address"`
		ReturnInstructions string `json:"return_instructions"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Corps de requête invalide"})
		return
	}

	reviewer := reversal.Reviewer{
		ID:    c.GetString("user_id"),
		Email: c.GetString("email"),
		Role:  c.GetString("role"),
	}

	switch body.Action {
	case "approve":
		result, err := h.coordinator.Approve(c.Request.Context(), reversal.ApproveInput{
			RequestID:          requestID,
			Reviewer:           reviewer,
			AdminNote:          body.AdminNote,
			ReturnAddress:      body.ReturnAddress,
			ReturnInstructions: body.ReturnInstructions,
			ForwardedIP:        c.GetHeader("X-Forwarded-For"),
		})
		if err != nil {
			respondReversalError(c, err)
			return
		}
		go search.IndexReversalRequest(*result.Request)
		c.JSON(http.StatusOK, gin.H{
			"success":        true,
			"message":        "Demande approuvée",
			"request":        result.Request,
			"order":          result.Order,
			"reconciliation": result.Reconciliation,
		})

	case "reject":
		request, err := h.coordinator.Reject(c.Request.Context(), reversal.RejectInput{
			RequestID: requestID,
			Reviewer:  reviewer,
			AdminNote: body.AdminNote,
		})
		if err != nil {
			respondReversalError(c, err)
			return
		}
		go search.IndexReversalRequest(*request)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Demande rejetée", "request": request})

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "action doit être approve ou reject"})
	}
}

// AdminList gère GET /api/admin/reversal-requests?status=&q=&limit=
// Sans q : lecture directe ScyllaDB. Avec q : recherche plein texte Elastic
// puis hydratation des demandes trouvées.
func (h *Handler) AdminList(c *gin.Context) {
	status := c.Query("status")
	query := c.Query("q")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	if query == "" {
		requests, err := h.requests.List(c.Request.Context(), status, limit)
		if err != nil {
			respondReversalError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"requests": requests, "count": len(requests)})
		return
	}

	ids, err := search.SearchReversalRequestIDs(query, status)
	if err != nil {
		log.Printf("⚠️ Recherche Elastic indisponible: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Recherche temporairement indisponible"})
		return
	}

	requests := make([]models.ReversalRequest, 0, len(ids))
	for _, id := range ids {
		requestID, ok := parseUUIDParam(id)
		if !ok {
			continue
		}
		request, err := h.requests.Get(c.Request.Context(), requestID)
		if err != nil {
			// Index en avance sur la base, on ignore le document
			continue
		}
		requests = append(requests, *request)
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests, "count": len(requests)})
}

// lookupRequester charge le profil du demandeur, nil si introuvable.
func lookupRequester(userID string) *models.User {
	session, err := database.GetUsersSession()
	if err != nil {
		return nil
	}

	var u models.User
	if err := session.Query(
		`SELECT user_id, email, first_name, last_name, role FROM users WHERE user_id = ?`,
		userID,
	).Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Role); err != nil {
		return nil
	}
	return &u
}
