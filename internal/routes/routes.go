package routes

import (
	"github.com/gin-gonic/gin"

	"lumea_back_end/internal/handlers/reversals"
)

func RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")

	// Annulations et retours de commande
	reversals.Register(api)
}
