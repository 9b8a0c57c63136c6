package reversals

import (
	"github.com/gin-gonic/gin"

	"lumea_back_end/internal/abuse"
	"lumea_back_end/internal/cache"
	"lumea_back_end/internal/middleware"
	"lumea_back_end/internal/reversal"
	"lumea_back_end/internal/storage"
	"lumea_back_end/internal/utils"
)

// Register câble le sous-système de reversal et monte ses routes.
func Register(api *gin.RouterGroup) {
	orders := reversal.ScyllaOrderStore{}
	requests := reversal.ScyllaRequestStore{}

	h := &Handler{
		factory: reversal.NewFactory(orders, requests, abuse.NewGuard(), storage.EvidenceStore{}),
		coordinator: reversal.NewCoordinator(
			orders,
			requests,
			reversal.ScyllaStockLedger{},
			reversal.NewGatewayClient(),
			utils.Notifier{},
			cache.Invalidator{},
		),
		requests: requests,
		orders:   orders,
	}

	buyer := api.Group("/reversal-requests")
	buyer.Use(middleware.AuthRequired())
	{
		buyer.POST("", h.Create)
		buyer.GET("", h.ListForOrder)
		buyer.GET("/mine", h.Mine)
	}

	admin := api.Group("/admin/reversal-requests")
	admin.Use(middleware.AuthRequired(), middleware.RequireAdmin)
	{
		admin.GET("", h.AdminList)
		admin.GET("/:id", h.AdminDetail)
		admin.PATCH("/:id", h.AdminDecide)
	}
}
