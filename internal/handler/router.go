package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/seekerhut/ticketrag/internal/middleware"
)

type RouterDeps struct {
	Search    *SearchHandler
	Tickets   *TicketHandler
	Sync      *SyncHandler
	JWTSecret []byte
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	group := api.Group("")
	if len(deps.JWTSecret) > 0 {
		group.Use(middleware.JWTAuth(deps.JWTSecret))
	}

	group.POST("/search", deps.Search.Search)
	group.GET("/search/stats", deps.Search.Stats)

	group.POST("/tickets", deps.Tickets.Create)
	group.GET("/tickets/:id", deps.Tickets.Get)
	group.PUT("/tickets/:id", deps.Tickets.Update)
	group.DELETE("/tickets/:id", deps.Tickets.Delete)
	group.POST("/tickets/:id/resync", deps.Tickets.Resync)

	group.POST("/sync", deps.Sync.Trigger)
}
