package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter builds the gin engine with recovery, request ids, access
// logging and CORS in front of the API routes.
func NewRouter(handler *Handler, allowedOrigins []string, logger *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), AccessLog(logger), cors.New(corsConfig(allowedOrigins)))

	SetupRoutes(router, handler)
	return router
}

func corsConfig(allowedOrigins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader, "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range allowedOrigins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = allowedOrigins
	return cfg
}

func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.GET("/health", handler.Health)

	api := router.Group("/api")
	{
		reports := api.Group("/reports")
		reports.GET("/ownership-turnover", handler.GetOwnershipTurnover)
		reports.GET("/never-rented", handler.GetNeverRented)
		reports.GET("/rental-income", handler.GetRentalIncome)
		reports.GET("/price-extremes", handler.GetPriceExtremes)
		reports.GET("/diversity", handler.GetDiversity)
		reports.GET("/dashboard", handler.GetDashboard)
		reports.GET("/dashboard/latest", handler.GetLatestDashboard)

		api.GET("/owners/:name/properties", handler.GetPropertiesByOwner)
		api.GET("/neighborhoods/:name/properties", handler.GetPropertiesInNeighborhood)
		api.GET("/neighborhoods/:name/demographics", handler.GetNeighborhoodDemographics)
		api.GET("/properties/owner/:id", handler.GetPropertiesByOwnerID)
		api.GET("/properties/neighborhood/:id", handler.GetPropertiesInNeighborhoodID)

		api.POST("/neighborhoods", handler.CreateNeighborhood)
		api.POST("/property-types", handler.CreatePropertyType)
		api.POST("/owners", handler.CreateOwner)
		api.POST("/renters", handler.CreateRenter)
		api.POST("/properties", handler.InsertProperty)
		api.POST("/ownerships", handler.RecordOwnership)
		api.POST("/rentals", handler.AddRental)
		api.POST("/demographics", handler.RecordDemographics)

		api.POST("/import", handler.ImportBatch)
		api.GET("/import/stats", handler.GetImportStats)
	}
}
