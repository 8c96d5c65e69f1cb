package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"housinghistory/server/internal/contracts"
	"housinghistory/server/internal/database"
	"housinghistory/server/internal/models"
	"housinghistory/server/internal/processor"
	"housinghistory/server/internal/reports"
	"housinghistory/server/internal/scheduler"
)

// maxImportBody bounds the size of a single import request.
const maxImportBody = 8 << 20

type Handler struct {
	db        *database.Database
	reports   *reports.Service
	processor *processor.BatchProcessor
	snapshots *scheduler.Scheduler
	logger    *logrus.Logger
}

func NewHandler(db *database.Database, reportService *reports.Service, importer *processor.BatchProcessor, snapshots *scheduler.Scheduler, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		db:        db,
		reports:   reportService,
		processor: importer,
		snapshots: snapshots,
		logger:    logger,
	}
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.db.Ping(c.Request.Context()); err != nil {
		h.logger.WithError(err).Error("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "driver": h.db.Driver()})
}

func (h *Handler) GetOwnershipTurnover(c *gin.Context) {
	rows, err := h.reports.OwnershipTurnover(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to get ownership turnover")
		return
	}
	respondRows(h, c, "ownership-turnover", rows)
}

func (h *Handler) GetPropertiesByOwner(c *gin.Context) {
	rows, err := h.reports.PropertiesByOwner(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, err, "Failed to get properties by owner")
		return
	}
	respondRows(h, c, "owner-properties", rows)
}

func (h *Handler) GetPropertiesByOwnerID(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	rows, err := h.reports.PropertiesByOwnerID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to get properties by owner")
		return
	}
	respondRows(h, c, "owner-properties", rows)
}

func (h *Handler) GetNeverRented(c *gin.Context) {
	rows, err := h.reports.NeverRented(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to get never-rented properties")
		return
	}
	respondRows(h, c, "never-rented", rows)
}

func (h *Handler) GetRentalIncome(c *gin.Context) {
	asOf, err := parseAsOf(c.Query("as_of"))
	if err != nil {
		h.fail(c, err, "Invalid evaluation time")
		return
	}
	rows, err := h.reports.ActiveRentalIncome(c.Request.Context(), asOf)
	if err != nil {
		h.fail(c, err, "Failed to get rental income")
		return
	}
	respondRows(h, c, "rental-income", rows)
}

func (h *Handler) GetPropertiesInNeighborhood(c *gin.Context) {
	rows, err := h.reports.PropertiesInNeighborhood(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, err, "Failed to get neighborhood properties")
		return
	}
	respondRows(h, c, "neighborhood-properties", rows)
}

func (h *Handler) GetPropertiesInNeighborhoodID(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	rows, err := h.reports.PropertiesInNeighborhoodID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to get neighborhood properties")
		return
	}
	respondRows(h, c, "neighborhood-properties", rows)
}

func (h *Handler) GetPriceExtremes(c *gin.Context) {
	rows, err := h.reports.PriceExtremes(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to get price extremes")
		return
	}
	respondRows(h, c, "price-extremes", rows)
}

func (h *Handler) GetDiversity(c *gin.Context) {
	rows, err := h.reports.Diversity(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to get diversity report")
		return
	}
	respondRows(h, c, "diversity", rows)
}

func (h *Handler) GetNeighborhoodDemographics(c *gin.Context) {
	rows, err := h.reports.NeighborhoodDiversity(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, err, "Failed to get neighborhood demographics")
		return
	}
	respondRows(h, c, "neighborhood-demographics", rows)
}

func (h *Handler) GetDashboard(c *gin.Context) {
	asOf, err := parseAsOf(c.Query("as_of"))
	if err != nil {
		h.fail(c, err, "Invalid evaluation time")
		return
	}
	dashboard, err := h.reports.Dashboard(c.Request.Context(), asOf)
	if err != nil {
		h.fail(c, err, "Failed to build dashboard")
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// GetLatestDashboard serves the last snapshot built by the refresh scheduler.
func (h *Handler) GetLatestDashboard(c *gin.Context) {
	if h.snapshots == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dashboard refresh is disabled"})
		return
	}
	dashboard, err := h.snapshots.Latest()
	if dashboard == nil {
		if err != nil {
			h.logger.WithError(err).Error("No dashboard snapshot available")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Dashboard snapshot unavailable"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Dashboard snapshot not built yet"})
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

func (h *Handler) CreateNeighborhood(c *gin.Context) {
	h.createNamed(c, h.db.CreateNeighborhood, "Failed to create neighborhood")
}

func (h *Handler) CreatePropertyType(c *gin.Context) {
	h.createNamed(c, h.db.CreatePropertyType, "Failed to create property type")
}

func (h *Handler) CreateOwner(c *gin.Context) {
	h.createNamed(c, h.db.CreateOwner, "Failed to create owner")
}

func (h *Handler) CreateRenter(c *gin.Context) {
	h.createNamed(c, h.db.CreateRenter, "Failed to create renter")
}

func (h *Handler) createNamed(c *gin.Context, create func(context.Context, models.NameInput) (*models.WriteResult, error), msg string) {
	var in models.NameInput
	if !h.bind(c, &in) {
		return
	}
	h.created(c, msg)(create(c.Request.Context(), in))
}

func (h *Handler) InsertProperty(c *gin.Context) {
	var in models.PropertyInput
	if !h.bind(c, &in) {
		return
	}
	h.created(c, "Failed to insert property")(h.db.InsertProperty(c.Request.Context(), in))
}

func (h *Handler) RecordOwnership(c *gin.Context) {
	var in models.OwnershipInput
	if !h.bind(c, &in) {
		return
	}
	h.created(c, "Failed to record ownership transaction")(h.db.RecordOwnershipTransaction(c.Request.Context(), in))
}

func (h *Handler) AddRental(c *gin.Context) {
	var in models.RentalInput
	if !h.bind(c, &in) {
		return
	}
	h.created(c, "Failed to add rental detail")(h.db.AddRentalDetail(c.Request.Context(), in))
}

func (h *Handler) RecordDemographics(c *gin.Context) {
	var in models.DemographicInput
	if !h.bind(c, &in) {
		return
	}
	h.created(c, "Failed to record demographics")(h.db.RecordDemographics(c.Request.Context(), in))
}

func (h *Handler) ImportBatch(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBody+1))
	if err != nil {
		h.fail(c, err, "Failed to read import batch")
		return
	}
	if len(body) > maxImportBody {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "import batch too large"})
		return
	}

	batch, err := contracts.DecodeImportBatch(body)
	if err != nil {
		h.fail(c, fmt.Errorf("%w: %v", database.ErrInvalidInput, err), "Invalid import batch")
		return
	}
	if err := h.processor.Submit(batch); err != nil {
		h.fail(c, err, "Failed to enqueue import batch")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":    "Import batch queued",
		"properties": len(batch.Properties),
		"ownerships": len(batch.Ownerships),
		"rentals":    len(batch.Rentals),
	})
}

func (h *Handler) GetImportStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.processor.Stats())
}

func (h *Handler) bind(c *gin.Context, in interface{}) bool {
	if err := c.ShouldBindJSON(in); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", database.ErrInvalidInput, err), "Invalid request body")
		return false
	}
	return true
}

func (h *Handler) created(c *gin.Context, msg string) func(*models.WriteResult, error) {
	return func(res *models.WriteResult, err error) {
		if err != nil {
			h.fail(c, err, msg)
			return
		}
		c.JSON(http.StatusCreated, res)
	}
}

func (h *Handler) idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return 0, false
	}
	return id, true
}
