package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	ledgerapp "github.com/debtflow/backend/internal/application/ledger"
	"github.com/debtflow/backend/internal/infrastructure/scheduler"
	"github.com/debtflow/backend/internal/interfaces/http/dto"
)

// RecalculationHandler exposes the score recalculation endpoints: a
// synchronous per-customer recalculation and control over the nightly
// full-ledger run
type RecalculationHandler struct {
	BaseHandler
	recalcService *ledgerapp.RecalculationService
	cronScheduler *scheduler.RecalculationCronScheduler
	runRepo       *scheduler.RecalculationRunRepository
}

// NewRecalculationHandler creates a new RecalculationHandler. The scheduler
// and run repository may be nil when the cron scheduler is disabled.
func NewRecalculationHandler(
	recalcService *ledgerapp.RecalculationService,
	cronScheduler *scheduler.RecalculationCronScheduler,
	runRepo *scheduler.RecalculationRunRepository,
) *RecalculationHandler {
	return &RecalculationHandler{
		recalcService: recalcService,
		cronScheduler: cronScheduler,
		runRepo:       runRepo,
	}
}

// RegisterRoutes registers recalculation routes
func (h *RecalculationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/customers/:id/recalculate", h.RecalculateCustomer)

	recalcs := rg.Group("/recalculations")
	{
		recalcs.POST("/run", h.TriggerRun)
		recalcs.GET("/status", h.GetRunStatus)
	}
}

// RecalculateCustomer recomputes one customer's payment score synchronously
func (h *RecalculationHandler) RecalculateCustomer(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	record, err := h.recalcService.RecalculateCustomer(c.Request.Context(), customerID, time.Now())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, record)
}

// TriggerRun kicks off a full recalculation run in the background
func (h *RecalculationHandler) TriggerRun(c *gin.Context) {
	if h.cronScheduler == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeInternal, "Recalculation scheduler is not enabled")
		return
	}

	if err := h.cronScheduler.TriggerManualRun(c.Request.Context()); err != nil {
		switch {
		case errors.Is(err, scheduler.ErrRunAlreadyInProgress):
			h.Conflict(c, "A recalculation run is already in progress")
		case errors.Is(err, scheduler.ErrSchedulerNotRunning):
			h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeInternal, "Recalculation scheduler is not running")
		default:
			h.InternalError(c, "Failed to trigger recalculation run")
		}
		return
	}

	h.Accepted(c, gin.H{"message": "Recalculation run started"})
}

// GetRunStatus reports the scheduler state and the most recent run
func (h *RecalculationHandler) GetRunStatus(c *gin.Context) {
	if h.cronScheduler == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeInternal, "Recalculation scheduler is not enabled")
		return
	}

	status := h.cronScheduler.GetStatus()

	if h.runRepo != nil {
		lastRun, err := h.runRepo.GetLastRun(c.Request.Context())
		if err != nil {
			h.InternalError(c, "Failed to load last recalculation run")
			return
		}
		if lastRun != nil {
			status["last_run"] = lastRun
		}
	}

	h.Success(c, status)
}
