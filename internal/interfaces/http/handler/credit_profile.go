package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	ledgerapp "github.com/debtflow/backend/internal/application/ledger"
)

// CreditProfileHandler handles credit profile API endpoints
type CreditProfileHandler struct {
	BaseHandler
	profileService *ledgerapp.CreditProfileService
}

// NewCreditProfileHandler creates a new CreditProfileHandler
func NewCreditProfileHandler(profileService *ledgerapp.CreditProfileService) *CreditProfileHandler {
	return &CreditProfileHandler{profileService: profileService}
}

// RegisterRoutes registers credit profile routes
func (h *CreditProfileHandler) RegisterRoutes(rg *gin.RouterGroup) {
	profiles := rg.Group("/credit-profiles")
	{
		profiles.POST("", h.CreateProfile)
		profiles.GET("", h.ListProfiles)
		profiles.GET("/:id", h.GetProfile)
		profiles.PUT("/:id", h.UpdateProfile)
		profiles.DELETE("/:id", h.DeleteProfile)
	}
	rg.GET("/customers/:id/credit-profile", h.GetProfileByCustomer)
}

// CreateProfile creates the credit profile for a customer
func (h *CreditProfileHandler) CreateProfile(c *gin.Context) {
	var req ledgerapp.CreateCreditProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	profile, err := h.profileService.CreateProfile(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, profile)
}

// GetProfile retrieves a credit profile by ID
func (h *CreditProfileHandler) GetProfile(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid profile ID format")
		return
	}

	profile, err := h.profileService.GetProfile(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, profile)
}

// GetProfileByCustomer retrieves the credit profile for a customer
func (h *CreditProfileHandler) GetProfileByCustomer(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	profile, err := h.profileService.GetProfileByCustomer(c.Request.Context(), customerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, profile)
}

// ListProfiles retrieves a paginated list of credit profiles
func (h *CreditProfileHandler) ListProfiles(c *gin.Context) {
	var filter ledgerapp.CreditProfileListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	profiles, total, err := h.profileService.ListProfiles(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, profiles, total, filter.Page, filter.PageSize)
}

// UpdateProfile updates a credit profile's terms
func (h *CreditProfileHandler) UpdateProfile(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid profile ID format")
		return
	}

	var req ledgerapp.UpdateCreditProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	profile, err := h.profileService.UpdateProfile(c.Request.Context(), id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, profile)
}

// DeleteProfile deletes a credit profile
func (h *CreditProfileHandler) DeleteProfile(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid profile ID format")
		return
	}

	if err := h.profileService.DeleteProfile(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
