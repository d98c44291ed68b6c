package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/test-engine-service/internal/services"
	"github.com/SAP-F-2025/test-engine-service/internal/utils"
	"github.com/SAP-F-2025/test-engine-service/internal/validator"
	"github.com/gin-gonic/gin"
)

type AccessHandler struct {
	BaseHandler
	accessService services.AccessService
	validator     *validator.Validator
}

type CheckAccessManyRequest struct {
	TestIDs []uint `json:"test_ids" validate:"required,min=1,max=200,dive,min=1"`
}

func NewAccessHandler(
	accessService services.AccessService,
	validator *validator.Validator,
	logger utils.Logger,
) *AccessHandler {
	return &AccessHandler{
		BaseHandler:   NewBaseHandler(logger),
		accessService: accessService,
		validator:     validator,
	}
}

// CheckAccess reports whether the caller (or an anonymous visitor) may take a test
// @Summary Check test access
// @Tags access
// @Produce json
// @Param test_id path uint true "Test ID"
// @Success 200 {object} SuccessResponse{data=services.AccessResult}
// @Failure 404 {object} ErrorResponse
// @Router /tests/{test_id}/access [get]
func (h *AccessHandler) CheckAccess(c *gin.Context) {
	testID := ParseUintIDParam(c, "test_id")
	if testID == 0 {
		return
	}

	result, err := h.accessService.CheckAccess(c.Request.Context(), currentUserID(c), testID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Access checked", result, "test_id", testID, "status", result.Status)
}

// CheckAccessMany decides access for a list of tests in one call. Unknown tests are omitted.
// @Summary Check access for many tests
// @Tags access
// @Accept json
// @Produce json
// @Param request body CheckAccessManyRequest true "Test IDs"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /tests/access [post]
func (h *AccessHandler) CheckAccessMany(c *gin.Context) {
	var req CheckAccessManyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	results, err := h.accessService.CheckAccessMany(c.Request.Context(), currentUserID(c), req.TestIDs)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Access checked", gin.H{"results": results}, "count", len(results))
}
