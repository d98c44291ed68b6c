package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/test-engine-service/internal/services"
	"github.com/SAP-F-2025/test-engine-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type HistoryHandler struct {
	BaseHandler
	historyService services.HistoryService
}

func NewHistoryHandler(historyService services.HistoryService, logger utils.Logger) *HistoryHandler {
	return &HistoryHandler{
		BaseHandler:    NewBaseHandler(logger),
		historyService: historyService,
	}
}

// GetTestHistory returns the caller's completed attempts on a test
// @Summary Get test history
// @Tags history
// @Produce json
// @Param test_id path uint true "Test ID"
// @Success 200 {object} SuccessResponse{data=services.TestHistory}
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /tests/{test_id}/history [get]
func (h *HistoryHandler) GetTestHistory(c *gin.Context) {
	testID := ParseUintIDParam(c, "test_id")
	if testID == 0 {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	history, err := h.historyService.GetTestHistory(c.Request.Context(), userID, testID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "History retrieved", history, "attempts", len(history.Attempts))
}
