package handlers

import (
	"net/http"
	"strconv"

	"github.com/SAP-F-2025/test-engine-service/internal/services"
	"github.com/SAP-F-2025/test-engine-service/internal/utils"
	"github.com/SAP-F-2025/test-engine-service/internal/validator"
	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	BaseHandler
	sessionService services.SessionService
	validator      *validator.Validator
}

func NewSessionHandler(
	sessionService services.SessionService,
	validator *validator.Validator,
	logger utils.Logger,
) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
		validator:      validator,
	}
}

// StartSession creates a session or resumes the caller's in-progress one
// @Summary Start or resume session
// @Description Starts a new attempt on a test, or returns the caller's active attempt
// @Tags sessions
// @Produce json
// @Param test_id path uint true "Test ID"
// @Success 201 {object} SuccessResponse{data=services.SessionResult}
// @Success 200 {object} SuccessResponse{data=services.SessionResult}
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /tests/{test_id}/sessions [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	testID := ParseUintIDParam(c, "test_id")
	if testID == 0 {
		return
	}

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Starting session", "test_id", testID)

	result, err := h.sessionService.StartOrResume(c.Request.Context(), userID, testID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if result.Resumed {
		h.RespondWithSuccess(c, http.StatusOK, "Session resumed", result, "session_id", result.Session.ID)
		return
	}
	h.RespondWithSuccess(c, http.StatusCreated, "Session started", result, "session_id", result.Session.ID)
}

// GetActiveSession returns the caller's live session, optionally for one test
// @Summary Get active session
// @Tags sessions
// @Produce json
// @Param test_id query uint false "Test ID"
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse
// @Router /sessions/active [get]
func (h *SessionHandler) GetActiveSession(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var testID *uint
	if raw := c.Query("test_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || parsed == 0 {
			h.RespondWithError(c, http.StatusBadRequest, "Invalid test_id", err)
			return
		}
		id := uint(parsed)
		testID = &id
	}

	session, err := h.sessionService.GetActive(c.Request.Context(), userID, testID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Active session retrieved", gin.H{"session": session})
}

// GetSession returns one of the caller's sessions
// @Summary Get session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} SuccessResponse{data=models.TestSession}
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	session, err := h.sessionService.Get(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Session retrieved", session)
}

// GetSessionContent returns the session with its questions stripped of correctness data
// @Summary Get session content
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} SuccessResponse{data=services.SessionContent}
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/content [get]
func (h *SessionHandler) GetSessionContent(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	content, err := h.sessionService.GetSessionContent(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Session content retrieved", content)
}

// UpdateSession applies a partial update to an in-progress session
// @Summary Update session
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param update body services.SessionUpdate true "Fields to change"
// @Success 200 {object} SuccessResponse{data=models.TestSession}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id} [patch]
func (h *SessionHandler) UpdateSession(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.SessionUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	session, err := h.sessionService.Update(c.Request.Context(), sessionID, userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Session updated", session)
}

// SubmitAnswers grades the submitted answers and completes the session
// @Summary Submit answers
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param submission body services.SubmitAnswersRequest true "Answers"
// @Success 200 {object} SuccessResponse{data=services.SubmissionSummary}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/answers [post]
func (h *SessionHandler) SubmitAnswers(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.SubmitAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Submitting answers", "session_id", sessionID, "answer_count", len(req.Answers))

	summary, err := h.sessionService.SubmitAnswers(c.Request.Context(), sessionID, userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Answers submitted", summary,
		"session_id", summary.SessionID, "score", summary.Score)
}
