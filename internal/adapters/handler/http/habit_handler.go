package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/comitanigiacomo/kanso-habit-stats/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-habit-stats/internal/core/domain"
	"github.com/comitanigiacomo/kanso-habit-stats/internal/core/services"
	"github.com/gin-gonic/gin"
)

var errNothingToUpdate = errors.New("at least one field (name, description, or frequency) must be provided")

type HabitHandler struct {
	svc *services.HabitService
	loc *time.Location
}

// NewHabitHandler builds the handler. loc is the zone a bare YYYY-MM-DD
// completion date is read in.
func NewHabitHandler(svc *services.HabitService, loc *time.Location) *HabitHandler {
	if loc == nil {
		loc = time.Local
	}
	return &HabitHandler{
		svc: svc,
		loc: loc,
	}
}

type createHabitRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Frequency   string `json:"frequency"`
}

type updateHabitRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Frequency   string `json:"frequency"`
}

type trackHabitRequest struct {
	Date string `json:"date"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *HabitHandler) RegisterRoutes(router *gin.RouterGroup) {
	habits := router.Group("/habits")
	{
		habits.POST("", h.Create)
		habits.GET("", h.List)
		habits.GET("/:id", h.Get)
		habits.PUT("/:id", h.Update)
		habits.DELETE("/:id", h.Delete)
		habits.POST("/:id/track", h.Track)
		habits.GET("/:id/history", h.History)
	}
}

// writeError maps service errors to status codes. Internal errors are
// recorded on the context and hidden from the client.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrHabitNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "habit not found"})
	case errors.Is(err, domain.ErrHabitNameEmpty),
		errors.Is(err, domain.ErrHabitNameTooLong),
		errors.Is(err, domain.ErrHabitDescTooLong),
		errors.Is(err, domain.ErrInvalidFrequency),
		errors.Is(err, domain.ErrAlreadyCompleted),
		errors.Is(err, domain.ErrCompletionDateRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func requireUserID(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
	}
	return userID, ok
}

// parseCompletionDate accepts RFC3339 timestamps and plain YYYY-MM-DD dates,
// the latter meaning midnight in loc.
func parseCompletionDate(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, domain.ErrCompletionDateRequired
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, raw, loc); err == nil {
		return t, nil
	}
	return time.Time{}, errors.New("date must be in ISO 8601 format (YYYY-MM-DD or RFC3339)")
}

// Create godoc
// @Summary      Create a habit
// @Tags         habits
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      createHabitRequest  true  "Habit"
// @Success      201   {object}  domain.Habit
// @Failure      400   {object}  errorResponse
// @Router       /habits [post]
func (h *HabitHandler) Create(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req createHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	habit, err := h.svc.Create(c.Request.Context(), services.CreateHabitInput{
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		Frequency:   req.Frequency,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, habit)
}

// List godoc
// @Summary      List the caller's habits
// @Tags         habits
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  domain.Habit
// @Router       /habits [get]
func (h *HabitHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	list, err := h.svc.ListByUserID(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// Get godoc
// @Summary      Get one habit
// @Tags         habits
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Habit ID"
// @Success      200  {object}  domain.Habit
// @Failure      404  {object}  errorResponse
// @Router       /habits/{id} [get]
func (h *HabitHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	habit, err := h.svc.Get(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, habit)
}

// Update godoc
// @Summary      Update name, description or frequency
// @Tags         habits
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path      string              true  "Habit ID"
// @Param        body  body      updateHabitRequest  true  "Fields to change"
// @Success      200   {object}  domain.Habit
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /habits/{id} [put]
func (h *HabitHandler) Update(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req updateHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == "" && req.Description == "" && req.Frequency == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errNothingToUpdate.Error()})
		return
	}

	habit, err := h.svc.Update(c.Request.Context(), services.UpdateHabitInput{
		ID:          c.Param("id"),
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		Frequency:   req.Frequency,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, habit)
}

// Delete godoc
// @Summary      Delete a habit
// @Tags         habits
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Habit ID"
// @Success      200  {object}  messageResponse
// @Failure      404  {object}  errorResponse
// @Router       /habits/{id} [delete]
func (h *HabitHandler) Delete(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Habit removed"})
}

// Track godoc
// @Summary      Mark a habit completed on a date
// @Tags         habits
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "Habit ID"
// @Param        body  body      trackHabitRequest  true  "Completion date"
// @Success      200   {object}  domain.Habit
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /habits/{id}/track [post]
func (h *HabitHandler) Track(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req trackHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	date, err := parseCompletionDate(req.Date, h.loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	habit, err := h.svc.Track(c.Request.Context(), services.TrackCompletionInput{
		ID:     c.Param("id"),
		UserID: userID,
		Date:   date,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, habit)
}

// History godoc
// @Summary      Completion history, oldest first
// @Tags         habits
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Habit ID"
// @Success      200  {object}  services.HabitHistory
// @Failure      404  {object}  errorResponse
// @Router       /habits/{id}/history [get]
func (h *HabitHandler) History(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	history, err := h.svc.History(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}
