package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"telephony-backoffice/internal/auth"
	"telephony-backoffice/internal/automation"
	"telephony-backoffice/internal/availability"
	"telephony-backoffice/internal/calendar"
	"telephony-backoffice/internal/calls"
	"telephony-backoffice/internal/sms"
	"telephony-backoffice/internal/templates"
	"telephony-backoffice/internal/users"
	"telephony-backoffice/internal/voicemail"
)

const defaultListLimit = 50

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth         *auth.Manager
	Users        users.Repository
	Availability *availability.Checker
	CalendarSync *calendar.SyncService
	Calls        *calls.Service
	Voicemails   voicemail.Repository
	Messages     sms.Repository
	Automations  automation.Repository
	Templates    templates.Repository
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	claims, err := h.Auth.Verify(req.RefreshToken, auth.TokenTypeRefresh, time.Now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), claims.UserID, claims.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Users ---

func (h Handlers) Me(c *gin.Context) {
	userID := c.GetString("user_id")
	u, err := h.Users.GetByID(c.Request.Context(), userID)
	if err != nil {
		respondRepoErr(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

type updateScheduleRequest struct {
	Schedule []users.DaySchedule `json:"schedule"`
}

func (h Handlers) UpdateSchedule(c *gin.Context) {
	userID := c.GetString("user_id")
	var req updateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Users.UpdateSchedule(c.Request.Context(), userID, req.Schedule); err != nil {
		respondRepoErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// --- Availability ---

func (h Handlers) AvailabilityStatus(c *gin.Context) {
	userID := c.GetString("user_id")
	available, err := h.Availability.IsAvailableByID(c.Request.Context(), userID)
	if err != nil {
		respondRepoErr(c, err)
		return
	}
	status := "unavailable"
	if available {
		status = "available"
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "checked_at": time.Now().UTC()})
}

// --- Calendar ---

func (h Handlers) SyncCalendar(c *gin.Context) {
	userID := c.GetString("user_id")
	n, err := h.CalendarSync.SyncUser(c.Request.Context(), userID)
	if err != nil {
		respondRepoErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced_events": n})
}

// --- Calls / messages / voicemails ---

func (h Handlers) ListCalls(c *gin.Context) {
	userID := c.GetString("user_id")
	out, err := h.Calls.ListByUser(c.Request.Context(), userID, defaultListLimit)
	if err != nil {
		respondRepoErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": emptyIfNil(out)})
}

func (h Handlers) ListMessages(c *gin.Context) {
	userID := c.GetString("user_id")
	out, err := h.Messages.ListByUser(c.Request.Context(), userID, defaultListLimit)
	if err != nil {
		respondRepoErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": emptyIfNil(out)})
}

func (h Handlers) ListVoicemails(c *gin.Context) {
	userID := c.GetString("user_id")
	out, err := h.Voicemails.ListByUser(c.Request.Context(), userID, defaultListLimit)
	if err != nil {
		respondRepoErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"voicemails": emptyIfNil(out)})
}

func (h Handlers) MarkVoicemailRead(c *gin.Context) {
	userID := c.GetString("user_id")
	if err := h.Voicemails.MarkRead(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondRepoErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

// --- Automations ---

type automationRequest struct {
	Name        string                 `json:"name"`
	IsActive    bool                   `json:"is_active"`
	PhoneNumber string                 `json:"phone_number"`
	Conditions  []automation.Condition `json:"conditions"`
	Actions     []automation.Action    `json:"actions"`
}

func (h Handlers) ListAutomations(c *gin.Context) {
	userID := c.GetString("user_id")
	out, err := h.Automations.ListByUser(c.Request.Context(), userID)
	if err != nil {
		respondRepoErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"automations": emptyIfNil(out)})
}

func (h Handlers) CreateAutomation(c *gin.Context) {
	userID := c.GetString("user_id")
	var req automationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	a, err := h.Automations.Create(c.Request.Context(), automation.Automation{
		UserID:      userID,
		Name:        req.Name,
		IsActive:    req.IsActive,
		PhoneNumber: req.PhoneNumber,
		Conditions:  req.Conditions,
		Actions:     req.Actions,
	})
	if err != nil {
		respondRepoErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h Handlers) UpdateAutomation(c *gin.Context) {
	userID := c.GetString("user_id")
	var req automationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	a, err := h.Automations.Update(c.Request.Context(), automation.Automation{
		ID:          c.Param("id"),
		UserID:      userID,
		Name:        req.Name,
		IsActive:    req.IsActive,
		PhoneNumber: req.PhoneNumber,
		Conditions:  req.Conditions,
		Actions:     req.Actions,
	})
	if err != nil {
		respondRepoErr(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h Handlers) SetAutomationActive(active bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if err := h.Automations.SetActive(c.Request.Context(), userID, c.Param("id"), active); err != nil {
			respondRepoErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"is_active": active})
	}
}

func (h Handlers) DeleteAutomation(c *gin.Context) {
	userID := c.GetString("user_id")
	if err := h.Automations.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondRepoErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// --- Templates ---

type templateRequest struct {
	Name    string   `json:"name"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

func (h Handlers) ListTemplates(c *gin.Context) {
	userID := c.GetString("user_id")
	out, err := h.Templates.ListForUser(c.Request.Context(), userID)
	if err != nil {
		respondRepoErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": emptyIfNil(out)})
}

func (h Handlers) CreateTemplate(c *gin.Context) {
	userID := c.GetString("user_id")
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	t, err := h.Templates.Create(c.Request.Context(), templates.Template{
		UserID:  userID,
		Name:    req.Name,
		Content: req.Content,
		Tags:    req.Tags,
	})
	if err != nil {
		respondRepoErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// --- helpers ---

func respondRepoErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, users.ErrNotFound),
		errors.Is(err, calls.ErrNotFound),
		errors.Is(err, voicemail.ErrNotFound),
		errors.Is(err, sms.ErrNotFound),
		errors.Is(err, automation.ErrNotFound),
		errors.Is(err, templates.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, users.ErrInvalidArgument),
		errors.Is(err, automation.ErrInvalidArgument),
		errors.Is(err, templates.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func emptyIfNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
