package main

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"telephony-backoffice/internal/auth"
	"telephony-backoffice/internal/automation"
	"telephony-backoffice/internal/availability"
	"telephony-backoffice/internal/calendar"
	"telephony-backoffice/internal/calls"
	"telephony-backoffice/internal/httpapi"
	"telephony-backoffice/internal/sms"
	"telephony-backoffice/internal/templates"
	"telephony-backoffice/internal/users"
	"telephony-backoffice/internal/voicemail"
	"telephony-backoffice/internal/webhooks"
	"telephony-backoffice/pkg/utils"
)

func httpHandlers(
	authManager *auth.Manager,
	userRepo users.Repository,
	checker *availability.Checker,
	calendarSync *calendar.SyncService,
	callSvc *calls.Service,
	voicemailRepo voicemail.Repository,
	messageRepo sms.Repository,
	automationRepo automation.Repository,
	templateRepo templates.Repository,
) httpapi.Handlers {
	return httpapi.Handlers{
		Auth:         authManager,
		Users:        userRepo,
		Availability: checker,
		CalendarSync: calendarSync,
		Calls:        callSvc,
		Voicemails:   voicemailRepo,
		Messages:     messageRepo,
		Automations:  automationRepo,
		Templates:    templateRepo,
	}
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, db *sql.DB, wh *webhooks.Handler, h httpapi.Handlers, authMW gin.HandlerFunc) {
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Provider webhooks (public; authenticated by payload signature).
	r.POST("/webhooks/telnyx", wh.HandleTelnyx)

	// Token issuance is public; everything else under /v1 requires a token.
	v1 := r.Group("/v1")
	{
		authGroup := v1.Group("/auth")
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
	}

	protected := v1.Group("")
	protected.Use(authMW)
	{
		protected.GET("/users/me", h.Me)
		protected.PUT("/users/me/schedule", h.UpdateSchedule)

		protected.GET("/availability", h.AvailabilityStatus)
		protected.POST("/calendar/sync", h.SyncCalendar)

		protected.GET("/calls", h.ListCalls)
		protected.GET("/messages", h.ListMessages)

		protected.GET("/voicemails", h.ListVoicemails)
		protected.POST("/voicemails/:id/read", h.MarkVoicemailRead)

		automations := protected.Group("/automations")
		{
			automations.GET("", h.ListAutomations)
			automations.POST("", h.CreateAutomation)
			automations.PUT("/:id", h.UpdateAutomation)
			automations.DELETE("/:id", h.DeleteAutomation)
			automations.POST("/:id/activate", h.SetAutomationActive(true))
			automations.POST("/:id/deactivate", h.SetAutomationActive(false))
		}

		protected.GET("/templates", h.ListTemplates)
		protected.POST("/templates", h.CreateTemplate)
	}
}
