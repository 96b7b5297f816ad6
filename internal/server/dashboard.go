package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/ocelon/parking/internal/audit/domain"
	"github.com/ocelon/parking/internal/authcontext"
)

func (s *Server) UserOverview(c *gin.Context) {
	userID, ok := authcontext.UserIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	overview, err := s.dashboardSvc.UserOverview(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, overview)
}

func (s *Server) AdminAnalytics(c *gin.Context) {
	analytics, err := s.dashboardSvc.AdminAnalytics(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, analytics)
}

func (s *Server) AdminListAuditLogs(c *gin.Context) {
	filter := auditdomain.ListFilter{
		Action:     c.Query("action"),
		TargetType: c.Query("target_type"),
		TargetID:   c.Query("target_id"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a positive integer"))
			return
		}
		filter.Limit = limit
	}
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			AbortWithError(c, newValidationError("from", "invalid_date", "from must be formatted YYYY-MM-DD"))
			return
		}
		filter.StartAt = &parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			AbortWithError(c, newValidationError("to", "invalid_date", "to must be formatted YYYY-MM-DD"))
			return
		}
		filter.EndAt = &parsed
	}

	logs, err := s.auditSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, logs)
}
