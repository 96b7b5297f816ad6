package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/ocelon/parking/internal/audit/domain"
	"github.com/ocelon/parking/internal/authcontext"
	supportdomain "github.com/ocelon/parking/internal/support/domain"
	userdomain "github.com/ocelon/parking/internal/user/domain"
)

type createTicketRequest struct {
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

type ticketReplyRequest struct {
	Body string `json:"body"`
}

type ticketStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) CreateTicket(c *gin.Context) {
	userID, ok := authcontext.UserIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	priority := supportdomain.TicketPriority(req.Priority)
	if priority == "" {
		priority = supportdomain.PriorityMedium
	}

	ticket, err := s.supportSvc.Create(c.Request.Context(), supportdomain.CreateTicketRequest{
		UserID:      userID,
		Category:    req.Category,
		Priority:    priority,
		Subject:     req.Subject,
		Description: req.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusCreated, ticket)
}

func (s *Server) ListMyTickets(c *gin.Context) {
	userID, ok := authcontext.UserIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	tickets, err := s.supportSvc.ListByUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, tickets)
}

func (s *Server) GetTicket(c *gin.Context) {
	ticket, err := s.supportSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	userID, _ := authcontext.UserIDFromContext(ctx)
	if ticket.UserID != userID && authcontext.RoleFromContext(ctx) != string(userdomain.RoleAdmin) {
		AbortWithError(c, ErrForbidden)
		return
	}

	respond(c, http.StatusOK, ticket)
}

// UpdateMyTicket lets the ticket owner append to the thread.
func (s *Server) UpdateMyTicket(c *gin.Context) {
	var req ticketReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	id := c.Param("id")
	ticket, err := s.supportSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	userID, _ := authcontext.UserIDFromContext(c.Request.Context())
	if ticket.UserID != userID {
		AbortWithError(c, ErrForbidden)
		return
	}

	updated, err := s.supportSvc.Reply(c.Request.Context(), id, supportdomain.AuthorUser, req.Body)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, updated)
}

func (s *Server) AdminListTickets(c *gin.Context) {
	filter := supportdomain.ListFilter{
		Status:   supportdomain.TicketStatus(c.Query("status")),
		Priority: supportdomain.TicketPriority(c.Query("priority")),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a positive integer"))
			return
		}
		filter.Limit = limit
	}

	tickets, err := s.supportSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, tickets)
}

func (s *Server) AdminReplyTicket(c *gin.Context) {
	var req ticketReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ticket, err := s.supportSvc.Reply(c.Request.Context(), c.Param("id"), supportdomain.AuthorSupport, req.Body)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, ticket)
}

func (s *Server) AdminSetTicketStatus(c *gin.Context) {
	var req ticketStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ticket, err := s.supportSvc.UpdateStatus(c.Request.Context(), c.Param("id"), supportdomain.TicketStatus(req.Status))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if ticket.Status == supportdomain.StatusResolved {
		s.writeAdminAudit(c, auditdomain.ActionTicketResolved, "ticket", ticket.ID.String(), nil)
	}
	respond(c, http.StatusOK, ticket)
}

func (s *Server) TicketStats(c *gin.Context) {
	stats, err := s.supportSvc.Stats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}
