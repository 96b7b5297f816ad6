package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/ocelon/parking/internal/audit/domain"
	"github.com/ocelon/parking/internal/authcontext"
	sessiondomain "github.com/ocelon/parking/internal/session/domain"
	userdomain "github.com/ocelon/parking/internal/user/domain"
)

type startSessionRequest struct {
	LotID         string `json:"lot_id"`
	VehiclePlates string `json:"vehicle_plates"`
	Source        string `json:"source"`
}

func (s *Server) StartSession(c *gin.Context) {
	userID, ok := authcontext.UserIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	session, err := s.sessionSvc.Start(c.Request.Context(), sessiondomain.StartRequest{
		UserID:        userID,
		LotID:         req.LotID,
		VehiclePlates: req.VehiclePlates,
		Source:        req.Source,
		ClientIP:      c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Write(c.Request.Context(), auditdomain.Record{
		ActorType:  auditdomain.ActorTypeUser,
		ActorID:    userID.String(),
		Action:     auditdomain.ActionSessionStarted,
		TargetType: "session",
		TargetID:   session.ID.String(),
		Metadata:   map[string]any{"lot_id": session.LotID.String()},
		IPAddress:  c.ClientIP(),
	})

	respond(c, http.StatusCreated, session)
}

func (s *Server) ListMySessions(c *gin.Context) {
	userID, ok := authcontext.UserIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	sessions, err := s.sessionSvc.ListByUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, sessions)
}

func (s *Server) GetSession(c *gin.Context) {
	session, err := s.sessionSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// Drivers only see their own sessions; admins see everything.
	ctx := c.Request.Context()
	userID, _ := authcontext.UserIDFromContext(ctx)
	if session.UserID != userID && authcontext.RoleFromContext(ctx) != string(userdomain.RoleAdmin) {
		AbortWithError(c, ErrForbidden)
		return
	}

	respond(c, http.StatusOK, session)
}

// ValidateExit finalizes a paid session at the exit gate.
func (s *Server) ValidateExit(c *gin.Context) {
	session, err := s.sessionSvc.ValidateExit(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	userID, _ := authcontext.UserIDFromContext(c.Request.Context())
	s.auditSvc.Write(c.Request.Context(), auditdomain.Record{
		ActorType:  auditdomain.ActorTypeUser,
		ActorID:    userID.String(),
		Action:     auditdomain.ActionSessionFinalized,
		TargetType: "session",
		TargetID:   session.ID.String(),
		IPAddress:  c.ClientIP(),
	})

	respond(c, http.StatusOK, session)
}

func (s *Server) AdminListActiveSessions(c *gin.Context) {
	sessions, err := s.sessionSvc.ListActive(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, sessions)
}

func (s *Server) CancelSession(c *gin.Context) {
	session, err := s.sessionSvc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.writeAdminAudit(c, auditdomain.ActionSessionCancelled, "session", session.ID.String(), nil)
	respond(c, http.StatusOK, session)
}
