package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/ocelon/parking/internal/audit/domain"
	"github.com/ocelon/parking/internal/authcontext"
	userdomain "github.com/ocelon/parking/internal/user/domain"
)

type purchasePlanRequest struct {
	Plan string `json:"plan"`
}

type updateProfileRequest struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	TaxID    *string `json:"tax_id"`
}

type setRoleRequest struct {
	Role string `json:"role"`
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) ListPlans(c *gin.Context) {
	respond(c, http.StatusOK, s.planSvc.List(c.Request.Context()))
}

func (s *Server) PurchasePlan(c *gin.Context) {
	userID, ok := authcontext.UserIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req purchasePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	purchase, err := s.planSvc.Purchase(c.Request.Context(), userID, req.Plan)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Write(c.Request.Context(), auditdomain.Record{
		ActorType:  auditdomain.ActorTypeUser,
		ActorID:    userID.String(),
		Action:     auditdomain.ActionPlanPurchased,
		TargetType: "plan_purchase",
		TargetID:   purchase.ID.String(),
		Metadata:   map[string]any{"plan": req.Plan},
		IPAddress:  c.ClientIP(),
	})

	respond(c, http.StatusCreated, purchase)
}

func (s *Server) GetUser(c *gin.Context) {
	id := c.Param("id")
	if !s.canAccessUser(c, id) {
		AbortWithError(c, ErrForbidden)
		return
	}

	user, err := s.userSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

func (s *Server) UpdateProfile(c *gin.Context) {
	id := c.Param("id")
	if !s.canAccessUser(c, id) {
		AbortWithError(c, ErrForbidden)
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	userID, ok := authcontext.UserIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	target := userID
	if authcontext.RoleFromContext(c.Request.Context()) == string(userdomain.RoleAdmin) {
		resolved, err := s.userSvc.GetByID(c.Request.Context(), id)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		target = resolved.ID
	}

	user, err := s.userSvc.UpdateProfile(c.Request.Context(), target, userdomain.UpdateProfileRequest{
		FullName: req.FullName,
		Phone:    req.Phone,
		TaxID:    req.TaxID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

// UserHistory lists the caller's (or, for admins, any user's) sessions.
func (s *Server) UserHistory(c *gin.Context) {
	id := c.Param("id")
	if !s.canAccessUser(c, id) {
		AbortWithError(c, ErrForbidden)
		return
	}

	user, err := s.userSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	sessions, err := s.sessionSvc.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, sessions)
}

func (s *Server) AdminListUsers(c *gin.Context) {
	users, err := s.userSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, users)
}

func (s *Server) SetUserRole(c *gin.Context) {
	var req setRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	id := c.Param("id")
	if err := s.userSvc.SetRole(c.Request.Context(), id, userdomain.Role(req.Role)); err != nil {
		AbortWithError(c, err)
		return
	}

	s.writeAdminAudit(c, auditdomain.ActionUserRoleChanged, "user", id, map[string]any{"role": req.Role})
	respond(c, http.StatusOK, gin.H{"id": id, "role": req.Role})
}

func (s *Server) SetUserStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	id := c.Param("id")
	if err := s.userSvc.SetStatus(c.Request.Context(), id, userdomain.UserStatus(req.Status)); err != nil {
		AbortWithError(c, err)
		return
	}

	s.writeAdminAudit(c, "user.status_changed", "user", id, map[string]any{"status": req.Status})
	respond(c, http.StatusOK, gin.H{"id": id, "status": req.Status})
}

// canAccessUser allows callers to touch their own record and admins to touch
// anyone's.
func (s *Server) canAccessUser(c *gin.Context, id string) bool {
	ctx := c.Request.Context()
	if authcontext.RoleFromContext(ctx) == string(userdomain.RoleAdmin) {
		return true
	}
	userID, ok := authcontext.UserIDFromContext(ctx)
	return ok && userID.String() == id
}
