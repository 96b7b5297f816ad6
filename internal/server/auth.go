package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/ocelon/parking/internal/audit/domain"
	"github.com/ocelon/parking/internal/authcontext"
	userdomain "github.com/ocelon/parking/internal/user/domain"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	TaxID    string `json:"tax_id"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type authResponse struct {
	User  *userdomain.User `json:"user"`
	Token string           `json:"token"`
}

func (s *Server) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.userSvc.Register(c.Request.Context(), userdomain.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
		TaxID:    req.TaxID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Write(c.Request.Context(), auditdomain.Record{
		ActorType:  auditdomain.ActorTypeUser,
		ActorID:    result.User.ID.String(),
		Action:     "user.registered",
		TargetType: "user",
		TargetID:   result.User.ID.String(),
		IPAddress:  c.ClientIP(),
	})

	respond(c, http.StatusCreated, authResponse{User: result.User, Token: result.Token})
}

func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.userSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, authResponse{User: result.User, Token: result.Token})
}

// ForgotPassword issues a reset token. The response is identical whether the
// email exists or not; the token travels through the delivery channel, never
// this response.
func (s *Server) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if _, err := s.userSvc.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"message": "if the account exists, reset instructions have been sent",
	})
}

// VerifyResetToken lets the reset form validate a token before prompting for
// the new password.
func (s *Server) VerifyResetToken(c *gin.Context) {
	email, err := s.userSvc.VerifyResetToken(c.Request.Context(), c.Query("token"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"email": email})
}

func (s *Server) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.userSvc.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "password updated"})
}

// Logout acknowledges the client dropping its token. Bearer tokens are
// stateless; invalidating one server-side would need a denylist.
func (s *Server) Logout(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{"message": "logged out"})
}

// Verify echoes the authenticated user so clients can validate a stored token.
func (s *Server) Verify(c *gin.Context) {
	userID, ok := authcontext.UserIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	user, err := s.userSvc.GetByID(c.Request.Context(), userID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}
