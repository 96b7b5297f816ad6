package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/ocelon/parking/internal/audit/domain"
	"github.com/ocelon/parking/internal/authcontext"
	paymentdomain "github.com/ocelon/parking/internal/payment/domain"
	userdomain "github.com/ocelon/parking/internal/user/domain"
)

type processPaymentRequest struct {
	SessionID string `json:"session_id"`
	Method    string `json:"method"`
}

type invoiceRequestBody struct {
	TaxID        string `json:"tax_id"`
	BusinessName string `json:"business_name"`
	CFDIUse      string `json:"cfdi_use"`
}

func (s *Server) ProcessPayment(c *gin.Context) {
	userID, ok := authcontext.UserIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req processPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	receipt, err := s.paymentSvc.Process(c.Request.Context(), paymentdomain.ProcessRequest{
		SessionID: req.SessionID,
		UserID:    userID,
		Method:    req.Method,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Write(c.Request.Context(), auditdomain.Record{
		ActorType:  auditdomain.ActorTypeUser,
		ActorID:    userID.String(),
		Action:     auditdomain.ActionSessionPaid,
		TargetType: "payment",
		TargetID:   receipt.PaymentID.String(),
		Metadata:   map[string]any{"total_cents": receipt.TotalCents},
		IPAddress:  c.ClientIP(),
	})

	respond(c, http.StatusCreated, receipt)
}

func (s *Server) ListMyPayments(c *gin.Context) {
	ctx := c.Request.Context()
	userID, ok := authcontext.UserIDFromContext(ctx)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if sessionID := c.Query("session_id"); sessionID != "" {
		payments, err := s.paymentSvc.ListBySession(ctx, sessionID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		// Drivers only see their own payments.
		if authcontext.RoleFromContext(ctx) != string(userdomain.RoleAdmin) {
			filtered := payments[:0]
			for _, p := range payments {
				if p.UserID == userID {
					filtered = append(filtered, p)
				}
			}
			payments = filtered
		}
		respond(c, http.StatusOK, payments)
		return
	}

	payments, err := s.paymentSvc.ListByUser(ctx, userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, payments)
}

func (s *Server) GetPayment(c *gin.Context) {
	payment, err := s.paymentSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	userID, _ := authcontext.UserIDFromContext(ctx)
	if payment.UserID != userID && authcontext.RoleFromContext(ctx) != string(userdomain.RoleAdmin) {
		AbortWithError(c, ErrForbidden)
		return
	}

	respond(c, http.StatusOK, payment)
}

func (s *Server) RequestInvoice(c *gin.Context) {
	userID, ok := authcontext.UserIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req invoiceRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	invoice, err := s.paymentSvc.RequestInvoice(c.Request.Context(), paymentdomain.InvoiceRequestInput{
		PaymentID:    c.Param("id"),
		UserID:       userID,
		TaxID:        req.TaxID,
		BusinessName: req.BusinessName,
		CFDIUse:      req.CFDIUse,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusCreated, invoice)
}

// RevenueSummary reports completed payments over [from, to); defaults to the
// current calendar month.
func (s *Server) RevenueSummary(c *gin.Context) {
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			AbortWithError(c, newValidationError("from", "invalid_date", "from must be formatted YYYY-MM-DD"))
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			AbortWithError(c, newValidationError("to", "invalid_date", "to must be formatted YYYY-MM-DD"))
			return
		}
		to = parsed
	}

	summary, err := s.paymentSvc.Summary(c.Request.Context(), from, to)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"from":    from.Format("2006-01-02"),
		"to":      to.Format("2006-01-02"),
		"summary": summary,
	})
}
