package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/ocelon/parking/internal/auth/token"
	"github.com/ocelon/parking/internal/authcontext"
	"github.com/ocelon/parking/internal/billing"
	sessiondomain "github.com/ocelon/parking/internal/session/domain"
	userdomain "github.com/ocelon/parking/internal/user/domain"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	issuer, err := token.NewIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	return &Server{
		issuer:  issuer,
		limiter: newRateLimiter(2, time.Minute),
	}
}

func issueToken(t *testing.T, s *Server, userID snowflake.ID, role string) string {
	t.Helper()
	raw, err := s.issuer.Issue(userID, "driver@example.com", role, time.Now().UTC())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return raw
}

func TestAuthRequiredRejectsMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := testServer(t)

	r := gin.New()
	r.GET("/secure", s.AuthRequired(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Success || body.Error.Code != "unauthorized" {
		t.Fatalf("unexpected envelope: %s", w.Body.String())
	}
}

func TestAuthRequiredLoadsCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := testServer(t)
	userID := snowflake.ID(42)

	r := gin.New()
	r.GET("/secure", s.AuthRequired(), func(c *gin.Context) {
		got, ok := authcontext.UserIDFromContext(c.Request.Context())
		if !ok || got != userID {
			t.Fatalf("expected user %d on context, got %d (ok=%v)", userID, got, ok)
		}
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, s, userID, "driver"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRequireAdminForbidsDrivers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := testServer(t)

	r := gin.New()
	r.GET("/admin", s.AuthRequired(), s.RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, s, snowflake.ID(7), "driver"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for driver, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, s, snowflake.ID(7), "admin"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for admin, got %d", w.Code)
	}
}

func TestAuthRateLimitCapsAttempts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := testServer(t)

	r := gin.New()
	r.POST("/login", s.authRateLimit(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusNoContent {
			t.Fatalf("attempt %d: expected 204, got %d", i+1, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", w.Code)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{sessiondomain.ErrNotFound, http.StatusNotFound},
		{sessiondomain.ErrNotActive, http.StatusConflict},
		{sessiondomain.ErrInvalidPlates, http.StatusBadRequest},
		{billing.ErrInvalidTaxRate, http.StatusBadRequest},
		{userdomain.ErrInvalidResetToken, http.StatusBadRequest},
		{token.ErrInvalidToken, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		status, code := errorStatus(tc.err)
		if status != tc.status {
			t.Errorf("%v: expected status %d, got %d", tc.err, tc.status, status)
		}
		if code != tc.err.Error() {
			t.Errorf("%v: expected code %q, got %q", tc.err, tc.err.Error(), code)
		}
	}
}
