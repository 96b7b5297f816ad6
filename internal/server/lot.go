package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/ocelon/parking/internal/audit/domain"
	"github.com/ocelon/parking/internal/authcontext"
	lotdomain "github.com/ocelon/parking/internal/lot/domain"
)

type createLotRequest struct {
	Name            string   `json:"name"`
	Address         string   `json:"address"`
	Latitude        float64  `json:"latitude"`
	Longitude       float64  `json:"longitude"`
	TotalSpots      int      `json:"total_spots"`
	HourlyRateCents int64    `json:"hourly_rate_cents"`
	OpenTime        string   `json:"open_time"`
	CloseTime       string   `json:"close_time"`
	Amenities       []string `json:"amenities"`
}

type updateLotRequest struct {
	Name            *string  `json:"name"`
	Address         *string  `json:"address"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	TotalSpots      *int     `json:"total_spots"`
	HourlyRateCents *int64   `json:"hourly_rate_cents"`
	OpenTime        *string  `json:"open_time"`
	CloseTime       *string  `json:"close_time"`
	Amenities       []string `json:"amenities"`
	Status          *string  `json:"status"`
}

type setOccupancyRequest struct {
	OccupiedSpots int `json:"occupied_spots"`
}

func (s *Server) ListLots(c *gin.Context) {
	lots, err := s.lotSvc.ListActive(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, lots)
}

func (s *Server) GetLot(c *gin.Context) {
	lot, err := s.lotSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, lot)
}

func (s *Server) NearbyLots(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	if latErr != nil || lngErr != nil {
		AbortWithError(c, newValidationError("lat", "invalid_coordinates", "lat and lng query parameters are required"))
		return
	}
	radius := 5.0
	if raw := c.Query("radius_km"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			AbortWithError(c, newValidationError("radius_km", "invalid_radius", "radius_km must be a positive number"))
			return
		}
		radius = parsed
	}

	lots, err := s.lotSvc.Nearby(c.Request.Context(), lotdomain.NearbyRequest{
		Latitude:  lat,
		Longitude: lng,
		RadiusKm:  radius,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, lots)
}

func (s *Server) AdminListLots(c *gin.Context) {
	lots, err := s.lotSvc.ListAll(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, lots)
}

func (s *Server) CreateLot(c *gin.Context) {
	var req createLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	lot, err := s.lotSvc.Create(c.Request.Context(), lotdomain.CreateLotRequest{
		Name:            req.Name,
		Address:         req.Address,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		TotalSpots:      req.TotalSpots,
		HourlyRateCents: req.HourlyRateCents,
		OpenTime:        req.OpenTime,
		CloseTime:       req.CloseTime,
		Amenities:       req.Amenities,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.writeAdminAudit(c, auditdomain.ActionLotCreated, "lot", lot.ID.String(), nil)
	respond(c, http.StatusCreated, lot)
}

func (s *Server) UpdateLot(c *gin.Context) {
	var req updateLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := lotdomain.UpdateLotRequest{
		Name:            req.Name,
		Address:         req.Address,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		TotalSpots:      req.TotalSpots,
		HourlyRateCents: req.HourlyRateCents,
		OpenTime:        req.OpenTime,
		CloseTime:       req.CloseTime,
		Amenities:       req.Amenities,
	}
	if req.Status != nil {
		status := lotdomain.LotStatus(*req.Status)
		update.Status = &status
	}

	id := c.Param("id")
	if err := s.lotSvc.Update(c.Request.Context(), id, update); err != nil {
		AbortWithError(c, err)
		return
	}

	lot, err := s.lotSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.writeAdminAudit(c, auditdomain.ActionLotUpdated, "lot", id, nil)
	respond(c, http.StatusOK, lot)
}

func (s *Server) DeactivateLot(c *gin.Context) {
	id := c.Param("id")
	if err := s.lotSvc.Deactivate(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.writeAdminAudit(c, auditdomain.ActionLotDeactivated, "lot", id, nil)
	respond(c, http.StatusOK, gin.H{"id": id, "status": lotdomain.LotStatusInactive})
}

func (s *Server) SetOccupancy(c *gin.Context) {
	var req setOccupancyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	lot, err := s.lotSvc.SetOccupancy(c.Request.Context(), c.Param("id"), req.OccupiedSpots)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.writeAdminAudit(c, auditdomain.ActionLotUpdated, "lot", lot.ID.String(), map[string]any{
		"occupied_spots": req.OccupiedSpots,
	})
	respond(c, http.StatusOK, lot)
}

// writeAdminAudit records an admin mutation; best-effort, never fails the
// request.
func (s *Server) writeAdminAudit(c *gin.Context, action, targetType, targetID string, metadata map[string]any) {
	ctx := c.Request.Context()
	actorID := ""
	if id, ok := authcontext.UserIDFromContext(ctx); ok {
		actorID = id.String()
	}
	s.auditSvc.Write(ctx, auditdomain.Record{
		ActorType:  auditdomain.ActorTypeAdmin,
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   metadata,
		IPAddress:  c.ClientIP(),
	})
}
