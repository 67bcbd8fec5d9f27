package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	rideService *service.RideService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rideService *service.RideService) *RideHandler {
	return &RideHandler{rideService: rideService}
}

// CreateRideRequest is the HTTP request body for creating a ride.
type CreateRideRequest struct {
	RiderID        string     `json:"rider_id"`
	PickupAddress  string     `json:"pickup_address"`
	DropoffAddress string     `json:"dropoff_address"`
	RideType       string     `json:"ride_type,omitempty"` // REGULAR, XL, PREMIUM, POOL
	PreferKin      bool       `json:"prefer_kin,omitempty"`
	ScheduledAt    *time.Time `json:"scheduled_at,omitempty"`
}

// TransitionRequest is the HTTP request body for a status transition.
type TransitionRequest struct {
	ActorID string `json:"actor_id"`
	Status  string `json:"status"`
}

// CancelRideRequest is the HTTP request body for cancelling a ride.
type CancelRideRequest struct {
	ActorID string `json:"actor_id"`
	Reason  string `json:"reason,omitempty"`
}

// RideResponse is the HTTP representation of a ride.
type RideResponse struct {
	ID             string   `json:"id"`
	RiderID        string   `json:"rider_id"`
	DriverID       string   `json:"driver_id,omitempty"`
	PickupAddress  string   `json:"pickup_address"`
	DropoffAddress string   `json:"dropoff_address"`
	RideType       string   `json:"ride_type"`
	Status         string   `json:"status"`
	EstimatedFare  *float64 `json:"estimated_fare"`
	PlatformFee    *float64 `json:"platform_fee,omitempty"`
	IsKinRide      bool     `json:"is_kin_ride"`
	ScheduledAt    string   `json:"scheduled_at,omitempty"`
	MatchRounds    int      `json:"match_rounds"`
	CancelReason   string   `json:"cancel_reason,omitempty"`
	OffersCreated  int      `json:"offers_created,omitempty"`
	PaymentStatus  string   `json:"payment_status,omitempty"`
	PaymentError   string   `json:"payment_error,omitempty"`
}

func rideResponse(ride *domain.Ride) RideResponse {
	resp := RideResponse{
		ID:             ride.ID,
		RiderID:        ride.RiderID,
		DriverID:       ride.DriverID,
		PickupAddress:  ride.PickupAddress,
		DropoffAddress: ride.DropoffAddress,
		RideType:       string(ride.RideType),
		Status:         string(ride.Status),
		EstimatedFare:  ride.EstimatedFare,
		PlatformFee:    ride.PlatformFee,
		IsKinRide:      ride.IsKinRide,
		MatchRounds:    ride.MatchRounds,
		CancelReason:   ride.CancelReason,
	}
	if ride.ScheduledAt != nil {
		resp.ScheduledAt = ride.ScheduledAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// CreateRide handles POST /v1/rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	rideType := req.RideType
	if rideType == "" {
		rideType = string(domain.RideTypeRegular)
	}

	result, err := h.rideService.CreateRide(c.Request.Context(), service.CreateRideRequest{
		RiderID:        req.RiderID,
		PickupAddress:  req.PickupAddress,
		DropoffAddress: req.DropoffAddress,
		RideType:       domain.RideType(rideType),
		PreferKin:      req.PreferKin,
		ScheduledAt:    req.ScheduledAt,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := rideResponse(result.Ride)
	resp.OffersCreated = result.OffersCreated
	respondJSON(c, http.StatusCreated, resp)
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.rideService.GetRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, rideResponse(ride))
}

// Transition handles POST /v1/rides/:id/status
func (h *RideHandler) Transition(c *gin.Context) {
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.rideService.Transition(c.Request.Context(), service.TransitionRequest{
		RideID:  c.Param("id"),
		ActorID: req.ActorID,
		Target:  domain.RideStatus(req.Status),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := rideResponse(result.Ride)
	if result.Payment != nil {
		resp.PaymentStatus = string(result.Payment.Status)
	}
	if result.PaymentError != nil {
		resp.PaymentError = result.PaymentError.Error()
	}
	respondJSON(c, http.StatusOK, resp)
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	var req CancelRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.rideService.Transition(c.Request.Context(), service.TransitionRequest{
		RideID:       c.Param("id"),
		ActorID:      req.ActorID,
		Target:       domain.RideStatusCanceled,
		CancelReason: req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, rideResponse(result.Ride))
}
