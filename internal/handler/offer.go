package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// OfferHandler handles HTTP requests for offer resolution.
type OfferHandler struct {
	offerService *service.OfferService
}

// NewOfferHandler creates a new OfferHandler.
func NewOfferHandler(offerService *service.OfferService) *OfferHandler {
	return &OfferHandler{offerService: offerService}
}

// OfferActionRequest is the HTTP request body for accepting or declining.
type OfferActionRequest struct {
	DriverID string `json:"driver_id"`
}

// OfferResponse is the HTTP representation of an offer.
type OfferResponse struct {
	ID        string `json:"id"`
	RideID    string `json:"ride_id"`
	DriverID  string `json:"driver_id"`
	Status    string `json:"status"`
	OfferedAt string `json:"offered_at"`
	ExpiresAt string `json:"expires_at"`
}

func offerResponse(offer *domain.Offer) OfferResponse {
	return OfferResponse{
		ID:        offer.ID,
		RideID:    offer.RideID,
		DriverID:  offer.DriverID,
		Status:    string(offer.Status),
		OfferedAt: offer.OfferedAt.UTC().Format(time.RFC3339),
		ExpiresAt: offer.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// Accept handles POST /v1/rides/:id/accept
func (h *OfferHandler) Accept(c *gin.Context) {
	var req OfferActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.offerService.Accept(c.Request.Context(), c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, rideResponse(ride))
}

// Decline handles POST /v1/rides/:id/decline
func (h *OfferHandler) Decline(c *gin.Context) {
	var req OfferActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.offerService.Decline(c.Request.Context(), c.Param("id"), req.DriverID); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"status": "declined"})
}

// ListForRide handles GET /v1/rides/:id/offers
func (h *OfferHandler) ListForRide(c *gin.Context) {
	offers, err := h.offerService.ListForRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]OfferResponse, 0, len(offers))
	for _, offer := range offers {
		response = append(response, offerResponse(offer))
	}
	respondJSON(c, http.StatusOK, response)
}

// ListForDriver handles GET /v1/drivers/:id/offers
func (h *OfferHandler) ListForDriver(c *gin.Context) {
	offers, err := h.offerService.ListPendingForDriver(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]OfferResponse, 0, len(offers))
	for _, offer := range offers {
		response = append(response, offerResponse(offer))
	}
	respondJSON(c, http.StatusOK, response)
}
