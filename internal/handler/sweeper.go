package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/service"
)

// SweeperHandler exposes the maintenance passes on internal endpoints,
// guarded by a shared secret so only the scheduler can invoke them.
type SweeperHandler struct {
	sweeper *service.SweeperService
	secret  string
}

// NewSweeperHandler creates a new SweeperHandler.
func NewSweeperHandler(sweeper *service.SweeperService, secret string) *SweeperHandler {
	return &SweeperHandler{sweeper: sweeper, secret: secret}
}

// SweepResponse is the HTTP representation of a sweep outcome.
type SweepResponse struct {
	OffersExpired int64 `json:"offers_expired"`
	RidesRematch  int   `json:"rides_rematched"`
	RidesStranded int   `json:"rides_stranded"`
}

func (h *SweeperHandler) authorized(c *gin.Context) bool {
	token := c.GetHeader("X-Sweep-Token")
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) != 1 {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "invalid sweep token"})
		return false
	}
	return true
}

// SweepOffers handles POST /internal/sweep/offers
func (h *SweeperHandler) SweepOffers(c *gin.Context) {
	if !h.authorized(c) {
		return
	}
	result, err := h.sweeper.ExpireStaleOffers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, SweepResponse{
		OffersExpired: result.OffersExpired,
		RidesRematch:  result.RidesRematch,
		RidesStranded: result.RidesStranded,
	})
}

// SweepScheduled handles POST /internal/sweep/scheduled
func (h *SweeperHandler) SweepScheduled(c *gin.Context) {
	if !h.authorized(c) {
		return
	}
	result, err := h.sweeper.TriggerScheduledRides(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, SweepResponse{
		RidesRematch:  result.RidesRematch,
		RidesStranded: result.RidesStranded,
	})
}
