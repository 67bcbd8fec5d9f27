package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// PaymentHandler handles HTTP requests for ride payments.
type PaymentHandler struct {
	settlement  *service.SettlementService
	paymentRepo repository.PaymentRepository
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(settlement *service.SettlementService, paymentRepo repository.PaymentRepository) *PaymentHandler {
	return &PaymentHandler{settlement: settlement, paymentRepo: paymentRepo}
}

// PaymentResponse is the HTTP representation of a ride payment.
type PaymentResponse struct {
	ID                string  `json:"id"`
	RideID            string  `json:"ride_id"`
	AmountTotal       float64 `json:"amount_total"`
	WalletAmountUsed  float64 `json:"wallet_amount_used"`
	CardAmountCharged float64 `json:"card_amount_charged"`
	ProviderChargeID  string  `json:"provider_charge_id,omitempty"`
	Status            string  `json:"status"`
	FailureReason     string  `json:"failure_reason,omitempty"`
}

func paymentResponse(p *domain.RidePayment) PaymentResponse {
	resp := PaymentResponse{
		ID:                p.ID,
		RideID:            p.RideID,
		AmountTotal:       p.AmountTotal,
		WalletAmountUsed:  p.WalletAmountUsed,
		CardAmountCharged: p.CardAmountCharged,
		Status:            string(p.Status),
		FailureReason:     p.FailureReason,
	}
	if p.ProviderChargeID != nil {
		resp.ProviderChargeID = *p.ProviderChargeID
	}
	return resp
}

// GetPayment handles GET /v1/rides/:id/payment
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.paymentRepo.GetByRideID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, paymentResponse(payment))
}

// RetryCharge handles POST /v1/rides/:id/payment/retry
func (h *PaymentHandler) RetryCharge(c *gin.Context) {
	payment, err := h.settlement.RetryCharge(c.Request.Context(), c.Param("id"))
	if err != nil {
		// A failed charge still produced a payment row worth returning.
		if errors.Is(err, service.ErrChargeFailed) && payment != nil {
			respondJSON(c, http.StatusPaymentRequired, paymentResponse(payment))
			return
		}
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, paymentResponse(payment))
}
