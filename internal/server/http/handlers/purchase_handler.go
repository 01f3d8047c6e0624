package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coursepay/coursepay/internal/adapter/gateway"
	domainErrors "github.com/coursepay/coursepay/internal/domain/errors"
	"github.com/coursepay/coursepay/internal/domain/model"
	"github.com/coursepay/coursepay/internal/server/http/dto"
)

// PurchaseHandler manages purchase history and refund endpoints.
type PurchaseHandler struct {
	facade PurchaseFacade
}

// NewPurchaseHandler constructs PurchaseHandler.
func NewPurchaseHandler(facade PurchaseFacade) *PurchaseHandler {
	return &PurchaseHandler{facade: facade}
}

// List handles GET /api/user/purchases.
func (h *PurchaseHandler) List(c *gin.Context) {
	userID := CurrentUserID(c)
	purchases, err := h.facade.Purchases(c.Request.Context(), userID)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	if len(purchases) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	response := make([]dto.PurchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		response = append(response, toPurchaseResponse(p))
	}

	c.JSON(http.StatusOK, response)
}

// Refund handles POST /api/user/purchases/:id/refund.
func (h *PurchaseHandler) Refund(c *gin.Context) {
	userID := CurrentUserID(c)
	purchaseID := c.Param("id")

	if err := h.facade.RequestRefund(c.Request.Context(), userID, purchaseID); err != nil {
		var gwErr *gateway.Error
		switch {
		case errors.Is(err, domainErrors.ErrNotFound):
			c.Status(http.StatusNotFound)
		case errors.Is(err, domainErrors.ErrForbidden):
			c.Status(http.StatusForbidden)
		case errors.Is(err, domainErrors.ErrNotCompleted):
			c.Status(http.StatusUnprocessableEntity)
		case errors.As(err, &gwErr):
			c.Status(http.StatusBadGateway)
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.Status(http.StatusAccepted)
}

func toPurchaseResponse(p model.Purchase) dto.PurchaseResponse {
	return dto.PurchaseResponse{
		ID:                  p.ID,
		Kind:                string(p.Kind),
		TargetID:            p.TargetID(),
		OrderNumber:         p.OrderNumber,
		FullPrice:           p.FullPrice,
		FinalPrice:          p.FinalPrice,
		PromoCode:           p.PromoCode,
		Status:              string(p.Status),
		RefundFailureReason: p.RefundFailureReason,
		CreatedAt:           p.CreatedAt,
		RefundedAt:          p.RefundedAt,
	}
}
