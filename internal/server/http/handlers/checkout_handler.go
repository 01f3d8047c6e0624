package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coursepay/coursepay/internal/adapter/gateway"
	domainErrors "github.com/coursepay/coursepay/internal/domain/errors"
	"github.com/coursepay/coursepay/internal/domain/model"
	"github.com/coursepay/coursepay/internal/lock"
	"github.com/coursepay/coursepay/internal/server/http/dto"
	"github.com/coursepay/coursepay/internal/usecase"
)

// CheckoutHandler manages checkout session endpoints.
type CheckoutHandler struct {
	facade CheckoutFacade
}

// NewCheckoutHandler constructs CheckoutHandler.
func NewCheckoutHandler(facade CheckoutFacade) *CheckoutHandler {
	return &CheckoutHandler{facade: facade}
}

// Create handles POST /api/user/checkout.
func (h *CheckoutHandler) Create(c *gin.Context) {
	userID := CurrentUserID(c)

	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	if req.TargetID == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	result, err := h.facade.CreateCheckout(c.Request.Context(), userID, usecase.CheckoutInput{
		Kind:      model.PurchaseKind(req.Kind),
		TargetID:  req.TargetID,
		PromoCode: req.PromoCode,
		ClassRep:  req.ClassRep,
	})
	if err != nil {
		c.Status(checkoutErrorStatus(err))
		return
	}

	c.JSON(http.StatusCreated, toCheckoutResponse(result))
}

// Retry handles POST /api/user/checkout/:id/retry.
func (h *CheckoutHandler) Retry(c *gin.Context) {
	userID := CurrentUserID(c)
	purchaseID := c.Param("id")

	result, err := h.facade.RetryCheckout(c.Request.Context(), userID, purchaseID)
	if err != nil {
		c.Status(checkoutErrorStatus(err))
		return
	}

	c.JSON(http.StatusCreated, toCheckoutResponse(result))
}

func checkoutErrorStatus(err error) int {
	var gwErr *gateway.Error
	switch {
	case errors.Is(err, domainErrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domainErrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domainErrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainErrors.ErrAlreadyPurchased), errors.Is(err, lock.ErrLockTimeout):
		return http.StatusConflict
	case errors.Is(err, domainErrors.ErrFreeItem),
		errors.Is(err, domainErrors.ErrPromoNotApplicable),
		errors.Is(err, domainErrors.ErrPriceBelowMinimum),
		errors.Is(err, domainErrors.ErrNotPending):
		return http.StatusUnprocessableEntity
	case errors.As(err, &gwErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func toCheckoutResponse(result *usecase.CheckoutResult) dto.CheckoutResponse {
	return dto.CheckoutResponse{
		PurchaseID:  result.PurchaseID,
		OrderNumber: result.OrderNumber,
		SessionID:   result.SessionID,
		SessionURL:  result.SessionURL,
	}
}
