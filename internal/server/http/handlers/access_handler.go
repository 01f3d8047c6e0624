package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/coursepay/coursepay/internal/domain/errors"
	"github.com/coursepay/coursepay/internal/server/http/dto"
)

// AccessHandler answers event access checks.
type AccessHandler struct {
	facade AccessFacade
}

// NewAccessHandler constructs AccessHandler.
func NewAccessHandler(facade AccessFacade) *AccessHandler {
	return &AccessHandler{facade: facade}
}

// Check handles GET /api/user/events/:id/access.
func (h *AccessHandler) Check(c *gin.Context) {
	userID := CurrentUserID(c)
	eventID := c.Param("id")

	decision, err := h.facade.EventAccess(c.Request.Context(), userID, eventID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, dto.AccessResponse{
		HasAccess:        decision.HasAccess,
		RequiresPurchase: decision.RequiresPurchase,
		Reason:           string(decision.Reason),
	})
}
