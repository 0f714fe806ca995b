package credits

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"biolens-backend/internal/shared/server/middleware"
	"biolens-backend/internal/shared/server/respond"
)

// Handler serves credit balance endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a credit handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// GetBalance handles GET /api/v1/credits.
func (h *Handler) GetBalance(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}

	b, err := h.svc.Balance(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to fetch balance", nil)
		return
	}

	respond.OK(c, gin.H{
		"balance":   b.Balance,
		"updatedAt": b.UpdatedAt,
	})
}
