package analyses

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"biolens-backend/internal/credits"
	"biolens-backend/internal/samples"
	"biolens-backend/internal/shared/server/middleware"
	"biolens-backend/internal/shared/server/respond"
)

// Handler serves analysis endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates an analysis handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type startRequest struct {
	SampleType     string `json:"sampleType"`
	CollectionDate string `json:"collectionDate"`
	Location       string `json:"location"`
	Notes          string `json:"notes"`
}

// Start handles POST /api/v1/samples/:id/analyze.
func (h *Handler) Start(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}

	var body startRequest
	// The body is optional; an empty body starts a plain analysis.
	_ = c.ShouldBindJSON(&body)

	a, err := h.svc.Start(c.Request.Context(), userID, c.Param("id"), StartOptions{
		SampleType:     body.SampleType,
		CollectionDate: body.CollectionDate,
		Location:       body.Location,
		Notes:          body.Notes,
		RequestID:      c.GetString("requestId"),
	})
	if err != nil {
		switch {
		case errors.Is(err, samples.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "Sample not found", nil)
		case errors.Is(err, credits.ErrInsufficientCredits):
			respond.Error(c, http.StatusPaymentRequired, "insufficient_credits", "You need at least one credit to run an analysis", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to start analysis", nil)
		}
		return
	}

	respond.Accepted(c, gin.H{
		"analysisId": a.ID,
		"status":     a.Status,
	})
}

// Get handles GET /api/v1/analyses/:id.
func (h *Handler) Get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}

	a, err := h.svc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Analysis not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to fetch analysis", nil)
		return
	}

	respond.OK(c, presentAnalysis(a))
}

// List handles GET /api/v1/analyses.
func (h *Handler) List(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	list, err := h.svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to list analyses", nil)
		return
	}

	out := make([]gin.H, 0, len(list))
	for _, a := range list {
		out = append(out, presentAnalysis(a))
	}
	respond.OK(c, gin.H{"analyses": out})
}

func presentAnalysis(a *Analysis) gin.H {
	out := gin.H{
		"id":        a.ID,
		"sampleId":  a.SampleID,
		"status":    a.Status,
		"createdAt": a.CreatedAt,
	}
	if a.SampleType != "" {
		out["sampleType"] = a.SampleType
	}
	if a.QualityReport != nil {
		out["qualityReport"] = a.QualityReport
	}
	if a.CompletedAt != nil {
		out["completedAt"] = a.CompletedAt
	}

	switch a.Status {
	case StatusCompleted:
		out["result"] = a.Result
		out["overallUrgency"] = a.OverallUrgency
		out["provider"] = a.Provider
	case StatusFailed:
		out["error"] = gin.H{
			"code":           a.ErrorCode,
			"message":        a.ErrorMessage,
			"retryable":      a.ErrorRetryable,
			"creditRefunded": true,
		}
	}
	return out
}
