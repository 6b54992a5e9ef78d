package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tumainiaid/reporting-api/internal/dto"
	appErrors "github.com/tumainiaid/reporting-api/pkg/errors"
	"github.com/tumainiaid/reporting-api/pkg/response"
)

type sponsorService interface {
	RequestUpdate(ctx context.Context, sponsorID string) (*dto.SponsorUpdateRequestResponse, error)
}

// SponsorHandler exposes sponsor-facing endpoints.
type SponsorHandler struct {
	service sponsorService
}

// NewSponsorHandler constructs the handler.
func NewSponsorHandler(service sponsorService) *SponsorHandler {
	return &SponsorHandler{service: service}
}

// RequestUpdate godoc
// @Summary Request an out-of-cycle update for a sponsored child
// @Tags Sponsors
// @Produce json
// @Param id path string true "Sponsor ID"
// @Success 200 {object} response.Envelope
// @Router /sponsors/{id}/update-requests [post]
func (h *SponsorHandler) RequestUpdate(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "sponsor service not configured"))
		return
	}
	result, err := h.service.RequestUpdate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if result.Requested {
		status = http.StatusAccepted
	}
	response.JSON(c, status, result, nil)
}
