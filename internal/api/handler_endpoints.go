package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RotateEndpointToken handles POST /api/endpoints/:endpoint_id/rotate.
func (h *Handler) RotateEndpointToken(c *gin.Context) {
	endpointID, err := strconv.ParseInt(c.Param("endpoint_id"), 10, 64)
	if err != nil || endpointID <= 0 {
		badRequest(c, err)
		return
	}

	version, err := h.store.RotateEndpointToken(c.Request.Context(), endpointID)
	if err != nil {
		fail(c, err)
		return
	}

	log.Info().Int64("endpoint_id", endpointID).Msg("endpoint token rotated")
	c.JSON(http.StatusOK, gin.H{"endpoint_id": endpointID, "token_version": version})
}
