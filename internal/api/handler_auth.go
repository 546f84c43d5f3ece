package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"appliance-billing-backend/internal/metrics"
)

// Zero ids are legal input and fall through to the lookup.
type challengeRequest struct {
	RoomNum    *int64 `json:"room_num" binding:"required"`
	EndpointID *int64 `json:"endpoint_id" binding:"required"`
}

// Challenge handles POST /api/auth/challenge.
func (h *Handler) Challenge(c *gin.Context) {
	var req challengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	challenge, err := h.auth.Challenge(c.Request.Context(), *req.RoomNum, *req.EndpointID)
	metrics.AuthAttemptsTotal.WithLabelValues("challenge", metrics.Result(err)).Inc()
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": challenge})
}

type verifyRequest struct {
	Token    string `json:"token" binding:"required"`
	AuthCode *int   `json:"auth_code" binding:"required"`
}

type applianceResponse struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

type verifyResponse struct {
	Token      string              `json:"token"`
	Balance    int64               `json:"balance"`
	Appliances []applianceResponse `json:"appliances"`
}

// Verify handles POST /api/auth/verify.
func (h *Handler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.auth.Verify(c.Request.Context(), req.Token, *req.AuthCode)
	metrics.AuthAttemptsTotal.WithLabelValues("verify", metrics.Result(err)).Inc()
	if err != nil {
		fail(c, err)
		return
	}

	appliances := make([]applianceResponse, len(res.Appliances))
	for i, a := range res.Appliances {
		appliances[i] = applianceResponse{Name: a.Name, Value: a.PricePerUnit}
	}
	c.JSON(http.StatusOK, verifyResponse{
		Token:      res.AccessToken,
		Balance:    res.Balance,
		Appliances: appliances,
	})
}
