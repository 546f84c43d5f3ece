package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"appliance-billing-backend/internal/appliance"
)

type startRequest struct {
	Token         string `json:"token" binding:"required"`
	ApplianceName string `json:"appliance_name" binding:"required"`
	Units         int64  `json:"units" binding:"required,min=1,max=14400"`
	Price         int64  `json:"price" binding:"required,min=1,max=9999"`
}

// StartAppliance handles POST /api/appliance/start.
func (h *Handler) StartAppliance(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.runs.Start(c.Request.Context(), appliance.StartRequest{
		Token:         req.Token,
		ApplianceName: req.ApplianceName,
		Units:         req.Units,
		Price:         req.Price,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"newbalance": res.Balance, "token": res.Token})
}

type finishRequest struct {
	Token   string `json:"token" binding:"required"`
	Units   int64  `json:"units" binding:"required,min=1,max=14400"`
	Price   int64  `json:"price" binding:"required,min=1,max=9999"`
	Aborted bool   `json:"aborted"`
}

// FinishAppliance handles POST /api/appliance/finish. The appliance and
// endpoint are taken from the session token, never from the body.
func (h *Handler) FinishAppliance(c *gin.Context) {
	var req finishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if _, err := h.runs.Finish(c.Request.Context(), appliance.FinishRequest{
		Token:   req.Token,
		Units:   req.Units,
		Price:   req.Price,
		Aborted: req.Aborted,
	}); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "finished"})
}

// ListAppliances handles GET /api/appliances.
func (h *Handler) ListAppliances(c *gin.Context) {
	list, err := h.store.ListAppliances(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	resp := make([]applianceResponse, len(list))
	for i, a := range list {
		resp[i] = applianceResponse{Name: a.Name, Value: a.PricePerUnit}
	}
	c.JSON(http.StatusOK, resp)
}

type priceRequest struct {
	Value int64 `json:"value" binding:"required,min=1,max=9999"`
}

// SetAppliancePrice handles PUT /api/appliances/:name.
func (h *Handler) SetAppliancePrice(c *gin.Context) {
	var req priceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	name := c.Param("name")
	if err := h.store.SetAppliancePrice(c.Request.Context(), name, req.Value); err != nil {
		fail(c, err)
		return
	}

	log.Info().Str("appliance", name).Int64("price_per_unit", req.Value).Msg("appliance price changed")
	c.JSON(http.StatusOK, applianceResponse{Name: name, Value: req.Value})
}
