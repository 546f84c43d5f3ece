package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"appliance-billing-backend/internal/apperr"
	"appliance-billing-backend/internal/model"
)

type putSubscriptionRequest struct {
	Endpoint         string  `json:"endpoint" binding:"required"`
	P256DH           string  `json:"p256dh" binding:"required"`
	Auth             string  `json:"auth" binding:"required"`
	SubscribedStates []int64 `json:"subscribed_states"`
}

// PutSubscription creates or replaces a subscription and the appliance
// slots it follows.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	subscription := model.PushSubscription{
		Endpoint: req.Endpoint,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
	}

	err := h.store.DB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(&subscription).Error; err != nil {
			return err
		}

		var states []*model.EndpointApplianceState
		if len(req.SubscribedStates) > 0 {
			if err := tx.Find(&states, req.SubscribedStates).Error; err != nil {
				return err
			}
		}

		return tx.Model(&subscription).Association("States").Replace(&states)
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription removes a subscription. Its state mappings cascade.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.store.DB().WithContext(c.Request.Context()).
		Delete(&model.PushSubscription{Endpoint: req.Endpoint}).Error; err != nil {
		fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// rawQueryParam reads a query value without URL decoding; push endpoints
// are matched byte for byte.
func rawQueryParam(rawQuery, key string) (string, bool) {
	for _, kv := range strings.Split(rawQuery, "&") {
		if strings.HasPrefix(kv, key+"=") {
			return kv[len(key)+1:], true
		}
	}
	return "", false
}

// GetSubscription returns the state ids a subscription follows.
func (h *Handler) GetSubscription(c *gin.Context) {
	raw, ok := rawQueryParam(c.Request.URL.RawQuery, "endpoint")
	if !ok || raw == "" {
		badRequest(c, errors.New("endpoint is required"))
		return
	}

	var subscription model.PushSubscription
	if err := h.store.DB().WithContext(c.Request.Context()).
		Preload("States").
		First(&subscription, "endpoint = ?", raw).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = apperr.ErrNotFound
		}
		fail(c, err)
		return
	}

	stateIDs := make([]int64, len(subscription.States))
	for i, state := range subscription.States {
		stateIDs[i] = state.ID
	}

	c.JSON(http.StatusOK, gin.H{"subscribed_states": stateIDs})
}
