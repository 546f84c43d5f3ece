package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"appliance-billing-backend/internal/apperr"
	"appliance-billing-backend/internal/appliance"
	"appliance-billing-backend/internal/auth"
	"appliance-billing-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	auth    *auth.Authenticator
	runs    *appliance.Manager
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, authenticator *auth.Authenticator, runs *appliance.Manager, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:   s,
		auth:    authenticator,
		runs:    runs,
		webpush: webpushOptions,
	}
}

const codeInvalidRequest = "invalid_request"

var errInvalidRequest = errors.New("invalid request")

// badRequest answers a request that failed binding or validation.
func badRequest(c *gin.Context, err error) {
	log.Debug().Err(err).Str("path", c.FullPath()).Msg("rejected request")
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": errInvalidRequest.Error(), "code": codeInvalidRequest})
}

// fail maps err onto its status and reason. Internal failures are logged and
// reported without detail.
func fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error", "code": apperr.Code(err)})
		return
	}
	log.Info().Err(err).Str("path", c.FullPath()).Msg("request refused")
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "code": apperr.Code(err)})
}
