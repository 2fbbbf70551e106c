// Package httpapi is the inbound HTTP adapter for the Download Controller:
// gin routes, bearer-token middleware, and the mapping from the core's
// sealed error Kind values onto the pkg/errors AppError taxonomy the DRS
// surface advertises to clients.
package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ghga-de/dcs-go/internal/core"
)

// Handlers wires the Data Repository orchestrator into gin.HandlerFuncs.
type Handlers struct {
	repo *core.DataRepository
}

// NewHandlers builds a Handlers bound to repo.
func NewHandlers(repo *core.DataRepository) *Handlers {
	return &Handlers{repo: repo}
}

// Health answers GET /health.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

// GetObject answers GET /objects/:object_id, implementing access_drs_object
// (§4.7, §6.1). A RetryAccessLater core error becomes a 202 with
// Retry-After rather than a JSON error body.
func (h *Handlers) GetObject(c *gin.Context) {
	fileID := c.Param("object_id")
	if !requireTokenFor(c, fileID) {
		return
	}

	response, err := h.repo.AccessDrsObject(c.Request.Context(), fileID)
	if err != nil {
		var ce *core.Error
		if errors.As(err, &ce) && ce.Kind == core.KindRetryAccessLater {
			c.Header("Retry-After", retryAfterHeader(ce.RetryAfter))
			c.Status(http.StatusAccepted)
			return
		}
		writeAppError(c, mapCoreError(err))
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetEnvelope answers GET /objects/:object_id/envelopes/:public_key,
// implementing serve_envelope (§4.7, §6.1).
func (h *Handlers) GetEnvelope(c *gin.Context) {
	fileID := c.Param("object_id")
	publicKey := c.Param("public_key")
	if !requireTokenFor(c, fileID) {
		return
	}

	envelope, err := h.repo.ServeEnvelope(c.Request.Context(), fileID, publicKey)
	if err != nil {
		writeAppError(c, mapCoreError(err))
		return
	}

	c.String(http.StatusOK, envelope)
}

func retryAfterHeader(seconds int) string {
	if seconds <= 0 {
		seconds = 120
	}
	return strconv.Itoa(seconds)
}
