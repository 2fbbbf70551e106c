package httpapi

import (
	"errors"
	"log"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ghga-de/dcs-go/internal/core"
	"github.com/ghga-de/dcs-go/internal/models"
	"github.com/ghga-de/dcs-go/internal/tokenauth"
	apperrors "github.com/ghga-de/dcs-go/pkg/errors"
)

// PanicRecoveryMiddleware turns a panicking handler into a 500 response
// instead of taking down the whole listener, adapted from the teacher's
// recovery middleware but without leaking stack traces to the client.
func PanicRecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				requestID := c.GetString("request_id")
				log.Printf("[HTTPAPI] panic recovered (request_id=%s): %v\n%s", requestID, r, stack)
				c.JSON(http.StatusInternalServerError, gin.H{
					"exception_id": "dbInteractionError",
					"message":      "internal server error",
					"request_id":   requestID,
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// RequestIDMiddleware assigns or forwards an X-Request-ID for correlating
// logs across the HTTP layer and the core.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// SecurityHeadersMiddleware sets the small set of hardening headers the
// teacher applies on every response.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

const workOrderTokenKey = "work_order_token"

// BearerTokenMiddleware extracts and verifies the work-order JWS carried in
// the Authorization header. On success the parsed models.WorkOrderToken is
// stashed in the gin context for handlers to consult against the path's
// object_id (§4.6); on failure it writes the 403 response itself and aborts.
func BearerTokenMiddleware(validator *tokenauth.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			writeAppError(c, apperrors.ErrTokenMalformed)
			c.Abort()
			return
		}

		token, err := validator.Validate(parts[1])
		if err != nil {
			writeAppError(c, mapTokenError(err))
			c.Abort()
			return
		}

		c.Set(workOrderTokenKey, token)
		c.Next()
	}
}

func mapTokenError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, tokenauth.ErrTokenExpired):
		return apperrors.ErrTokenExpired
	case errors.Is(err, tokenauth.ErrTokenSignature):
		return apperrors.ErrTokenSignature
	default:
		return apperrors.ErrTokenMalformed
	}
}

// workOrderToken retrieves the token stashed by BearerTokenMiddleware.
func workOrderToken(c *gin.Context) (models.WorkOrderToken, bool) {
	v, ok := c.Get(workOrderTokenKey)
	if !ok {
		return models.WorkOrderToken{}, false
	}
	token, ok := v.(models.WorkOrderToken)
	return token, ok
}

// requireTokenFor enforces the token contract from §8: type must be
// "download" and file_id must match the requested object, or the request is
// rejected as malformed even though the signature itself verified.
func requireTokenFor(c *gin.Context, fileID string) bool {
	token, ok := workOrderToken(c)
	if !ok || !token.IsDownloadFor(fileID) {
		writeAppError(c, apperrors.ErrTokenMalformed)
		return false
	}
	return true
}

// mapCoreError translates a *core.Error (or an opaque internal error) into
// the AppError the HTTP surface advertises, per §6.1/§7's one-to-one kind
// mapping.
func mapCoreError(err error) *apperrors.AppError {
	var ce *core.Error
	if errors.As(err, &ce) {
		switch ce.Kind {
		case core.KindDrsObjectNotFound:
			return apperrors.ErrNoSuchObject
		case core.KindEnvelopeNotFound:
			return apperrors.ErrEnvelopeNotFound
		case core.KindStorageAliasNotConfigured:
			return apperrors.ErrStorageAliasUnknown
		case core.KindAPICommunicationError:
			return apperrors.ErrExternalAPI
		case core.KindDuplicateEntry:
			return apperrors.New(http.StatusConflict, "duplicateEntryError", "object already registered", ce.Detail)
		case core.KindTokenMalformed:
			return apperrors.ErrTokenMalformed
		case core.KindTokenExpired:
			return apperrors.ErrTokenExpired
		case core.KindTokenSignature:
			return apperrors.ErrTokenSignature
		}
	}
	return apperrors.NewAppError(http.StatusInternalServerError, "dbInteractionError", "internal server error", err.Error())
}

func writeAppError(c *gin.Context, appErr *apperrors.AppError) {
	c.JSON(appErr.Code, gin.H{
		"exception_id": appErr.ExceptionID,
		"message":      appErr.Message,
		"details":      appErr.Details,
	})
}
