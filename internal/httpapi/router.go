package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ghga-de/dcs-go/internal/tokenauth"
)

// NewRouter assembles the gin engine for the Download Controller, following
// the teacher's gin.New() + explicit middleware chain pattern rather than
// gin.Default(), so the ordering (recovery first, then request ID, then
// logging, then security headers, then CORS) is spelled out explicitly.
func NewRouter(handlers *Handlers, validator *tokenauth.Validator, ginMode string, corsOrigins []string) *gin.Engine {
	gin.SetMode(ginMode)

	r := gin.New()
	r.Use(PanicRecoveryMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(gin.Logger())
	r.Use(SecurityHeadersMiddleware())

	originSet := make(map[string]bool, len(corsOrigins))
	allowAll := false
	for _, origin := range corsOrigins {
		if origin == "*" {
			allowAll = true
		}
		originSet[origin] = true
	}
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return allowAll || originSet[origin]
		},
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type"},
		ExposeHeaders: []string{"Retry-After"},
		MaxAge:        12 * time.Hour,
	}))

	r.GET("/health", handlers.Health)
	r.GET("/openapi.json", ServeOpenAPI)

	authed := r.Group("/objects")
	authed.Use(BearerTokenMiddleware(validator))
	{
		authed.GET("/:object_id", handlers.GetObject)
		authed.GET("/:object_id/envelopes/:public_key", handlers.GetEnvelope)
	}

	return r
}

// ServeOpenAPI serves the static OpenAPI document describing the DRS-facing
// surface (§6.1), the same way a GA4GH DRS implementation advertises its
// contract at a well-known path for client generators to consume.
func ServeOpenAPI(c *gin.Context) {
	c.Data(http.StatusOK, "application/json", []byte(openAPIDocument))
}

const openAPIDocument = `{
  "openapi": "3.0.3",
  "info": {
    "title": "GHGA Download Controller Service",
    "version": "1.0.0"
  },
  "paths": {
    "/health": {
      "get": {
        "summary": "Liveness check",
        "responses": { "200": { "description": "service is healthy" } }
      }
    },
    "/objects/{object_id}": {
      "get": {
        "summary": "Access a DRS object",
        "security": [{ "bearerAuth": [] }],
        "parameters": [
          { "name": "object_id", "in": "path", "required": true, "schema": { "type": "string" } }
        ],
        "responses": {
          "200": { "description": "object is staged, response carries a presigned access URL" },
          "202": { "description": "object not yet staged, retry after the given number of seconds" },
          "403": { "description": "work order token malformed, expired, or signature invalid" },
          "404": { "description": "no such object" },
          "500": { "description": "external API or database interaction error" }
        }
      }
    },
    "/objects/{object_id}/envelopes/{public_key}": {
      "get": {
        "summary": "Fetch the Crypt4GH envelope for an object",
        "security": [{ "bearerAuth": [] }],
        "parameters": [
          { "name": "object_id", "in": "path", "required": true, "schema": { "type": "string" } },
          { "name": "public_key", "in": "path", "required": true, "schema": { "type": "string" } }
        ],
        "responses": {
          "200": { "description": "base64-encoded envelope bytes" },
          "403": { "description": "work order token malformed, expired, or signature invalid" },
          "404": { "description": "no such object or no such envelope" },
          "500": { "description": "external API error" }
        }
      }
    }
  },
  "components": {
    "securitySchemes": {
      "bearerAuth": { "type": "http", "scheme": "bearer", "bearerFormat": "JWS" }
    }
  }
}`
