package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the session service.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>moodlens-session API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// Session tokens travel in the session_token query parameter (first navigation)
// or the X-Session-Token header (page storage); see package clientcache.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "moodlens-session", "version": "v0.1.0" },
  "components": {
    "securitySchemes": {
      "sessionHeader": { "type": "apiKey", "in": "header", "name": "X-Session-Token" },
      "sessionQuery": { "type": "apiKey", "in": "query", "name": "session_token" }
    }
  },
  "paths": {
    "/auth/login": {
      "post": {
        "summary": "Open a session from an identity assertion or a Keycloak authorization code",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["mode"],"properties":{"mode":{"type":"string","enum":["assertion","auth_code"]},"assertion":{"type":"string"},"code":{"type":"string"},"redirect_uri":{"type":"string"},"expires_in":{"type":"integer","description":"seconds"}}}}}},
        "responses": { "200": { "description": "session token, user and expires_at" }, "400": { "description": "bad request" }, "401": { "description": "identity rejected" }, "503": { "description": "session store unavailable" } }
      }
    },
    "/auth/session": {
      "get": { "summary": "Validate the current session", "security": [{"sessionHeader":[]},{"sessionQuery":[]}], "responses": { "200": { "description": "session context" }, "401": { "description": "unauthenticated" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Revoke the current device's session", "security": [{"sessionHeader":[]},{"sessionQuery":[]}], "responses": { "200": { "description": "logged out" }, "503": { "description": "session store unavailable" } } }
    },
    "/auth/logout-all": {
      "post": { "summary": "Revoke every session of the current user", "security": [{"sessionHeader":[]},{"sessionQuery":[]}], "responses": { "200": { "description": "all sessions revoked" }, "401": { "description": "unauthenticated" }, "503": { "description": "revocation incomplete, retry" } } }
    },
    "/api/v1/me": {
      "get": { "summary": "Get the current user", "security": [{"sessionHeader":[]},{"sessionQuery":[]}], "responses": { "200": { "description": "user" }, "401": { "description": "unauthenticated" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
