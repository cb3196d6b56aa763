package apiserver

import (
	_ "embed"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed openapi.yaml
var openAPISpec []byte

const swaggerUIVersion = "5.9.0"

// OpenAPIHandler serves the API description and a Swagger UI page
type OpenAPIHandler struct {
	logger *zap.Logger
	spec   []byte
}

// NewOpenAPIHandler creates a new OpenAPI handler
func NewOpenAPIHandler(logger *zap.Logger) *OpenAPIHandler {
	if len(openAPISpec) == 0 {
		logger.Warn("Embedded OpenAPI spec is empty")
	}
	return &OpenAPIHandler{logger: logger, spec: openAPISpec}
}

// ServeOpenAPISpec serves the OpenAPI document in YAML format
func (h *OpenAPIHandler) ServeOpenAPISpec(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Data(http.StatusOK, "application/x-yaml", h.spec)
}

// ServeOpenAPIInfo returns where the document and docs live for this host
func (h *OpenAPIHandler) ServeOpenAPIInfo(c *gin.Context) {
	base := fmt.Sprintf("%s://%s/api/v1", getScheme(c.Request), c.Request.Host)
	c.JSON(http.StatusOK, gin.H{
		"openapi":  "3.1.0",
		"title":    "FlavorBuddy API",
		"server":   base,
		"spec_url": base + "/openapi.yaml",
		"docs_url": base + "/docs",
	})
}

// ServeSwaggerUI serves a Swagger UI page pointed at the embedded document
func (h *OpenAPIHandler) ServeSwaggerUI(c *gin.Context) {
	html := fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>FlavorBuddy API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@%[1]s/swagger-ui.css" />
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@%[1]s/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            SwaggerUIBundle({
                url: 'openapi.yaml',
                dom_id: '#swagger-ui',
                deepLinking: true,
                validatorUrl: null,
                docExpansion: 'list',
                displayRequestDuration: true
            });
        };
    </script>
</body>
</html>`, swaggerUIVersion)

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// getScheme determines the URL scheme from the request
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	return "http"
}
