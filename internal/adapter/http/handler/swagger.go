package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

type apiDocument struct {
	body []byte
	etag string
}

var openAPIDoc atomic.Pointer[apiDocument]

// SetSwaggerSpec installs the OpenAPI YAML served at /swagger/spec. An empty
// document unloads it.
func SetSwaggerSpec(spec []byte) {
	if len(spec) == 0 {
		openAPIDoc.Store(nil)
		return
	}
	sum := sha256.Sum256(spec)
	openAPIDoc.Store(&apiDocument{
		body: spec,
		etag: `"` + hex.EncodeToString(sum[:8]) + `"`,
	})
}

// SwaggerSpec serves the OpenAPI YAML with an ETag so browsers revalidate
// instead of refetching.
func SwaggerSpec(c *gin.Context) {
	doc := openAPIDoc.Load()
	if doc == nil {
		c.String(http.StatusNotFound, "OpenAPI document not loaded")
		return
	}
	c.Header("ETag", doc.etag)
	c.Header("Cache-Control", "no-cache")
	if c.GetHeader("If-None-Match") == doc.etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/yaml", doc.body)
}

const swaggerPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Crypto Checkout Gateway API</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({ url: '/swagger/spec', dom_id: '#swagger-ui', deepLinking: true });
  </script>
</body>
</html>`

// SwaggerUI serves the Swagger UI page for /swagger/spec.
func SwaggerUI(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerPage))
}
