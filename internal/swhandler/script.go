package swhandler

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed static/sw.js
var serviceWorkerJS []byte

// HandleScript serves the service worker at /sw.js
func HandleScript(c *gin.Context) {
	c.Header("Service-Worker-Allowed", "/")
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "application/javascript; charset=utf-8", serviceWorkerJS)
}
