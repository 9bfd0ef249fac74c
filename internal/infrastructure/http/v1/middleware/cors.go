package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows browser clients from origins. An empty list allows every origin.
// Credentials are never allowed since callers authenticate with bearer tokens.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowMethods = []string{
		http.MethodGet, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}
	cfg.AddAllowHeaders("Authorization", HeaderRequestID, HeaderTraceID)
	cfg.ExposeHeaders = []string{HeaderRequestID, HeaderTraceID}
	cfg.MaxAge = 10 * time.Minute
	return cors.New(cfg)
}
