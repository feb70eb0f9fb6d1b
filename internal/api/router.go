// Package api exposes the show tracker over HTTP.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"

	"github.com/Belphemur/ShowTracker/internal/config"
	"github.com/Belphemur/ShowTracker/internal/ratelimit"
	"github.com/Belphemur/ShowTracker/internal/shows"
)

const defaultPort = 8080

// Dependencies holds everything the router needs.
type Dependencies struct {
	Repository shows.Repository

	// Limiter is optional; nil disables rate limiting.
	Limiter ratelimit.Limiter

	AllowedOrigins []string

	// TrustedProxies may set X-Forwarded-For / X-Real-IP. Nil trusts no proxy.
	TrustedProxies []string
}

// NewRouter builds the gin engine with the middleware chain and every route.
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	if err := r.SetTrustedProxies(deps.TrustedProxies); err != nil {
		logger := config.GetLogger()
		logger.Warn().Err(err).Strs("trusted_proxies", deps.TrustedProxies).Msg("Invalid trusted proxies, trusting none")
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(RequestID(), RequestLogger(), Metrics(), Recovery(), CORS(deps.AllowedOrigins))
	if deps.Limiter != nil {
		r.Use(RateLimit(deps.Limiter))
	}

	r.GET("/", HelloWorld)
	r.GET("/mirror/:name", Mirror)
	NewShowHandler(deps.Repository).Register(r)

	r.NoRoute(routeNotFound)
	r.NoMethod(methodNotAllowed)
	return r
}

// NewHTTPServer wraps handler with gzip compression and returns a server listening on address:port.
func NewHTTPServer(address string, port int, handler http.Handler) *http.Server {
	if port == 0 {
		port = defaultPort
	}
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", address, port),
		Handler:           gzhttp.GzipHandler(handler),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
