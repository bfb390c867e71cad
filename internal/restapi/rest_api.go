// Package restapi serves the status API: job and sheet inspection and the
// notification switch.
package restapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"seatwatch.app/internal/app"
)

type RestAPI struct {
	*app.Application
	rateLimiter *RateLimitMiddleware
}

// NewRestAPI creates a new RestAPI instance with initialized rate limiter
func NewRestAPI(app *app.Application) *RestAPI {
	return &RestAPI{
		Application: app,
		rateLimiter: NewRateLimitMiddleware(app.Config.RateLimit, app.Config.RateBurst),
	}
}

// Handler returns the routed API behind compression, security headers, rate
// limiting and request logging.
func (api *RestAPI) Handler() http.Handler {
	router := httprouter.New()
	api.SetRoutes(router)

	var handler http.Handler = router
	handler = NewCompressionMiddleware(compressionMinSize)(handler)
	handler = securityHeaders(handler)
	if api.rateLimiter != nil {
		handler = api.rateLimiter.Handler(handler)
	}
	return NewRequestLoggingMiddleware(api.Logger)(handler)
}

// Close stops background work of the middleware.
func (api *RestAPI) Close() {
	if api.rateLimiter != nil {
		api.rateLimiter.Stop()
	}
}
