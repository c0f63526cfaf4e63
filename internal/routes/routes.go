package routes

import (
	"github.com/dukerupert/idunn/internal/handler"
	"github.com/dukerupert/idunn/internal/middleware"
	"github.com/dukerupert/idunn/internal/router"
)

// Deps contains the handlers the cart API routes dispatch to.
type Deps struct {
	CartHandler   *handler.CartHandler
	HealthHandler *handler.HealthHandler
	Metrics       *middleware.Metrics
}

// Register wires every transport entry point to the one cart aggregation
// service; no business rule lives in the routing layer.
func Register(r *router.Router, deps Deps) {
	// Cart API
	r.Post("/cart/add", deps.CartHandler.Add)
	r.Get("/cart/{userId}", deps.CartHandler.Get)
	r.Delete("/cart/remove", deps.CartHandler.Remove)
	r.Delete("/cart/clear", deps.CartHandler.Clear)
	r.Put("/cart/update", deps.CartHandler.UpdateQuantity)

	// Operational endpoints
	r.Get("/healthz", deps.HealthHandler.Check)
	r.Handle("GET", "/metrics", deps.Metrics.Handler())
}
