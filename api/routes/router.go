// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gatepass/internal/bookings"
	"gatepass/internal/carts"
	"gatepass/internal/holds"
	"gatepass/internal/notifications"
	"gatepass/internal/payments"
	"gatepass/internal/shared/config"
	"gatepass/internal/shared/database"
	"gatepass/internal/shared/middleware"
	"gatepass/internal/shared/utils/response"
	"gatepass/internal/shows"
	"gatepass/internal/tickets"
	"gatepass/pkg/cache"
	"gatepass/pkg/logger"
)

// Router holds all route dependencies
type Router struct {
	config    *config.Config
	db        *database.DB
	publisher notifications.Publisher

	// Built once and shared across route groups
	showsRepo      shows.Repository
	holdsRepo      holds.Repository
	holdsService   holds.Service
	cartService    carts.Service
	ticketService  tickets.Service
	bookingService bookings.Service
	sweeper        *holds.Sweeper
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, publisher notifications.Publisher) *Router {
	return &Router{
		config:    cfg,
		db:        db,
		publisher: publisher,
	}
}

// SetupRoutes configures all application routes. Route groups are wired in
// dependency order: shows first, then holds and carts, tickets, bookings
// last (it needs all of them). The sweeper is built alongside and exposed
// via Sweeper() for the server to start.
func (r *Router) SetupRoutes(engine *gin.Engine) error {
	r.setupHealthRoutes(engine)

	api := engine.Group(r.config.GetAPIBasePath())

	if err := r.buildServices(); err != nil {
		return err
	}

	shows.SetupShowRoutes(api, shows.NewController(r.showsService()))
	holds.SetupHoldRoutes(api, holds.NewController(r.holdsService))
	carts.SetupCartRoutes(api, carts.NewController(r.cartService))
	tickets.SetupTicketRoutes(api, tickets.NewController(r.ticketService))
	bookings.SetupBookingRoutes(api, bookings.NewController(r.bookingService))
	r.setupSweepRoutes(api)

	return nil
}

// setupSweepRoutes exposes a manual sweep pass for operators; the same
// reclaim the background loop runs, on demand.
func (r *Router) setupSweepRoutes(api *gin.RouterGroup) {
	adminSweep := api.Group("/admin/sweep")
	adminSweep.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		adminSweep.POST("", func(c *gin.Context) {
			swept := r.sweeper.SweepOnce(c.Request.Context())
			response.RespondJSON(c, "success", http.StatusOK, "Sweep pass complete", gin.H{
				"swept": swept,
			}, nil)
		})
	}
}

// Sweeper returns the expiry sweeper for the server lifecycle to manage
func (r *Router) Sweeper() *holds.Sweeper {
	return r.sweeper
}

func (r *Router) buildServices() error {
	pg := r.db.GetPostgreSQL()
	redisClient := r.db.GetRedisClient()

	r.showsRepo = shows.NewRepository(pg, redisClient)
	r.holdsRepo = holds.NewRepository(pg, redisClient)
	r.holdsService = holds.NewService(r.holdsRepo, r.showsRepo, r.config, r.publisher)
	r.cartService = carts.NewService(carts.NewRepository(pg))

	ticketService, err := tickets.NewService(tickets.NewRepository(pg), r.config)
	if err != nil {
		return err
	}
	r.ticketService = ticketService

	adapter := payments.NewAdapter(&r.config.Payment)
	r.bookingService = bookings.NewService(
		bookings.NewRepository(pg),
		r.holdsRepo,
		r.holdsService,
		r.showsRepo,
		r.ticketService,
		adapter,
		r.cartService,
		r.publisher,
		r.config,
	)

	// The sweeper expires pending bookings through the bookings service;
	// the interface lives in holds so the dependency stays one-way.
	r.sweeper = holds.NewSweeper(r.holdsRepo, r.cartService, r.publisher, &r.config.Hold)
	r.sweeper.SetBookingExpirer(r.bookingService)

	return nil
}

func (r *Router) showsService() shows.Service {
	svc := shows.NewService(r.showsRepo)
	svc.SetCacheService(cache.NewService(r.db.GetRedisClient()))
	return svc
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			logger.GetDefault().Error("health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "gatepass",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "gatepass",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}
