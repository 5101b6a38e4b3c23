package server

import (
	"context"
	"time"

	"backend-motorota/internal/apperr"
	"backend-motorota/internal/carryover"
	"backend-motorota/internal/config"
	"backend-motorota/internal/db"
	"backend-motorota/internal/identity"
	"backend-motorota/internal/notice"
	"backend-motorota/internal/profile"
	"backend-motorota/internal/route"
	"backend-motorota/internal/session"
	"backend-motorota/internal/stream"
	"backend-motorota/internal/vehicle"
	"backend-motorota/internal/workspace"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App        *fiber.App
	Cfg        config.Config
	DB         db.Querier
	Redis      *redis.Client
	Stream     *stream.Hub
	Workspaces *workspace.Registry
	Identity   *identity.Service
}

func NewServer(cfg config.Config, database db.Querier, redisClient *redis.Client) *Server {
	s := &Server{
		Cfg:      cfg,
		DB:       database,
		Redis:    redisClient,
		Stream:   stream.NewHub(redisClient),
		Identity: identity.NewService(cfg.JWTSecret, database, redisClient),
	}
	s.Workspaces = workspace.NewRegistry(workspace.Deps{
		Auth:      s.Identity,
		Redis:     redisClient,
		Profiles:  profile.NewRepository(database),
		Vehicles:  vehicle.NewPostgresRepository(database),
		Trips:     route.NewPostgresTrips(database),
		Carryover: carryover.NewStore(redisClient, cfg.CarryoverTTL),
		Hub:       s.Stream,
		Generator: route.NewGenerator(nil),
		NoticeTTL: cfg.NoticeTTL,
	})

	app := fiber.New(fiber.Config{ErrorHandler: s.handleError})
	app.Use(recover.New())
	app.Use(logger.New())
	s.App = app

	registerRoutes(s)
	return s
}

// handleError is the action boundary: user-facing failures are also posted
// to the caller's notice board unless the action already did so.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	if apperr.KindOf(err) != "" && !apperr.WasShown(err) {
		if w, ok := s.Workspaces.Lookup(workspace.DeviceID(c)); ok {
			w.Notices().Error(err.Error())
		}
	}
	return apperr.Handler(c, err)
}

// SweepIdle evicts idle workspaces every interval until ctx is done.
func (s *Server) SweepIdle(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Workspaces.Sweep(maxIdle)
		}
	}
}

func (s *Server) Close() error {
	s.Workspaces.Close()
	return s.Stream.Close()
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	bearer := identity.BearerMiddleware(s.Identity)
	identity.RegisterRoutes(s.App.Group("/auth"), s.Identity)
	route.RegisterAPIRoutes(s.App.Group("/api/trips"), route.NewPostgresTrips(s.DB), bearer)

	cookies := workspace.Cookies(s.Cfg.CookieSecure)
	reg := s.Workspaces
	session.RegisterRoutes(s.App.Group("/session", cookies), reg.SessionStore)
	vehicle.RegisterRoutes(s.App.Group("/vehicle", cookies), reg.VehicleStore)
	route.RegisterRoutes(s.App.Group("/plan", cookies), reg.RouteClient)
	notice.RegisterRoutes(s.App.Group("/notice", cookies), reg.NoticeBoard)
	stream.RegisterRoutes(s.App.Group("/stream", cookies), s.Stream, reg.Device, reg.Snapshot)
}
