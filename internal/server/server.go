package server

import (
	"backend-vantrack/internal/auth"
	"backend-vantrack/internal/config"
	"backend-vantrack/internal/fleet"
	"backend-vantrack/internal/livestate"
	"backend-vantrack/internal/stream"
	"backend-vantrack/internal/tracking"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Store    *livestate.Store
	Hub      *stream.Hub
	Tracking *tracking.Service
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	store := livestate.NewStore(redisClient)
	hub := stream.NewHub(store, cfg.StaleAfter)
	store.OnWrite(hub.Notify)

	fleetSvc := fleet.NewService(db)
	trackingSvc := tracking.NewService(fleetSvc, store, cfg.HeartbeatInterval)

	s := &Server{
		App:      app,
		Cfg:      cfg,
		DB:       db,
		Redis:    redisClient,
		Store:    store,
		Hub:      hub,
		Tracking: trackingSvc,
	}

	registerRoutes(s, fleetSvc)
	return s
}

func registerRoutes(s *Server, fleetSvc *fleet.Service) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB))
	fleet.RegisterRoutes(s.App.Group("/fleet"), fleetSvc, jwtMiddleware)
	tracking.RegisterRoutes(s.App.Group("/tracking"), s.Tracking, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Hub)
}
