// Package httpapi exposes the task board over a JSON REST API.
package httpapi

import (
	"context"

	"github.com/go-pkgz/lgr"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/agalitsyn/taskboard/internal/app"
	"github.com/agalitsyn/taskboard/internal/auth"
)

type Config struct {
	Addr        string
	CORSOrigins string
	AccessLog   bool
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	cfg    Config
	app    *fiber.App
	users  *app.UserService
	tasks  *app.TaskService
	tokens *auth.TokenManager
	db     Pinger
	log    lgr.L
}

func NewServer(cfg Config, users *app.UserService, tasks *app.TaskService, tokens *auth.TokenManager, db Pinger, log lgr.L) *Server {
	s := &Server{
		cfg:    cfg,
		users:  users,
		tasks:  tasks,
		tokens: tokens,
		db:     db,
		log:    log,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "taskboard",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	s.app.Use(recover.New())
	if cfg.AccessLog {
		s.app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	if cfg.CORSOrigins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		}))
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.app.Group("/api")
	api.Get("/health", s.health)

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", s.register)
	authRoutes.Post("/login", s.login)
	authRoutes.Get("/me", s.authenticate, s.me)

	tasks := api.Group("/tasks", s.authenticate)
	tasks.Get("/", s.listTasks)
	tasks.Get("/stats", s.taskStats)
	tasks.Get("/user/:userId", s.listUserTasks)
	tasks.Post("/", s.createTask)
	tasks.Get("/:id", s.getTask)
	tasks.Put("/:id", s.updateTask)
	tasks.Delete("/:id", s.deleteTask)
	tasks.Put("/:id/receive", s.receiveTask)
	tasks.Put("/:id/complete", s.completeTask)

	users := api.Group("/users", s.authenticate)
	users.Get("/", s.listUsers)
	users.Post("/", s.createUser)
	users.Get("/:id", s.getUser)
	users.Put("/:id", s.updateUser)
	users.Delete("/:id", s.deleteUser)
}

// App exposes the underlying fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen() error {
	s.log.Logf("[INFO] listening on %s", s.cfg.Addr)
	return s.app.Listen(s.cfg.Addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Logf("[INFO] shutting down http server")
	return s.app.ShutdownWithContext(ctx)
}
