// Package server wires the user API onto a Fiber app and runs it.
package server

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	jwtware "github.com/gofiber/jwt/v2"

	"github.com/wichananm65/user-api/internal/config"
	"github.com/wichananm65/user-api/internal/database"
	"github.com/wichananm65/user-api/internal/user"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// New builds the app: middleware, health routes and the user API.
func New(cfg config.Config, service *user.Service, tokens *user.TokenIssuer) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "user-api",
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(helmet.New())
	setupCORS(app, cfg.CORSOriginList())
	if cfg.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit,
			Expiration: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return fiber.NewError(fiber.StatusTooManyRequests, "too many requests, please try again later")
			},
		}))
	}

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Hello World! from User API")
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		if err := service.Ping(c.UserContext()); err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "database unavailable")
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	user.NewHandler(service).RegisterRoutes(app, RequireAuth(tokens.Secret()))

	return app
}

// RequireAuth verifies the bearer token and stores it in c.Locals("user").
func RequireAuth(secret []byte) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: secret,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
		},
	})
}

func setupCORS(app *fiber.App, origins []string) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(origins, ","),
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
}

// errorHandler writes every failure as {"error": message}. It never fails on
// an error it does not recognise.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		if fiberErr.Message != "" {
			message = fiberErr.Message
		}
	} else if err != nil && err.Error() != "" {
		message = err.Error()
	}

	if code >= fiber.StatusInternalServerError {
		log.Printf("%s %s: %d %v", c.Method(), c.Path(), code, err)
	}

	return c.Status(code).JSON(ErrorResponse{Error: message})
}

// Run serves the API on cfg.Addr until ctx is cancelled.
func Run(ctx context.Context, cfg config.Config) error {
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	tokens := user.NewTokenIssuer(cfg.JWTSecret, user.DefaultTokenTTL)
	service := user.NewService(repo, tokens, cfg.BcryptCost)
	app := New(cfg, service, tokens)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("starting user API on %s (store=%s)", cfg.Addr, cfg.Store)
		errCh <- app.Listen(cfg.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Printf("shutting down")
		return app.Shutdown()
	}
}

func openRepository(ctx context.Context, cfg config.Config) (user.Repository, func(), error) {
	if cfg.Store == config.StoreMemory {
		return user.NewInMemoryRepository(nil), func() {}, nil
	}

	db, err := database.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return user.NewPostgresRepository(db), func() { _ = db.Close() }, nil
}
