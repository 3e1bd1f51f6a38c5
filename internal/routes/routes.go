package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/jetonpay/jeton/internal/auth"
	"github.com/jetonpay/jeton/internal/config"
	"github.com/jetonpay/jeton/internal/events"
	"github.com/jetonpay/jeton/internal/identity"
	"github.com/jetonpay/jeton/internal/middleware"
	"github.com/jetonpay/jeton/internal/token"
	"github.com/jetonpay/jeton/internal/transfer"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares, builds the ledger over the available store
// and wires all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	ctx := context.Background()

	ledger, err := buildLedger(ctx, d)
	if err != nil {
		return err
	}

	var identityRepo identity.Repository
	if d.DB != nil {
		repo := identity.NewPostgresRepository(d.DB)
		if err := repo.Migrate(ctx); err != nil {
			return err
		}
		identityRepo = repo
	} else {
		identityRepo = identity.NewMemoryRepository()
	}

	identitySvc := identity.NewService(identityRepo)
	identityHandler := identity.NewHandler(identitySvc)
	authSvc := auth.NewService(d.Cfg, identityRepo)
	authHandler := auth.NewHandler(identitySvc, authSvc)
	transferSvc := transfer.NewService(ledger)
	transferHandler := transfer.NewHandler(transferSvc)

	RegisterHealthRoutes(app, d, ledger)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	RegisterIdentityRoutes(api, identityHandler)
	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	RegisterAuthRoutes(api, authHandler, rateLimiter)

	// Protected routes
	jwtmw := middleware.JWTAuth(d.Cfg, identityRepo)
	protected := api.Group("", jwtmw)
	protected.Post("/auth/logout", authHandler.Logout)
	protected.Get("/me", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		user, err := identityRepo.FindByID(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}
		return c.JSON(fiber.Map{
			"user_id":       user.ID,
			"phone":         user.Phone,
			"account_id":    user.Account.String(),
			"token_version": user.TokenVersion,
			"created_at":    user.CreatedAt,
		})
	})
	// Idempotency scopes its cache key to the session account, so it can only
	// run behind JWTAuth. Token mutations are the routes worth deduplicating.
	if d.Cache != nil {
		protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	RegisterTokenRoutes(protected, transferHandler)

	return nil
}

// buildLedger assembles the store and event sinks and attaches the ledger,
// minting the configured supply to the treasury on first boot.
func buildLedger(ctx context.Context, d Deps) (*token.Ledger, error) {
	var store token.Store
	if d.DB != nil {
		pg := token.NewPostgresStore(d.DB)
		if err := pg.Migrate(ctx); err != nil {
			return nil, err
		}
		store = pg
	} else {
		store = token.NewMemoryStore()
	}

	sinks := events.Fanout{events.NewLoggerSink(d.Logger)}
	if d.Cache != nil {
		sinks = append(sinks, events.NewStreamPublisher(d.Cache, d.Cfg.EventStream, d.Logger))
	}

	treasury := token.NewAccountID()
	if d.Cfg.TreasuryAccount != "" {
		parsed, err := token.ParseAccountID(d.Cfg.TreasuryAccount)
		if err != nil {
			return nil, fmt.Errorf("invalid treasury account: %w", err)
		}
		treasury = parsed
	}

	ledger, err := token.New(ctx, store, sinks, treasury, d.Cfg.TokenSupply)
	if err != nil {
		return nil, err
	}

	d.Logger.Info("ledger ready",
		slog.String("total_supply", ledger.TotalSupply().String()),
		slog.String("treasury", treasury.String()),
	)
	return ledger, nil
}
