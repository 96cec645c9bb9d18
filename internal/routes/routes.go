package routes

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/gkash/gkash_ussd/internal/config"
	"github.com/gkash/gkash_ussd/internal/identity"
	"github.com/gkash/gkash_ussd/internal/ledger"
	"github.com/gkash/gkash_ussd/internal/middleware"
	"github.com/gkash/gkash_ussd/internal/mpesa"
	"github.com/gkash/gkash_ussd/internal/otp"
	"github.com/gkash/gkash_ussd/internal/sms"
	"github.com/gkash/gkash_ussd/internal/ussd"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

const keystrokesPerMinute = 60

// Setup configures middlewares and all application routes. Outside of dev the
// durable backends are mandatory; in dev, memory stores and logging stubs
// stand in for anything not configured.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	RegisterHealthRoutes(app, d)

	var store ledger.Store
	if d.DB != nil {
		store = ledger.NewPostgres(d.DB)
	} else {
		store = ledger.NewInMemory()
	}

	var userRepo identity.Repository
	if d.DB != nil {
		userRepo = identity.NewPostgresRepository(d.DB)
	} else {
		userRepo = identity.NewMemoryRepository()
	}
	users := identity.NewService(userRepo)

	var verifications otp.Store
	if d.Cache != nil {
		verifications = otp.NewRedisStore(d.Cache)
	} else {
		verifications = otp.NewMemoryStore()
	}

	var sender sms.Sender
	if d.Cfg.Tiara.APIKey != "" {
		tiara, err := sms.NewTiaraClient(d.Cfg.Tiara, d.Cfg.OTPTTL, d.Cfg.ProviderTimeout)
		if err != nil {
			return err
		}
		sender = tiara
	} else {
		sender = sms.NewLoggerSender(d.Logger, d.Cfg.OTPTTL)
	}

	var gateway mpesa.Gateway
	if d.Cfg.Mpesa.ConsumerKey != "" {
		client, err := mpesa.NewClient(d.Cfg.Mpesa, d.Cfg.ProviderTimeout)
		if err != nil {
			return err
		}
		gateway = client
	} else {
		gateway = mpesa.StaticGateway{}
	}

	router := ussd.NewRouter(d.Cfg, users, store, verifications, sender, gateway, d.Logger)
	dialHandler := ussd.NewHandler(router, d.Logger)

	app.Get("/", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
		return c.Status(http.StatusOK).
			SendString(fmt.Sprintf("%s USSD service is running. POST /ussd with USSD payload.", d.Cfg.AppName))
	})

	app.Post("/ussd", middleware.SessionRateLimit(d.Cache, keystrokesPerMinute), dialHandler.Dial)

	RegisterPaymentRoutes(app, d, gateway)
	RegisterDebugRoutes(app, d, users, store)

	return nil
}
