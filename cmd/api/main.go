package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/dispensario-api/internal/application/inventory"
	"github.com/jhoicas/dispensario-api/internal/infrastructure/catalogcsv"
	"github.com/jhoicas/dispensario-api/internal/infrastructure/memory"
	"github.com/jhoicas/dispensario-api/internal/infrastructure/messaging"
	"github.com/jhoicas/dispensario-api/internal/infrastructure/metrics"
	"github.com/jhoicas/dispensario-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/dispensario-api/internal/interfaces/http"
	"github.com/jhoicas/dispensario-api/pkg/config"
	"github.com/jhoicas/dispensario-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	deps := inventory.Deps{
		Logger: log,
		Retry: inventory.RetryPolicy{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialInterval: cfg.Retry.InitialInterval(),
		},
	}
	var health func(context.Context) error

	switch cfg.Store.Driver {
	case "memory":
		store := memory.NewStore()
		if cfg.Catalog.Dir != "" {
			cat, err := catalogcsv.LoadDir(cfg.Catalog.Dir, cfg.Catalog.Charset)
			if err != nil {
				log.Fatal().Err(err).Str("dir", cfg.Catalog.Dir).Msg("cargar catálogo")
			}
			for _, p := range cat.Products {
				store.Catalog().PutProduct(p)
			}
			for _, w := range cat.Warehouses {
				store.Catalog().PutWarehouse(w)
			}
			log.Info().Int("products", len(cat.Products)).Int("warehouses", len(cat.Warehouses)).Msg("catálogo cargado")
		}
		deps.TxRunner = store
		deps.Products = store.Catalog()
		deps.Warehouses = store.Catalog().Warehouses()
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		deps.TxRunner = postgres.NewTxRunner(pool, cfg.DB.LockTimeout())
		deps.Products = postgres.NewProductRepository(pool)
		deps.Warehouses = postgres.NewWarehouseRepository(pool)
		health = pool.Ping
	}

	// Eventos: sin broker configurado se descartan.
	if cfg.RabbitMQ.URL != "" {
		rmq, err := messaging.Dial(cfg.RabbitMQ.URL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a RabbitMQ")
		}
		defer rmq.Close()
		pub, err := messaging.NewPublisher(rmq, cfg.RabbitMQ.Exchange, cfg.App.Name, log)
		if err != nil {
			log.Fatal().Err(err).Msg("publicador de eventos")
		}
		deps.Publisher = pub
	} else {
		deps.Publisher = messaging.NopPublisher{Log: log}
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(true)
		deps.Observer = collector
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestContext())
	if collector != nil {
		app.Use(httpRouter.Metrics(collector))
	}

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Dispensario API",
	}))

	routerDeps := httpRouter.RouterDeps{
		Receipts:    inventory.NewReceiptUseCase(deps),
		Dispenses:   inventory.NewDispenseUseCase(deps),
		Returns:     inventory.NewReturnUseCase(deps),
		Transfers:   inventory.NewTransferUseCase(deps),
		Pending:     inventory.NewPendingUseCase(deps),
		Kardex:      inventory.NewKardexUseCase(deps),
		JWTSecret:   cfg.JWT.Secret,
		Logger:      log,
		ServiceName: cfg.App.Name,
		Health:      health,
	}
	if collector != nil {
		routerDeps.MetricsHandler = collector.Handler()
	}
	httpRouter.Router(app, routerDeps)

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
