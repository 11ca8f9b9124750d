package http

import (
	"context"
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jhoicas/dispensario-api/internal/application/inventory"
	"github.com/jhoicas/dispensario-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Receipts  *inventory.ReceiptUseCase
	Dispenses *inventory.DispenseUseCase
	Returns   *inventory.ReturnUseCase
	Transfers *inventory.TransferUseCase
	Pending   *inventory.PendingUseCase
	Kardex    *inventory.KardexUseCase
	JWTSecret string
	Logger    *logger.Logger
	// Opcionales.
	ServiceName    string
	Health         func(ctx context.Context) error
	MetricsHandler nethttp.Handler
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		if deps.Health != nil {
			if err := deps.Health(c.UserContext()); err != nil {
				log.Warn().Err(err).Msg("health check fallido")
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "down", "service": deps.ServiceName})
			}
		}
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})
	if deps.MetricsHandler != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.MetricsHandler))
	}

	// Rutas protegidas (requieren Bearer Token)
	inv := app.Group("/api/inventory", AuthMiddleware(deps.JWTSecret))
	anyRole := RequireRole(RoleAdmin, RoleRegente, RoleAuxiliar)
	managers := RequireRole(RoleAdmin, RoleRegente)

	inventoryHandler := NewInventoryHandler(deps.Receipts, deps.Dispenses, deps.Returns, deps.Kardex, log)
	inv.Post("/receipts", managers, inventoryHandler.Receive)
	inv.Post("/dispensations", anyRole, inventoryHandler.Dispense)
	inv.Post("/returns", anyRole, inventoryHandler.Return)
	inv.Get("/kardex", anyRole, inventoryHandler.Kardex)
	inv.Get("/lots", anyRole, inventoryHandler.Lots)
	inv.Get("/lots/:lot/quantity", anyRole, inventoryHandler.LotQuantity)
	inv.Post("/integrity/verify", managers, inventoryHandler.Verify)

	transferHandler := NewTransferHandler(deps.Transfers, log)
	transfers := inv.Group("/transfers")
	transfers.Post("/", managers, transferHandler.Create)
	transfers.Get("/:id", anyRole, transferHandler.GetByID)
	transfers.Post("/:id/send", managers, transferHandler.Send)
	transfers.Post("/:id/receive", managers, transferHandler.Receive)
	transfers.Post("/:id/cancel", managers, transferHandler.Cancel)

	pendingHandler := NewPendingHandler(deps.Pending, log)
	pending := inv.Group("/pending-items")
	pending.Get("/", anyRole, pendingHandler.ListByPatient)
	pending.Get("/:id", anyRole, pendingHandler.GetByID)
	pending.Post("/:id/deliver", anyRole, pendingHandler.Deliver)
	pending.Post("/:id/notify", anyRole, pendingHandler.Notify)
	pending.Post("/:id/cancel", managers, pendingHandler.Cancel)
}
