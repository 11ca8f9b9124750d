package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/dispensario-api/internal/application/dto"
	"github.com/jhoicas/dispensario-api/internal/application/inventory"
	"github.com/jhoicas/dispensario-api/pkg/logger"
)

// PendingHandler pendientes de entrega a pacientes (protegido).
type PendingHandler struct {
	uc  *inventory.PendingUseCase
	log *logger.Logger
}

// NewPendingHandler construye el handler.
func NewPendingHandler(uc *inventory.PendingUseCase, log *logger.Logger) *PendingHandler {
	return &PendingHandler{uc: uc, log: log}
}

// ListByPatient godoc
// @Summary      Pendientes de un paciente
// @Tags         pending-items
// @Security     Bearer
// @Produce      json
// @Param        patient_id  query  string  true  "Paciente"
// @Success      200  {object}  dto.ListResponse[dto.PendingItemResponse]
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/pending-items [get]
func (h *PendingHandler) ListByPatient(c *fiber.Ctx) error {
	patientID := c.Query("patient_id")
	if patientID == "" {
		return validationFailed(c, map[string]any{"patient_id": "campo requerido"})
	}
	items, err := h.uc.ListByPatient(c.UserContext(), patientID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]dto.PendingItemResponse, 0, len(items))
	for i := range items {
		out = append(out, dto.NewPendingItemResponse(&items[i]))
	}
	return c.JSON(dto.NewList(out))
}

// GetByID godoc
// @Summary      Obtener pendiente
// @Tags         pending-items
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del pendiente"
// @Success      200  {object}  dto.PendingItemResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/pending-items/{id} [get]
func (h *PendingHandler) GetByID(c *fiber.Ctx) error {
	p, err := h.uc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewPendingItemResponse(p))
}

// Deliver godoc
// @Summary      Entregar pendiente
// @Tags         pending-items
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "ID del pendiente"
// @Param        body  body  dto.DeliverPendingRequest  true  "Cantidad y lote opcional"
// @Success      200   {object}  dto.PendingDeliveryResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/pending-items/{id}/deliver [post]
func (h *PendingHandler) Deliver(c *fiber.Ctx) error {
	var in dto.DeliverPendingRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if details := validateStruct(in); details != nil {
		return validationFailed(c, details)
	}
	res, err := h.uc.Deliver(c.UserContext(), inventory.DeliverPendingInput{
		PendingItemID: c.Params("id"), Quantity: in.Quantity, LotNumber: in.LotNumber, UserID: GetUserID(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	drawn := res.Drawn
	if drawn == nil {
		drawn = []inventory.DrawnLot{}
	}
	return c.JSON(dto.PendingDeliveryResponse{Item: dto.NewPendingItemResponse(res.Item), Drawn: drawn})
}

// Cancel godoc
// @Summary      Cancelar pendiente
// @Tags         pending-items
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "ID del pendiente"
// @Param        body  body  dto.CancelPendingRequest  true  "Motivo"
// @Success      200   {object}  dto.PendingItemResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/pending-items/{id}/cancel [post]
func (h *PendingHandler) Cancel(c *fiber.Ctx) error {
	var in dto.CancelPendingRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if details := validateStruct(in); details != nil {
		return validationFailed(c, details)
	}
	p, err := h.uc.Cancel(c.UserContext(), c.Params("id"), in.Reason)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewPendingItemResponse(p))
}

// Notify godoc
// @Summary      Avisar al paciente que su pendiente está disponible
// @Tags         pending-items
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del pendiente"
// @Success      200  {object}  dto.PendingItemResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/inventory/pending-items/{id}/notify [post]
func (h *PendingHandler) Notify(c *fiber.Ctx) error {
	p, err := h.uc.Notify(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewPendingItemResponse(p))
}
