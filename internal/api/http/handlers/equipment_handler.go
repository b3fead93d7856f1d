package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/maintenance-service/internal/api/dto"
	"github.com/fieldops/maintenance-service/internal/domain"
	"github.com/fieldops/maintenance-service/internal/service"
	apperrors "github.com/fieldops/maintenance-service/pkg/util/errorutil"
)

// EquipmentHandler manages asset endpoints.
type EquipmentHandler struct {
	equipment *service.EquipmentService
}

// NewEquipmentHandler constructs handler.
func NewEquipmentHandler(equipment *service.EquipmentService) *EquipmentHandler {
	return &EquipmentHandler{equipment: equipment}
}

// Create handles POST /equipment.
func (h *EquipmentHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateEquipmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	equipment, err := h.equipment.Create(c.UserContext(), actor, service.CreateEquipmentInput{
		Name:                req.Name,
		Type:                req.Type,
		SerialNumber:        req.SerialNumber,
		Location:            req.Location,
		SupplierName:        req.SupplierName,
		ServiceIntervalDays: req.ServiceIntervalDays,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": equipmentResponse(equipment)})
}

// Get handles GET /equipment/:id.
func (h *EquipmentHandler) Get(c *fiber.Ctx) error {
	equipment, err := h.equipment.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": equipmentResponse(equipment)})
}

// GetByCode handles GET /equipment/code/:code, the public QR lookup.
func (h *EquipmentHandler) GetByCode(c *fiber.Ctx) error {
	equipment, err := h.equipment.GetByCode(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": equipmentResponse(equipment)})
}

// SetStatus handles PATCH /equipment/:id/status.
func (h *EquipmentHandler) SetStatus(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.EquipmentStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	equipment, err := h.equipment.SetStatus(c.UserContext(), actor, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": equipmentResponse(equipment)})
}

// MaintenanceDue handles GET /equipment/maintenance-due?days=N.
func (h *EquipmentHandler) MaintenanceDue(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	days := service.DefaultMaintenanceWindowDays
	if raw := c.Query("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil {
			return apperrors.NewValidationError("days must be an integer", map[string]any{"days": raw})
		}
	}
	due, err := h.equipment.DueForMaintenance(c.UserContext(), actor, days)
	if err != nil {
		return err
	}
	resp := make([]dto.MaintenanceDueResponse, 0, len(due))
	for i := range due {
		resp = append(resp, dto.MaintenanceDueResponse{
			Equipment:    equipmentResponse(&due[i].Equipment),
			DueDate:      due[i].DueDate,
			DaysUntilDue: due[i].DaysUntilDue,
			Overdue:      due[i].Overdue,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}

func equipmentResponse(e *domain.Equipment) dto.EquipmentResponse {
	return dto.EquipmentResponse{
		ID:                  e.ID,
		Code:                e.Code,
		Name:                e.Name,
		Type:                e.Type,
		SerialNumber:        e.SerialNumber,
		Location:            e.Location,
		SupplierName:        e.SupplierName,
		Status:              e.Status,
		ServiceIntervalDays: e.ServiceIntervalDays,
		LastServiceDate:     e.LastServiceDate,
		CreatedAt:           e.CreatedAt,
		UpdatedAt:           e.UpdatedAt,
	}
}
