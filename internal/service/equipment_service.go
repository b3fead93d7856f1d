package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldops/maintenance-service/internal/domain"
	"github.com/fieldops/maintenance-service/internal/repository"
	apperrors "github.com/fieldops/maintenance-service/pkg/util/errorutil"
)

// CreateEquipmentInput is the registration payload for an asset.
type CreateEquipmentInput struct {
	Name                string
	Type                string
	SerialNumber        string
	Location            domain.Location
	SupplierName        string
	ServiceIntervalDays *int
}

// EquipmentService registers assets and serves QR lookups.
type EquipmentService struct {
	repo      repository.EquipmentRepository
	allocator *CodeAllocator
	logger    *zap.Logger
	now       func() time.Time
}

const (
	DefaultMaintenanceWindowDays = 30
	MaxMaintenanceWindowDays     = 365
)

// NewEquipmentService constructs the service.
func NewEquipmentService(repo repository.EquipmentRepository, allocator *CodeAllocator, logger *zap.Logger) *EquipmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if allocator == nil {
		allocator = NewCodeAllocator(defaultCodeAttempts)
	}
	return &EquipmentService{repo: repo, allocator: allocator, logger: logger, now: time.Now}
}

// Create registers equipment under a freshly allocated EQ code.
func (s *EquipmentService) Create(ctx context.Context, actor domain.Actor, input CreateEquipmentInput) (*domain.Equipment, error) {
	if !actor.HasRole(domain.RoleAdmin, domain.RoleSupervisor) {
		return nil, apperrors.NewForbidden("only admins or supervisors may register equipment")
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Type = strings.TrimSpace(input.Type)
	if input.Name == "" || input.Type == "" {
		return nil, apperrors.NewValidationError("name and type required", nil)
	}
	if input.ServiceIntervalDays != nil && *input.ServiceIntervalDays < 1 {
		return nil, apperrors.NewValidationError("service interval must be positive", nil)
	}

	equipment := &domain.Equipment{
		ID:                  uuid.NewString(),
		Name:                input.Name,
		Type:                input.Type,
		SerialNumber:        strings.TrimSpace(input.SerialNumber),
		Location:            input.Location,
		SupplierName:        strings.TrimSpace(input.SupplierName),
		Status:              domain.EquipmentStatusActive,
		ServiceIntervalDays: input.ServiceIntervalDays,
	}
	_, err := s.allocator.EquipmentCode(ctx, s.repo.CodeExists, func(ctx context.Context, code string) error {
		equipment.Code = code
		return s.repo.Create(ctx, equipment)
	})
	if err != nil {
		return nil, storeError(err, "equipment", nil)
	}
	s.logger.Info("equipment registered",
		zap.String("equipment_id", equipment.ID),
		zap.String("code", equipment.Code),
		zap.String("actor_id", actor.ID))
	return equipment, nil
}

// Get returns equipment by id.
func (s *EquipmentService) Get(ctx context.Context, id string) (*domain.Equipment, error) {
	equipment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "equipment", map[string]any{"equipment_id": id})
	}
	return equipment, nil
}

// GetByCode resolves a scanned code. Lookup is case-insensitive.
func (s *EquipmentService) GetByCode(ctx context.Context, code string) (*domain.Equipment, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, apperrors.NewValidationError("code required", nil)
	}
	equipment, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, storeError(err, "equipment", map[string]any{"code": code})
	}
	return equipment, nil
}

// SetStatus applies a manual override. under_service is derived from tickets
// and cannot be set here.
func (s *EquipmentService) SetStatus(ctx context.Context, actor domain.Actor, id string, status domain.EquipmentStatus) (*domain.Equipment, error) {
	if !actor.HasRole(domain.RoleAdmin) {
		return nil, apperrors.NewForbidden("only admins may override equipment status")
	}
	if !status.ManualOverride() {
		return nil, apperrors.NewValidationError("status must be active, inactive or retired", map[string]any{"status": status})
	}
	equipment, err := s.repo.OverrideStatus(ctx, id, status)
	if errors.Is(err, repository.ErrEquipmentInUse) {
		return nil, apperrors.NewInvalidTransition("equipment has active tickets", map[string]any{"equipment_id": id})
	}
	if err != nil {
		return nil, storeError(err, "equipment", map[string]any{"equipment_id": id})
	}
	s.logger.Info("equipment status overridden",
		zap.String("equipment_id", id),
		zap.String("status", string(status)),
		zap.String("actor_id", actor.ID))
	return equipment, nil
}

// DueForMaintenance lists active equipment whose scheduled service falls within
// daysAhead days, overdue items first.
func (s *EquipmentService) DueForMaintenance(ctx context.Context, actor domain.Actor, daysAhead int) ([]domain.MaintenanceDue, error) {
	if !actor.HasRole(domain.RoleEngineer, domain.RoleSupervisor, domain.RoleAdmin) {
		return nil, apperrors.NewForbidden("maintenance schedule is limited to maintenance staff")
	}
	if daysAhead < 0 || daysAhead > MaxMaintenanceWindowDays {
		return nil, apperrors.NewValidationError("days must be between 0 and 365", map[string]any{"days": daysAhead})
	}
	now := s.now().UTC()
	equipment, err := s.repo.ListServiceDue(ctx, now.AddDate(0, 0, daysAhead))
	if err != nil {
		return nil, storeError(err, "equipment", nil)
	}
	due := make([]domain.MaintenanceDue, 0, len(equipment))
	for i := range equipment {
		if item, ok := domain.ScheduleMaintenance(&equipment[i], now); ok {
			due = append(due, item)
		}
	}
	return due, nil
}
