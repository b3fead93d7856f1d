package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fieldops/maintenance-service/internal/domain"
	"github.com/fieldops/maintenance-service/internal/repository"
)

// EquipmentStatusSync keeps equipment availability consistent with the tickets
// that reference it. It never authorizes anything itself.
type EquipmentStatusSync struct {
	logger *zap.Logger
}

// NewEquipmentStatusSync builds the sync.
func NewEquipmentStatusSync(logger *zap.Logger) *EquipmentStatusSync {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EquipmentStatusSync{logger: logger}
}

// OnTicketStatusChanged recomputes the status of equipmentID inside tx. The
// count of holding tickets already includes the ticket that just changed, so
// closing one of several open tickets leaves the equipment under service.
func (s *EquipmentStatusSync) OnTicketStatusChanged(ctx context.Context, tx repository.Tx, equipmentID string, newStatus domain.TicketStatus, at time.Time) error {
	equipment, err := tx.GetEquipmentForUpdate(ctx, equipmentID)
	if err != nil {
		return fmt.Errorf("lock equipment %s: %w", equipmentID, err)
	}
	holding, err := tx.CountHoldingTickets(ctx, equipmentID)
	if err != nil {
		return fmt.Errorf("count tickets for equipment %s: %w", equipmentID, err)
	}

	target := nextEquipmentStatus(equipment.Status, holding)
	var serviced *time.Time
	if newStatus == domain.TicketStatusClosed {
		serviced = &at
	}
	if target == equipment.Status && serviced == nil {
		return nil
	}
	if err := tx.UpdateEquipmentStatus(ctx, equipmentID, target, serviced); err != nil {
		return err
	}
	s.logger.Debug("equipment status recomputed",
		zap.String("equipment_id", equipmentID),
		zap.String("from", string(equipment.Status)),
		zap.String("to", string(target)),
		zap.Int("holding_tickets", holding))
	return nil
}

// nextEquipmentStatus derives availability from the number of holding
// tickets. A manual inactive/retired override survives once no ticket holds
// the equipment.
func nextEquipmentStatus(current domain.EquipmentStatus, holding int) domain.EquipmentStatus {
	if holding > 0 {
		return domain.EquipmentStatusUnderService
	}
	if current == domain.EquipmentStatusUnderService {
		return domain.EquipmentStatusActive
	}
	return current
}
