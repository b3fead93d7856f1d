package dto

import (
	"time"

	"github.com/fieldops/maintenance-service/internal/domain"
)

// CreateEquipmentRequest payload.
type CreateEquipmentRequest struct {
	Name                string          `json:"name"`
	Type                string          `json:"type"`
	SerialNumber        string          `json:"serial_number"`
	Location            domain.Location `json:"location"`
	SupplierName        string          `json:"supplier_name"`
	ServiceIntervalDays *int            `json:"service_interval_days"`
}

// EquipmentStatusRequest sets a manual status.
type EquipmentStatusRequest struct {
	Status domain.EquipmentStatus `json:"status"`
}

// EquipmentResponse represents an asset.
type EquipmentResponse struct {
	ID                  string                 `json:"id"`
	Code                string                 `json:"code"`
	Name                string                 `json:"name"`
	Type                string                 `json:"type"`
	SerialNumber        string                 `json:"serial_number,omitempty"`
	Location            domain.Location        `json:"location"`
	SupplierName        string                 `json:"supplier_name,omitempty"`
	Status              domain.EquipmentStatus `json:"status"`
	ServiceIntervalDays *int                   `json:"service_interval_days,omitempty"`
	LastServiceDate     *time.Time             `json:"last_service_date"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

// MaintenanceDueResponse is one entry of the preventive maintenance schedule.
type MaintenanceDueResponse struct {
	Equipment    EquipmentResponse `json:"equipment"`
	DueDate      time.Time         `json:"due_date"`
	DaysUntilDue int               `json:"days_until_due"`
	Overdue      bool              `json:"overdue"`
}
