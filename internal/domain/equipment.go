package domain

import (
	"math"
	"time"
)

// EquipmentStatus enumerates availability of a physical asset.
type EquipmentStatus string

const (
	EquipmentStatusActive       EquipmentStatus = "active"
	EquipmentStatusUnderService EquipmentStatus = "under_service"
	EquipmentStatusInactive     EquipmentStatus = "inactive"
	EquipmentStatusRetired      EquipmentStatus = "retired"
)

// ManualOverride reports whether an administrator may set this status by hand.
// under_service is always derived from open tickets.
func (s EquipmentStatus) ManualOverride() bool {
	switch s {
	case EquipmentStatusActive, EquipmentStatusInactive, EquipmentStatusRetired:
		return true
	}
	return false
}

// Location pins equipment inside a site.
type Location struct {
	Building string `json:"building"`
	Floor    string `json:"floor"`
	Room     string `json:"room"`
	Area     string `json:"area,omitempty"`
}

// Equipment is a physical asset identified by a scannable code.
type Equipment struct {
	ID                  string
	Code                string
	Name                string
	Type                string
	SerialNumber        string
	Location            Location
	SupplierName        string
	Status              EquipmentStatus
	ServiceIntervalDays *int
	LastServiceDate     *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NextServiceDue is the last service date plus the service interval. Equipment
// without both has no schedule.
func (e *Equipment) NextServiceDue() (time.Time, bool) {
	if e.LastServiceDate == nil || e.ServiceIntervalDays == nil || *e.ServiceIntervalDays <= 0 {
		return time.Time{}, false
	}
	return e.LastServiceDate.AddDate(0, 0, *e.ServiceIntervalDays), true
}

// MaintenanceDue is a scheduled service falling inside a lookahead window.
type MaintenanceDue struct {
	Equipment    Equipment
	DueDate      time.Time
	DaysUntilDue int
	Overdue      bool
}

// ScheduleMaintenance reports when e is due relative to now. Partial days round
// up, so anything due later today counts as one day away.
func ScheduleMaintenance(e *Equipment, now time.Time) (MaintenanceDue, bool) {
	due, ok := e.NextServiceDue()
	if !ok {
		return MaintenanceDue{}, false
	}
	days := int(math.Ceil(due.Sub(now).Hours() / 24))
	return MaintenanceDue{
		Equipment:    *e,
		DueDate:      due,
		DaysUntilDue: days,
		Overdue:      days < 0,
	}, true
}
