package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fieldops/maintenance-service/internal/domain"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a compare-and-swap observes a different status.
	ErrConflict = errors.New("ticket status changed concurrently")
	// ErrDuplicate is returned when a unique index rejects an insert.
	ErrDuplicate = errors.New("duplicate key")
	// ErrEquipmentInUse is returned when a manual status override meets an open ticket.
	ErrEquipmentInUse = errors.New("equipment has open tickets")
)

// Tx exposes the writes that commit together with a ticket change.
type Tx interface {
	GetEquipmentForUpdate(ctx context.Context, id string) (*domain.Equipment, error)
	CountHoldingTickets(ctx context.Context, equipmentID string) (int, error)
	UpdateEquipmentStatus(ctx context.Context, id string, status domain.EquipmentStatus, lastServiceDate *time.Time) error
	InsertServiceReport(ctx context.Context, report *domain.ServiceReport) error
	UpdateServiceReport(ctx context.Context, report *domain.ServiceReport) error
	// PendingServiceReport returns the report awaiting verification, or ErrNotFound.
	PendingServiceReport(ctx context.Context, ticketID string) (*domain.ServiceReport, error)
}

// Effects runs inside the ticket transaction after the ticket row is written.
type Effects func(ctx context.Context, tx Tx, ticket *domain.Ticket) error

// Mutation stages one transition against the freshly read ticket.
// Apply changes the ticket in memory and must append its timeline entry.
type Mutation struct {
	Apply   func(ticket *domain.Ticket) error
	Effects Effects
}

// TicketStore is the persistence contract of the lifecycle.
//
// CompareAndSwap commits only if the stored status still equals expected,
// otherwise it returns ErrConflict and nothing is written. The ticket update,
// its new timeline entries and everything Effects writes commit atomically.
type TicketStore interface {
	LoadForUpdate(ctx context.Context, ticketID string) (*domain.Ticket, error)
	CompareAndSwap(ctx context.Context, ticketID string, expected domain.TicketStatus, mutation Mutation) (*domain.Ticket, error)
	Insert(ctx context.Context, ticket *domain.Ticket, effects Effects) error
	TicketNumberExists(ctx context.Context, ticketNumber string) (bool, error)
}
