package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fieldops/maintenance-service/internal/domain"
	"github.com/fieldops/maintenance-service/internal/repository"
)

func seed(t *testing.T) (*Store, *domain.Ticket) {
	t.Helper()
	s := New()
	ctx := context.Background()
	if err := s.Equipment().Create(ctx, &domain.Equipment{ID: "eq-1", Code: "EQ-AAAA0001", Status: domain.EquipmentStatusActive}); err != nil {
		t.Fatalf("seed equipment: %v", err)
	}
	ticket := &domain.Ticket{ID: "t-1", TicketNumber: "TKT-2610-AAAAAA", EquipmentID: "eq-1", RaisedBy: "u-1", Status: domain.TicketStatusOpen}
	err := s.Tickets().Insert(ctx, ticket, func(ctx context.Context, tx repository.Tx, _ *domain.Ticket) error {
		return tx.UpdateEquipmentStatus(ctx, "eq-1", domain.EquipmentStatusUnderService, nil)
	})
	if err != nil {
		t.Fatalf("seed ticket: %v", err)
	}
	return s, ticket
}

func TestInsertRejectsDuplicateNumber(t *testing.T) {
	s, ticket := seed(t)
	dup := *ticket
	dup.ID = "t-2"
	if err := s.Tickets().Insert(context.Background(), &dup, nil); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
	if exists, _ := s.Tickets().TicketNumberExists(context.Background(), ticket.TicketNumber); !exists {
		t.Error("ticket number not indexed")
	}
}

func TestCompareAndSwapConflict(t *testing.T) {
	s, ticket := seed(t)
	applied := false
	_, err := s.Tickets().CompareAndSwap(context.Background(), ticket.ID, domain.TicketStatusAssigned, repository.Mutation{
		Apply: func(*domain.Ticket) error { applied = true; return nil },
	})
	if !errors.Is(err, repository.ErrConflict) || applied {
		t.Fatalf("err = %v applied = %v, want conflict without apply", err, applied)
	}
	if _, err := s.Tickets().CompareAndSwap(context.Background(), "missing", domain.TicketStatusOpen, repository.Mutation{}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("missing ticket: err = %v", err)
	}
}

func TestFailedEffectsDiscardStagedWrites(t *testing.T) {
	s, ticket := seed(t)
	ctx := context.Background()
	boom := errors.New("boom")
	_, err := s.Tickets().CompareAndSwap(ctx, ticket.ID, domain.TicketStatusOpen, repository.Mutation{
		Apply: func(tk *domain.Ticket) error {
			tk.Status = domain.TicketStatusClosed
			return nil
		},
		Effects: func(ctx context.Context, tx repository.Tx, tk *domain.Ticket) error {
			if err := tx.UpdateEquipmentStatus(ctx, tk.EquipmentID, domain.EquipmentStatusActive, nil); err != nil {
				return err
			}
			if err := tx.InsertServiceReport(ctx, &domain.ServiceReport{ID: "r-1", TicketID: tk.ID}); err != nil {
				return err
			}
			return boom
		},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	stored, _ := s.Tickets().LoadForUpdate(ctx, ticket.ID)
	if stored.Status != domain.TicketStatusOpen {
		t.Errorf("ticket status = %s, want open", stored.Status)
	}
	equipment, _ := s.Equipment().GetByID(ctx, "eq-1")
	if equipment.Status != domain.EquipmentStatusUnderService {
		t.Errorf("equipment status = %s, want under_service", equipment.Status)
	}
	if reports, _ := s.Reports().ListByTicket(ctx, ticket.ID); len(reports) != 0 {
		t.Errorf("reports = %d, want none", len(reports))
	}
}

func TestStagedTxSeesItsOwnWrites(t *testing.T) {
	s, ticket := seed(t)
	ctx := context.Background()
	first := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.Tickets().CompareAndSwap(ctx, ticket.ID, domain.TicketStatusOpen, repository.Mutation{
		Apply: func(tk *domain.Ticket) error {
			tk.Status = domain.TicketStatusClosed
			return nil
		},
		Effects: func(ctx context.Context, tx repository.Tx, tk *domain.Ticket) error {
			holding, err := tx.CountHoldingTickets(ctx, tk.EquipmentID)
			if err != nil || holding != 0 {
				t.Errorf("holding = %d err = %v, want 0 after close", holding, err)
			}
			report := &domain.ServiceReport{ID: "r-1", TicketID: tk.ID, VerificationStatus: domain.VerificationPending, SubmittedAt: first}
			if err := tx.InsertServiceReport(ctx, report); err != nil {
				return err
			}
			pending, err := tx.PendingServiceReport(ctx, tk.ID)
			if err != nil || pending.ID != "r-1" {
				t.Errorf("pending = %+v err = %v", pending, err)
			}
			return tx.UpdateEquipmentStatus(ctx, tk.EquipmentID, domain.EquipmentStatusActive, &first)
		},
	})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	equipment, _ := s.Equipment().GetByID(ctx, "eq-1")
	if equipment.Status != domain.EquipmentStatusActive || equipment.LastServiceDate == nil {
		t.Errorf("equipment = %+v", equipment)
	}
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	s, ticket := seed(t)
	ctx := context.Background()
	loaded, _ := s.Tickets().LoadForUpdate(ctx, ticket.ID)
	loaded.Status = domain.TicketStatusClosed
	again, _ := s.Tickets().LoadForUpdate(ctx, ticket.ID)
	if again.Status != domain.TicketStatusOpen {
		t.Fatal("caller mutation leaked into the store")
	}
}

func TestOverrideStatusRefusesHeldEquipment(t *testing.T) {
	s, _ := seed(t)
	if _, err := s.Equipment().OverrideStatus(context.Background(), "eq-1", domain.EquipmentStatusRetired); !errors.Is(err, repository.ErrEquipmentInUse) {
		t.Fatalf("err = %v, want ErrEquipmentInUse", err)
	}
}

func TestEquipmentCodesAreCaseInsensitive(t *testing.T) {
	s, _ := seed(t)
	ctx := context.Background()
	if err := s.Equipment().Create(ctx, &domain.Equipment{ID: "eq-2", Code: "eq-aaaa0001"}); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
	found, err := s.Equipment().GetByCode(ctx, "eq-aaaa0001")
	if err != nil || found.ID != "eq-1" {
		t.Fatalf("lookup = %+v, %v", found, err)
	}
}
