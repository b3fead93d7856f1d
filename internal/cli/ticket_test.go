package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fieldops/maintenance-service/internal/domain"
)

func TestPrintTicket(t *testing.T) {
	at := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	engineer := "eng-1"
	ticket := &domain.Ticket{
		TicketNumber: "TKT-2610-ABC123",
		EquipmentID:  "eq-1",
		RaisedBy:     "user-1",
		AssignedTo:   &engineer,
		Priority:     domain.TicketPriorityHigh,
		Status:       domain.TicketStatusAssigned,
		IssueType:    "not_powering_on",
		ReopenCount:  1,
		Timeline: domain.Timeline{
			{Status: domain.TicketStatusOpen, ActorID: "user-1", Notes: "Ticket created", Timestamp: at},
			{Status: domain.TicketStatusAssigned, ActorID: "sup-1", Notes: "Ticket assigned to engineer", Timestamp: at.Add(time.Minute)},
		},
	}

	var out bytes.Buffer
	if err := printTicket(&out, ticket); err != nil {
		t.Fatalf("printTicket: %v", err)
	}
	got := out.String()
	for _, want := range []string{
		"TKT-2610-ABC123  [assigned]  not_powering_on",
		"Assigned:  eng-1",
		"Reopened:  1",
		"2026-10-18T08:01:00Z",
		"Ticket assigned to engineer",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if lines := strings.Count(got, "\n"); lines != 10 {
		t.Errorf("line count = %d:\n%s", lines, got)
	}
}

func TestUserCreateRejectsUnknownRole(t *testing.T) {
	cmd := UserCmd()
	cmd.SetArgs([]string{"create", "a@example.com", "--name", "A", "--password", "secret1", "--role", "owner"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "invalid role") {
		t.Fatalf("err = %v, want invalid role", err)
	}
}

func TestPrintMaintenanceDue(t *testing.T) {
	var empty bytes.Buffer
	if err := printMaintenanceDue(&empty, nil); err != nil || !strings.Contains(empty.String(), "No equipment due") {
		t.Fatalf("empty schedule = %q, err = %v", empty.String(), err)
	}

	due := []domain.MaintenanceDue{
		{Equipment: domain.Equipment{Code: "EQ-AAAA0001", Name: "Autoclave"}, DueDate: time.Date(2026, 10, 8, 0, 0, 0, 0, time.UTC), DaysUntilDue: -10, Overdue: true},
		{Equipment: domain.Equipment{Code: "EQ-BBBB0002", Name: "Ventilator"}, DueDate: time.Date(2026, 10, 23, 0, 0, 0, 0, time.UTC), DaysUntilDue: 5},
	}
	var out bytes.Buffer
	if err := printMaintenanceDue(&out, due); err != nil {
		t.Fatalf("printMaintenanceDue: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.Contains(lines[1], "EQ-AAAA0001") || !strings.Contains(lines[1], "-10 (overdue)") {
		t.Errorf("overdue row = %q", lines[1])
	}
	if !strings.Contains(lines[2], "2026-10-23") || strings.Contains(lines[2], "overdue") {
		t.Errorf("upcoming row = %q", lines[2])
	}
}
