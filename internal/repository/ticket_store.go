package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/maintenance-service/internal/domain"
)

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

type ticketStore struct {
	pool *pgxpool.Pool
}

// NewTicketStore returns a Postgres-backed TicketStore.
func NewTicketStore(pool *pgxpool.Pool) TicketStore {
	return &ticketStore{pool: pool}
}

// queryer is satisfied by both the pool and a transaction.
type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const selectTicket = `
        SELECT id, ticket_number, equipment_id, raised_by, assigned_to, priority, status,
               issue_type, description, photos, reopen_count, created_at, updated_at, closed_at
        FROM tickets WHERE id=$1`

func (s *ticketStore) LoadForUpdate(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return loadTicket(ctx, s.pool, ticketID)
}

func (s *ticketStore) CompareAndSwap(ctx context.Context, ticketID string, expected domain.TicketStatus, mutation Mutation) (*domain.Ticket, error) {
	var result *domain.Ticket
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		ticket, err := loadTicket(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if ticket.Status != expected {
			return ErrConflict
		}
		before := len(ticket.Timeline)
		if err := mutation.Apply(ticket); err != nil {
			return err
		}

		const update = `
        UPDATE tickets SET assigned_to=$1, status=$2, reopen_count=$3, closed_at=$4, updated_at=$5
        WHERE id=$6 AND status=$7`
		cmd, err := tx.Exec(ctx, update,
			ticket.AssignedTo,
			ticket.Status,
			ticket.ReopenCount,
			ticket.ClosedAt,
			ticket.UpdatedAt,
			ticket.ID,
			expected,
		)
		if err != nil {
			return fmt.Errorf("update ticket: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return ErrConflict
		}
		if err := insertTimeline(ctx, tx, ticket.ID, before, ticket.Timeline.Since(before)); err != nil {
			return err
		}
		if mutation.Effects != nil {
			if err := mutation.Effects(ctx, &pgTx{tx: tx}, ticket); err != nil {
				return err
			}
		}
		result = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ticketStore) Insert(ctx context.Context, ticket *domain.Ticket, effects Effects) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		const query = `
        INSERT INTO tickets (id, ticket_number, equipment_id, raised_by, assigned_to, priority, status,
                             issue_type, description, photos, reopen_count, created_at, updated_at, closed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
		_, err := tx.Exec(ctx, query,
			ticket.ID,
			ticket.TicketNumber,
			ticket.EquipmentID,
			ticket.RaisedBy,
			ticket.AssignedTo,
			ticket.Priority,
			ticket.Status,
			ticket.IssueType,
			ticket.Description,
			nonNil(ticket.Photos),
			ticket.ReopenCount,
			ticket.CreatedAt,
			ticket.UpdatedAt,
			ticket.ClosedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("insert ticket: %w", err)
		}
		if err := insertTimeline(ctx, tx, ticket.ID, 0, ticket.Timeline); err != nil {
			return err
		}
		if effects != nil {
			return effects(ctx, &pgTx{tx: tx}, ticket)
		}
		return nil
	})
}

func (s *ticketStore) TicketNumberExists(ctx context.Context, ticketNumber string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE ticket_number=$1)`, ticketNumber).Scan(&exists)
	return exists, err
}

func loadTicket(ctx context.Context, q queryer, ticketID string) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := q.QueryRow(ctx, selectTicket, ticketID).Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.EquipmentID,
		&ticket.RaisedBy,
		&ticket.AssignedTo,
		&ticket.Priority,
		&ticket.Status,
		&ticket.IssueType,
		&ticket.Description,
		&ticket.Photos,
		&ticket.ReopenCount,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ClosedAt,
	); err != nil {
		if isMissingRow(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	const timelineQuery = `
        SELECT status, actor_id, notes, created_at
        FROM ticket_timeline WHERE ticket_id=$1 ORDER BY seq ASC`
	rows, err := q.Query(ctx, timelineQuery, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var entry domain.TimelineEntry
		if err := rows.Scan(&entry.Status, &entry.ActorID, &entry.Notes, &entry.Timestamp); err != nil {
			return nil, err
		}
		ticket.Timeline = append(ticket.Timeline, entry)
	}
	return &ticket, rows.Err()
}

func insertTimeline(ctx context.Context, q queryer, ticketID string, offset int, entries domain.Timeline) error {
	const query = `
        INSERT INTO ticket_timeline (ticket_id, seq, status, actor_id, notes, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	for i, entry := range entries {
		if _, err := q.Exec(ctx, query, ticketID, offset+i, entry.Status, entry.ActorID, entry.Notes, entry.Timestamp); err != nil {
			return fmt.Errorf("append timeline: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// isMissingRow reports lookups that cannot match a row, including ids that are not UUIDs.
func isMissingRow(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation
}

// pgTx implements Tx on top of an open pgx transaction.
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) GetEquipmentForUpdate(ctx context.Context, id string) (*domain.Equipment, error) {
	return scanEquipment(t.tx.QueryRow(ctx, selectEquipment+` WHERE id=$1 FOR UPDATE`, id))
}

func (t *pgTx) CountHoldingTickets(ctx context.Context, equipmentID string) (int, error) {
	return countHoldingTickets(ctx, t.tx, equipmentID)
}

func (t *pgTx) UpdateEquipmentStatus(ctx context.Context, id string, status domain.EquipmentStatus, lastServiceDate *time.Time) error {
	const query = `
        UPDATE equipment SET status=$1, last_service_date=COALESCE($2, last_service_date), updated_at=NOW()
        WHERE id=$3`
	cmd, err := t.tx.Exec(ctx, query, status, lastServiceDate, id)
	if err != nil {
		return fmt.Errorf("update equipment status: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) InsertServiceReport(ctx context.Context, report *domain.ServiceReport) error {
	return insertServiceReport(ctx, t.tx, report)
}

func (t *pgTx) UpdateServiceReport(ctx context.Context, report *domain.ServiceReport) error {
	const query = `
        UPDATE service_reports SET verification_status=$1, verified_by=$2, rejection_reason=$3, verified_at=$4
        WHERE id=$5`
	cmd, err := t.tx.Exec(ctx, query,
		report.VerificationStatus,
		report.VerifiedBy,
		report.RejectionReason,
		report.VerifiedAt,
		report.ID,
	)
	if err != nil {
		return fmt.Errorf("update service report: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) PendingServiceReport(ctx context.Context, ticketID string) (*domain.ServiceReport, error) {
	const where = ` WHERE ticket_id=$1 AND verification_status=$2 FOR UPDATE`
	return scanServiceReport(t.tx.QueryRow(ctx, selectServiceReport+where, ticketID, domain.VerificationPending))
}

func countHoldingTickets(ctx context.Context, q queryer, equipmentID string) (int, error) {
	statuses := make([]string, 0, len(domain.EquipmentHoldingStatuses()))
	for _, s := range domain.EquipmentHoldingStatuses() {
		statuses = append(statuses, string(s))
	}
	var count int
	err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM tickets WHERE equipment_id=$1 AND status = ANY($2)`,
		equipmentID, statuses,
	).Scan(&count)
	return count, err
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
