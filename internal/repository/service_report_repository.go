package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/maintenance-service/internal/domain"
)

// ServiceReportRepository reads service reports. Writes go through TicketStore
// so they commit with the ticket transition.
type ServiceReportRepository interface {
	GetByID(ctx context.Context, id string) (*domain.ServiceReport, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.ServiceReport, error)
}

type serviceReportRepository struct {
	pool *pgxpool.Pool
}

// NewServiceReportRepository builds repository.
func NewServiceReportRepository(pool *pgxpool.Pool) ServiceReportRepository {
	return &serviceReportRepository{pool: pool}
}

const selectServiceReport = `
        SELECT id, ticket_id, engineer_id, work_description, time_spent, parts_replaced,
               before_photos, after_photos, verification_status, verified_by, rejection_reason,
               submitted_at, verified_at
        FROM service_reports`

func (r *serviceReportRepository) GetByID(ctx context.Context, id string) (*domain.ServiceReport, error) {
	return scanServiceReport(r.pool.QueryRow(ctx, selectServiceReport+` WHERE id=$1`, id))
}

func (r *serviceReportRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.ServiceReport, error) {
	rows, err := r.pool.Query(ctx, selectServiceReport+` WHERE ticket_id=$1 ORDER BY submitted_at ASC`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ServiceReport
	for rows.Next() {
		report, err := scanServiceReport(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *report)
	}
	return result, rows.Err()
}

func insertServiceReport(ctx context.Context, q queryer, report *domain.ServiceReport) error {
	const query = `
        INSERT INTO service_reports (id, ticket_id, engineer_id, work_description, time_spent, parts_replaced,
                                     before_photos, after_photos, verification_status, submitted_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	parts := report.PartsReplaced
	if parts == nil {
		parts = []domain.PartReplaced{}
	}
	_, err := q.Exec(ctx, query,
		report.ID,
		report.TicketID,
		report.EngineerID,
		report.WorkDescription,
		report.TimeSpent,
		parts,
		nonNil(report.BeforePhotos),
		nonNil(report.AfterPhotos),
		report.VerificationStatus,
		report.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("insert service report: %w", err)
	}
	return nil
}

func scanServiceReport(row pgx.Row) (*domain.ServiceReport, error) {
	var report domain.ServiceReport
	if err := row.Scan(
		&report.ID,
		&report.TicketID,
		&report.EngineerID,
		&report.WorkDescription,
		&report.TimeSpent,
		&report.PartsReplaced,
		&report.BeforePhotos,
		&report.AfterPhotos,
		&report.VerificationStatus,
		&report.VerifiedBy,
		&report.RejectionReason,
		&report.SubmittedAt,
		&report.VerifiedAt,
	); err != nil {
		if isMissingRow(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &report, nil
}
