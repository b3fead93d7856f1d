package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/maintenance-service/internal/domain"
)

// EquipmentRepository encapsulates equipment persistence outside ticket transitions.
type EquipmentRepository interface {
	Create(ctx context.Context, equipment *domain.Equipment) error
	GetByID(ctx context.Context, id string) (*domain.Equipment, error)
	GetByCode(ctx context.Context, code string) (*domain.Equipment, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	// OverrideStatus sets a manual status. It fails with ErrEquipmentInUse
	// while any ticket still holds the equipment.
	OverrideStatus(ctx context.Context, id string, status domain.EquipmentStatus) (*domain.Equipment, error)
	// ListServiceDue returns active equipment whose next scheduled service
	// falls on or before cutoff, earliest first.
	ListServiceDue(ctx context.Context, cutoff time.Time) ([]domain.Equipment, error)
}

type equipmentRepository struct {
	pool *pgxpool.Pool
}

// NewEquipmentRepository instantiates repository.
func NewEquipmentRepository(pool *pgxpool.Pool) EquipmentRepository {
	return &equipmentRepository{pool: pool}
}

const selectEquipment = `
        SELECT id, code, name, type, serial_number, building, floor, room, area, supplier_name,
               status, service_interval_days, last_service_date, created_at, updated_at
        FROM equipment`

func (r *equipmentRepository) Create(ctx context.Context, equipment *domain.Equipment) error {
	const query = `
        INSERT INTO equipment (id, code, name, type, serial_number, building, floor, room, area,
                               supplier_name, status, service_interval_days, last_service_date)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		equipment.ID,
		equipment.Code,
		equipment.Name,
		equipment.Type,
		equipment.SerialNumber,
		equipment.Location.Building,
		equipment.Location.Floor,
		equipment.Location.Room,
		equipment.Location.Area,
		equipment.SupplierName,
		equipment.Status,
		equipment.ServiceIntervalDays,
		equipment.LastServiceDate,
	).Scan(&equipment.CreatedAt, &equipment.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *equipmentRepository) GetByID(ctx context.Context, id string) (*domain.Equipment, error) {
	return scanEquipment(r.pool.QueryRow(ctx, selectEquipment+` WHERE id=$1`, id))
}

func (r *equipmentRepository) GetByCode(ctx context.Context, code string) (*domain.Equipment, error) {
	return scanEquipment(r.pool.QueryRow(ctx, selectEquipment+` WHERE code=$1`, strings.ToUpper(code)))
}

func (r *equipmentRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM equipment WHERE code=$1)`, code).Scan(&exists)
	return exists, err
}

func (r *equipmentRepository) OverrideStatus(ctx context.Context, id string, status domain.EquipmentStatus) (*domain.Equipment, error) {
	var result *domain.Equipment
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		equipment, err := scanEquipment(tx.QueryRow(ctx, selectEquipment+` WHERE id=$1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		holding, err := countHoldingTickets(ctx, tx, id)
		if err != nil {
			return err
		}
		if holding > 0 {
			return ErrEquipmentInUse
		}
		if _, err := tx.Exec(ctx, `UPDATE equipment SET status=$1, updated_at=NOW() WHERE id=$2`, status, id); err != nil {
			return fmt.Errorf("override equipment status: %w", err)
		}
		equipment.Status = status
		result = equipment
		return nil
	})
	return result, err
}

func (r *equipmentRepository) ListServiceDue(ctx context.Context, cutoff time.Time) ([]domain.Equipment, error) {
	const where = `
        WHERE status=$1
          AND service_interval_days > 0
          AND last_service_date IS NOT NULL
          AND last_service_date + make_interval(days => service_interval_days) <= $2
        ORDER BY last_service_date + make_interval(days => service_interval_days) ASC, code ASC`
	rows, err := r.pool.Query(ctx, selectEquipment+where, domain.EquipmentStatusActive, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list service due: %w", err)
	}
	defer rows.Close()

	var out []domain.Equipment
	for rows.Next() {
		equipment, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *equipment)
	}
	return out, rows.Err()
}

func scanEquipment(row pgx.Row) (*domain.Equipment, error) {
	var equipment domain.Equipment
	if err := row.Scan(
		&equipment.ID,
		&equipment.Code,
		&equipment.Name,
		&equipment.Type,
		&equipment.SerialNumber,
		&equipment.Location.Building,
		&equipment.Location.Floor,
		&equipment.Location.Room,
		&equipment.Location.Area,
		&equipment.SupplierName,
		&equipment.Status,
		&equipment.ServiceIntervalDays,
		&equipment.LastServiceDate,
		&equipment.CreatedAt,
		&equipment.UpdatedAt,
	); err != nil {
		if isMissingRow(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &equipment, nil
}
