package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/domain"
)

func (r *Repository) GetLatestShiftDate(contractID int64) (*time.Time, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `SELECT MAX(shift_date) FROM shifts WHERE contract_id = $1`

	var latest sql.NullTime
	if err := r.dbpool.QueryRowContext(ctx, query, contractID).Scan(&latest); err != nil {
		return nil, err
	}
	if !latest.Valid {
		// 该合同还没有任何班次
		return nil, nil
	}

	return &latest.Time, nil
}

// GetShiftKeysInWindow 返回窗口内已存在班次的唯一键集合，用于生成时去重
func (r *Repository) GetShiftKeysInWindow(contractID int64, from time.Time, to time.Time) (map[string]struct{}, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT location_id, shift_date, start_time, end_time
		FROM shifts
		WHERE contract_id = $1 AND shift_date >= $2 AND shift_date < $3
	`

	rows, err := r.dbpool.QueryContext(ctx, query, contractID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]struct{})

	for rows.Next() {
		var (
			locationID int64
			shiftDate  time.Time
			startTime  time.Time
			endTime    time.Time
		)

		if err := rows.Scan(&locationID, &shiftDate, &startTime, &endTime); err != nil {
			return nil, err
		}

		keys[domain.ShiftKey(locationID, shiftDate, startTime, endTime)] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return keys, nil
}

func (r *Repository) CreateShift(shift *domain.Shift) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	// shifts 表在 (location_id, shift_date, start_time, end_time) 上有唯一约束，
	// 并发生成时重复插入会直接报错而不是产生重复班次
	query := `
		INSERT INTO shifts (
			contract_id, location_id, shift_date, start_time, end_time,
			total_minutes, break_minutes, work_minutes, night_hours, day_hours,
			guards_required, guards_assigned, status,
			day, month, year, quarter, iso_week, day_of_week, created_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id, created_at
	`

	args := []any{
		shift.ContractID, shift.LocationID, shift.ShiftDate, shift.StartTime, shift.EndTime,
		shift.TotalMinutes, shift.BreakMinutes, shift.WorkMinutes, shift.NightHours, shift.DayHours,
		shift.GuardsRequired, shift.GuardsAssigned, shift.Status,
		shift.Day, shift.Month, shift.Year, shift.Quarter, shift.ISOWeek, shift.DayOfWeek, shift.CreatedBy,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&shift.ID, &shift.CreatedAt); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetShiftStatistics(contractID int64) (*domain.ShiftStatistics, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `SELECT COUNT(*), MIN(shift_date), MAX(shift_date) FROM shifts WHERE contract_id = $1`

	stats := &domain.ShiftStatistics{}
	var (
		earliest sql.NullTime
		latest   sql.NullTime
	)

	if err := r.dbpool.QueryRowContext(ctx, query, contractID).Scan(&stats.Count, &earliest, &latest); err != nil {
		return nil, err
	}
	if earliest.Valid {
		stats.EarliestDate = &earliest.Time
	}
	if latest.Valid {
		stats.LatestDate = &latest.Time
	}

	return stats, nil
}

func (r *Repository) CountShiftsCreatedSince(since time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `SELECT COUNT(*) FROM shifts WHERE created_at >= $1`

	var count int64
	if err := r.dbpool.QueryRowContext(ctx, query, since).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}
