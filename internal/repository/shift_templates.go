package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/domain"
)

// ErrTemplatesAcrossContracts 表示传入的模板分属多个合同，
// 一次手动生成只能针对一个合同
var ErrTemplatesAcrossContracts = errors.New("排班模板分属不同合同")

// GetContractIDForTemplates 解析一组模板所属的合同，
// 模板不存在时返回 sql.ErrNoRows，分属多个合同时返回 ErrTemplatesAcrossContracts
func (r *Repository) GetContractIDForTemplates(templateIDs []int64) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `SELECT DISTINCT contract_id FROM shift_templates WHERE id = ANY($1)`

	rows, err := r.dbpool.QueryContext(ctx, query, templateIDs)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	contractIDs := make([]int64, 0, 1)
	for rows.Next() {
		var contractID int64
		if err := rows.Scan(&contractID); err != nil {
			return 0, err
		}
		contractIDs = append(contractIDs, contractID)
	}

	if err := rows.Err(); err != nil {
		return 0, err
	}

	switch len(contractIDs) {
	case 0:
		return 0, sql.ErrNoRows
	case 1:
		return contractIDs[0], nil
	default:
		return 0, ErrTemplatesAcrossContracts
	}
}

func (r *Repository) CountActiveTemplates() (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `SELECT COUNT(*) FROM shift_templates WHERE is_active = TRUE`

	var count int64
	if err := r.dbpool.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

func (r *Repository) CountContractsNeedingGeneration(before time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT COUNT(*)
		FROM contracts c
		WHERE c.is_active = TRUE
			AND EXISTS (
				SELECT 1 FROM shift_templates t
				WHERE t.contract_id = c.id AND t.is_active = TRUE
			)
			AND (
				NOT EXISTS (SELECT 1 FROM shifts s WHERE s.contract_id = c.id)
				OR (SELECT MAX(s.shift_date) FROM shifts s WHERE s.contract_id = c.id) <= $1
			)
	`

	var count int64
	if err := r.dbpool.QueryRowContext(ctx, query, before).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

func (r *Repository) CreateShiftTemplate(template *domain.ShiftTemplate) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		INSERT INTO shift_templates (
			contract_id, location_id, name, start_time, end_time, crosses_midnight,
			break_minutes, guards_per_shift,
			applies_monday, applies_tuesday, applies_wednesday, applies_thursday,
			applies_friday, applies_saturday, applies_sunday,
			applies_on_holidays, applies_on_weekends, skip_when_location_closed,
			effective_from, effective_to, schedule_type, is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		RETURNING id
	`

	args := []any{
		template.ContractID, template.LocationID, template.Name, template.StartTime, template.EndTime, template.CrossesMidnight,
		template.BreakMinutes, template.GuardsPerShift,
		template.AppliesMonday, template.AppliesTuesday, template.AppliesWednesday, template.AppliesThursday,
		template.AppliesFriday, template.AppliesSaturday, template.AppliesSunday,
		template.AppliesOnHolidays, template.AppliesOnWeekends, template.SkipWhenLocationClosed,
		template.EffectiveFrom, template.EffectiveTo, template.ScheduleType, template.IsActive,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&template.ID); err != nil {
		return err
	}

	return nil
}
