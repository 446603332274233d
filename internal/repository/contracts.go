package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/domain"
)

// GetContractsNeedingGeneration 查找需要补充班次的合同：
// 启用中、至少有一个启用的排班模板，且没有任何班次或最晚班次日期不晚于 before
func (r *Repository) GetContractsNeedingGeneration(before time.Time) ([]*domain.GenerationCandidate, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT c.id, MAX(s.shift_date)
		FROM contracts c
		LEFT JOIN shifts s ON s.contract_id = c.id
		WHERE c.is_active = TRUE
			AND EXISTS (
				SELECT 1 FROM shift_templates t
				WHERE t.contract_id = c.id AND t.is_active = TRUE
			)
		GROUP BY c.id
		HAVING MAX(s.shift_date) IS NULL OR MAX(s.shift_date) <= $1
		ORDER BY c.id
	`

	rows, err := r.dbpool.QueryContext(ctx, query, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := make([]*domain.GenerationCandidate, 0)

	for rows.Next() {
		var (
			candidate  domain.GenerationCandidate
			latestDate sql.NullTime
		)

		if err := rows.Scan(&candidate.ContractID, &latestDate); err != nil {
			return nil, err
		}
		if latestDate.Valid {
			candidate.LatestShiftDate = &latestDate.Time
		}

		candidates = append(candidates, &candidate)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return candidates, nil
}

func (r *Repository) GetContractByID(id int64) (*domain.Contract, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT name, customer_name, manager_id, start_date, end_date, is_active, auto_generate, created_at, version
		FROM contracts WHERE id = $1
	`

	contract := &domain.Contract{
		ID: id,
	}

	dst := []any{&contract.Name, &contract.CustomerName, &contract.ManagerID, &contract.StartDate, &contract.EndDate, &contract.IsActive, &contract.AutoGenerate, &contract.CreatedAt, &contract.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return contract, nil
}

func (r *Repository) CreateContract(contract *domain.Contract) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		INSERT INTO contracts (name, customer_name, manager_id, start_date, end_date, is_active, auto_generate)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, version
	`

	args := []any{contract.Name, contract.CustomerName, contract.ManagerID, contract.StartDate, contract.EndDate, contract.IsActive, contract.AutoGenerate}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&contract.ID, &contract.CreatedAt, &contract.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) CreateLocation(location *domain.Location) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		INSERT INTO locations (contract_id, name, address)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	if err := r.dbpool.QueryRowContext(ctx, query, location.ContractID, location.Name, location.Address).Scan(&location.ID); err != nil {
		return err
	}

	return nil
}
