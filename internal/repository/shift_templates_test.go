package repository

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetContractIDForTemplates(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT DISTINCT contract_id FROM shift_templates`).
		WillReturnRows(sqlmock.NewRows([]string{"contract_id"}).AddRow(int64(1)))

	contractID, err := repo.GetContractIDForTemplates([]int64{3, 4})

	require.NoError(t, err)
	assert.Equal(t, int64(1), contractID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetContractIDForTemplatesNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT DISTINCT contract_id FROM shift_templates`).
		WillReturnRows(sqlmock.NewRows([]string{"contract_id"}))

	_, err := repo.GetContractIDForTemplates([]int64{999})

	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetContractIDForTemplatesAcrossContracts(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT DISTINCT contract_id FROM shift_templates`).
		WillReturnRows(sqlmock.NewRows([]string{"contract_id"}).
			AddRow(int64(1)).
			AddRow(int64(2)))

	_, err := repo.GetContractIDForTemplates([]int64{3, 4})

	assert.ErrorIs(t, err, ErrTemplatesAcrossContracts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
