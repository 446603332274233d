package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/domain"
)

func TestGetLatestShiftDate(t *testing.T) {
	repo, mock := newMockRepository(t)

	latest := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT MAX\(shift_date\) FROM shifts`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(latest))

	got, err := repo.GetLatestShiftDate(1)

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, latest, *got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLatestShiftDateWithoutShifts(t *testing.T) {
	repo, mock := newMockRepository(t)

	// MAX 在没有任何行时返回 NULL
	mock.ExpectQuery(`SELECT MAX\(shift_date\) FROM shifts`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	got, err := repo.GetLatestShiftDate(1)

	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetShiftKeysInWindow(t *testing.T) {
	repo, mock := newMockRepository(t)

	from := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC)

	firstDate := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	firstStart := time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC)
	firstEnd := time.Date(2026, 3, 11, 17, 0, 0, 0, time.UTC)
	secondDate := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	secondStart := time.Date(2026, 3, 12, 20, 0, 0, 0, time.UTC)
	secondEnd := time.Date(2026, 3, 13, 6, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT location_id, shift_date, start_time, end_time\s+FROM shifts`).
		WithArgs(int64(1), from, to).
		WillReturnRows(sqlmock.NewRows([]string{"location_id", "shift_date", "start_time", "end_time"}).
			AddRow(int64(100), firstDate, firstStart, firstEnd).
			AddRow(int64(100), secondDate, secondStart, secondEnd))

	keys, err := repo.GetShiftKeysInWindow(1, from, to)

	require.NoError(t, err)
	assert.Len(t, keys, 2)
	assert.Contains(t, keys, domain.ShiftKey(100, firstDate, firstStart, firstEnd))
	assert.Contains(t, keys, domain.ShiftKey(100, secondDate, secondStart, secondEnd))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateShift(t *testing.T) {
	repo, mock := newMockRepository(t)

	shift := &domain.Shift{
		ContractID:     1,
		LocationID:     100,
		ShiftDate:      time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
		StartTime:      time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC),
		EndTime:        time.Date(2026, 3, 11, 17, 0, 0, 0, time.UTC),
		TotalMinutes:   540,
		BreakMinutes:   60,
		WorkMinutes:    480,
		DayHours:       9,
		GuardsRequired: 2,
		Status:         domain.ShiftStatusScheduled,
		Day:            11,
		Month:          3,
		Year:           2026,
		Quarter:        1,
		ISOWeek:        11,
		DayOfWeek:      3,
		CreatedBy:      10,
	}

	createdAt := time.Date(2026, 3, 8, 6, 30, 0, 0, time.UTC)
	mock.ExpectQuery(`INSERT INTO shifts`).
		WithArgs(
			shift.ContractID, shift.LocationID, shift.ShiftDate, shift.StartTime, shift.EndTime,
			shift.TotalMinutes, shift.BreakMinutes, shift.WorkMinutes, shift.NightHours, shift.DayHours,
			shift.GuardsRequired, shift.GuardsAssigned, shift.Status,
			shift.Day, shift.Month, shift.Year, shift.Quarter, shift.ISOWeek, shift.DayOfWeek, shift.CreatedBy,
		).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), createdAt))

	err := repo.CreateShift(shift)

	require.NoError(t, err)
	assert.Equal(t, int64(7), shift.ID)
	assert.Equal(t, createdAt, shift.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateShiftDuplicateKey(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`INSERT INTO shifts`).
		WillReturnError(errors.New(`duplicate key value violates unique constraint "shifts_unique_slot"`))

	err := repo.CreateShift(&domain.Shift{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate key")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetShiftStatistics(t *testing.T) {
	repo, mock := newMockRepository(t)

	earliest := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	latest := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT COUNT\(\*\), MIN\(shift_date\), MAX\(shift_date\) FROM shifts`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count", "min", "max"}).AddRow(int64(68), earliest, latest))

	stats, err := repo.GetShiftStatistics(1)

	require.NoError(t, err)
	assert.Equal(t, int64(68), stats.Count)
	require.NotNil(t, stats.EarliestDate)
	require.NotNil(t, stats.LatestDate)
	assert.Equal(t, earliest, *stats.EarliestDate)
	assert.Equal(t, latest, *stats.LatestDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetShiftStatisticsEmpty(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\), MIN\(shift_date\), MAX\(shift_date\) FROM shifts`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count", "min", "max"}).AddRow(int64(0), nil, nil))

	stats, err := repo.GetShiftStatistics(1)

	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Count)
	assert.Nil(t, stats.EarliestDate)
	assert.Nil(t, stats.LatestDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}
