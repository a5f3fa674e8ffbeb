package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nziran/gradpipe/internal/database"
	"github.com/nziran/gradpipe/internal/domain"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return sqlx.NewDb(db, "postgres"), mock
}

func sampleRecord() domain.NormalizedRecord {
	return domain.NormalizedRecord{
		URL:         "https://www.thegradcafe.com/result/111",
		Program:     "Computer Science",
		University:  "Example University",
		Status:      domain.DecisionAccepted,
		Residency:   domain.ResidencyInternational,
		GPA:         domain.Some(3.8),
		Degree:      domain.Some("PhD"),
		DegreeLevel: domain.Some("PhD"),
		ScrapedAt:   time.Date(2025, 1, 16, 10, 0, 0, 0, time.UTC),
	}
}

func TestLoadInserts(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := database.NewApplicantRepository(db)

	mock.ExpectExec("INSERT INTO applicants").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := sampleRecord()
	outcome := repo.Load(context.Background(), &rec)

	assert.Equal(t, domain.LoadInserted, outcome.Result)
	assert.Equal(t, rec.URL, outcome.URL)
	assert.NoError(t, outcome.Err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadSkipsDuplicate(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := database.NewApplicantRepository(db)

	// ON CONFLICT DO NOTHING reports zero rows affected for an existing key.
	mock.ExpectExec("INSERT INTO applicants").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec := sampleRecord()
	outcome := repo.Load(context.Background(), &rec)

	assert.Equal(t, domain.LoadSkippedDuplicate, outcome.Result)
	assert.NoError(t, outcome.Err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadFailureIsTyped(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := database.NewApplicantRepository(db)

	mock.ExpectExec("INSERT INTO applicants").
		WillReturnError(errors.New("connection reset"))

	rec := sampleRecord()
	outcome := repo.Load(context.Background(), &rec)

	assert.Equal(t, domain.LoadFailed, outcome.Result)

	var loadErr *domain.LoadError
	require.ErrorAs(t, outcome.Err, &loadErr)
	assert.Equal(t, rec.URL, loadErr.URL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadManyNeverAborts(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := database.NewApplicantRepository(db)

	mock.ExpectExec("INSERT INTO applicants").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO applicants").WillReturnError(errors.New("boom"))
	mock.ExpectExec("INSERT INTO applicants").WillReturnResult(sqlmock.NewResult(0, 0))

	recs := []domain.NormalizedRecord{sampleRecord(), sampleRecord(), sampleRecord()}
	recs[1].URL = "https://www.thegradcafe.com/result/222"
	recs[2].URL = "https://www.thegradcafe.com/result/333"

	outcomes := repo.LoadMany(context.Background(), recs)
	require.Len(t, outcomes, 3)

	assert.Equal(t, domain.LoadInserted, outcomes[0].Result)
	assert.Equal(t, domain.LoadFailed, outcomes[1].Result)
	assert.Equal(t, domain.LoadSkippedDuplicate, outcomes[2].Result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistingURLs(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := database.NewApplicantRepository(db)

	rows := sqlmock.NewRows([]string{"url"}).
		AddRow("https://www.thegradcafe.com/result/1").
		AddRow("https://www.thegradcafe.com/result/2")
	mock.ExpectQuery("SELECT url FROM applicants").WillReturnRows(rows)

	set, err := repo.ExistingURLs(context.Background())
	require.NoError(t, err)

	assert.Len(t, set, 2)
	_, ok := set["https://www.thegradcafe.com/result/1"]
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyEnrichment(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := database.NewApplicantRepository(db)

	mock.ExpectExec("UPDATE applicants").
		WithArgs("https://www.thegradcafe.com/result/1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rows, err := repo.ApplyEnrichment(
		context.Background(),
		"https://www.thegradcafe.com/result/1",
		"Computer Science",
		"Example University",
	)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyEnrichmentUnmatchedKey(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := database.NewApplicantRepository(db)

	mock.ExpectExec("UPDATE applicants").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rows, err := repo.ApplyEnrichment(context.Background(), "https://www.thegradcafe.com/result/404", "p", "u")
	require.NoError(t, err)
	assert.Zero(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSummary(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := database.NewApplicantRepository(db)

	rows := sqlmock.NewRows([]string{
		"total", "accepted", "rejected", "international", "with_gpa", "avg_gpa", "enriched",
	}).AddRow(100, 40, 50, 30, 80, 3.6, 10)
	mock.ExpectQuery("SELECT").WillReturnRows(rows)

	stats, err := repo.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(100), stats.Total)
	assert.Equal(t, int64(40), stats.Accepted)
	assert.InDelta(t, 3.6, stats.AvgGPA, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}
