package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/model"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return NewRepository(db), mock
}

// ── Period ──

func TestPeriodRepo_ExpireStale(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE "application_periods" SET "is_active"=\$1 WHERE is_active = \$2 AND end_date < \$3::date`).
		WithArgs(false, true, "2025-02-01").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.Period.ExpireStale(context.Background(), time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepo_GetLatestActive_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT \* FROM "application_periods" WHERE is_active = \$1 ORDER BY created_at DESC, id DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "start_date", "end_date", "is_active", "published_at", "created_at"}))

	_, err := repo.Period.GetLatestActive(context.Background())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepo_GetLatestEnded(t *testing.T) {
	repo, mock := newMockRepo(t)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM "application_periods" WHERE is_active = \$1 ORDER BY end_date DESC, id DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "start_date", "end_date", "is_active", "published_at", "created_at"}).
			AddRow(3, start, end, false, nil, start))

	p, err := repo.Period.GetLatestEnded(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.ID)
	assert.Equal(t, end, p.EndDate)
	assert.Nil(t, p.PublishedAt)
}

func TestPeriodRepo_MarkPublished_Missing(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE "application_periods" SET "published_at"=\$1 WHERE id = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Period.MarkPublished(context.Background(), 99, time.Now())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPeriodRepo_Create_ActiveConflict(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO "application_periods"`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uniq_application_periods_active"})

	err := repo.Period.Create(context.Background(), &model.ApplicationPeriod{
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		IsActive:  true,
	})
	assert.ErrorIs(t, err, ErrUniqueViolation)
	assert.Contains(t, err.Error(), "uniq_application_periods_active")
}

// ── Application ──

func TestApplicationRepo_Create(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO "applications"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	app := &model.Application{
		UserID:                  5,
		PassedCoursesPercent:    80,
		AverageGrade:            7.5,
		EnglishLevel:            "B2",
		FirstChoiceUniversityID: 1,
		TranscriptFile:          "transcript_5_1.pdf",
		EnglishCertificateFile:  "english_certificate_5_1.pdf",
		TermsAccepted:           true,
		SubmittedAt:             time.Now(),
	}
	require.NoError(t, repo.Application.Create(context.Background(), app))
	assert.Equal(t, int64(11), app.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepo_Create_DuplicateUser(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO "applications"`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uniq_applications_user_id"})

	err := repo.Application.Create(context.Background(), &model.Application{UserID: 5})
	assert.ErrorIs(t, err, ErrUniqueViolation)
}

func TestApplicationRepo_Create_OtherError(t *testing.T) {
	repo, mock := newMockRepo(t)
	boom := errors.New("connection reset")

	mock.ExpectQuery(`INSERT INTO "applications"`).WillReturnError(boom)

	err := repo.Application.Create(context.Background(), &model.Application{UserID: 5})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrUniqueViolation)
}

func TestApplicationRepo_ExistsByUser(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "applications" WHERE user_id = \$1`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	ok, err := repo.Application.ExistsByUser(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestApplicationRepo_SetAccepted(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE "applications" SET "is_accepted"=\$1 WHERE id IN \(\$2,\$3\)`).
		WithArgs(true, int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.Application.SetAccepted(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.Application.SetAccepted(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n, "空列表不应发出 SQL")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepo_Delete_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`DELETE FROM "applications" WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Application.Delete(context.Background(), 42)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestApplicationRepo_ListFileNames(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT transcript_file, english_certificate_file, other_certificates_files FROM "applications"`).
		WillReturnRows(sqlmock.NewRows([]string{"transcript_file", "english_certificate_file", "other_certificates_files"}).
			AddRow("t1.pdf", "e1.pdf", "{o1.png,o2.png}").
			AddRow("t2.pdf", "e2.pdf", "{}"))

	names, err := repo.Application.ListFileNames(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"t1.pdf", "e1.pdf", "o1.png", "o2.png", "t2.pdf", "e2.pdf"}, names)
}

// ── University ──

func TestUniversityRepo_ExistingIDs(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT "university_id" FROM "universities" WHERE university_id IN \(\$1,\$2\)`).
		WithArgs(int64(1), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"university_id"}).AddRow(1))

	found, err := repo.University.ExistingIDs(context.Background(), []int64{1, 9})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, found)
}

// ── Transaction ──

func TestTransaction_Commit(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "application_periods" SET "is_active"=\$1 WHERE is_active = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "application_periods"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectCommit()

	err := repo.Transaction(context.Background(), func(tx *Repository) error {
		if err := tx.Period.DeactivateAll(context.Background()); err != nil {
			return err
		}
		return tx.Period.Create(context.Background(), &model.ApplicationPeriod{
			StartDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
			IsActive:  true,
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_RollbackOnError(t *testing.T) {
	repo, mock := newMockRepo(t)
	boom := errors.New("insert failed")

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "application_periods"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := repo.Transaction(context.Background(), func(tx *Repository) error {
		if err := tx.Period.DeactivateAll(context.Background()); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_NilDB(t *testing.T) {
	repo := &Repository{}
	called := false

	err := repo.Transaction(context.Background(), func(tx *Repository) error {
		called = true
		assert.Same(t, repo, tx)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}
