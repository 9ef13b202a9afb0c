package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/config"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/model"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/repository"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/storage"
)

// ── 测试辅助 ──

type testEnv struct {
	repo    *repository.Repository
	users   *mockUserRepo
	unis    *mockUniversityRepo
	periods *mockPeriodRepo
	apps    *mockApplicationRepo
	clock   *fixedClock
	store   *storage.LocalFileStore

	period PeriodService
	app    ApplicationService
	result ResultService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return setupTestEnvIn(t, time.UTC)
}

func setupTestEnvIn(t *testing.T, loc *time.Location) *testEnv {
	t.Helper()

	users := newMockUserRepo()
	unis := newMockUniversityRepo()
	periods := newMockPeriodRepo()
	apps := newMockApplicationRepo(users, unis)
	repo := &repository.Repository{
		User:        users,
		University:  unis,
		Period:      periods,
		Application: apps,
	}

	logger := zap.NewNop()
	clock := &fixedClock{now: time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)}
	store := storage.NewLocalFileStore(&config.StorageConfig{
		UploadDir:   t.TempDir(),
		MaxFileSize: 5 << 20,
	}, logger)

	period := NewPeriodService(repo, loc, clock, logger)
	return &testEnv{
		repo:    repo,
		users:   users,
		unis:    unis,
		periods: periods,
		apps:    apps,
		clock:   clock,
		store:   store,
		period:  period,
		app:     NewApplicationService(repo, period, store, 5, clock, logger),
		result:  NewResultService(repo, period, loc, clock, logger),
	}
}

// seedPeriod 直接写入一个申请期（绕过 SetPeriod）
func (e *testEnv) seedPeriod(t *testing.T, start, end time.Time, active bool) *model.ApplicationPeriod {
	t.Helper()
	p := &model.ApplicationPeriod{StartDate: start, EndDate: end, IsActive: active, CreatedAt: e.clock.Now()}
	if err := e.periods.Create(context.Background(), p); err != nil {
		t.Fatalf("写入申请期失败: %v", err)
	}
	return p
}

func (e *testEnv) seedUniversity(name string) int64 {
	u := &model.University{UniversityName: name, Country: "GR"}
	_ = e.unis.Create(context.Background(), u)
	return u.UniversityID
}

func (e *testEnv) seedUser(username, studentID string) int64 {
	u := &model.User{
		Username:  username,
		FirstName: "Maria",
		LastName:  "Papadopoulou",
		StudentID: studentID,
		Email:     username + "@example.com",
		Role:      model.RoleRegistered,
	}
	_ = e.users.Create(context.Background(), u)
	return u.ID
}

// seedApplication 直接写入一份申请（绕过 Submit）
func (e *testEnv) seedApplication(userID int64, grade float64, submittedAt time.Time, accepted bool) int64 {
	a := &model.Application{
		UserID:                  userID,
		PassedCoursesPercent:    80,
		AverageGrade:            grade,
		EnglishLevel:            "B2",
		FirstChoiceUniversityID: 1,
		TranscriptFile:          "transcript_x.pdf",
		EnglishCertificateFile:  "english_certificate_x.pdf",
		TermsAccepted:           true,
		IsAccepted:              accepted,
		SubmittedAt:             submittedAt,
	}
	_ = e.apps.Create(context.Background(), a)
	return a.ID
}
