package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/model"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/repository"
)

// ── 固定时钟 ──

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) Set(t time.Time) { c.now = t }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	users  map[int64]*model.User
	nextID int64
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[int64]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email || u.StudentID == user.StudentID {
			return fmt.Errorf("%w: users", repository.ErrUniqueViolation)
		}
	}
	m.nextID++
	user.ID = m.nextID
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	return m.any(func(u *model.User) bool { return u.Username == username }), nil
}

func (m *mockUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	return m.any(func(u *model.User) bool { return u.Email == email }), nil
}

func (m *mockUserRepo) ExistsByStudentID(_ context.Context, studentID string) (bool, error) {
	return m.any(func(u *model.User) bool { return u.StudentID == studentID }), nil
}

func (m *mockUserRepo) any(pred func(*model.User) bool) bool {
	for _, u := range m.users {
		if pred(u) {
			return true
		}
	}
	return false
}

// ── Mock UniversityRepository ──

type mockUniversityRepo struct {
	unis   map[int64]*model.University
	nextID int64
}

func newMockUniversityRepo() *mockUniversityRepo {
	return &mockUniversityRepo{unis: make(map[int64]*model.University)}
}

func (m *mockUniversityRepo) Create(_ context.Context, u *model.University) error {
	m.nextID++
	u.UniversityID = m.nextID
	m.unis[u.UniversityID] = u
	return nil
}

func (m *mockUniversityRepo) GetByID(_ context.Context, id int64) (*model.University, error) {
	if u, ok := m.unis[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUniversityRepo) List(_ context.Context) ([]model.University, error) {
	result := make([]model.University, 0, len(m.unis))
	for _, u := range m.unis {
		result = append(result, *u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UniversityID < result[j].UniversityID })
	return result, nil
}

func (m *mockUniversityRepo) ExistingIDs(_ context.Context, ids []int64) ([]int64, error) {
	var found []int64
	for _, id := range ids {
		if _, ok := m.unis[id]; ok {
			found = append(found, id)
		}
	}
	return found, nil
}

// ── Mock PeriodRepository ──

// mockPeriodRepo 模拟 uniq_application_periods_active：插入第二个 active 行时报唯一约束冲突
type mockPeriodRepo struct {
	periods []*model.ApplicationPeriod
	nextID  int64
	err     error // 非 nil 时所有操作返回该错误
}

func newMockPeriodRepo() *mockPeriodRepo {
	return &mockPeriodRepo{}
}

func (m *mockPeriodRepo) Create(_ context.Context, period *model.ApplicationPeriod) error {
	if m.err != nil {
		return m.err
	}
	if period.IsActive && m.activeCount() > 0 {
		return fmt.Errorf("%w: uniq_application_periods_active", repository.ErrUniqueViolation)
	}
	m.nextID++
	period.ID = m.nextID
	cp := *period
	m.periods = append(m.periods, &cp)
	return nil
}

func (m *mockPeriodRepo) DeactivateAll(_ context.Context) error {
	if m.err != nil {
		return m.err
	}
	for _, p := range m.periods {
		p.IsActive = false
	}
	return nil
}

func (m *mockPeriodRepo) ExpireStale(_ context.Context, today time.Time) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for _, p := range m.periods {
		if p.IsActive && model.DateOf(p.EndDate).Before(model.DateOf(today)) {
			p.IsActive = false
			n++
		}
	}
	return n, nil
}

func (m *mockPeriodRepo) GetLatestActive(_ context.Context) (*model.ApplicationPeriod, error) {
	if m.err != nil {
		return nil, m.err
	}
	var best *model.ApplicationPeriod
	for _, p := range m.periods {
		if !p.IsActive {
			continue
		}
		if best == nil || p.CreatedAt.After(best.CreatedAt) || (p.CreatedAt.Equal(best.CreatedAt) && p.ID > best.ID) {
			best = p
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *mockPeriodRepo) GetLatestEnded(_ context.Context) (*model.ApplicationPeriod, error) {
	if m.err != nil {
		return nil, m.err
	}
	var best *model.ApplicationPeriod
	for _, p := range m.periods {
		if p.IsActive {
			continue
		}
		if best == nil || p.EndDate.After(best.EndDate) || (p.EndDate.Equal(best.EndDate) && p.ID > best.ID) {
			best = p
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *mockPeriodRepo) GetLatestPublished(_ context.Context) (*model.ApplicationPeriod, error) {
	if m.err != nil {
		return nil, m.err
	}
	var best *model.ApplicationPeriod
	for _, p := range m.periods {
		if p.PublishedAt == nil {
			continue
		}
		if best == nil || p.PublishedAt.After(*best.PublishedAt) {
			best = p
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *mockPeriodRepo) List(_ context.Context) ([]model.ApplicationPeriod, error) {
	if m.err != nil {
		return nil, m.err
	}
	result := make([]model.ApplicationPeriod, 0, len(m.periods))
	for i := len(m.periods) - 1; i >= 0; i-- {
		result = append(result, *m.periods[i])
	}
	return result, nil
}

func (m *mockPeriodRepo) MarkPublished(_ context.Context, id int64, at time.Time) error {
	if m.err != nil {
		return m.err
	}
	for _, p := range m.periods {
		if p.ID == id {
			t := at
			p.PublishedAt = &t
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockPeriodRepo) activeCount() int {
	n := 0
	for _, p := range m.periods {
		if p.IsActive {
			n++
		}
	}
	return n
}

// ── Mock ApplicationRepository ──

type mockApplicationRepo struct {
	apps      map[int64]*model.Application
	nextID    int64
	users     *mockUserRepo
	unis      *mockUniversityRepo
	createErr error // 模拟插入失败
	onCreate  func()
}

func newMockApplicationRepo(users *mockUserRepo, unis *mockUniversityRepo) *mockApplicationRepo {
	return &mockApplicationRepo{apps: make(map[int64]*model.Application), users: users, unis: unis}
}

func (m *mockApplicationRepo) Create(_ context.Context, app *model.Application) error {
	if m.onCreate != nil {
		m.onCreate()
	}
	if m.createErr != nil {
		return m.createErr
	}
	for _, a := range m.apps {
		if a.UserID == app.UserID {
			return fmt.Errorf("%w: uniq_applications_user_id", repository.ErrUniqueViolation)
		}
	}
	m.nextID++
	app.ID = m.nextID
	cp := *app
	m.apps[app.ID] = &cp
	return nil
}

func (m *mockApplicationRepo) ExistsByUser(_ context.Context, userID int64) (bool, error) {
	for _, a := range m.apps {
		if a.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockApplicationRepo) GetByID(_ context.Context, id int64) (*model.Application, error) {
	if a, ok := m.apps[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockApplicationRepo) GetByUser(_ context.Context, userID int64) (*model.Application, error) {
	for _, a := range m.apps {
		if a.UserID == userID {
			return m.withDetails(a), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockApplicationRepo) List(_ context.Context, offset, limit int) ([]model.Application, int64, error) {
	all := m.sorted(func(*model.Application) bool { return true }, func(a, b *model.Application) bool {
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.After(b.SubmittedAt)
		}
		return a.ID > b.ID
	})
	total := int64(len(all))
	if offset >= len(all) {
		return []model.Application{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockApplicationRepo) ListAccepted(_ context.Context) ([]model.Application, error) {
	return m.sorted(func(a *model.Application) bool { return a.IsAccepted }, ranked), nil
}

func (m *mockApplicationRepo) ListAcceptedBetween(_ context.Context, from, to time.Time) ([]model.Application, error) {
	return m.sorted(func(a *model.Application) bool {
		return a.IsAccepted && !a.SubmittedAt.Before(from) && a.SubmittedAt.Before(to)
	}, ranked), nil
}

func (m *mockApplicationRepo) CountAccepted(_ context.Context) (int64, error) {
	var n int64
	for _, a := range m.apps {
		if a.IsAccepted {
			n++
		}
	}
	return n, nil
}

func (m *mockApplicationRepo) ResetAcceptance(_ context.Context) error {
	for _, a := range m.apps {
		a.IsAccepted = false
	}
	return nil
}

func (m *mockApplicationRepo) SetAccepted(_ context.Context, ids []int64) (int64, error) {
	var n int64
	for _, id := range ids {
		if a, ok := m.apps[id]; ok {
			a.IsAccepted = true
			n++
		}
	}
	return n, nil
}

func (m *mockApplicationRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.apps[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.apps, id)
	return nil
}

func (m *mockApplicationRepo) ListFileNames(_ context.Context) ([]string, error) {
	var names []string
	for _, a := range m.apps {
		names = append(names, a.StoredFiles()...)
	}
	return names, nil
}

func (m *mockApplicationRepo) withDetails(a *model.Application) *model.Application {
	cp := *a
	if m.users != nil {
		cp.User = m.users.users[a.UserID]
	}
	if m.unis != nil {
		cp.FirstChoice = m.unis.unis[a.FirstChoiceUniversityID]
	}
	return &cp
}

func (m *mockApplicationRepo) sorted(keep func(*model.Application) bool, less func(a, b *model.Application) bool) []model.Application {
	var picked []*model.Application
	for _, a := range m.apps {
		if keep(a) {
			picked = append(picked, m.withDetails(a))
		}
	}
	sort.Slice(picked, func(i, j int) bool { return less(picked[i], picked[j]) })
	result := make([]model.Application, 0, len(picked))
	for _, a := range picked {
		result = append(result, *a)
	}
	return result
}

// ranked 平均成绩降序，提交时间升序，ID 升序
func ranked(a, b *model.Application) bool {
	if a.AverageGrade != b.AverageGrade {
		return a.AverageGrade > b.AverageGrade
	}
	if !a.SubmittedAt.Equal(b.SubmittedAt) {
		return a.SubmittedAt.Before(b.SubmittedAt)
	}
	return a.ID < b.ID
}

// ── Mock TokenBlacklist ──

type mockBlacklist struct {
	revoked map[string]time.Duration
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{revoked: make(map[string]time.Duration)}
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	m.revoked[jti] = ttl
	return nil
}

func (m *mockBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	_, ok := m.revoked[jti]
	return ok, nil
}
