package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/dto"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/model"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/repository"
	apperrors "github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/pkg/errors"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/pkg/metrics"
)

// ── 申请期模块业务错误 ──

var (
	ErrPeriodNotFound = errors.New("当前没有申请期")
)

// PeriodService 申请期生命周期
//
// 是否处于申请期由 GetCurrent 按“今天”实时计算；is_active 字段只用于筛选与留痕。
// 任意时刻至多一个 active 申请期：SetPeriod 在同一事务内先全部置为 inactive 再插入，
// 数据库上的唯一部分索引兜底。
type PeriodService interface {
	GetCurrent(ctx context.Context) (*dto.CurrentPeriodResponse, error)
	SetPeriod(ctx context.Context, req *dto.SetPeriodRequest, callerID int64) (*dto.PeriodResponse, error)
	Sweep(ctx context.Context) (int64, error)
	List(ctx context.Context) ([]dto.PeriodResponse, error)
	CurrentICS(ctx context.Context) ([]byte, error)
}

type periodService struct {
	repo   *repository.Repository
	loc    *time.Location
	clock  Clock
	logger *zap.Logger
}

// NewPeriodService 创建 PeriodService 实例；loc 决定“今天”的日期边界
func NewPeriodService(repo *repository.Repository, loc *time.Location, clock Clock, logger *zap.Logger) PeriodService {
	if loc == nil {
		loc = time.UTC
	}
	return &periodService{repo: repo, loc: loc, clock: clock, logger: logger}
}

// today 门户时区下的当天日期
func (s *periodService) today() time.Time {
	return model.DateOf(s.clock.Now().In(s.loc))
}

// ────────────────────── GetCurrent ──────────────────────

func (s *periodService) GetCurrent(ctx context.Context) (*dto.CurrentPeriodResponse, error) {
	today := s.today()

	if _, err := s.expire(ctx, today); err != nil {
		return nil, err
	}

	period, err := s.repo.Period.GetLatestActive(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &dto.CurrentPeriodResponse{Period: nil, IsActive: false}, nil
		}
		s.logger.Error("查询当前申请期失败", zap.Error(err))
		return nil, apperrors.Storage("查询当前申请期失败", err)
	}

	resp := toPeriodResponse(period)
	return &dto.CurrentPeriodResponse{
		Period:   &resp,
		IsActive: period.Contains(today),
	}, nil
}

// ────────────────────── SetPeriod ──────────────────────

func (s *periodService) SetPeriod(ctx context.Context, req *dto.SetPeriodRequest, callerID int64) (*dto.PeriodResponse, error) {
	start, end, err := parsePeriodDates(req)
	if err != nil {
		return nil, err
	}

	period := &model.ApplicationPeriod{
		StartDate: start,
		EndDate:   end,
		IsActive:  true,
		CreatedAt: s.clock.Now().UTC(),
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Period.DeactivateAll(ctx); err != nil {
			return err
		}
		return tx.Period.Create(ctx, period)
	})
	if err != nil {
		s.logger.Error("设置申请期失败", zap.Int64("caller_id", callerID), zap.Error(err))
		return nil, apperrors.Storage("设置申请期失败", err)
	}

	s.logger.Info("申请期已设置",
		zap.Int64("period_id", period.ID),
		zap.String("start_date", start.Format(dateLayout)),
		zap.String("end_date", end.Format(dateLayout)),
		zap.Int64("caller_id", callerID),
	)

	resp := toPeriodResponse(period)
	return &resp, nil
}

// parsePeriodDates 逐字段校验起止日期，错误一并返回
func parsePeriodDates(req *dto.SetPeriodRequest) (time.Time, time.Time, error) {
	var fields []apperrors.FieldError

	parse := func(field, value string) time.Time {
		value = strings.TrimSpace(value)
		if value == "" {
			fields = append(fields, apperrors.FieldError{Field: field, Message: "不能为空"})
			return time.Time{}
		}
		t, err := time.Parse(dateLayout, value)
		if err != nil {
			fields = append(fields, apperrors.FieldError{Field: field, Message: "日期格式应为 YYYY-MM-DD"})
			return time.Time{}
		}
		return t
	}

	start := parse("start_date", req.StartDate)
	end := parse("end_date", req.EndDate)
	if len(fields) > 0 {
		return time.Time{}, time.Time{}, apperrors.Validation(fields...)
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, apperrors.ValidationField("end_date", "结束日期必须晚于开始日期")
	}
	return start, end, nil
}

// ────────────────────── Sweep ──────────────────────

// Sweep 将已过结束日期的 active 申请期置为 inactive，由后台任务周期调用
func (s *periodService) Sweep(ctx context.Context) (int64, error) {
	return s.expire(ctx, s.today())
}

func (s *periodService) expire(ctx context.Context, today time.Time) (int64, error) {
	n, err := s.repo.Period.ExpireStale(ctx, today)
	if err != nil {
		s.logger.Error("申请期过期扫描失败", zap.Error(err))
		return 0, apperrors.Storage("申请期过期扫描失败", err)
	}
	if n > 0 {
		metrics.PeriodsExpiredTotal.Add(float64(n))
		s.logger.Info("申请期已自动结束", zap.Int64("count", n), zap.String("today", today.Format(dateLayout)))
	}
	return n, nil
}

// ────────────────────── List ──────────────────────

func (s *periodService) List(ctx context.Context) ([]dto.PeriodResponse, error) {
	periods, err := s.repo.Period.List(ctx)
	if err != nil {
		s.logger.Error("列出申请期失败", zap.Error(err))
		return nil, apperrors.Storage("列出申请期失败", err)
	}

	result := make([]dto.PeriodResponse, 0, len(periods))
	for i := range periods {
		result = append(result, toPeriodResponse(&periods[i]))
	}
	return result, nil
}

// ────────────────────── CurrentICS ──────────────────────

// CurrentICS 当前申请期导出为 iCalendar 全天事件；DTEND 为结束日的次日（RFC 5545 不含端点）
func (s *periodService) CurrentICS(ctx context.Context) ([]byte, error) {
	if _, err := s.expire(ctx, s.today()); err != nil {
		return nil, err
	}

	period, err := s.repo.Period.GetLatestActive(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPeriodNotFound
		}
		return nil, apperrors.Storage("查询当前申请期失败", err)
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//erasmus-portal//application-period//EN")

	event := cal.AddEvent(fmt.Sprintf("application-period-%d@erasmus-portal", period.ID))
	event.SetDtStampTime(s.clock.Now().UTC())
	event.SetCreatedTime(period.CreatedAt)
	event.SetSummary("Erasmus+ 申请期")
	event.SetDescription(fmt.Sprintf("申请期 %s 至 %s（含结束日）",
		period.StartDate.Format(dateLayout), period.EndDate.Format(dateLayout)))
	event.SetAllDayStartAt(period.StartDate)
	event.SetAllDayEndAt(period.EndDate.AddDate(0, 0, 1))

	return []byte(cal.Serialize()), nil
}

// ── 辅助函数 ──

func toPeriodResponse(p *model.ApplicationPeriod) dto.PeriodResponse {
	resp := dto.PeriodResponse{
		ID:        p.ID,
		StartDate: p.StartDate.Format(dateLayout),
		EndDate:   p.EndDate.Format(dateLayout),
		IsActive:  p.IsActive,
		CreatedAt: formatTime(p.CreatedAt),
	}
	if p.PublishedAt != nil {
		published := formatTime(*p.PublishedAt)
		resp.PublishedAt = &published
	}
	return resp
}
