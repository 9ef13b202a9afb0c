package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/dto"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/model"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/repository"
	apperrors "github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/pkg/errors"
)

// ── 结果发布模块业务错误 ──

var (
	ErrResultsNotPublished = errors.New("结果尚未发布")
	ErrExportGenerateFail  = errors.New("生成 Excel 文件失败")
)

// 发布前置条件
const (
	CondNoCompletedPeriod      = "no completed period"
	CondNoAcceptedApplications = "no accepted applications"
)

// ResultService 录取与结果发布
type ResultService interface {
	BulkAccept(ctx context.Context, ids []int64) (int64, error)
	Publish(ctx context.Context) (*dto.PublishResponse, error)
	PublishedResults(ctx context.Context) (*dto.PublishResponse, error)
	ExportResults(ctx context.Context) (*bytes.Buffer, string, error)
}

type resultService struct {
	repo   *repository.Repository
	period PeriodService
	loc    *time.Location
	clock  Clock
	logger *zap.Logger
}

// NewResultService 创建 ResultService 实例
func NewResultService(repo *repository.Repository, period PeriodService, loc *time.Location, clock Clock, logger *zap.Logger) ResultService {
	if loc == nil {
		loc = time.UTC
	}
	return &resultService{repo: repo, period: period, loc: loc, clock: clock, logger: logger}
}

// ────────────────────── BulkAccept ──────────────────────

// BulkAccept 录取名单整体替换：先全部置为未录取，再录取给定 id；空列表即清空
func (s *resultService) BulkAccept(ctx context.Context, ids []int64) (int64, error) {
	seen := make(map[int64]bool, len(ids))
	unique := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return 0, apperrors.ValidationField("applicationIds", fmt.Sprintf("非法的申请 ID %d", id))
		}
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	var accepted int64
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Application.ResetAcceptance(ctx); err != nil {
			return err
		}
		n, err := tx.Application.SetAccepted(ctx, unique)
		if err != nil {
			return err
		}
		accepted = n
		return nil
	})
	if err != nil {
		s.logger.Error("批量录取失败", zap.Int("count", len(unique)), zap.Error(err))
		return 0, apperrors.Storage("批量录取失败", err)
	}

	s.logger.Info("录取名单已更新", zap.Int("requested", len(unique)), zap.Int64("accepted", accepted))
	return accepted, nil
}

// ═══════════════════════════════════════════════════════════
// Publish 发布结果
// ═══════════════════════════════════════════════════════════
//
// 前置条件：存在已结束的申请期，且至少有一份已录取申请。
// 结果为该申请期 [开始日 00:00, 结束日次日 00:00) 内提交的已录取申请，
// 按平均成绩降序、提交时间升序、ID 升序排列。

func (s *resultService) Publish(ctx context.Context) (*dto.PublishResponse, error) {
	if _, err := s.period.Sweep(ctx); err != nil {
		return nil, err
	}

	period, err := s.repo.Period.GetLatestEnded(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.PublishPrecondition(CondNoCompletedPeriod)
		}
		s.logger.Error("查询已结束申请期失败", zap.Error(err))
		return nil, apperrors.Storage("查询已结束申请期失败", err)
	}

	count, err := s.repo.Application.CountAccepted(ctx)
	if err != nil {
		s.logger.Error("统计已录取申请失败", zap.Error(err))
		return nil, apperrors.Storage("统计已录取申请失败", err)
	}
	if count == 0 {
		return nil, apperrors.PublishPrecondition(CondNoAcceptedApplications)
	}

	apps, err := s.rankedFor(ctx, period)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	if err := s.repo.Period.MarkPublished(ctx, period.ID, now); err != nil {
		s.logger.Error("标记发布时间失败", zap.Int64("period_id", period.ID), zap.Error(err))
		return nil, apperrors.Storage("标记发布时间失败", err)
	}
	period.PublishedAt = &now

	s.logger.Info("结果已发布", zap.Int64("period_id", period.ID), zap.Int("results", len(apps)))
	return buildPublishResponse(period, apps), nil
}

// ────────────────────── PublishedResults ──────────────────────

// PublishedResults 最近一次发布的结果，不重新检查发布前置条件
func (s *resultService) PublishedResults(ctx context.Context) (*dto.PublishResponse, error) {
	period, err := s.repo.Period.GetLatestPublished(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResultsNotPublished
		}
		s.logger.Error("查询已发布申请期失败", zap.Error(err))
		return nil, apperrors.Storage("查询已发布申请期失败", err)
	}

	apps, err := s.rankedFor(ctx, period)
	if err != nil {
		return nil, err
	}
	return buildPublishResponse(period, apps), nil
}

// rankedFor 申请期内提交的已录取申请（排名顺序由仓储层保证）
func (s *resultService) rankedFor(ctx context.Context, period *model.ApplicationPeriod) ([]model.Application, error) {
	from, to := s.window(period)
	apps, err := s.repo.Application.ListAcceptedBetween(ctx, from, to)
	if err != nil {
		s.logger.Error("查询录取结果失败", zap.Int64("period_id", period.ID), zap.Error(err))
		return nil, apperrors.Storage("查询录取结果失败", err)
	}
	return apps, nil
}

// window 申请期在门户时区下的提交时间窗口，结束日当天整天有效
func (s *resultService) window(period *model.ApplicationPeriod) (time.Time, time.Time) {
	sy, sm, sd := period.StartDate.Date()
	ey, em, ed := period.EndDate.Date()
	from := time.Date(sy, sm, sd, 0, 0, 0, 0, s.loc)
	to := time.Date(ey, em, ed+1, 0, 0, 0, 0, s.loc)
	return from, to
}

// ────────────────────── ExportResults ──────────────────────

// ExportResults 将已发布结果导出为 Excel；返回内容与建议文件名
func (s *resultService) ExportResults(ctx context.Context) (*bytes.Buffer, string, error) {
	results, err := s.PublishedResults(ctx)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "录取结果"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headers := []string{"排名", "学号", "姓", "名", "平均成绩", "通过课程比例", "英语水平", "第一志愿", "提交时间"}
	widths := []float64{8, 18, 14, 14, 10, 14, 10, 36, 24}
	for i, w := range widths {
		col := colName(i)
		f.SetColWidth(sheetName, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	title := fmt.Sprintf("Erasmus+ 录取结果 %s 至 %s", results.Period.StartDate, results.Period.EndDate)
	f.SetCellValue(sheetName, "A1", title)
	f.MergeCell(sheetName, "A1", cell(colName(len(headers)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(headers)-1), 2), headerStyle)

	// 数据行
	for i, r := range results.Results {
		row := 3 + i
		values := []interface{}{
			r.Rank, r.StudentID, r.LastName, r.FirstName,
			r.AverageGrade, r.PassedCoursesPercent, r.EnglishLevel, r.FirstChoice, r.SubmittedAt,
		}
		for j, v := range values {
			f.SetCellValue(sheetName, cell(colName(j), row), v)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("erasmus_results_%s.xlsx", results.Period.EndDate)
	return buf, filename, nil
}

// ── 辅助函数 ──

func buildPublishResponse(period *model.ApplicationPeriod, apps []model.Application) *dto.PublishResponse {
	resp := &dto.PublishResponse{
		Period:  toPeriodResponse(period),
		Results: make([]dto.ResultEntry, 0, len(apps)),
	}
	if period.PublishedAt != nil {
		resp.PublishedAt = formatTime(*period.PublishedAt)
	}
	for i := range apps {
		a := &apps[i]
		entry := dto.ResultEntry{
			Rank:                 i + 1,
			ApplicationID:        a.ID,
			AverageGrade:         a.AverageGrade,
			PassedCoursesPercent: a.PassedCoursesPercent,
			EnglishLevel:         a.EnglishLevel,
			SubmittedAt:          formatTime(a.SubmittedAt),
		}
		if a.User != nil {
			entry.FirstName = a.User.FirstName
			entry.LastName = a.User.LastName
			entry.StudentID = a.User.StudentID
		}
		if a.FirstChoice != nil {
			entry.FirstChoice = a.FirstChoice.UniversityName
		}
		resp.Results = append(resp.Results, entry)
	}
	return resp
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
