package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/dto"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/model"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/repository"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/storage"
	apperrors "github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/pkg/errors"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/pkg/metrics"
)

// 下载文件类型
const (
	FileTypeTranscript = "transcript"
	FileTypeEnglish    = "english"
	FileTypeOther      = "other"
)

// Caller 当前请求者
type Caller struct {
	UserID int64
	Role   string
}

// IsAdmin 是否管理员
func (c Caller) IsAdmin() bool { return c.Role == model.RoleAdministrator }

// SubmissionFiles 提交申请时上传的文件
type SubmissionFiles struct {
	Transcript         *storage.Upload
	EnglishCertificate *storage.Upload
	OtherCertificates  []storage.Upload
}

// ApplicationService 申请业务接口
type ApplicationService interface {
	Submit(ctx context.Context, userID int64, req *dto.SubmitApplicationRequest, files *SubmissionFiles) (int64, error)
	HasApplication(ctx context.Context, userID int64) (bool, error)
	GetMine(ctx context.Context, userID int64) (*dto.ApplicationResponse, error)
	ListAll(ctx context.Context, page *dto.PaginationRequest) ([]dto.ApplicationResponse, int64, error)
	ListAccepted(ctx context.Context) ([]dto.ApplicationResponse, error)
	Delete(ctx context.Context, id int64) ([]string, error)
	OpenFile(ctx context.Context, caller Caller, id int64, fileType string, index int) (*storage.File, error)
}

type applicationService struct {
	repo          *repository.Repository
	period        PeriodService
	store         storage.FileStore
	maxOtherFiles int
	clock         Clock
	logger        *zap.Logger
}

// NewApplicationService 创建 ApplicationService 实例
func NewApplicationService(
	repo *repository.Repository,
	period PeriodService,
	store storage.FileStore,
	maxOtherFiles int,
	clock Clock,
	logger *zap.Logger,
) ApplicationService {
	return &applicationService{
		repo:          repo,
		period:        period,
		store:         store,
		maxOtherFiles: maxOtherFiles,
		clock:         clock,
		logger:        logger,
	}
}

// ═══════════════════════════════════════════════════════════
// Submit 提交申请
// ═══════════════════════════════════════════════════════════
//
// 固定顺序：
//  1. 当前处于申请期
//  2. 该用户尚无申请
//  3. 字段校验
//  4. 全部文件校验通过后才开始写盘
//  5. 事务内复查并插入；失败（含客户端断开）时删除第 4 步写入的全部文件
//
// 唯一约束冲突视为重复提交。

func (s *applicationService) Submit(ctx context.Context, userID int64, req *dto.SubmitApplicationRequest, files *SubmissionFiles) (id int64, err error) {
	defer func() {
		metrics.SubmissionsTotal.WithLabelValues(submitOutcome(err)).Inc()
	}()

	// 1. 申请期
	current, err := s.period.GetCurrent(ctx)
	if err != nil {
		return 0, err
	}
	if !current.IsActive {
		return 0, apperrors.PeriodInactive()
	}

	// 2. 重复提交
	exists, err := s.repo.Application.ExistsByUser(ctx, userID)
	if err != nil {
		s.logger.Error("查询用户申请失败", zap.Int64("user_id", userID), zap.Error(err))
		return 0, apperrors.Storage("查询用户申请失败", err)
	}
	if exists {
		return 0, apperrors.DuplicateApplication()
	}

	// 3. 字段校验
	if err := s.validateFields(ctx, req); err != nil {
		return 0, err
	}

	// 4. 文件校验与写盘
	uploads, err := s.collectUploads(files)
	if err != nil {
		return 0, err
	}
	for _, u := range uploads {
		if err := s.store.Validate(u); err != nil {
			return 0, err
		}
	}

	stored, err := s.store.Store(ctx, userID, uploads)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		s.logger.Error("保存申请文件失败", zap.Int64("user_id", userID), zap.Error(err))
		return 0, err
	}

	// 5. 入库；失败则回滚文件
	app := s.buildApplication(userID, req, stored)
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		exists, err := tx.Application.ExistsByUser(ctx, userID)
		if err != nil {
			return err
		}
		if exists {
			return apperrors.DuplicateApplication()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return tx.Application.Create(ctx, app)
	})
	if err != nil {
		s.rollbackFiles(userID, stored)
		return 0, s.mapInsertError(ctx, userID, err)
	}

	s.logger.Info("申请已提交",
		zap.Int64("application_id", app.ID),
		zap.Int64("user_id", userID),
		zap.Int("files", len(stored)),
	)
	return app.ID, nil
}

func (s *applicationService) validateFields(ctx context.Context, req *dto.SubmitApplicationRequest) error {
	var fields []apperrors.FieldError
	add := func(field, msg string) {
		fields = append(fields, apperrors.FieldError{Field: field, Message: msg})
	}

	switch {
	case req.PassedCoursesPercent == nil:
		add("passed_courses_percent", "不能为空")
	case !inRange(*req.PassedCoursesPercent, 0, 100):
		add("passed_courses_percent", "必须在 0 到 100 之间")
	}

	switch {
	case req.AverageGrade == nil:
		add("average_grade", "不能为空")
	case !inRange(*req.AverageGrade, 0, 10):
		add("average_grade", "必须在 0 到 10 之间")
	}

	if !model.IsEnglishLevel(req.EnglishLevel) {
		add("english_level", "取值必须为 A1、A2、B1、B2、C1 或 C2")
	}

	choices := map[string]int64{}
	if req.FirstChoiceUniversityID <= 0 {
		add("first_choice_university_id", "第一志愿不能为空")
	} else {
		choices["first_choice_university_id"] = req.FirstChoiceUniversityID
	}
	if v := optionalID(req.SecondChoiceUniversityID); v != nil {
		choices["second_choice_university_id"] = *v
	}
	if v := optionalID(req.ThirdChoiceUniversityID); v != nil {
		choices["third_choice_university_id"] = *v
	}

	if len(choices) > 0 {
		ids := make([]int64, 0, len(choices))
		for _, id := range choices {
			ids = append(ids, id)
		}
		found, err := s.repo.University.ExistingIDs(ctx, ids)
		if err != nil {
			s.logger.Error("查询院校失败", zap.Error(err))
			return apperrors.Storage("查询院校失败", err)
		}
		known := make(map[int64]bool, len(found))
		for _, id := range found {
			known[id] = true
		}
		for _, field := range []string{"first_choice_university_id", "second_choice_university_id", "third_choice_university_id"} {
			if id, ok := choices[field]; ok && !known[id] {
				add(field, "院校不存在")
			}
		}
	}

	if !req.TermsAccepted {
		add("terms_accepted", "必须接受条款")
	}

	if len(fields) > 0 {
		return apperrors.Validation(fields...)
	}
	return nil
}

// collectUploads 检查必需文件与数量上限，按成绩单、英语证书、其他证书排列
func (s *applicationService) collectUploads(files *SubmissionFiles) ([]storage.Upload, error) {
	if files == nil {
		files = &SubmissionFiles{}
	}
	if files.Transcript == nil {
		return nil, apperrors.File("transcript_file", "", "缺少必需文件")
	}
	if files.EnglishCertificate == nil {
		return nil, apperrors.File("english_certificate_file", "", "缺少必需文件")
	}
	if len(files.OtherCertificates) > s.maxOtherFiles {
		return nil, apperrors.File("other_certificates_files", "",
			fmt.Sprintf("其他证书最多 %d 个，实际 %d 个", s.maxOtherFiles, len(files.OtherCertificates)))
	}

	uploads := make([]storage.Upload, 0, 2+len(files.OtherCertificates))
	t := *files.Transcript
	t.Field = storage.FieldTranscript
	e := *files.EnglishCertificate
	e.Field = storage.FieldEnglishCertificate
	uploads = append(uploads, t, e)
	for _, o := range files.OtherCertificates {
		o.Field = storage.FieldOtherCertificate
		uploads = append(uploads, o)
	}
	return uploads, nil
}

func (s *applicationService) buildApplication(userID int64, req *dto.SubmitApplicationRequest, stored []storage.StoredFile) *model.Application {
	app := &model.Application{
		UserID:                   userID,
		PassedCoursesPercent:     *req.PassedCoursesPercent,
		AverageGrade:             *req.AverageGrade,
		EnglishLevel:             req.EnglishLevel,
		KnowsExtraLanguages:      req.KnowsExtraLanguages,
		FirstChoiceUniversityID:  req.FirstChoiceUniversityID,
		SecondChoiceUniversityID: optionalID(req.SecondChoiceUniversityID),
		ThirdChoiceUniversityID:  optionalID(req.ThirdChoiceUniversityID),
		OtherCertificatesFiles:   model.StringArray{},
		TermsAccepted:            true,
		IsAccepted:               false,
		SubmittedAt:              s.clock.Now().UTC(),
	}
	for _, f := range stored {
		switch f.Field {
		case storage.FieldTranscript:
			app.TranscriptFile = f.Name
		case storage.FieldEnglishCertificate:
			app.EnglishCertificateFile = f.Name
		default:
			app.OtherCertificatesFiles = append(app.OtherCertificatesFiles, f.Name)
		}
	}
	return app
}

func (s *applicationService) rollbackFiles(userID int64, stored []storage.StoredFile) {
	names := make([]string, 0, len(stored))
	for _, f := range stored {
		names = append(names, f.Name)
	}
	if err := s.store.Rollback(names); err != nil {
		s.logger.Error("回滚申请文件失败", zap.Int64("user_id", userID), zap.Strings("files", names), zap.Error(err))
		return
	}
	metrics.FileRollbacksTotal.Add(float64(len(names)))
	s.logger.Warn("申请提交失败，已删除上传文件", zap.Int64("user_id", userID), zap.Strings("files", names))
}

func (s *applicationService) mapInsertError(ctx context.Context, userID int64, err error) error {
	switch {
	case errors.Is(err, apperrors.ErrDuplicateApplication):
		return err
	case errors.Is(err, repository.ErrUniqueViolation):
		return apperrors.DuplicateApplication()
	case ctx.Err() != nil:
		s.logger.Warn("提交过程中请求已取消", zap.Int64("user_id", userID))
		return ctx.Err()
	default:
		s.logger.Error("保存申请失败", zap.Int64("user_id", userID), zap.Error(err))
		return apperrors.Storage("保存申请失败", err)
	}
}

// submitOutcome 提交结果分类（指标标签）
func submitOutcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, apperrors.ErrPeriodInactive):
		return "period_inactive"
	case errors.Is(err, apperrors.ErrDuplicateApplication):
		return "duplicate"
	case errors.Is(err, apperrors.ErrValidation):
		return "validation"
	case errors.Is(err, apperrors.ErrFile):
		return "file"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "storage"
	}
}

// ────────────────────── HasApplication / GetMine ──────────────────────

func (s *applicationService) HasApplication(ctx context.Context, userID int64) (bool, error) {
	exists, err := s.repo.Application.ExistsByUser(ctx, userID)
	if err != nil {
		s.logger.Error("查询用户申请失败", zap.Int64("user_id", userID), zap.Error(err))
		return false, apperrors.Storage("查询用户申请失败", err)
	}
	return exists, nil
}

func (s *applicationService) GetMine(ctx context.Context, userID int64) (*dto.ApplicationResponse, error) {
	app, err := s.repo.Application.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("尚未提交申请")
		}
		s.logger.Error("查询用户申请失败", zap.Int64("user_id", userID), zap.Error(err))
		return nil, apperrors.Storage("查询用户申请失败", err)
	}
	resp := toApplicationResponse(app)
	return &resp, nil
}

// ────────────────────── ListAll / ListAccepted ──────────────────────

func (s *applicationService) ListAll(ctx context.Context, page *dto.PaginationRequest) ([]dto.ApplicationResponse, int64, error) {
	apps, total, err := s.repo.Application.List(ctx, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("列出申请失败", zap.Error(err))
		return nil, 0, apperrors.Storage("列出申请失败", err)
	}
	return toApplicationResponses(apps), total, nil
}

func (s *applicationService) ListAccepted(ctx context.Context) ([]dto.ApplicationResponse, error) {
	apps, err := s.repo.Application.ListAccepted(ctx)
	if err != nil {
		s.logger.Error("列出已录取申请失败", zap.Error(err))
		return nil, apperrors.Storage("列出已录取申请失败", err)
	}
	return toApplicationResponses(apps), nil
}

// ────────────────────── Delete ──────────────────────

// Delete 删除申请行后删除该行记录的文件；返回实际删除的文件名。
// 行已删除后的文件删除失败只记录日志，残留文件由孤儿清理任务处理。
func (s *applicationService) Delete(ctx context.Context, id int64) ([]string, error) {
	var app *model.Application
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		app, err = tx.Application.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return tx.Application.Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("申请不存在")
		}
		s.logger.Error("删除申请失败", zap.Int64("application_id", id), zap.Error(err))
		return nil, apperrors.Storage("删除申请失败", err)
	}

	removed, err := s.store.Remove(app.StoredFiles())
	if err != nil {
		s.logger.Error("删除申请文件失败",
			zap.Int64("application_id", id),
			zap.Strings("files", app.StoredFiles()),
			zap.Error(err),
		)
	}

	s.logger.Info("申请已删除",
		zap.Int64("application_id", id),
		zap.Int64("user_id", app.UserID),
		zap.Strings("removed_files", removed),
	)
	if removed == nil {
		removed = []string{}
	}
	return removed, nil
}

// ────────────────────── OpenFile ──────────────────────

// OpenFile 打开申请附件；申请不存在与非本人访问返回同一授权错误
func (s *applicationService) OpenFile(ctx context.Context, caller Caller, id int64, fileType string, index int) (*storage.File, error) {
	app, err := s.repo.Application.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Authorization()
		}
		s.logger.Error("查询申请失败", zap.Int64("application_id", id), zap.Error(err))
		return nil, apperrors.Storage("查询申请失败", err)
	}
	if !caller.IsAdmin() && app.UserID != caller.UserID {
		return nil, apperrors.Authorization()
	}

	var name string
	switch fileType {
	case FileTypeTranscript:
		name = app.TranscriptFile
	case FileTypeEnglish:
		name = app.EnglishCertificateFile
	case FileTypeOther:
		if index < 0 || index >= len(app.OtherCertificatesFiles) {
			return nil, apperrors.NotFound(fmt.Sprintf("证书序号超出范围（共 %d 个）", len(app.OtherCertificatesFiles)))
		}
		name = app.OtherCertificatesFiles[index]
	default:
		return nil, apperrors.ValidationField("type", "文件类型必须为 transcript、english 或 other")
	}

	return s.store.Open(name)
}

// ── 辅助函数 ──

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}

// optionalID 可选志愿：未填或非正数视为未填
func optionalID(id *int64) *int64 {
	if id == nil || *id <= 0 {
		return nil
	}
	v := *id
	return &v
}

func toUniversityResponse(u *model.University) *dto.UniversityResponse {
	if u == nil {
		return nil
	}
	return &dto.UniversityResponse{
		UniversityID:   u.UniversityID,
		UniversityName: u.UniversityName,
		Country:        u.Country,
		City:           u.City,
		Website:        u.Website,
	}
}

func toApplicationResponse(a *model.Application) dto.ApplicationResponse {
	resp := dto.ApplicationResponse{
		ID:                     a.ID,
		UserID:                 a.UserID,
		PassedCoursesPercent:   a.PassedCoursesPercent,
		AverageGrade:           a.AverageGrade,
		EnglishLevel:           a.EnglishLevel,
		KnowsExtraLanguages:    a.KnowsExtraLanguages,
		FirstChoice:            toUniversityResponse(a.FirstChoice),
		SecondChoice:           toUniversityResponse(a.SecondChoice),
		ThirdChoice:            toUniversityResponse(a.ThirdChoice),
		TranscriptFile:         a.TranscriptFile,
		EnglishCertificateFile: a.EnglishCertificateFile,
		OtherCertificatesFiles: []string(a.OtherCertificatesFiles),
		TermsAccepted:          a.TermsAccepted,
		IsAccepted:             a.IsAccepted,
		SubmittedAt:            formatTime(a.SubmittedAt),
	}
	if resp.OtherCertificatesFiles == nil {
		resp.OtherCertificatesFiles = []string{}
	}
	if a.User != nil {
		resp.FirstName = a.User.FirstName
		resp.LastName = a.User.LastName
		resp.StudentID = a.User.StudentID
	}
	return resp
}

func toApplicationResponses(apps []model.Application) []dto.ApplicationResponse {
	result := make([]dto.ApplicationResponse, 0, len(apps))
	for i := range apps {
		result = append(result, toApplicationResponse(&apps[i]))
	}
	return result
}
