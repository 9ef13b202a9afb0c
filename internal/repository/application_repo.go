package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/model"
)

// ApplicationRepository 申请数据访问接口
type ApplicationRepository interface {
	Create(ctx context.Context, app *model.Application) error
	ExistsByUser(ctx context.Context, userID int64) (bool, error)
	GetByID(ctx context.Context, id int64) (*model.Application, error)
	GetByUser(ctx context.Context, userID int64) (*model.Application, error)
	List(ctx context.Context, offset, limit int) ([]model.Application, int64, error)
	ListAccepted(ctx context.Context) ([]model.Application, error)
	ListAcceptedBetween(ctx context.Context, from, to time.Time) ([]model.Application, error)
	CountAccepted(ctx context.Context) (int64, error)
	ResetAcceptance(ctx context.Context) error
	SetAccepted(ctx context.Context, ids []int64) (int64, error)
	Delete(ctx context.Context, id int64) error
	ListFileNames(ctx context.Context) ([]string, error)
}

type applicationRepo struct {
	db *gorm.DB
}

// NewApplicationRepo 创建 ApplicationRepository 实例
func NewApplicationRepo(db *gorm.DB) ApplicationRepository {
	return &applicationRepo{db: db}
}

// withDetails 预加载申请人与三个志愿院校
func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("User").
		Preload("FirstChoice").
		Preload("SecondChoice").
		Preload("ThirdChoice")
}

// Create 插入申请；user_id 唯一约束冲突返回 ErrUniqueViolation
func (r *applicationRepo) Create(ctx context.Context, app *model.Application) error {
	return mapPGError(r.db.WithContext(ctx).Omit("User", "FirstChoice", "SecondChoice", "ThirdChoice").Create(app).Error)
}

func (r *applicationRepo) ExistsByUser(ctx context.Context, userID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Application{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count > 0, err
}

func (r *applicationRepo) GetByID(ctx context.Context, id int64) (*model.Application, error) {
	var app model.Application
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&app).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepo) GetByUser(ctx context.Context, userID int64) (*model.Application, error) {
	var app model.Application
	err := withDetails(r.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		First(&app).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// List 分页列出全部申请（按提交时间倒序）
func (r *applicationRepo) List(ctx context.Context, offset, limit int) ([]model.Application, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Application{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var apps []model.Application
	err := withDetails(r.db.WithContext(ctx)).
		Order("submitted_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&apps).Error
	return apps, total, err
}

// ListAccepted 全部已录取申请，按平均成绩排名
func (r *applicationRepo) ListAccepted(ctx context.Context) ([]model.Application, error) {
	var apps []model.Application
	err := withDetails(r.db.WithContext(ctx)).
		Where("is_accepted = ?", true).
		Order("average_grade DESC, submitted_at ASC, id ASC").
		Find(&apps).Error
	return apps, err
}

// ListAcceptedBetween 提交时间落在 [from, to) 内的已录取申请，按平均成绩排名
func (r *applicationRepo) ListAcceptedBetween(ctx context.Context, from, to time.Time) ([]model.Application, error) {
	var apps []model.Application
	err := withDetails(r.db.WithContext(ctx)).
		Where("is_accepted = ? AND submitted_at >= ? AND submitted_at < ?", true, from, to).
		Order("average_grade DESC, submitted_at ASC, id ASC").
		Find(&apps).Error
	return apps, err
}

func (r *applicationRepo) CountAccepted(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Application{}).
		Where("is_accepted = ?", true).
		Count(&count).Error
	return count, err
}

// ResetAcceptance 将所有申请的 is_accepted 置为 false
func (r *applicationRepo) ResetAcceptance(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Model(&model.Application{}).
		Where("is_accepted = ?", true).
		Update("is_accepted", false).Error
}

// SetAccepted 将给定 id 的申请置为已录取，返回实际更新行数
func (r *applicationRepo) SetAccepted(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&model.Application{}).
		Where("id IN ?", ids).
		Update("is_accepted", true)
	return res.RowsAffected, res.Error
}

func (r *applicationRepo) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.Application{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListFileNames 所有申请引用的物理文件名（供孤儿文件清理比对）
func (r *applicationRepo) ListFileNames(ctx context.Context) ([]string, error) {
	type row struct {
		TranscriptFile         string
		EnglishCertificateFile string
		OtherCertificatesFiles model.StringArray
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&model.Application{}).
		Select("transcript_file, english_certificate_file, other_certificates_files").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(rows)*2)
	for _, rw := range rows {
		names = append(names, rw.TranscriptFile, rw.EnglishCertificateFile)
		names = append(names, rw.OtherCertificatesFiles...)
	}
	return names, nil
}
