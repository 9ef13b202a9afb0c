package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/model"
)

const dateLayout = "2006-01-02"

// PeriodRepository 申请期数据访问接口
type PeriodRepository interface {
	Create(ctx context.Context, period *model.ApplicationPeriod) error
	DeactivateAll(ctx context.Context) error
	ExpireStale(ctx context.Context, today time.Time) (int64, error)
	GetLatestActive(ctx context.Context) (*model.ApplicationPeriod, error)
	GetLatestEnded(ctx context.Context) (*model.ApplicationPeriod, error)
	GetLatestPublished(ctx context.Context) (*model.ApplicationPeriod, error)
	List(ctx context.Context) ([]model.ApplicationPeriod, error)
	MarkPublished(ctx context.Context, id int64, at time.Time) error
}

type periodRepo struct {
	db *gorm.DB
}

// NewPeriodRepo 创建 PeriodRepository 实例
func NewPeriodRepo(db *gorm.DB) PeriodRepository {
	return &periodRepo{db: db}
}

func (r *periodRepo) Create(ctx context.Context, period *model.ApplicationPeriod) error {
	return mapPGError(r.db.WithContext(ctx).Create(period).Error)
}

// DeactivateAll 将所有申请期的 is_active 设为 false
func (r *periodRepo) DeactivateAll(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Model(&model.ApplicationPeriod{}).
		Where("is_active = ?", true).
		Update("is_active", false).Error
}

// ExpireStale 将结束日期早于 today 的 active 申请期置为 inactive，返回受影响行数
func (r *periodRepo) ExpireStale(ctx context.Context, today time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.ApplicationPeriod{}).
		Where("is_active = ? AND end_date < ?::date", true, today.Format(dateLayout)).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

// GetLatestActive 最近创建的 active 申请期
func (r *periodRepo) GetLatestActive(ctx context.Context) (*model.ApplicationPeriod, error) {
	var period model.ApplicationPeriod
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC, id DESC").
		First(&period).Error
	if err != nil {
		return nil, err
	}
	return &period, nil
}

// GetLatestEnded 结束日期最晚的 inactive 申请期
func (r *periodRepo) GetLatestEnded(ctx context.Context) (*model.ApplicationPeriod, error) {
	var period model.ApplicationPeriod
	err := r.db.WithContext(ctx).
		Where("is_active = ?", false).
		Order("end_date DESC, id DESC").
		First(&period).Error
	if err != nil {
		return nil, err
	}
	return &period, nil
}

// GetLatestPublished 最近一次发布过结果的申请期
func (r *periodRepo) GetLatestPublished(ctx context.Context) (*model.ApplicationPeriod, error) {
	var period model.ApplicationPeriod
	err := r.db.WithContext(ctx).
		Where("published_at IS NOT NULL").
		Order("published_at DESC, id DESC").
		First(&period).Error
	if err != nil {
		return nil, err
	}
	return &period, nil
}

func (r *periodRepo) List(ctx context.Context) ([]model.ApplicationPeriod, error) {
	var periods []model.ApplicationPeriod
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Find(&periods).Error
	return periods, err
}

func (r *periodRepo) MarkPublished(ctx context.Context, id int64, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.ApplicationPeriod{}).
		Where("id = ?", id).
		Update("published_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
