package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/model"
)

// UniversityRepository 合作院校数据访问接口
type UniversityRepository interface {
	Create(ctx context.Context, u *model.University) error
	GetByID(ctx context.Context, id int64) (*model.University, error)
	List(ctx context.Context) ([]model.University, error)
	ExistingIDs(ctx context.Context, ids []int64) ([]int64, error)
}

type universityRepo struct {
	db *gorm.DB
}

// NewUniversityRepo 创建 UniversityRepository 实例
func NewUniversityRepo(db *gorm.DB) UniversityRepository {
	return &universityRepo{db: db}
}

func (r *universityRepo) Create(ctx context.Context, u *model.University) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *universityRepo) GetByID(ctx context.Context, id int64) (*model.University, error) {
	var u model.University
	if err := r.db.WithContext(ctx).Where("university_id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *universityRepo) List(ctx context.Context) ([]model.University, error) {
	var list []model.University
	err := r.db.WithContext(ctx).
		Order("country ASC, university_name ASC").
		Find(&list).Error
	return list, err
}

// ExistingIDs 返回 ids 中实际存在的院校 ID
func (r *universityRepo) ExistingIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []int64
	err := r.db.WithContext(ctx).
		Model(&model.University{}).
		Where("university_id IN ?", ids).
		Pluck("university_id", &found).Error
	return found, err
}
