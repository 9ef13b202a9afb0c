package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/dto"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/model"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/repository"
)

var ErrUniversityNotFound = errors.New("院校不存在")

// UniversityService 合作院校（只读；管理员可新增用于初始化数据）
type UniversityService interface {
	List(ctx context.Context) ([]dto.UniversityResponse, error)
	GetByID(ctx context.Context, id int64) (*dto.UniversityResponse, error)
	Create(ctx context.Context, req *dto.CreateUniversityRequest) (*dto.UniversityResponse, error)
}

type universityService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUniversityService 创建 UniversityService 实例
func NewUniversityService(repo *repository.Repository, logger *zap.Logger) UniversityService {
	return &universityService{repo: repo, logger: logger}
}

func (s *universityService) List(ctx context.Context) ([]dto.UniversityResponse, error) {
	list, err := s.repo.University.List(ctx)
	if err != nil {
		s.logger.Error("列出院校失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.UniversityResponse, 0, len(list))
	for i := range list {
		result = append(result, *toUniversityResponse(&list[i]))
	}
	return result, nil
}

func (s *universityService) GetByID(ctx context.Context, id int64) (*dto.UniversityResponse, error) {
	u, err := s.repo.University.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUniversityNotFound
		}
		s.logger.Error("查询院校失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return toUniversityResponse(u), nil
}

func (s *universityService) Create(ctx context.Context, req *dto.CreateUniversityRequest) (*dto.UniversityResponse, error) {
	u := &model.University{
		UniversityName: req.UniversityName,
		Country:        req.Country,
		City:           req.City,
		Website:        req.Website,
	}
	if err := s.repo.University.Create(ctx, u); err != nil {
		s.logger.Error("创建院校失败", zap.Error(err))
		return nil, err
	}
	return toUniversityResponse(u), nil
}
