package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/config"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/repository"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/storage"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/pkg/jwt"
)

// Clock 当前时间来源，测试中替换为固定时间
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock 系统时钟
var SystemClock Clock = systemClock{}

// TokenBlacklist Token 黑名单（Redis 实现；未配置 Redis 时为 nil）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// Service 所有 Service 的聚合入口
type Service struct {
	Auth        AuthService
	Period      PeriodService
	Application ApplicationService
	Result      ResultService
	University  UniversityService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	store storage.FileStore,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) *Service {
	loc := cfg.Period.Location()
	period := NewPeriodService(repo, loc, SystemClock, logger)

	return &Service{
		Auth:        NewAuthService(cfg, repo, jwtMgr, blacklist, logger),
		Period:      period,
		Application: NewApplicationService(repo, period, store, cfg.Storage.MaxOtherFiles, SystemClock, logger),
		Result:      NewResultService(repo, period, loc, SystemClock, logger),
		University:  NewUniversityService(repo, logger),
	}
}

// ── 辅助函数 ──

const dateLayout = "2006-01-02"

// formatTime 统一的时间输出格式
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
