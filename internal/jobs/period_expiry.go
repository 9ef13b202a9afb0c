package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/service"
)

// PeriodExpiryJob 过期扫描任务名
const PeriodExpiryJob = "period_expiry"

// Locker 多实例互斥（由 pkg/redis.Client 实现）
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, name, token string) error
}

// PeriodExpiry 将结束日期已过的申请期置为 inactive
// locker 为 nil 时直接执行；拿不到锁说明其他实例正在扫描，本轮跳过
func PeriodExpiry(periods service.PeriodService, locker Locker, lockTTL time.Duration, logger *zap.Logger) Job {
	return func(ctx context.Context) error {
		if locker == nil {
			_, err := periods.Sweep(ctx)
			return err
		}

		token, err := locker.TryLock(ctx, PeriodExpiryJob, lockTTL)
		if err != nil {
			// Redis 不可用时仍执行扫描；ExpireStale 本身是幂等的
			logger.Warn("获取扫描锁失败，直接执行", zap.Error(err))
			_, err := periods.Sweep(ctx)
			return err
		}
		if token == "" {
			logger.Debug("扫描锁被其他实例持有，跳过本轮")
			return nil
		}
		defer func() {
			if err := locker.Unlock(context.WithoutCancel(ctx), PeriodExpiryJob, token); err != nil {
				logger.Warn("释放扫描锁失败", zap.Error(err))
			}
		}()

		_, err = periods.Sweep(ctx)
		return err
	}
}
