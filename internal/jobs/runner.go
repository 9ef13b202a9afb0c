package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/pkg/observability"
)

// Job 后台任务；返回的错误只记录，不会中断调度
type Job func(ctx context.Context) error

// Runner 周期任务调度器，ctx 取消后所有任务退出
type Runner struct {
	ctx    context.Context
	logger *zap.Logger
	wg     sync.WaitGroup
}

// New 创建 Runner
func New(ctx context.Context, logger *zap.Logger) *Runner {
	return &Runner{ctx: ctx, logger: logger}
}

// Every 启动时立即执行一次，之后每隔 interval 执行
func (r *Runner) Every(interval time.Duration, name string, fn Job) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		r.run(name, fn)

		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-t.C:
				r.run(name, fn)
			}
		}
	}()
}

// Wait 等待所有任务退出（优雅关闭时调用）
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) run(name string, fn Job) {
	start := time.Now()
	if err := fn(r.ctx); err != nil && r.ctx.Err() == nil {
		jobErrors.WithLabelValues(name).Inc()
		r.logger.Error("后台任务执行失败", zap.String("job", name), zap.Error(err))
		observability.CaptureErrWithTags(err, map[string]string{"job": name})
	}
	jobRuns.WithLabelValues(name).Inc()
	jobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}
