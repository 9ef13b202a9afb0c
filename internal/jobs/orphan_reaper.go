package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/config"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/storage"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/pkg/metrics"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/pkg/observability"
)

// OrphanReaperJob 孤儿文件清理任务名
const OrphanReaperJob = "orphan_reaper"

// reapTimeout 单轮清理的最长耗时
const reapTimeout = 4 * time.Minute

// FileReferences 当前被申请记录引用的文件名（由 ApplicationRepository 实现）
type FileReferences interface {
	ListFileNames(ctx context.Context) ([]string, error)
}

// FileSweeper 上传目录的列举与删除（由 storage.FileStore 实现）
type FileSweeper interface {
	List() ([]storage.FileInfo, error)
	Remove(names []string) ([]string, error)
}

// OrphanReaper 清理上传目录中未被任何申请引用的文件
// 提交失败且回滚也失败、或删除申请时移除文件失败，都会留下这类文件
type OrphanReaper struct {
	files  FileSweeper
	refs   FileReferences
	grace  time.Duration
	dryRun bool
	now    func() time.Time
	logger *zap.Logger
}

// NewOrphanReaper 创建孤儿文件清理器
func NewOrphanReaper(files FileSweeper, refs FileReferences, cfg *config.StorageConfig, logger *zap.Logger) *OrphanReaper {
	return &OrphanReaper{
		files:  files,
		refs:   refs,
		grace:  cfg.OrphanGrace,
		dryRun: cfg.OrphanDryRun,
		now:    time.Now,
		logger: logger,
	}
}

// Run 执行一轮清理，返回删除（dry run 时为将要删除）的文件名
// 修改时间在 grace 之内的文件跳过：它们可能属于尚未写入数据库的提交
func (r *OrphanReaper) Run(ctx context.Context) ([]string, error) {
	referenced, err := r.refs.ListFileNames(ctx)
	if err != nil {
		return nil, err
	}
	live := make(map[string]struct{}, len(referenced))
	for _, name := range referenced {
		live[name] = struct{}{}
	}

	entries, err := r.files.List()
	if err != nil {
		return nil, err
	}

	cutoff := r.now().Add(-r.grace)
	var orphans []string
	for _, f := range entries {
		if _, ok := live[f.Name]; ok {
			continue
		}
		if f.ModTime.After(cutoff) {
			continue
		}
		orphans = append(orphans, f.Name)
	}

	if len(orphans) == 0 {
		r.logger.Debug("没有孤儿文件", zap.Int("scanned", len(entries)))
		return nil, nil
	}
	if r.dryRun {
		r.logger.Info("DRY-RUN 将删除孤儿文件", zap.Int("count", len(orphans)), zap.Strings("files", orphans))
		return orphans, nil
	}

	removed, err := r.files.Remove(orphans)
	metrics.OrphanFilesRemovedTotal.Add(float64(len(removed)))
	r.logger.Info("孤儿文件已清理",
		zap.Int("removed", len(removed)),
		zap.Int("scanned", len(entries)),
	)
	return removed, err
}

// Schedule 按 cron 表达式注册清理任务并启动；调用方负责 Stop
func (r *OrphanReaper) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(zap.NewStdLog(r.logger)))))

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), reapTimeout)
		defer cancel()

		start := time.Now()
		if _, err := r.Run(ctx); err != nil {
			jobErrors.WithLabelValues(OrphanReaperJob).Inc()
			r.logger.Error("孤儿文件清理失败", zap.Error(err))
			observability.CaptureErrWithTags(err, map[string]string{"job": OrphanReaperJob})
		}
		jobRuns.WithLabelValues(OrphanReaperJob).Inc()
		jobDuration.WithLabelValues(OrphanReaperJob).Observe(time.Since(start).Seconds())
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("孤儿文件清理已启动",
		zap.String("schedule", spec),
		zap.Duration("grace", r.grace),
		zap.Bool("dry_run", r.dryRun),
	)
	c.Start()
	return c, nil
}
